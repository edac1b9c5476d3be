package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/stylistbot/stylist-bot/types"
)

// Policy decides whether a user may run a billable operation. It is a
// pure decision function: it never mutates quota, so callers can check
// as often as they like.
type Policy struct {
	quota         types.QuotaStore
	whitelist     *Whitelist
	warnThreshold int
}

func NewPolicy(quota types.QuotaStore, whitelist *Whitelist, warnThreshold int) *Policy {
	if warnThreshold <= 0 {
		warnThreshold = WarnThreshold
	}
	if whitelist == nil {
		whitelist = NewWhitelist(nil)
	}
	return &Policy{
		quota:         quota,
		whitelist:     whitelist,
		warnThreshold: warnThreshold,
	}
}

// CheckAccess returns the decision and the remaining quota the decision
// was based on. A store failure fails closed: billing decisions are
// never granted on guesswork, so the caller sees hard_block plus the
// wrapped error.
func (p *Policy) CheckAccess(ctx context.Context, userID int64, handle string, service types.Service, now time.Time) (types.Decision, int, error) {
	if p.whitelist.Contains(userID, handle) {
		return types.DecisionUnrestricted, 0, nil
	}

	remaining, err := p.quota.Remaining(ctx, userID, service, now)
	if err != nil {
		return types.DecisionHardBlock, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	switch {
	case remaining == 0:
		return types.DecisionHardBlock, 0, nil
	case remaining <= p.warnThreshold:
		return types.DecisionSoftWarn, remaining, nil
	default:
		return types.DecisionOK, remaining, nil
	}
}
