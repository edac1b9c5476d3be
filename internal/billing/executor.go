package billing

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/stylistbot/stylist-bot/types"
)

// Operation is one externally supplied billable unit of work, typically
// a generation call. It may run for minutes and may fail or be
// cancelled; either way it must return.
type Operation func(ctx context.Context) (payload string, err error)

type ResultStatus string

const (
	StatusBlocked ResultStatus = "blocked"
	StatusSuccess ResultStatus = "success"
	StatusFailure ResultStatus = "failure"
)

// Result is the outcome of one Execute call.
type Result struct {
	Status   ResultStatus
	Decision types.Decision
	Payload  string
	Err      error
}

// Executor ties quota consumption to the operation it pays for: consume
// first, run the operation, refund on failure. The pending-operation
// record guarantees the refund happens at most once even with duplicate
// failure callbacks or a concurrent recovery sweep.
type Executor struct {
	policy  *Policy
	quota   types.QuotaStore
	pending types.PendingOpStore
	now     func() time.Time
}

func NewExecutor(policy *Policy, quota types.QuotaStore, pending types.PendingOpStore) *Executor {
	return &Executor{
		policy:  policy,
		quota:   quota,
		pending: pending,
		now:     time.Now,
	}
}

// Execute runs one billable operation for the user. operationID must be
// stable across retries of the same logical request; when empty a fresh
// id is generated.
//
// No lock is held across op: the decremented counter plus the consumed
// pending record are the only reservation.
func (e *Executor) Execute(ctx context.Context, userID int64, handle string, service types.Service, amount int, operationID string, op Operation) Result {
	now := e.now()

	decision, _, err := e.policy.CheckAccess(ctx, userID, handle, service, now)
	if decision == types.DecisionHardBlock {
		return Result{Status: StatusBlocked, Decision: decision, Err: err}
	}

	if decision == types.DecisionUnrestricted {
		payload, opErr := op(ctx)
		if opErr != nil {
			return Result{Status: StatusFailure, Decision: decision, Err: &ProviderError{Service: service, Err: opErr}}
		}
		return Result{Status: StatusSuccess, Decision: decision, Payload: payload}
	}

	// Recheck via the atomic decrement: quota may have vanished between
	// the policy check and now.
	ok, err := e.quota.TryConsume(ctx, userID, service, amount, now)
	if err != nil {
		return Result{Status: StatusBlocked, Decision: types.DecisionHardBlock, Err: fmt.Errorf("%w: %v", ErrStoreUnavailable, err)}
	}
	if !ok {
		return Result{Status: StatusBlocked, Decision: types.DecisionHardBlock, Err: ErrQuotaRace}
	}

	if operationID == "" {
		operationID = uuid.New().String()
	}
	pendingOp := &types.PendingOperation{
		ID:        operationID,
		UserID:    userID,
		Service:   service,
		Amount:    amount,
		CreatedAt: now,
	}
	if err := e.pending.CreateConsumed(ctx, pendingOp); err != nil {
		// Without a pending record a failed operation could never be
		// refunded safely; give the unit back and refuse the request.
		e.refund(ctx, userID, service, amount)
		return Result{Status: StatusBlocked, Decision: types.DecisionHardBlock, Err: fmt.Errorf("%w: %v", ErrStoreUnavailable, err)}
	}

	payload, opErr := op(ctx)

	// The caller's context may already be cancelled by the time the
	// operation resolves; the bookkeeping still has to land.
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if opErr == nil {
		won, err := e.pending.MarkCompleted(cleanupCtx, operationID)
		if err != nil {
			log.Printf("Executor: failed to complete op %s: %v", operationID, err)
		} else if !won {
			// The sweep already refunded this operation; the user got the
			// unit back and the result on top. Log it, don't claw back.
			log.Printf("Executor: op %s finished after being swept", operationID)
		}
		return Result{Status: StatusSuccess, Decision: decision, Payload: payload}
	}

	won, err := e.pending.MarkRefunded(cleanupCtx, operationID)
	if err != nil {
		log.Printf("Executor: failed to mark op %s refunded: %v", operationID, err)
	}
	if won {
		e.refund(cleanupCtx, userID, service, amount)
	}
	return Result{Status: StatusFailure, Decision: decision, Err: &ProviderError{Service: service, Err: opErr}}
}

func (e *Executor) refund(ctx context.Context, userID int64, service types.Service, amount int) {
	applied, err := e.quota.Refund(ctx, userID, service, amount, e.now())
	if err != nil {
		log.Printf("Executor: refund of %d %s for user %d failed: %v", amount, service, userID, err)
		return
	}
	if !applied {
		log.Printf("Executor: refund of %d %s for user %d dropped: counter expired", amount, service, userID)
	}
}
