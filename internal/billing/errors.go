package billing

import (
	"errors"
	"fmt"

	"github.com/stylistbot/stylist-bot/types"
)

// Sentinel errors.
var (
	ErrQuotaRace        = errors.New("billing: quota consumed concurrently")
	ErrStoreUnavailable = errors.New("billing: store unavailable")
)

// ProviderError wraps a failed generation call with enough context to
// explain the failure to the end user.
type ProviderError struct {
	Service types.Service
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("billing: %s provider failed: %v", e.Service, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
