package types

import (
	"context"
	"time"
)

// Tier is an immutable catalog entry for a purchasable pass.
type Tier struct {
	ID         string
	Name       string
	PriceStars int
	Duration   time.Duration
	Quota      map[Service]int
}

// Pass is the active time-boxed quota bundle for one user.
// At most one pass is active per user; a new purchase replaces it wholesale.
type Pass struct {
	TierID      string          `json:"tier_id"`
	ActivatedAt time.Time       `json:"activated_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Quota       map[Service]int `json:"quota"`
}

func (p *Pass) Active(now time.Time) bool {
	return p != nil && now.Before(p.ExpiresAt)
}

// PendingOperation records one in-flight billable operation so a failed
// generation can be refunded exactly once.
type PendingOperation struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Service   Service   `json:"service"`
	Amount    int       `json:"amount"`
	Status    OpStatus  `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type PassStore interface {
	// ActivatePass overwrites any existing pass and resets all quota
	// counters to the tier's included quota in one atomic write.
	ActivatePass(ctx context.Context, userID int64, tier Tier, now time.Time) (*Pass, error)

	// GetActivePass returns nil when no pass exists or it has expired.
	GetActivePass(ctx context.Context, userID int64, now time.Time) (*Pass, error)
}

type QuotaStore interface {
	// TopUp adds pay-as-you-go quota. A missing or expired counter is
	// recreated with the given ttl; an active one keeps its expiry.
	TopUp(ctx context.Context, userID int64, service Service, amount int, ttl time.Duration, now time.Time) error

	// Remaining is 0 for a missing or expired counter, never negative.
	Remaining(ctx context.Context, userID int64, service Service, now time.Time) (int, error)

	// TryConsume atomically decrements the counter when remaining >= amount
	// and reports whether it did. Concurrent calls never over-consume.
	TryConsume(ctx context.Context, userID int64, service Service, amount int, now time.Time) (bool, error)

	// Refund atomically credits the counter back, capped at the active
	// pass's included quota. A refund against a missing or expired counter
	// is dropped and reported as applied=false.
	Refund(ctx context.Context, userID int64, service Service, amount int, now time.Time) (applied bool, err error)
}

type PendingOpStore interface {
	CreateConsumed(ctx context.Context, op *PendingOperation) error

	// MarkCompleted and MarkRefunded compare-and-swap the status from
	// consumed and report whether this call won the transition.
	MarkCompleted(ctx context.Context, opID string) (bool, error)
	MarkRefunded(ctx context.Context, opID string) (bool, error)

	// ListStaleConsumed returns operations still consumed and created
	// before the cutoff. Used by the recovery sweep.
	ListStaleConsumed(ctx context.Context, cutoff time.Time) ([]*PendingOperation, error)
}
