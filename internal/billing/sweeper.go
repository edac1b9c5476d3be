package billing

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/stylistbot/stylist-bot/types"
)

// Sweeper recovers quota reserved by operations that will never resolve:
// a consumed pending record older than the maximum operation duration is
// treated as failed and refunded. This is the durability backstop for
// crashes between consume and refund, not optional cleanup.
type Sweeper struct {
	pending  types.PendingOpStore
	quota    types.QuotaStore
	maxAge   time.Duration
	interval time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

type SweeperConfig struct {
	// MaxOperationAge is how long a consumed record may sit before the
	// sweep declares the operation dead.
	MaxOperationAge time.Duration
	Interval        time.Duration
}

func NewSweeper(pending types.PendingOpStore, quota types.QuotaStore, config SweeperConfig) *Sweeper {
	if config.MaxOperationAge <= 0 {
		config.MaxOperationAge = 15 * time.Minute
	}
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Sweeper{
		pending:  pending,
		quota:    quota,
		maxAge:   config.MaxOperationAge,
		interval: config.Interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	log.Printf("Sweeper started: interval=%s max_operation_age=%s", s.interval, s.maxAge)

	s.wg.Add(1)
	go s.run()
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	log.Println("Sweeper stopped")
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.SweepOnce(s.ctx, time.Now()); err != nil {
				log.Printf("Sweeper: sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("Sweeper: refunded %d stale operations", n)
			}
		}
	}
}

// SweepOnce refunds every stale consumed operation once and returns how
// many refunds it won. Per-record failures are logged for operator
// attention and do not stop the sweep.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.pending.ListStaleConsumed(ctx, now.Add(-s.maxAge))
	if err != nil {
		return 0, err
	}

	refunded := 0
	for _, op := range stale {
		won, err := s.pending.MarkRefunded(ctx, op.ID)
		if err != nil {
			log.Printf("Sweeper: failed to mark op %s refunded: %v", op.ID, err)
			continue
		}
		if !won {
			// Lost the transition to the executor; nothing to do.
			continue
		}
		applied, err := s.quota.Refund(ctx, op.UserID, op.Service, op.Amount, now)
		if err != nil {
			log.Printf("Sweeper: refund of %d %s for user %d (op %s) failed: %v", op.Amount, op.Service, op.UserID, op.ID, err)
			continue
		}
		if !applied {
			log.Printf("Sweeper: refund for op %s dropped: counter expired", op.ID)
		}
		refunded++
	}
	return refunded, nil
}
