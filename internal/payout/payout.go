// Package payout moves accrued protocol and creator fees to their
// destinations. Transfers happen strictly after the ledger mutation has
// committed; a failed transfer is a reconciliation case, never a reason to
// touch the ledger. The Reconciler retries failed transfers with a bounded
// backoff and never calls back into the trade path.
package payout

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"curve-launchpad/internal/observability"
)

// Channel is the external fee payout rail.
type Channel interface {
	// Transfer moves amount base units to destination. Implementations may
	// block on network I/O; the engine only calls this after commit.
	Transfer(ctx context.Context, destination string, amount uint64) error
}

// ErrRetriesExhausted is returned by Drain for transfers that failed every
// attempt and were surfaced for out-of-band reconciliation.
var ErrRetriesExhausted = errors.New("payout retries exhausted")

// pending is one settled-but-unpaid transfer.
type pending struct {
	tokenID     string
	destination string
	amount      uint64
	attempts    int
}

// Reconciler queues failed fee transfers and retries them in the background.
type Reconciler struct {
	channel     Channel
	maxAttempts int
	interval    time.Duration
	logger      *log.Logger

	mu    sync.Mutex
	queue []pending
}

// Options configures a Reconciler.
type Options struct {
	Channel     Channel
	MaxAttempts int           // per transfer, including the first retry
	Interval    time.Duration // pause between retry sweeps
	Logger      *log.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(opts Options) *Reconciler {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[payout] ", log.LstdFlags)
	}
	return &Reconciler{
		channel:     opts.Channel,
		maxAttempts: opts.MaxAttempts,
		interval:    opts.Interval,
		logger:      opts.Logger,
	}
}

// Enqueue records a settled-but-unpaid transfer for retry.
func (r *Reconciler) Enqueue(tokenID, destination string, amount uint64) {
	if amount == 0 {
		return
	}
	r.mu.Lock()
	r.queue = append(r.queue, pending{tokenID: tokenID, destination: destination, amount: amount})
	depth := len(r.queue)
	r.mu.Unlock()

	observability.DefaultMetrics.PayoutQueueDepth.Set(float64(depth))
	r.logger.Printf("queued unpaid fee transfer: token=%s dest=%s amount=%d queue=%d",
		tokenID, destination, amount, depth)
}

// QueueDepth reports the number of transfers awaiting reconciliation.
func (r *Reconciler) QueueDepth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Run retries queued transfers until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Drain(ctx)
		}
	}
}

// Drain attempts every queued transfer once. Successes leave the queue;
// transfers that exhaust their attempts are dropped with an error log and an
// abandoned-counter increment so operators can reconcile manually.
func (r *Reconciler) Drain(ctx context.Context) {
	r.mu.Lock()
	batch := r.queue
	r.queue = nil
	r.mu.Unlock()

	var remaining []pending
	for _, p := range batch {
		if ctx.Err() != nil {
			remaining = append(remaining, p)
			continue
		}
		p.attempts++
		observability.DefaultMetrics.PayoutRetries.Inc()

		err := r.channel.Transfer(ctx, p.destination, p.amount)
		if err == nil {
			observability.RecordFeeTransfer("recovered")
			r.logger.Printf("recovered fee transfer: token=%s dest=%s amount=%d attempts=%d",
				p.tokenID, p.destination, p.amount, p.attempts)
			continue
		}
		if p.attempts >= r.maxAttempts {
			observability.DefaultMetrics.PayoutAbandoned.Inc()
			r.logger.Printf("ERROR abandoning fee transfer after %d attempts: token=%s dest=%s amount=%d err=%v",
				p.attempts, p.tokenID, p.destination, p.amount, err)
			continue
		}
		remaining = append(remaining, p)
	}

	r.mu.Lock()
	r.queue = append(remaining, r.queue...)
	depth := len(r.queue)
	r.mu.Unlock()
	observability.DefaultMetrics.PayoutQueueDepth.Set(float64(depth))
}
