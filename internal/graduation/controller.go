// Package graduation watches ledger state after each trade and performs the
// one-way Active -> Graduated transition when the raised-value threshold is
// crossed, handing accumulated liquidity to the external pool.
package graduation

import (
	"context"
	"errors"
	"log"

	"curve-launchpad/internal/domain"
	"curve-launchpad/internal/ledger"
	"curve-launchpad/internal/observability"
)

// PoolSeeder is the external liquidity pool. SeedLiquidity is invoked exactly
// once per token, only after the graduation event exists.
type PoolSeeder interface {
	SeedLiquidity(ctx context.Context, tokenID string, quantity, value uint64) (poolHandle string, err error)
}

// Controller checks tokens for graduation. Idempotent: the ledger refuses a
// second Graduate mutation, so concurrent or repeated checks emit at most one
// event.
type Controller struct {
	ledger    *ledger.Ledger
	pool      PoolSeeder
	threshold uint64
	logger    *log.Logger
}

// Options configures a Controller.
type Options struct {
	Ledger    *ledger.Ledger
	Pool      PoolSeeder
	Threshold uint64 // raised value at which curve trading ends
	Logger    *log.Logger
}

// New creates a Controller.
func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[graduation] ", log.LstdFlags)
	}
	return &Controller{
		ledger:    opts.Ledger,
		pool:      opts.Pool,
		threshold: opts.Threshold,
		logger:    opts.Logger,
	}
}

// Check inspects the token and graduates it if the threshold is crossed.
// Returns the emitted event, or nil when no transition happened. A nil return
// with nil error is the common case and not an anomaly.
func (c *Controller) Check(ctx context.Context, tokenID string) (*domain.GraduationEvent, error) {
	snap, err := c.ledger.Snapshot(tokenID)
	if err != nil {
		return nil, err
	}
	if snap.Lifecycle != domain.LifecycleActive || snap.RaisedValue < c.threshold {
		return nil, nil
	}

	state, err := c.ledger.Apply(tokenID, ledger.Graduate{})
	if err != nil {
		// Lost the race to another check; the winner emitted the event.
		if errors.Is(err, ledger.ErrAlreadyGraduated) {
			return nil, nil
		}
		return nil, err
	}

	event := &domain.GraduationEvent{
		TokenID:          state.ID,
		FinalSupply:      state.SoldSupply,
		FinalRaisedValue: state.RaisedValue,
		Sequence:         state.Sequence,
		GraduatedAt:      state.GraduatedAt,
	}

	observability.RecordGraduation()
	c.logger.Printf("token graduated: id=%s supply=%d raised=%d",
		event.TokenID, event.FinalSupply, event.FinalRaisedValue)

	if c.pool != nil {
		handle, err := c.pool.SeedLiquidity(ctx, event.TokenID, event.FinalSupply, event.FinalRaisedValue)
		if err != nil {
			// The graduation stands; pool seeding is reconciled out of band
			// like any post-commit transfer.
			c.logger.Printf("ERROR seeding pool for token %s: %v", event.TokenID, err)
		} else {
			c.logger.Printf("liquidity seeded: token=%s pool=%s", event.TokenID, handle)
		}
	}

	return event, nil
}
