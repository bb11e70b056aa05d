// Package storage defines the persistence interfaces behind the trade feed.
// The engine itself is memory-authoritative; stores are write-behind mirrors
// fed from the event sink, so every mutation arrives as an insert (receipts,
// graduation events) or a full-state refresh (tokens).
package storage

import (
	"context"

	"curve-launchpad/internal/domain"
)

// TokenStore provides access to token rows.
type TokenStore interface {
	// Insert adds a newly created token. Returns ErrDuplicateKey if the
	// token ID exists.
	Insert(ctx context.Context, t *domain.Token) error

	// UpdateState refreshes the mutable fields (supply, raised value, fees,
	// lifecycle, sequence) from a post-trade snapshot. Returns ErrNotFound
	// if the token was never inserted.
	UpdateState(ctx context.Context, t *domain.Token) error

	// GetByID retrieves a token by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tokenID string) (*domain.Token, error)

	// GetByCreator retrieves all tokens launched by a creator, ordered by
	// created_at ASC.
	GetByCreator(ctx context.Context, creator string) ([]*domain.Token, error)

	// GetByLifecycle retrieves all tokens in a given lifecycle state,
	// ordered by created_at ASC.
	GetByLifecycle(ctx context.Context, lc domain.Lifecycle) ([]*domain.Token, error)
}

// ReceiptStore provides access to trade_receipts storage.
type ReceiptStore interface {
	// Insert adds a new receipt. Returns ErrDuplicateKey if
	// (token_id, sequence) exists.
	Insert(ctx context.Context, r *domain.TradeReceipt) error

	// InsertBulk adds multiple receipts atomically. Fails entire batch on
	// any duplicate.
	InsertBulk(ctx context.Context, receipts []*domain.TradeReceipt) error

	// GetByTokenID retrieves all receipts for a token, ordered by sequence ASC.
	GetByTokenID(ctx context.Context, tokenID string) ([]*domain.TradeReceipt, error)

	// GetBySequenceRange retrieves receipts for a token with sequence in
	// [start, end] (inclusive), ordered by sequence ASC.
	GetBySequenceRange(ctx context.Context, tokenID string, start, end uint64) ([]*domain.TradeReceipt, error)
}

// GraduationEventStore provides access to graduation_events storage.
type GraduationEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if the token already
	// has one; a token graduates at most once.
	Insert(ctx context.Context, e *domain.GraduationEvent) error

	// GetByTokenID retrieves the event for a token. Returns ErrNotFound if
	// the token has not graduated.
	GetByTokenID(ctx context.Context, tokenID string) (*domain.GraduationEvent, error)

	// GetByTimeRange retrieves events graduated within [start, end]
	// (inclusive, unix nanos), ordered by graduated_at ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.GraduationEvent, error)
}
