package postgres

import (
	"context"
	"fmt"

	"curve-launchpad/internal/domain"
	"curve-launchpad/internal/storage"
)

// GraduationEventStore implements storage.GraduationEventStore using
// PostgreSQL.
type GraduationEventStore struct {
	pool *Pool
}

// NewGraduationEventStore creates a new GraduationEventStore.
func NewGraduationEventStore(pool *Pool) *GraduationEventStore {
	return &GraduationEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.GraduationEventStore = (*GraduationEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if the token already has
// one.
func (s *GraduationEventStore) Insert(ctx context.Context, e *domain.GraduationEvent) error {
	if e == nil || e.TokenID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO graduation_events (
			token_id, final_supply, final_raised_value, sequence, graduated_at
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		e.TokenID, int64(e.FinalSupply), int64(e.FinalRaisedValue),
		int64(e.Sequence), e.GraduatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert graduation event: %w", err)
	}
	return nil
}

// GetByTokenID retrieves the event for a token. Returns ErrNotFound if the
// token has not graduated.
func (s *GraduationEventStore) GetByTokenID(ctx context.Context, tokenID string) (*domain.GraduationEvent, error) {
	query := `
		SELECT token_id, final_supply, final_raised_value, sequence, graduated_at
		FROM graduation_events
		WHERE token_id = $1
	`

	var e domain.GraduationEvent
	var finalSupply, finalRaised, sequence int64
	err := s.pool.QueryRow(ctx, query, tokenID).Scan(
		&e.TokenID, &finalSupply, &finalRaised, &sequence, &e.GraduatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get graduation event: %w", err)
	}

	e.FinalSupply = uint64(finalSupply)
	e.FinalRaisedValue = uint64(finalRaised)
	e.Sequence = uint64(sequence)
	return &e, nil
}

// GetByTimeRange retrieves events graduated within [start, end] (inclusive),
// ordered by graduated_at ASC.
func (s *GraduationEventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.GraduationEvent, error) {
	query := `
		SELECT token_id, final_supply, final_raised_value, sequence, graduated_at
		FROM graduation_events
		WHERE graduated_at >= $1 AND graduated_at <= $2
		ORDER BY graduated_at ASC, token_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get graduation events by time range: %w", err)
	}
	defer rows.Close()

	var events []*domain.GraduationEvent
	for rows.Next() {
		var e domain.GraduationEvent
		var finalSupply, finalRaised, sequence int64
		if err := rows.Scan(&e.TokenID, &finalSupply, &finalRaised, &sequence, &e.GraduatedAt); err != nil {
			return nil, fmt.Errorf("scan graduation event row: %w", err)
		}
		e.FinalSupply = uint64(finalSupply)
		e.FinalRaisedValue = uint64(finalRaised)
		e.Sequence = uint64(sequence)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate graduation event rows: %w", err)
	}

	return events, nil
}
