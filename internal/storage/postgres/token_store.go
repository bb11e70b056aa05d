package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"curve-launchpad/internal/domain"
	"curve-launchpad/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

const tokenColumns = `
	token_id, name, symbol, creator, lifecycle,
	sold_supply, raised_value, accrued_protocol_fee, accrued_creator_fee,
	total_value_in, total_value_out, sequence, created_at, graduated_at
`

// Insert adds a newly created token. Returns ErrDuplicateKey if the ID exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.Token) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.Name, t.Symbol, t.Creator, string(t.Lifecycle),
		int64(t.SoldSupply), int64(t.RaisedValue),
		int64(t.AccruedProtocolFee), int64(t.AccruedCreatorFee),
		int64(t.TotalValueIn), int64(t.TotalValueOut),
		int64(t.Sequence), t.CreatedAt, t.GraduatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// UpdateState refreshes the mutable fields from a post-trade snapshot.
func (s *TokenStore) UpdateState(ctx context.Context, t *domain.Token) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE tokens SET
			lifecycle = $2,
			sold_supply = $3,
			raised_value = $4,
			accrued_protocol_fee = $5,
			accrued_creator_fee = $6,
			total_value_in = $7,
			total_value_out = $8,
			sequence = $9,
			graduated_at = $10
		WHERE token_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		t.ID, string(t.Lifecycle),
		int64(t.SoldSupply), int64(t.RaisedValue),
		int64(t.AccruedProtocolFee), int64(t.AccruedCreatorFee),
		int64(t.TotalValueIn), int64(t.TotalValueOut),
		int64(t.Sequence), t.GraduatedAt,
	)
	if err != nil {
		return fmt.Errorf("update token state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a token by its ID. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByID(ctx context.Context, tokenID string) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE token_id = $1`

	row := s.pool.QueryRow(ctx, query, tokenID)
	t, err := scanToken(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by id: %w", err)
	}
	return t, nil
}

// GetByCreator retrieves all tokens launched by a creator, ordered by
// created_at ASC.
func (s *TokenStore) GetByCreator(ctx context.Context, creator string) ([]*domain.Token, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE creator = $1
		ORDER BY created_at ASC, token_id ASC
	`

	rows, err := s.pool.Query(ctx, query, creator)
	if err != nil {
		return nil, fmt.Errorf("get tokens by creator: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// GetByLifecycle retrieves all tokens in a lifecycle state, ordered by
// created_at ASC.
func (s *TokenStore) GetByLifecycle(ctx context.Context, lc domain.Lifecycle) ([]*domain.Token, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE lifecycle = $1
		ORDER BY created_at ASC, token_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(lc))
	if err != nil {
		return nil, fmt.Errorf("get tokens by lifecycle: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// scanToken scans a single row into a Token.
func scanToken(row pgx.Row) (*domain.Token, error) {
	var t domain.Token
	var lifecycle string
	var soldSupply, raisedValue, protocolFee, creatorFee int64
	var valueIn, valueOut, sequence int64

	err := row.Scan(
		&t.ID, &t.Name, &t.Symbol, &t.Creator, &lifecycle,
		&soldSupply, &raisedValue, &protocolFee, &creatorFee,
		&valueIn, &valueOut, &sequence, &t.CreatedAt, &t.GraduatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Lifecycle = domain.Lifecycle(lifecycle)
	t.SoldSupply = uint64(soldSupply)
	t.RaisedValue = uint64(raisedValue)
	t.AccruedProtocolFee = uint64(protocolFee)
	t.AccruedCreatorFee = uint64(creatorFee)
	t.TotalValueIn = uint64(valueIn)
	t.TotalValueOut = uint64(valueOut)
	t.Sequence = uint64(sequence)
	return &t, nil
}

// scanTokens scans multiple rows into a slice of Token.
func scanTokens(rows pgx.Rows) ([]*domain.Token, error) {
	var tokens []*domain.Token

	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}

	return tokens, nil
}
