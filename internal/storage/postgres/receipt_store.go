package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"curve-launchpad/internal/domain"
	"curve-launchpad/internal/storage"
)

// ReceiptStore implements storage.ReceiptStore using PostgreSQL.
type ReceiptStore struct {
	pool *Pool
}

// NewReceiptStore creates a new ReceiptStore.
func NewReceiptStore(pool *Pool) *ReceiptStore {
	return &ReceiptStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReceiptStore = (*ReceiptStore)(nil)

const receiptColumns = `
	token_id, sequence, side, gross_value, net_value,
	quantity_in, quantity_out, unit_price, protocol_fee, creator_fee,
	sold_supply, raised_value, fee_payout_pending, executed_at
`

const insertReceiptQuery = `
	INSERT INTO trade_receipts (` + receiptColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

// Insert adds a new receipt. Returns ErrDuplicateKey if (token_id, sequence)
// exists.
func (s *ReceiptStore) Insert(ctx context.Context, r *domain.TradeReceipt) error {
	if r == nil || r.TokenID == "" || r.Sequence == 0 {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertReceiptQuery, receiptArgs(r)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

// InsertBulk adds multiple receipts atomically. Fails entire batch on any
// duplicate.
func (s *ReceiptStore) InsertBulk(ctx context.Context, receipts []*domain.TradeReceipt) error {
	if len(receipts) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range receipts {
		if r == nil || r.TokenID == "" || r.Sequence == 0 {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertReceiptQuery, receiptArgs(r)...)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert receipt in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByTokenID retrieves all receipts for a token, ordered by sequence ASC.
func (s *ReceiptStore) GetByTokenID(ctx context.Context, tokenID string) ([]*domain.TradeReceipt, error) {
	query := `
		SELECT ` + receiptColumns + `
		FROM trade_receipts
		WHERE token_id = $1
		ORDER BY sequence ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("get receipts by token id: %w", err)
	}
	defer rows.Close()

	return scanReceipts(rows)
}

// GetBySequenceRange retrieves receipts for a token with sequence in
// [start, end] (inclusive), ordered by sequence ASC.
func (s *ReceiptStore) GetBySequenceRange(ctx context.Context, tokenID string, start, end uint64) ([]*domain.TradeReceipt, error) {
	query := `
		SELECT ` + receiptColumns + `
		FROM trade_receipts
		WHERE token_id = $1 AND sequence >= $2 AND sequence <= $3
		ORDER BY sequence ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenID, int64(start), int64(end))
	if err != nil {
		return nil, fmt.Errorf("get receipts by sequence range: %w", err)
	}
	defer rows.Close()

	return scanReceipts(rows)
}

// receiptArgs builds the insert argument list for a receipt.
func receiptArgs(r *domain.TradeReceipt) []any {
	return []any{
		r.TokenID, int64(r.Sequence), r.Side,
		int64(r.GrossValue), int64(r.NetValue),
		int64(r.QuantityIn), int64(r.QuantityOut), int64(r.UnitPrice),
		int64(r.ProtocolFee), int64(r.CreatorFee),
		int64(r.SoldSupply), int64(r.RaisedValue),
		r.FeePayoutPending, r.ExecutedAt,
	}
}

// scanReceipts scans multiple rows into a slice of TradeReceipt.
func scanReceipts(rows pgx.Rows) ([]*domain.TradeReceipt, error) {
	var receipts []*domain.TradeReceipt

	for rows.Next() {
		var r domain.TradeReceipt
		var sequence, grossValue, netValue int64
		var quantityIn, quantityOut, unitPrice int64
		var protocolFee, creatorFee, soldSupply, raisedValue int64

		err := rows.Scan(
			&r.TokenID, &sequence, &r.Side, &grossValue, &netValue,
			&quantityIn, &quantityOut, &unitPrice, &protocolFee, &creatorFee,
			&soldSupply, &raisedValue, &r.FeePayoutPending, &r.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan receipt row: %w", err)
		}

		r.Sequence = uint64(sequence)
		r.GrossValue = uint64(grossValue)
		r.NetValue = uint64(netValue)
		r.QuantityIn = uint64(quantityIn)
		r.QuantityOut = uint64(quantityOut)
		r.UnitPrice = uint64(unitPrice)
		r.ProtocolFee = uint64(protocolFee)
		r.CreatorFee = uint64(creatorFee)
		r.SoldSupply = uint64(soldSupply)
		r.RaisedValue = uint64(raisedValue)
		receipts = append(receipts, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipt rows: %w", err)
	}

	return receipts, nil
}
