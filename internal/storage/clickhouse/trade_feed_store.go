package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"curve-launchpad/internal/domain"
	"curve-launchpad/internal/storage"
)

// TradeFeedStore implements storage.ReceiptStore on the trade_feed table.
// MergeTree does not enforce uniqueness, so duplicates are detected with an
// explicit (token_id, sequence) check before insert.
type TradeFeedStore struct {
	conn *Conn
}

// NewTradeFeedStore creates a new TradeFeedStore.
func NewTradeFeedStore(conn *Conn) *TradeFeedStore {
	return &TradeFeedStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ReceiptStore = (*TradeFeedStore)(nil)

// Insert adds a new receipt. Returns ErrDuplicateKey if (token_id, sequence)
// exists.
func (s *TradeFeedStore) Insert(ctx context.Context, r *domain.TradeReceipt) error {
	return s.InsertBulk(ctx, []*domain.TradeReceipt{r})
}

// InsertBulk adds multiple receipts. Fails entire batch on any duplicate.
func (s *TradeFeedStore) InsertBulk(ctx context.Context, receipts []*domain.TradeReceipt) error {
	if len(receipts) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		tokenID  string
		sequence uint64
	}
	seen := make(map[key]struct{}, len(receipts))
	for _, r := range receipts {
		if r == nil || r.TokenID == "" || r.Sequence == 0 {
			return storage.ErrInvalidInput
		}
		k := key{r.TokenID, r.Sequence}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing rows
	for _, r := range receipts {
		exists, err := s.exists(ctx, r.TokenID, r.Sequence)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trade_feed (
			token_id, sequence, side, gross_value, net_value,
			quantity_in, quantity_out, unit_price, protocol_fee, creator_fee,
			sold_supply, raised_value, executed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range receipts {
		err = batch.Append(
			r.TokenID, r.Sequence, r.Side, r.GrossValue, r.NetValue,
			r.QuantityIn, r.QuantityOut, r.UnitPrice, r.ProtocolFee, r.CreatorFee,
			r.SoldSupply, r.RaisedValue, r.ExecutedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTokenID retrieves all receipts for a token, ordered by sequence ASC.
func (s *TradeFeedStore) GetByTokenID(ctx context.Context, tokenID string) ([]*domain.TradeReceipt, error) {
	query := `
		SELECT token_id, sequence, side, gross_value, net_value,
			quantity_in, quantity_out, unit_price, protocol_fee, creator_fee,
			sold_supply, raised_value, executed_at
		FROM trade_feed
		WHERE token_id = ?
		ORDER BY sequence ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("query by token id: %w", err)
	}
	defer rows.Close()

	return scanTradeFeed(rows)
}

// GetBySequenceRange retrieves receipts for a token with sequence in
// [start, end] (inclusive), ordered by sequence ASC.
func (s *TradeFeedStore) GetBySequenceRange(ctx context.Context, tokenID string, start, end uint64) ([]*domain.TradeReceipt, error) {
	query := `
		SELECT token_id, sequence, side, gross_value, net_value,
			quantity_in, quantity_out, unit_price, protocol_fee, creator_fee,
			sold_supply, raised_value, executed_at
		FROM trade_feed
		WHERE token_id = ? AND sequence >= ? AND sequence <= ?
		ORDER BY sequence ASC
	`

	rows, err := s.conn.Query(ctx, query, tokenID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by sequence range: %w", err)
	}
	defer rows.Close()

	return scanTradeFeed(rows)
}

// exists checks if a receipt with the given key exists.
func (s *TradeFeedStore) exists(ctx context.Context, tokenID string, sequence uint64) (bool, error) {
	query := `
		SELECT count(*) FROM trade_feed
		WHERE token_id = ? AND sequence = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, tokenID, sequence).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanTradeFeed scans multiple rows.
func scanTradeFeed(rows driver.Rows) ([]*domain.TradeReceipt, error) {
	var receipts []*domain.TradeReceipt

	for rows.Next() {
		var r domain.TradeReceipt

		err := rows.Scan(
			&r.TokenID, &r.Sequence, &r.Side, &r.GrossValue, &r.NetValue,
			&r.QuantityIn, &r.QuantityOut, &r.UnitPrice, &r.ProtocolFee, &r.CreatorFee,
			&r.SoldSupply, &r.RaisedValue, &r.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade feed row: %w", err)
		}

		receipts = append(receipts, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade feed rows: %w", err)
	}

	return receipts, nil
}
