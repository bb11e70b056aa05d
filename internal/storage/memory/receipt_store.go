package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"curve-launchpad/internal/domain"
	"curve-launchpad/internal/storage"
)

// ReceiptStore is an in-memory implementation of storage.ReceiptStore.
type ReceiptStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeReceipt // keyed by composite key
}

// NewReceiptStore creates a new in-memory receipt store.
func NewReceiptStore() *ReceiptStore {
	return &ReceiptStore{
		data: make(map[string]*domain.TradeReceipt),
	}
}

// receiptKey generates a unique key for a receipt.
func receiptKey(tokenID string, sequence uint64) string {
	return fmt.Sprintf("%s|%d", tokenID, sequence)
}

// Insert adds a new receipt. Returns ErrDuplicateKey if exists.
func (s *ReceiptStore) Insert(_ context.Context, r *domain.TradeReceipt) error {
	if r == nil || r.TokenID == "" || r.Sequence == 0 {
		return storage.ErrInvalidInput
	}

	key := receiptKey(r.TokenID, r.Sequence)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	receiptCopy := *r
	s.data[key] = &receiptCopy
	return nil
}

// InsertBulk adds multiple receipts atomically. Fails entire batch on any
// duplicate.
func (s *ReceiptStore) InsertBulk(_ context.Context, receipts []*domain.TradeReceipt) error {
	if len(receipts) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(receipts))

	// First pass: check for duplicates (existing + intra-batch)
	for _, r := range receipts {
		if r == nil || r.TokenID == "" || r.Sequence == 0 {
			return storage.ErrInvalidInput
		}
		key := receiptKey(r.TokenID, r.Sequence)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, r := range receipts {
		key := receiptKey(r.TokenID, r.Sequence)
		receiptCopy := *r
		s.data[key] = &receiptCopy
	}

	return nil
}

// GetByTokenID retrieves all receipts for a token, ordered by sequence ASC.
func (s *ReceiptStore) GetByTokenID(_ context.Context, tokenID string) ([]*domain.TradeReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeReceipt
	for _, r := range s.data {
		if r.TokenID == tokenID {
			receiptCopy := *r
			result = append(result, &receiptCopy)
		}
	}

	sortReceipts(result)
	return result, nil
}

// GetBySequenceRange retrieves receipts for a token with sequence in
// [start, end] (inclusive), ordered by sequence ASC.
func (s *ReceiptStore) GetBySequenceRange(_ context.Context, tokenID string, start, end uint64) ([]*domain.TradeReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeReceipt
	for _, r := range s.data {
		if r.TokenID == tokenID && r.Sequence >= start && r.Sequence <= end {
			receiptCopy := *r
			result = append(result, &receiptCopy)
		}
	}

	sortReceipts(result)
	return result, nil
}

func sortReceipts(receipts []*domain.TradeReceipt) {
	sort.Slice(receipts, func(i, j int) bool {
		return receipts[i].Sequence < receipts[j].Sequence
	})
}

var _ storage.ReceiptStore = (*ReceiptStore)(nil)
