package memory

import (
	"context"
	"sort"
	"sync"

	"curve-launchpad/internal/domain"
	"curve-launchpad/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Token // keyed by token ID
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.Token),
	}
}

// Insert adds a newly created token. Returns ErrDuplicateKey if the ID exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.Token) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.ID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	tokenCopy := *t
	s.data[t.ID] = &tokenCopy
	return nil
}

// UpdateState refreshes the stored row from a post-trade snapshot.
func (s *TokenStore) UpdateState(_ context.Context, t *domain.Token) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.ID]; !exists {
		return storage.ErrNotFound
	}

	tokenCopy := *t
	s.data[t.ID] = &tokenCopy
	return nil
}

// GetByID retrieves a token by its ID. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByID(_ context.Context, tokenID string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tokenID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	tokenCopy := *t
	return &tokenCopy, nil
}

// GetByCreator retrieves all tokens launched by a creator, ordered by
// created_at ASC.
func (s *TokenStore) GetByCreator(_ context.Context, creator string) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Token
	for _, t := range s.data {
		if t.Creator == creator {
			tokenCopy := *t
			result = append(result, &tokenCopy)
		}
	}

	sortTokens(result)
	return result, nil
}

// GetByLifecycle retrieves all tokens in a lifecycle state, ordered by
// created_at ASC.
func (s *TokenStore) GetByLifecycle(_ context.Context, lc domain.Lifecycle) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Token
	for _, t := range s.data {
		if t.Lifecycle == lc {
			tokenCopy := *t
			result = append(result, &tokenCopy)
		}
	}

	sortTokens(result)
	return result, nil
}

func sortTokens(tokens []*domain.Token) {
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].CreatedAt != tokens[j].CreatedAt {
			return tokens[i].CreatedAt < tokens[j].CreatedAt
		}
		return tokens[i].ID < tokens[j].ID
	})
}

// Verify interface compliance at compile time.
var _ storage.TokenStore = (*TokenStore)(nil)
