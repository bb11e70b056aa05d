package memory

import (
	"context"
	"sort"
	"sync"

	"curve-launchpad/internal/domain"
	"curve-launchpad/internal/storage"
)

// GraduationEventStore is an in-memory implementation of
// storage.GraduationEventStore.
type GraduationEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.GraduationEvent // keyed by token ID
}

// NewGraduationEventStore creates a new in-memory graduation event store.
func NewGraduationEventStore() *GraduationEventStore {
	return &GraduationEventStore{
		data: make(map[string]*domain.GraduationEvent),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if the token already has
// one.
func (s *GraduationEventStore) Insert(_ context.Context, e *domain.GraduationEvent) error {
	if e == nil || e.TokenID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.TokenID]; exists {
		return storage.ErrDuplicateKey
	}

	eventCopy := *e
	s.data[e.TokenID] = &eventCopy
	return nil
}

// GetByTokenID retrieves the event for a token. Returns ErrNotFound if the
// token has not graduated.
func (s *GraduationEventStore) GetByTokenID(_ context.Context, tokenID string) (*domain.GraduationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[tokenID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	eventCopy := *e
	return &eventCopy, nil
}

// GetByTimeRange retrieves events graduated within [start, end] (inclusive),
// ordered by graduated_at ASC.
func (s *GraduationEventStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.GraduationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.GraduationEvent
	for _, e := range s.data {
		if e.GraduatedAt >= start && e.GraduatedAt <= end {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].GraduatedAt != result[j].GraduatedAt {
			return result[i].GraduatedAt < result[j].GraduatedAt
		}
		return result[i].TokenID < result[j].TokenID
	})

	return result, nil
}

var _ storage.GraduationEventStore = (*GraduationEventStore)(nil)
