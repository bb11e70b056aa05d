package memory

import (
	"context"
	"errors"
	"testing"

	"curve-launchpad/internal/domain"
	"curve-launchpad/internal/storage"
)

func TestGraduationEventStore_InsertAndGet(t *testing.T) {
	store := NewGraduationEventStore()
	ctx := context.Background()

	event := &domain.GraduationEvent{
		TokenID:          "tok1",
		FinalSupply:      800_000_000,
		FinalRaisedValue: 85_000_000_000,
		Sequence:         412,
		GraduatedAt:      1704067200000,
	}

	if err := store.Insert(ctx, event); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetByTokenID(ctx, "tok1")
	if err != nil {
		t.Fatalf("GetByTokenID failed: %v", err)
	}
	if result.FinalSupply != 800_000_000 || result.Sequence != 412 {
		t.Errorf("Event mismatch: %+v", result)
	}
}

func TestGraduationEventStore_OnePerToken(t *testing.T) {
	store := NewGraduationEventStore()
	ctx := context.Background()

	event := &domain.GraduationEvent{TokenID: "tok1", GraduatedAt: 1000}
	if err := store.Insert(ctx, event); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, &domain.GraduationEvent{TokenID: "tok1", GraduatedAt: 2000})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestGraduationEventStore_NotFound(t *testing.T) {
	store := NewGraduationEventStore()

	_, err := store.GetByTokenID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGraduationEventStore_GetByTimeRange(t *testing.T) {
	store := NewGraduationEventStore()
	ctx := context.Background()

	events := []*domain.GraduationEvent{
		{TokenID: "tok1", GraduatedAt: 1000},
		{TokenID: "tok2", GraduatedAt: 2000},
		{TokenID: "tok3", GraduatedAt: 3000},
	}
	for _, e := range events {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert %s failed: %v", e.TokenID, err)
		}
	}

	result, err := store.GetByTimeRange(ctx, 1500, 2500)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("Expected 1 event in range, got %d", len(result))
	}
	if result[0].TokenID != "tok2" {
		t.Errorf("Expected tok2, got %s", result[0].TokenID)
	}
}
