package storage_test

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"curve-launchpad/internal/domain"
	"curve-launchpad/internal/storage"
	"curve-launchpad/internal/storage/memory"
)

type stubSnapshots struct {
	token domain.Token
}

func (s *stubSnapshots) Token(string) (domain.Token, error) {
	return s.token, nil
}

func newTestRecorder(snap *stubSnapshots) (*storage.Recorder, *memory.TokenStore, *memory.ReceiptStore, *memory.GraduationEventStore) {
	tokens := memory.NewTokenStore()
	receipts := memory.NewReceiptStore()
	events := memory.NewGraduationEventStore()
	rec := storage.NewRecorder(storage.RecorderOptions{
		Tokens:    tokens,
		Receipts:  receipts,
		Events:    events,
		Snapshots: snap,
		Logger:    log.New(io.Discard, "", 0),
	})
	return rec, tokens, receipts, events
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRecorder_MirrorsReceiptAndRefreshesToken(t *testing.T) {
	snap := &stubSnapshots{token: domain.Token{
		ID:          "tok1",
		Lifecycle:   domain.LifecycleActive,
		SoldSupply:  985,
		RaisedValue: 988,
		Sequence:    1,
	}}
	rec, tokens, receipts, _ := newTestRecorder(snap)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rec.Run(ctx)

	rec.RecordToken(ctx, domain.Token{ID: "tok1", Lifecycle: domain.LifecycleActive})
	rec.PublishReceipt(ctx, &domain.TradeReceipt{
		TokenID:  "tok1",
		Sequence: 1,
		Side:     domain.SideBuy,
		NetValue: 988,
	})

	waitFor(t, func() bool {
		rows, _ := receipts.GetByTokenID(context.Background(), "tok1")
		return len(rows) == 1
	})

	waitFor(t, func() bool {
		tok, err := tokens.GetByID(context.Background(), "tok1")
		return err == nil && tok.SoldSupply == 985 && tok.Sequence == 1
	})
}

func TestRecorder_MirrorsGraduation(t *testing.T) {
	snap := &stubSnapshots{token: domain.Token{
		ID:        "tok1",
		Lifecycle: domain.LifecycleGraduated,
	}}
	rec, tokens, _, events := newTestRecorder(snap)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rec.Run(ctx)

	rec.RecordToken(ctx, domain.Token{ID: "tok1", Lifecycle: domain.LifecycleActive})
	rec.PublishGraduation(ctx, &domain.GraduationEvent{
		TokenID:     "tok1",
		FinalSupply: 800,
		GraduatedAt: 123,
	})

	waitFor(t, func() bool {
		e, err := events.GetByTokenID(context.Background(), "tok1")
		return err == nil && e.FinalSupply == 800
	})

	waitFor(t, func() bool {
		tok, err := tokens.GetByID(context.Background(), "tok1")
		return err == nil && tok.Lifecycle == domain.LifecycleGraduated
	})
}

func TestRecorder_AnalyticsCopy(t *testing.T) {
	snap := &stubSnapshots{token: domain.Token{ID: "tok1"}}
	tokens := memory.NewTokenStore()
	receipts := memory.NewReceiptStore()
	analytics := memory.NewReceiptStore()
	rec := storage.NewRecorder(storage.RecorderOptions{
		Tokens:    tokens,
		Receipts:  receipts,
		Events:    memory.NewGraduationEventStore(),
		Analytics: analytics,
		Snapshots: snap,
		Logger:    log.New(io.Discard, "", 0),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rec.Run(ctx)

	rec.RecordToken(ctx, domain.Token{ID: "tok1"})
	rec.PublishReceipt(ctx, &domain.TradeReceipt{TokenID: "tok1", Sequence: 1, Side: domain.SideBuy})

	waitFor(t, func() bool {
		rows, _ := analytics.GetByTokenID(context.Background(), "tok1")
		return len(rows) == 1
	})
}
