package payout

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"
)

// stubChannel fails the first failUntil calls per destination, then succeeds.
type stubChannel struct {
	mu        sync.Mutex
	failUntil int
	calls     map[string]int
}

func newStubChannel(failUntil int) *stubChannel {
	return &stubChannel{failUntil: failUntil, calls: make(map[string]int)}
}

func (s *stubChannel) Transfer(_ context.Context, destination string, _ uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[destination]++
	if s.calls[destination] <= s.failUntil {
		return errors.New("rail unavailable")
	}
	return nil
}

func (s *stubChannel) callCount(destination string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[destination]
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestReconciler_RecoversAfterTransientFailure(t *testing.T) {
	ch := newStubChannel(2)
	r := NewReconciler(Options{Channel: ch, MaxAttempts: 5, Interval: time.Millisecond, Logger: quietLogger()})

	r.Enqueue("tok-1", "protocol-treasury", 100)

	ctx := context.Background()
	for i := 0; i < 3 && r.QueueDepth() > 0; i++ {
		r.Drain(ctx)
	}

	if depth := r.QueueDepth(); depth != 0 {
		t.Errorf("queue depth = %d after recovery, want 0", depth)
	}
	if got := ch.callCount("protocol-treasury"); got != 3 {
		t.Errorf("transfer attempts = %d, want 3 (2 failures + 1 success)", got)
	}
}

func TestReconciler_AbandonsAfterMaxAttempts(t *testing.T) {
	ch := newStubChannel(1_000) // never succeeds
	r := NewReconciler(Options{Channel: ch, MaxAttempts: 3, Interval: time.Millisecond, Logger: quietLogger()})

	r.Enqueue("tok-1", "creator-1", 42)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		r.Drain(ctx)
	}

	if depth := r.QueueDepth(); depth != 0 {
		t.Errorf("queue depth = %d, want 0 after abandonment", depth)
	}
	if got := ch.callCount("creator-1"); got != 3 {
		t.Errorf("transfer attempts = %d, want exactly MaxAttempts=3", got)
	}
}

func TestReconciler_ZeroAmountNotQueued(t *testing.T) {
	r := NewReconciler(Options{Channel: newStubChannel(0), Logger: quietLogger()})
	r.Enqueue("tok-1", "creator-1", 0)
	if depth := r.QueueDepth(); depth != 0 {
		t.Errorf("zero-amount transfer queued, depth = %d", depth)
	}
}

func TestReconciler_CancelledContextKeepsQueue(t *testing.T) {
	ch := newStubChannel(1_000)
	r := NewReconciler(Options{Channel: ch, MaxAttempts: 3, Logger: quietLogger()})
	r.Enqueue("tok-1", "creator-1", 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Drain(ctx)

	if depth := r.QueueDepth(); depth != 1 {
		t.Errorf("queue depth = %d, want 1 (nothing attempted under cancelled ctx)", depth)
	}
	if got := ch.callCount("creator-1"); got != 0 {
		t.Errorf("transfer attempted under cancelled context: %d calls", got)
	}
}
