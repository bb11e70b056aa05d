package storage

import (
	"context"
	"log"

	"curve-launchpad/internal/domain"
	"curve-launchpad/internal/observability"
)

// TokenSnapshotter hands out current token state; the engine satisfies it.
type TokenSnapshotter interface {
	Token(tokenID string) (domain.Token, error)
}

// Recorder mirrors the event feed into the durable stores. It is a
// write-behind sink: publishes enqueue and return, a single worker drains
// the queue, and a full queue drops the write with a metric rather than
// backpressuring the trade path. The ledger stays authoritative either way.
type Recorder struct {
	tokens    TokenStore
	receipts  ReceiptStore
	events    GraduationEventStore
	analytics ReceiptStore // optional second receipt sink (ClickHouse)
	snapshots TokenSnapshotter
	logger    *log.Logger
	queue     chan func(ctx context.Context)
}

// RecorderOptions configures a Recorder.
type RecorderOptions struct {
	Tokens    TokenStore
	Receipts  ReceiptStore
	Events    GraduationEventStore
	Analytics ReceiptStore // nil disables the analytics copy
	Snapshots TokenSnapshotter
	QueueSize int
	Logger    *log.Logger
}

// NewRecorder creates a Recorder. Run must be called for writes to drain.
func NewRecorder(opts RecorderOptions) *Recorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[recorder] ", log.LstdFlags)
	}
	return &Recorder{
		tokens:    opts.Tokens,
		receipts:  opts.Receipts,
		events:    opts.Events,
		analytics: opts.Analytics,
		snapshots: opts.Snapshots,
		logger:    opts.Logger,
		queue:     make(chan func(ctx context.Context), opts.QueueSize),
	}
}

// Run drains the write queue until ctx is cancelled.
func (rec *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-rec.queue:
			job(ctx)
		}
	}
}

// RecordToken mirrors a newly created token. Called from the create path,
// synchronously, so the row exists before any receipt referencing it.
func (rec *Recorder) RecordToken(ctx context.Context, t domain.Token) {
	if err := rec.tokens.Insert(ctx, &t); err != nil {
		observability.RecordStoreAppendError("tokens")
		rec.logger.Printf("ERROR mirror token %s: %v", t.ID, err)
	}
}

// PublishReceipt enqueues the receipt insert and a token state refresh.
func (rec *Recorder) PublishReceipt(_ context.Context, r *domain.TradeReceipt) {
	receipt := *r
	rec.enqueue("trade_receipts", func(ctx context.Context) {
		if err := rec.receipts.Insert(ctx, &receipt); err != nil {
			observability.RecordStoreAppendError("trade_receipts")
			rec.logger.Printf("ERROR mirror receipt %s/%d: %v", receipt.TokenID, receipt.Sequence, err)
		}
		if rec.analytics != nil {
			if err := rec.analytics.Insert(ctx, &receipt); err != nil {
				observability.RecordStoreAppendError("trade_feed")
				rec.logger.Printf("ERROR mirror receipt %s/%d to analytics: %v", receipt.TokenID, receipt.Sequence, err)
			}
		}
		rec.refreshToken(ctx, receipt.TokenID)
	})
}

// PublishGraduation enqueues the event insert and a token state refresh.
func (rec *Recorder) PublishGraduation(_ context.Context, e *domain.GraduationEvent) {
	event := *e
	rec.enqueue("graduation_events", func(ctx context.Context) {
		if err := rec.events.Insert(ctx, &event); err != nil {
			observability.RecordStoreAppendError("graduation_events")
			rec.logger.Printf("ERROR mirror graduation %s: %v", event.TokenID, err)
		}
		rec.refreshToken(ctx, event.TokenID)
	})
}

func (rec *Recorder) enqueue(table string, job func(ctx context.Context)) {
	select {
	case rec.queue <- job:
	default:
		observability.RecordStoreAppendError(table)
		rec.logger.Printf("ERROR mirror queue full, dropping %s write", table)
	}
}

func (rec *Recorder) refreshToken(ctx context.Context, tokenID string) {
	if rec.snapshots == nil {
		return
	}
	snap, err := rec.snapshots.Token(tokenID)
	if err != nil {
		rec.logger.Printf("ERROR snapshot token %s: %v", tokenID, err)
		return
	}
	if err := rec.tokens.UpdateState(ctx, &snap); err != nil {
		observability.RecordStoreAppendError("tokens")
		rec.logger.Printf("ERROR refresh token %s: %v", tokenID, err)
	}
}
