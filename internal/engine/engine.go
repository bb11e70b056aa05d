// Package engine orchestrates token creation and curve trades. The engine
// owns the order of operations the settlement layer depends on: validate,
// quote, mutate (one critical section per token), then fee routing, the
// graduation check and feed publication strictly after commit.
package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"curve-launchpad/internal/curve"
	"curve-launchpad/internal/domain"
	"curve-launchpad/internal/fees"
	"curve-launchpad/internal/graduation"
	"curve-launchpad/internal/idhash"
	"curve-launchpad/internal/ledger"
	"curve-launchpad/internal/observability"
	"curve-launchpad/internal/payout"
)

// EventSink receives every committed receipt and graduation event. The sink
// is an append-only feed for downstream collaborators (mirror stores, the
// websocket hub); its failures never affect the committed trade.
type EventSink interface {
	PublishReceipt(ctx context.Context, r *domain.TradeReceipt)
	PublishGraduation(ctx context.Context, e *domain.GraduationEvent)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) PublishReceipt(context.Context, *domain.TradeReceipt) {}

func (NopSink) PublishGraduation(context.Context, *domain.GraduationEvent) {}

// MultiSink fans every event out to all sinks in order.
func MultiSink(sinks ...EventSink) EventSink {
	return multiSink(sinks)
}

type multiSink []EventSink

func (m multiSink) PublishReceipt(ctx context.Context, r *domain.TradeReceipt) {
	for _, s := range m {
		s.PublishReceipt(ctx, r)
	}
}

func (m multiSink) PublishGraduation(ctx context.Context, e *domain.GraduationEvent) {
	for _, s := range m {
		s.PublishGraduation(ctx, e)
	}
}

// Engine is the trade orchestrator. Safe for concurrent use; trades on the
// same token serialize inside the ledger, trades on different tokens run in
// parallel.
type Engine struct {
	cfg    Config
	curve  *curve.Curve
	fees   *fees.Distributor
	ledger *ledger.Ledger
	grad   *graduation.Controller
	payout payout.Channel
	reconc *payout.Reconciler
	sink   EventSink
	logger *log.Logger
	now    func() int64
}

// Options wires an Engine. Ledger, Payout and Pool are required by cmd
// wiring; Sink and Logger default to no-ops.
type Options struct {
	Config Config
	Payout payout.Channel
	Pool   graduation.PoolSeeder
	Sink   EventSink
	Logger *log.Logger
}

// New validates the config and builds the engine with its curve, fee
// distributor, ledger and graduation controller.
func New(opts Options) (*Engine, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	c, err := curve.New(opts.Config.InitialPrice, opts.Config.GrowthConstant, opts.Config.GraduationSupply)
	if err != nil {
		return nil, err
	}
	d, err := fees.NewDistributor(opts.Config.PlatformFeeBps, opts.Config.CreatorFeeBps)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[engine] ", log.LstdFlags)
	}
	if opts.Sink == nil {
		opts.Sink = NopSink{}
	}

	l := ledger.New(opts.Config.GraduationSupply)
	grad := graduation.New(graduation.Options{
		Ledger:    l,
		Pool:      opts.Pool,
		Threshold: opts.Config.GraduationThresholdValue,
		Logger:    opts.Logger,
	})

	return &Engine{
		cfg:    opts.Config,
		curve:  c,
		fees:   d,
		ledger: l,
		grad:   grad,
		payout: opts.Payout,
		reconc: payout.NewReconciler(payout.Options{Channel: opts.Payout, Logger: opts.Logger}),
		sink:   opts.Sink,
		logger: opts.Logger,
		now:    func() int64 { return time.Now().UnixNano() },
	}, nil
}

// Reconciler exposes the payout reconciliation queue for cmd wiring.
func (e *Engine) Reconciler() *payout.Reconciler { return e.reconc }

// SetSink replaces the event sink. Call before serving trades; sinks whose
// construction needs the engine itself (the storage mirror) are wired here.
func (e *Engine) SetSink(s EventSink) {
	if s == nil {
		s = NopSink{}
	}
	e.sink = s
}

// Token returns a read-only snapshot of a token's state.
func (e *Engine) Token(tokenID string) (domain.Token, error) {
	return e.ledger.Snapshot(tokenID)
}

// CreateToken validates metadata, assigns a deterministic handle and opens
// the token for trading immediately. No externally observable pending state.
func (e *Engine) CreateToken(name, symbol, creator string) (domain.Token, error) {
	if len(name) < e.cfg.NameMinLen || len(name) > e.cfg.NameMaxLen {
		return domain.Token{}, ErrInvalidMetadata
	}
	if len(symbol) < e.cfg.SymbolMinLen || len(symbol) > e.cfg.SymbolMaxLen {
		return domain.Token{}, ErrInvalidMetadata
	}
	if creator == "" {
		return domain.Token{}, ErrInvalidMetadata
	}

	createdAt := e.now()
	// Nonce walk handles the (astronomically unlikely) handle collision.
	for nonce := uint64(0); ; nonce++ {
		id := idhash.ComputeTokenID(name, symbol, creator, createdAt, nonce)
		tok, err := e.ledger.CreateToken(id, name, symbol, creator)
		if errors.Is(err, ledger.ErrTokenExists) {
			continue
		}
		if err != nil {
			return domain.Token{}, err
		}
		observability.RecordTokenCreated()
		e.logger.Printf("token created: id=%s name=%q symbol=%q creator=%s", id, name, symbol, creator)
		return tok, nil
	}
}

// Buy swaps incomingValue for curve units. The fee is taken off the gross;
// only the net moves the curve. Quote and mutation share one critical
// section, so the quantity on the receipt is exactly what was minted.
func (e *Engine) Buy(ctx context.Context, tokenID string, incomingValue, minQuantityOut uint64) (*domain.TradeReceipt, error) {
	start := time.Now()
	if incomingValue < e.cfg.MinTradeValue || incomingValue > e.cfg.MaxTradeValue {
		observability.RecordRejectedTrade(domain.SideBuy, "invalid_amount")
		return nil, ErrInvalidAmount
	}

	split := e.fees.Split(incomingValue)

	var (
		quantityOut uint64
		unitPrice   uint64
	)
	state, err := e.ledger.Transact(tokenID, func(snap domain.Token) (ledger.Mutation, error) {
		if snap.Lifecycle != domain.LifecycleActive {
			return nil, ledger.ErrAlreadyGraduated
		}
		p, err := e.curve.Price(snap.SoldSupply)
		if err != nil {
			return nil, err
		}
		unitPrice = p

		q, err := e.curve.QuoteBuy(snap.SoldSupply, split.NetToCurve)
		if err != nil {
			if errors.Is(err, curve.ErrSupplyExceeded) {
				return nil, ledger.ErrSupplyExceeded
			}
			return nil, err
		}
		if q == 0 {
			return nil, ErrInvalidAmount
		}
		if q < minQuantityOut {
			return nil, ErrSlippageExceeded
		}
		quantityOut = q

		return ledger.IncreaseSupply{
			Quantity:    q,
			NetValue:    split.NetToCurve,
			GrossValue:  incomingValue,
			ProtocolFee: split.ProtocolFee,
			CreatorFee:  split.CreatorFee,
		}, nil
	})
	if err != nil {
		observability.RecordRejectedTrade(domain.SideBuy, reasonLabel(err))
		return nil, err
	}

	receipt := &domain.TradeReceipt{
		TokenID:     tokenID,
		Sequence:    state.Sequence,
		Side:        domain.SideBuy,
		GrossValue:  incomingValue,
		NetValue:    split.NetToCurve,
		QuantityOut: quantityOut,
		UnitPrice:   unitPrice,
		ProtocolFee: split.ProtocolFee,
		CreatorFee:  split.CreatorFee,
		SoldSupply:  state.SoldSupply,
		RaisedValue: state.RaisedValue,
		ExecutedAt:  e.now(),
	}

	e.settle(ctx, receipt, state.Creator)
	observability.RecordTrade(domain.SideBuy, incomingValue, time.Since(start).Seconds())
	return receipt, nil
}

// Sell swaps quantityIn curve units back into value. The curve pays the
// gross integral value; fees come out of that payout and the seller receives
// the net.
func (e *Engine) Sell(ctx context.Context, tokenID string, quantityIn, minValueOut uint64) (*domain.TradeReceipt, error) {
	start := time.Now()
	if quantityIn == 0 {
		observability.RecordRejectedTrade(domain.SideSell, "invalid_amount")
		return nil, ErrInvalidAmount
	}

	var (
		grossPayout uint64
		split       fees.Split
		unitPrice   uint64
	)
	state, err := e.ledger.Transact(tokenID, func(snap domain.Token) (ledger.Mutation, error) {
		if snap.Lifecycle != domain.LifecycleActive {
			return nil, ledger.ErrAlreadyGraduated
		}
		if quantityIn > snap.SoldSupply {
			return nil, ErrInvalidAmount
		}
		p, err := e.curve.Price(snap.SoldSupply)
		if err != nil {
			return nil, err
		}
		unitPrice = p

		gross, err := e.curve.QuoteSell(snap.SoldSupply, quantityIn)
		if err != nil {
			return nil, err
		}
		grossPayout = gross
		split = e.fees.Split(gross)
		if split.NetToCurve < minValueOut {
			return nil, ErrSlippageExceeded
		}

		return ledger.DecreaseSupply{
			Quantity:    quantityIn,
			GrossPayout: gross,
			NetPayout:   split.NetToCurve,
			ProtocolFee: split.ProtocolFee,
			CreatorFee:  split.CreatorFee,
		}, nil
	})
	if err != nil {
		observability.RecordRejectedTrade(domain.SideSell, reasonLabel(err))
		return nil, err
	}

	receipt := &domain.TradeReceipt{
		TokenID:     tokenID,
		Sequence:    state.Sequence,
		Side:        domain.SideSell,
		GrossValue:  grossPayout,
		NetValue:    split.NetToCurve,
		QuantityIn:  quantityIn,
		UnitPrice:   unitPrice,
		ProtocolFee: split.ProtocolFee,
		CreatorFee:  split.CreatorFee,
		SoldSupply:  state.SoldSupply,
		RaisedValue: state.RaisedValue,
		ExecutedAt:  e.now(),
	}

	e.settle(ctx, receipt, state.Creator)
	observability.RecordTrade(domain.SideSell, grossPayout, time.Since(start).Seconds())
	return receipt, nil
}

// settle runs every post-commit step: fee routing, the graduation check and
// feed publication. The ledger mutation is already final; nothing here may
// roll it back or re-enter the ledger's critical section for this trade.
func (e *Engine) settle(ctx context.Context, receipt *domain.TradeReceipt, creator string) {
	if e.payout != nil {
		e.routeFee(ctx, receipt, e.cfg.ProtocolFeeDestination, receipt.ProtocolFee)
		e.routeFee(ctx, receipt, creator, receipt.CreatorFee)
	}

	event, err := e.grad.Check(ctx, receipt.TokenID)
	if err != nil {
		e.logger.Printf("ERROR graduation check for token %s: %v", receipt.TokenID, err)
	}

	e.sink.PublishReceipt(ctx, receipt)
	if event != nil {
		e.sink.PublishGraduation(ctx, event)
	}
}

// routeFee transfers one fee leg; on failure the trade stands and the
// transfer moves to the reconciliation queue (settled-but-unpaid).
func (e *Engine) routeFee(ctx context.Context, receipt *domain.TradeReceipt, destination string, amount uint64) {
	if amount == 0 {
		return
	}
	if err := e.payout.Transfer(ctx, destination, amount); err != nil {
		receipt.FeePayoutPending = true
		observability.RecordFeeTransfer("failed")
		e.reconc.Enqueue(receipt.TokenID, destination, amount)
		return
	}
	observability.RecordFeeTransfer("ok")
}

// reasonLabel maps a rejection to its metrics label.
func reasonLabel(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrSlippageExceeded):
		return "slippage"
	case errors.Is(err, ledger.ErrSupplyExceeded):
		return "supply_exceeded"
	case errors.Is(err, ledger.ErrAlreadyGraduated):
		return "graduated"
	case errors.Is(err, ledger.ErrTokenNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
