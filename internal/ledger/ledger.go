// Package ledger owns all mutable per-token state. Every mutation goes
// through Transact, which runs the caller's quote-and-decide callback and the
// resulting state change under one per-token exclusive lock: no second trade
// can be quoted against a supply snapshot that another trade then invalidates.
// Tokens never share a lock, so trades on different tokens run in parallel.
package ledger

import (
	"errors"
	"sync"
	"time"

	"curve-launchpad/internal/domain"
	"curve-launchpad/internal/fixedpoint"
)

var (
	// ErrTokenNotFound is returned for an unknown token handle.
	ErrTokenNotFound = errors.New("token not found")

	// ErrTokenExists is returned when creating a token whose handle is taken.
	ErrTokenExists = errors.New("token already exists")

	// ErrSupplyExceeded is returned when an IncreaseSupply would push sold
	// supply past the graduation supply.
	ErrSupplyExceeded = errors.New("supply exceeded")

	// ErrAlreadyGraduated is returned for any curve mutation on a token that
	// is no longer active.
	ErrAlreadyGraduated = errors.New("token already graduated")
)

// Mutation is one atomic state change. Exactly one of the three kinds is
// applied per Transact call.
type Mutation interface{ isMutation() }

// IncreaseSupply mints Quantity units against NetValue credited to the curve.
// GrossValue/fees feed the conservation totals.
type IncreaseSupply struct {
	Quantity    uint64 // units to mint
	NetValue    uint64 // value credited to the curve reserve
	GrossValue  uint64 // caller's full payment (net + fees)
	ProtocolFee uint64
	CreatorFee  uint64
}

// DecreaseSupply burns Quantity units against GrossPayout debited from the
// curve. NetPayout is what leaves toward the seller; the fee legs accrue.
type DecreaseSupply struct {
	Quantity    uint64 // units to burn
	GrossPayout uint64 // value debited from the curve reserve
	NetPayout   uint64 // value paid to the seller (gross - fees)
	ProtocolFee uint64
	CreatorFee  uint64
}

// Graduate freezes the token for curve trading. Applied at most once.
type Graduate struct{}

func (IncreaseSupply) isMutation() {}
func (DecreaseSupply) isMutation() {}
func (Graduate) isMutation()       {}

// entry pairs a token's state with its exclusive lock.
type entry struct {
	mu    sync.Mutex
	state domain.Token
}

// Ledger is the keyed token-state store. The outer RWMutex only guards the
// map shape; all state access goes through each entry's own mutex.
type Ledger struct {
	mu               sync.RWMutex
	entries          map[string]*entry
	graduationSupply uint64

	now func() int64 // unix ns clock, swappable in tests
}

// New creates an empty ledger bounded by the graduation supply.
func New(graduationSupply uint64) *Ledger {
	return &Ledger{
		entries:          make(map[string]*entry),
		graduationSupply: graduationSupply,
		now:              func() int64 { return time.Now().UnixNano() },
	}
}

// CreateToken registers a new token at zero supply. The token is immediately
// Active; Created never escapes the ledger.
func (l *Ledger) CreateToken(id, name, symbol, creator string) (domain.Token, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.entries[id]; exists {
		return domain.Token{}, ErrTokenExists
	}
	e := &entry{state: domain.Token{
		ID:        id,
		Name:      name,
		Symbol:    symbol,
		Creator:   creator,
		Lifecycle: domain.LifecycleActive,
		CreatedAt: l.now(),
	}}
	l.entries[id] = e
	return e.state, nil
}

// Snapshot returns a copy of the token's current state.
func (l *Ledger) Snapshot(id string) (domain.Token, error) {
	e, err := l.lookup(id)
	if err != nil {
		return domain.Token{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, nil
}

// Transact runs fn on a consistent snapshot under the token's exclusive lock
// and applies the mutation fn returns. If fn returns an error, or the
// mutation fails validation, no field changes. On success the post-mutation
// state is returned; its Sequence field identifies the mutation for receipts.
//
// fn must not call back into this ledger for the same token.
func (l *Ledger) Transact(id string, fn func(snapshot domain.Token) (Mutation, error)) (domain.Token, error) {
	e, err := l.lookup(id)
	if err != nil {
		return domain.Token{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := fn(e.state)
	if err != nil {
		return domain.Token{}, err
	}

	next, err := l.applyLocked(e.state, m)
	if err != nil {
		return domain.Token{}, err
	}
	e.state = next
	return next, nil
}

// Apply performs a single mutation without a quote callback. Used for
// mutations whose inputs do not depend on a fresh snapshot (Graduate).
func (l *Ledger) Apply(id string, m Mutation) (domain.Token, error) {
	return l.Transact(id, func(domain.Token) (Mutation, error) { return m, nil })
}

func (l *Ledger) lookup(id string) (*entry, error) {
	l.mu.RLock()
	e, ok := l.entries[id]
	l.mu.RUnlock()
	if !ok {
		return nil, ErrTokenNotFound
	}
	return e, nil
}

// applyLocked computes the post-mutation state on a value copy. All checked
// arithmetic runs before anything is assigned, so a failure leaves the stored
// state untouched (all-or-nothing).
func (l *Ledger) applyLocked(t domain.Token, m Mutation) (domain.Token, error) {
	switch mut := m.(type) {
	case IncreaseSupply:
		if t.Lifecycle != domain.LifecycleActive {
			return domain.Token{}, ErrAlreadyGraduated
		}
		supply, err := fixedpoint.AddU64(t.SoldSupply, mut.Quantity)
		if err != nil {
			return domain.Token{}, err
		}
		if supply > l.graduationSupply {
			return domain.Token{}, ErrSupplyExceeded
		}
		raised, err := fixedpoint.AddU64(t.RaisedValue, mut.NetValue)
		if err != nil {
			return domain.Token{}, err
		}
		in, err := fixedpoint.AddU64(t.TotalValueIn, mut.GrossValue)
		if err != nil {
			return domain.Token{}, err
		}
		pFee, err := fixedpoint.AddU64(t.AccruedProtocolFee, mut.ProtocolFee)
		if err != nil {
			return domain.Token{}, err
		}
		cFee, err := fixedpoint.AddU64(t.AccruedCreatorFee, mut.CreatorFee)
		if err != nil {
			return domain.Token{}, err
		}
		t.SoldSupply = supply
		t.RaisedValue = raised
		t.TotalValueIn = in
		t.AccruedProtocolFee = pFee
		t.AccruedCreatorFee = cFee
		t.Sequence++
		return t, nil

	case DecreaseSupply:
		if t.Lifecycle != domain.LifecycleActive {
			return domain.Token{}, ErrAlreadyGraduated
		}
		supply, err := fixedpoint.SubU64(t.SoldSupply, mut.Quantity)
		if err != nil {
			return domain.Token{}, ErrSupplyExceeded
		}
		raised, err := fixedpoint.SubU64(t.RaisedValue, mut.GrossPayout)
		if err != nil {
			return domain.Token{}, err
		}
		out, err := fixedpoint.AddU64(t.TotalValueOut, mut.NetPayout)
		if err != nil {
			return domain.Token{}, err
		}
		pFee, err := fixedpoint.AddU64(t.AccruedProtocolFee, mut.ProtocolFee)
		if err != nil {
			return domain.Token{}, err
		}
		cFee, err := fixedpoint.AddU64(t.AccruedCreatorFee, mut.CreatorFee)
		if err != nil {
			return domain.Token{}, err
		}
		t.SoldSupply = supply
		t.RaisedValue = raised
		t.TotalValueOut = out
		t.AccruedProtocolFee = pFee
		t.AccruedCreatorFee = cFee
		t.Sequence++
		return t, nil

	case Graduate:
		if t.Lifecycle != domain.LifecycleActive {
			return domain.Token{}, ErrAlreadyGraduated
		}
		t.Lifecycle = domain.LifecycleGraduated
		t.GraduatedAt = l.now()
		return t, nil

	default:
		return domain.Token{}, errors.New("unknown mutation")
	}
}
