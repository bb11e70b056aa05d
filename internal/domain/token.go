package domain

// Lifecycle is the per-token state machine. Transitions are one-way:
// Created -> Active (same operation that creates the token) -> Graduated.
type Lifecycle string

const (
	LifecycleCreated   Lifecycle = "CREATED"
	LifecycleActive    Lifecycle = "ACTIVE"
	LifecycleGraduated Lifecycle = "GRADUATED"
)

// Token is the curve-side state of one issued asset. All quantity and value
// fields are unsigned base units. The struct is mutated only through
// ledger.Ledger; everything handed out of the ledger is a copy.
type Token struct {
	ID      string // address-equivalent handle, immutable
	Name    string // display name, immutable
	Symbol  string // ticker, immutable
	Creator string // destination of the creator fee share, immutable

	SoldSupply  uint64 // curve-issued units outstanding
	RaisedValue uint64 // net value currently held by the curve

	AccruedProtocolFee uint64 // cumulative, never decreases
	AccruedCreatorFee  uint64 // cumulative, never decreases

	// TotalValueIn is gross buy inflow; TotalValueOut is net seller payout.
	// Fee conservation holds as:
	//   AccruedProtocolFee + AccruedCreatorFee + RaisedValue
	//     == TotalValueIn - TotalValueOut
	TotalValueIn  uint64
	TotalValueOut uint64

	Lifecycle Lifecycle
	Sequence  uint64 // sequence number of the last receipt issued

	CreatedAt   int64 // unix ns, immutable
	GraduatedAt int64 // unix ns, zero until graduated
}

// Side labels the direction of a trade.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)
