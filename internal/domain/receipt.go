package domain

// TradeReceipt is the immutable record of one executed buy or sell.
// Receipts for a token are totally ordered by Sequence, assigned inside the
// ledger critical section, so any downstream consumer can replay them
// deterministically.
type TradeReceipt struct {
	TokenID  string
	Sequence uint64
	Side     string // SideBuy | SideSell

	// Buy: GrossValue is the caller's payment, QuantityOut the units minted.
	// Sell: QuantityIn is the units burned, NetValue the caller's payout.
	GrossValue  uint64 // gross value leg of the trade
	NetValue    uint64 // value leg after fees
	QuantityIn  uint64 // units surrendered by the caller (sell)
	QuantityOut uint64 // units received by the caller (buy)

	// UnitPrice is the instantaneous curve price at the pre-trade supply,
	// in PriceScale fixed point.
	UnitPrice uint64

	ProtocolFee uint64
	CreatorFee  uint64

	// Post-trade token state, for feed consumers that do not replay.
	SoldSupply  uint64
	RaisedValue uint64

	// FeePayoutPending marks a settled trade whose fee transfer failed and
	// was handed to the payout reconciler. The ledger mutation stands.
	FeePayoutPending bool

	ExecutedAt int64 // unix ns
}

// GraduationEvent is emitted exactly once per token when curve trading ends
// and liquidity is handed to the external pool.
type GraduationEvent struct {
	TokenID          string
	FinalSupply      uint64
	FinalRaisedValue uint64
	Sequence         uint64 // sequence of the crossing trade
	GraduatedAt      int64  // unix ns
}
