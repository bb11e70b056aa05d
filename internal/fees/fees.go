// Package fees splits a gross trade value into net-to-curve and the two fee
// legs using integer basis-point math. Pure functions, no state.
package fees

import "errors"

// BpsDenominator is the basis-point scale: 10_000 bps = 100%.
const BpsDenominator = 10_000

// ErrInvalidRates is returned when the combined fee rates reach or exceed
// 100% or a rate does not fit the bps scale.
var ErrInvalidRates = errors.New("invalid fee rates")

// Split is the exact three-way division of a gross value.
// NetToCurve + ProtocolFee + CreatorFee == gross always holds.
type Split struct {
	NetToCurve  uint64
	ProtocolFee uint64
	CreatorFee  uint64
}

// Distributor computes fee splits at fixed bps rates.
type Distributor struct {
	protocolBps uint64
	creatorBps  uint64
}

// NewDistributor validates the rates and returns a Distributor.
func NewDistributor(protocolBps, creatorBps uint64) (*Distributor, error) {
	if protocolBps >= BpsDenominator || creatorBps >= BpsDenominator ||
		protocolBps+creatorBps >= BpsDenominator {
		return nil, ErrInvalidRates
	}
	return &Distributor{protocolBps: protocolBps, creatorBps: creatorBps}, nil
}

// Split divides gross into the three buckets. Both fee legs floor; the entire
// rounding remainder is credited to NetToCurve so fee accounts never gain
// from rounding and reserves never drift toward insolvency.
func (d *Distributor) Split(gross uint64) Split {
	// gross <= 2^64-1, bps < 2^14, so the products stay inside 128 bits;
	// split the multiply to keep it in uint64 territory exactly.
	protocol := mulBps(gross, d.protocolBps)
	creator := mulBps(gross, d.creatorBps)
	return Split{
		NetToCurve:  gross - protocol - creator,
		ProtocolFee: protocol,
		CreatorFee:  creator,
	}
}

// mulBps computes floor(v * bps / 10_000) without overflow for any uint64 v.
func mulBps(v, bps uint64) uint64 {
	q := v / BpsDenominator
	r := v % BpsDenominator
	return q*bps + r*bps/BpsDenominator
}
