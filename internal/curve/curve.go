// Package curve implements the exponential bonding curve that prices every
// trade: price(x) = P0 * exp(k*x/S) for sold supply x in [0, S].
//
// All math is unsigned fixed point (see internal/fixedpoint); there is no
// floating point anywhere so quotes replay identically on any platform.
// Buy and sell quotes integrate the curve in closed form; the buy quote
// inverts the integral with a bounded bisection rather than sampling prices
// point by point.
package curve

import (
	"errors"

	"github.com/holiman/uint256"

	"curve-launchpad/internal/fixedpoint"
)

// PriceScale converts unit prices to value units: cost of q quantity units at
// price p is p*q/PriceScale.
const PriceScale = 1_000_000_000

// QuoteIterationCap bounds the buy-quote bisection. The search space is a
// uint64 quantity range, so 64 halvings always reach the exact answer; the
// cap makes the termination guarantee explicit and testable.
const QuoteIterationCap = 64

var (
	// ErrInvalidParams is returned by New for a zero or out-of-range
	// curve parameter.
	ErrInvalidParams = errors.New("invalid curve parameters")

	// ErrSupplyExceeded is returned when a quote would push sold supply
	// past the graduation supply.
	ErrSupplyExceeded = errors.New("quote exceeds graduation supply")
)

// Curve is an immutable exponential price curve. Safe for concurrent use.
type Curve struct {
	p0 *uint256.Int // initial unit price, PriceScale fixed point
	k  *uint256.Int // growth constant, fixedpoint.One scale
	s  *uint256.Int // graduation supply, quantity base units

	graduationSupply uint64
}

// New builds a curve from the engine's policy constants. growthConstant is
// the dimensionless exponent at full supply, in fixedpoint.One scale: at
// x == graduationSupply the unit price is initialPrice * e^(growthConstant/One).
func New(initialPrice, growthConstant, graduationSupply uint64) (*Curve, error) {
	if initialPrice == 0 || growthConstant == 0 || graduationSupply == 0 {
		return nil, ErrInvalidParams
	}
	k := uint256.NewInt(growthConstant)
	if k.Gt(fixedpoint.MaxExpArg) {
		return nil, ErrInvalidParams
	}
	return &Curve{
		p0:               uint256.NewInt(initialPrice),
		k:                k,
		s:                uint256.NewInt(graduationSupply),
		graduationSupply: graduationSupply,
	}, nil
}

// GraduationSupply returns the supply bound S.
func (c *Curve) GraduationSupply() uint64 { return c.graduationSupply }

// Price returns the instantaneous unit price at the given sold supply, in
// PriceScale fixed point. Pure and total: inputs beyond the graduation supply
// are clamped to the boundary price instead of trapping. Price(0) is exactly
// the configured initial price.
func (c *Curve) Price(soldSupply uint64) (uint64, error) {
	x := soldSupply
	if x > c.graduationSupply {
		x = c.graduationSupply
	}
	e, err := c.expAt(x)
	if err != nil {
		return 0, err
	}
	p, err := fixedpoint.MulDiv(c.p0, e, fixedpoint.One)
	if err != nil {
		return 0, err
	}
	return fixedpoint.ToU64(p)
}

// QuoteBuy returns the largest quantity whose integral cost does not exceed
// incomingNetValue, starting from currentSupply. Monotone in the net value.
// Returns ErrSupplyExceeded when the value would buy past the graduation
// supply; the engine surfaces that as a supply error with no state change.
func (c *Curve) QuoteBuy(currentSupply, incomingNetValue uint64) (uint64, error) {
	if currentSupply >= c.graduationSupply {
		return 0, ErrSupplyExceeded
	}
	remaining := c.graduationSupply - currentSupply

	maxCost, err := c.costBetween(currentSupply, c.graduationSupply)
	if err != nil {
		return 0, err
	}
	if incomingNetValue > maxCost {
		return 0, ErrSupplyExceeded
	}

	// Bisection for the largest q in [0, remaining] with cost(q) <= value.
	lo, hi := uint64(0), remaining
	for i := 0; lo < hi && i < QuoteIterationCap; i++ {
		mid := lo + (hi-lo+1)/2
		cost, err := c.costBetween(currentSupply, currentSupply+mid)
		if err != nil {
			return 0, err
		}
		if cost <= incomingNetValue {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

// QuoteSell returns the gross curve payout for selling quantityIn units at
// currentSupply: the integral of the price over the burned range. Monotone in
// the quantity. quantityIn must not exceed currentSupply.
func (c *Curve) QuoteSell(currentSupply, quantityIn uint64) (uint64, error) {
	if quantityIn > currentSupply {
		return 0, ErrSupplyExceeded
	}
	return c.costBetween(currentSupply-quantityIn, currentSupply)
}

// expAt evaluates exp(k*x/S) in fixedpoint.One scale.
func (c *Curve) expAt(x uint64) (*uint256.Int, error) {
	z, err := fixedpoint.MulDiv(c.k, uint256.NewInt(x), c.s)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Exp(z)
}

// integral evaluates F(x) = P0*S*(exp(k*x/S) - 1) / (k*PriceScale), the
// closed-form value of the curve area over [0, x]. Floored once, at the final
// division, so F is monotone non-decreasing.
func (c *Curve) integral(x uint64) (uint64, error) {
	e, err := c.expAt(x)
	if err != nil {
		return 0, err
	}
	growth := new(uint256.Int).Sub(e, fixedpoint.One) // e >= One always

	n, err := fixedpoint.MulDiv(c.p0, c.s, uint256.NewInt(1))
	if err != nil {
		return 0, err
	}
	denom, err := fixedpoint.MulDiv(c.k, uint256.NewInt(PriceScale), uint256.NewInt(1))
	if err != nil {
		return 0, err
	}
	v, err := fixedpoint.MulDiv(n, growth, denom)
	if err != nil {
		return 0, err
	}
	return fixedpoint.ToU64(v)
}

// costBetween is F(b) - F(a) for a <= b.
func (c *Curve) costBetween(a, b uint64) (uint64, error) {
	fa, err := c.integral(a)
	if err != nil {
		return 0, err
	}
	fb, err := c.integral(b)
	if err != nil {
		return 0, err
	}
	return fixedpoint.SubU64(fb, fa)
}
