// Package fixedpoint provides exact unsigned fixed-point arithmetic for the
// pricing engine. All wide intermediates use 256-bit integers so that any
// computation exceeding the representable range is detected and reported as
// ErrOverflow instead of silently wrapping.
package fixedpoint

import (
	"errors"

	"github.com/holiman/uint256"
)

// One is the fixed-point scale for exponential evaluation (18 decimals).
var One = uint256.NewInt(1_000_000_000_000_000_000)

// ExpIterationCap bounds the Taylor expansion of Exp. The cap guarantees
// termination and cross-platform reproducibility; with an 18-decimal scale the
// series underflows to zero well before 100 terms for any admissible exponent.
const ExpIterationCap = 100

// MaxExpArg is the largest exponent Exp accepts, in One scale (18.0). e^18
// leaves wide headroom in the integral math that multiplies the result by
// price and supply, and the bound sits below MaxUint64 so callers taking a
// uint64 exponent parameter can actually enforce it.
var MaxExpArg = uint256.NewInt(18_000_000_000_000_000_000)

// ErrOverflow is returned when a computation would exceed the representable
// range. Callers must treat it as fatal to the operation in progress.
var ErrOverflow = errors.New("fixed-point overflow")

// MulDiv computes floor(a * b / d) with a full-width intermediate product.
// Returns ErrOverflow if d is zero or the quotient exceeds 256 bits.
func MulDiv(a, b, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrOverflow
	}
	p, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		// Fall back to the 512-bit product only when the result still fits:
		// (a/d)*b + (a%d)*b/d keeps every intermediate inside 256 bits when
		// the final quotient does.
		q := new(uint256.Int).Div(a, d)
		r := new(uint256.Int).Mod(a, d)
		hi, of1 := new(uint256.Int).MulOverflow(q, b)
		if of1 {
			return nil, ErrOverflow
		}
		rb, of2 := new(uint256.Int).MulOverflow(r, b)
		if of2 {
			return nil, ErrOverflow
		}
		lo := rb.Div(rb, d)
		out, of3 := hi.AddOverflow(hi, lo)
		if of3 {
			return nil, ErrOverflow
		}
		return out, nil
	}
	return p.Div(p, d), nil
}

// Exp evaluates e^z for z in One scale, returning the result in One scale.
// Truncated Taylor series: sum of z^n / n!, term-by-term, stopping when a
// term underflows to zero or the iteration cap is reached. Monotone in z for
// a fixed term count, which the curve relies on.
func Exp(z *uint256.Int) (*uint256.Int, error) {
	if z.Gt(MaxExpArg) {
		return nil, ErrOverflow
	}
	sum := new(uint256.Int).Set(One)
	term := new(uint256.Int).Set(One)
	for n := 1; n <= ExpIterationCap; n++ {
		// term *= z / (One * n)
		t, err := MulDiv(term, z, new(uint256.Int).Mul(One, uint256.NewInt(uint64(n))))
		if err != nil {
			return nil, err
		}
		if t.IsZero() {
			break
		}
		var of bool
		sum, of = sum.AddOverflow(sum, t)
		if of {
			return nil, ErrOverflow
		}
		term = t
	}
	return sum, nil
}

// AddU64 returns a+b or ErrOverflow.
func AddU64(a, b uint64) (uint64, error) {
	s := a + b
	if s < a {
		return 0, ErrOverflow
	}
	return s, nil
}

// SubU64 returns a-b or ErrOverflow when b > a.
func SubU64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrOverflow
	}
	return a - b, nil
}

// ToU64 narrows a 256-bit value to uint64, reporting ErrOverflow on loss.
func ToU64(v *uint256.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, ErrOverflow
	}
	return v.Uint64(), nil
}
