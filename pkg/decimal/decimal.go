// Package decimal provides the fixed-point Price and Size types used on the
// hot path. Both are thin wrappers over shopspring/decimal so that ordering,
// arithmetic and zero/one comparisons never touch binary floats.
package decimal

import (
	"github.com/shopspring/decimal"
)

// DivisionPrecision is the number of decimal places kept (rounded half-up)
// on the rare division that cannot be exact: 18, well beyond the venue's
// 6-decimal USDC payout precision.
const DivisionPrecision = 18

func init() {
	decimal.DivisionPrecision = DivisionPrecision
}

// D is the exact decimal type shared by Price and Size. It is an alias, not
// a new type, so the shopspring helpers (NewFromString, NewFromFloat for
// telemetry-only conversions, …) stay available without re-exporting each
// one.
type D = decimal.Decimal

// Zero and One are the distinguished constants required by the data model.
var (
	Zero = decimal.Zero
	One  = decimal.NewFromInt(1)
)

// New builds a D from an int64 and an exponent, exact by construction.
func New(value int64, exp int32) D {
	return decimal.New(value, exp)
}

// NewFromString parses a decimal literal. Callers on the hot path (order
// book deltas, price levels) use this instead of strconv.ParseFloat.
func NewFromString(s string) (D, error) {
	return decimal.NewFromString(s)
}

// NewFromFloat converts a float64 into a D. Reserved for telemetry and
// config defaults — never for values that flow back into arithmetic that
// must be exact (§3: "no binary floating point on the hot path").
func NewFromFloat(f float64) D {
	return decimal.NewFromFloat(f)
}

// Min returns the lesser of a and b.
func Min(a, b D) D {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Max returns the greater of a and b.
func Max(a, b D) D {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// Clamp restricts v to [lo, hi]. lo must be <= hi.
func Clamp(v, lo, hi D) D {
	return Max(lo, Min(hi, v))
}

// IsZero reports whether d is exactly zero.
func IsZero(d D) bool {
	return d.Cmp(Zero) == 0
}

// IsPositive reports whether d is strictly greater than zero.
func IsPositive(d D) bool {
	return d.Cmp(Zero) > 0
}

// IsNegative reports whether d is strictly less than zero.
func IsNegative(d D) bool {
	return d.Cmp(Zero) < 0
}

// Sum adds all the given decimals, starting from zero. Safe on empty input.
func Sum(ds ...D) D {
	total := Zero
	for _, d := range ds {
		total = total.Add(d)
	}
	return total
}
