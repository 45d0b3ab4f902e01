package pnl

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for every token and quote
// amount. It matches the widest on-chain fixed point precision.
const Scale = 18

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	default:
		panic("unsupported type")
	}
}

// fix rounds d half-even at Scale.
func fix(d decimal.Decimal) decimal.Decimal { return d.RoundBank(Scale) }

var two = decimal.NewFromInt(2)

// div divides a by b and rounds the quotient half-even at Scale. The quotient
// is computed exactly up to Scale digits, so the result never depends on
// decimal.DivisionPrecision.
func div(a, b decimal.Decimal) decimal.Decimal {
	q, r := a.QuoRem(b, Scale)
	if r.IsZero() {
		return q
	}
	unit := decimal.New(1, -Scale)
	// compare the remainder with half a unit of the divisor.
	c := r.Abs().Mul(two).Cmp(b.Abs().Mul(unit))
	odd := q.Shift(Scale).BigInt().Bit(0) == 1
	if c > 0 || (c == 0 && odd) {
		if a.Sign()*b.Sign() < 0 {
			return q.Sub(unit)
		}
		return q.Add(unit)
	}
	return q
}

// Quantity is an amount of tokens (or of quote currency when no currency
// is attached).
type Quantity struct {
	value decimal.Decimal
}

// Q creates a Quantity from any numeric value.
func Q[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) Quantity {
	return Quantity{value: fix(newDecimal(value))}
}

// ParseQuantity parses a decimal string like "1234.5678".
func ParseQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return Quantity{value: fix(d)}, nil
}

// FromSmallestUnit converts an integer amount expressed in the smallest
// on-chain unit (lamports, wei, raw SPL amount) into a Quantity.
func FromSmallestUnit(raw string, decimals int32) (Quantity, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid raw amount %q: %w", raw, err)
	}
	if !d.Equal(d.Truncate(0)) {
		return Quantity{}, fmt.Errorf("raw amount %q is not an integer", raw)
	}
	return Quantity{value: fix(d.Shift(-decimals))}, nil
}

func (t Quantity) Equal(p Quantity) bool              { return t.value.Equal(p.value) }
func (t Quantity) LessThan(quantity Quantity) bool    { return t.value.LessThan(quantity.value) }
func (t Quantity) Div(p Quantity) Quantity            { return Quantity{value: div(t.value, p.value)} }
func (t Quantity) Mul(p Quantity) Quantity            { return Quantity{value: fix(t.value.Mul(p.value))} }
func (t Quantity) Add(p Quantity) Quantity            { return Quantity{value: t.value.Add(p.value)} }
func (t Quantity) Sub(p Quantity) Quantity            { return Quantity{value: t.value.Sub(p.value)} }
func (t Quantity) GreaterThan(p Quantity) bool        { return t.value.GreaterThan(p.value) }
func (t Quantity) GreaterThanOrEqual(p Quantity) bool { return t.value.GreaterThanOrEqual(p.value) }
func (t Quantity) IsNegative() bool                   { return t.value.IsNegative() }
func (t Quantity) IsPositive() bool                   { return t.value.IsPositive() }
func (t Quantity) IsZero() bool                       { return t.value.IsZero() }
func (t Quantity) Decimal() decimal.Decimal           { return t.value }
func (q Quantity) String() string                     { return q.value.String() }

// Min returns the smallest of t and p.
func (t Quantity) Min(p Quantity) Quantity {
	if p.LessThan(t) {
		return p
	}
	return t
}

// MarshalJSON writes the quantity as a json string to keep every digit.
func (t Quantity) MarshalJSON() ([]byte, error) {
	return t.value.MarshalJSON()
}

func (t *Quantity) UnmarshalJSON(decimalBytes []byte) error {
	if err := t.value.UnmarshalJSON(decimalBytes); err != nil {
		return err
	}
	t.value = fix(t.value)
	return nil
}
