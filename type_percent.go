package pnl

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Percent is a display only ratio, 5 means 5%.
type Percent float64

var hundred = decimal.NewFromInt(100)

// percentOf returns 100*num/den, or 0 when den is zero.
func percentOf(num, den Money) Percent {
	if den.IsZero() {
		return 0
	}
	return Percent(div(num.value.Mul(hundred), den.value).InexactFloat64())
}

func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", p)
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", p)
	if res == "+0.00%" {
		return "-"
	}
	return res
}
