package pnl

import (
	"encoding/json"
	"math"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the native currency of the tracked chain, used to
// denominate every quote amount.
const DefaultCurrency = "SOL"

func init() {
	// go-money only knows fiat currencies. The fraction here is a display
	// fraction, accounting always keeps Scale digits.
	RegisterCurrency("SOL", "◎", 9)
	RegisterCurrency("ETH", "Ξ", 6)
	RegisterCurrency("BNB", "BNB", 6)
}

// RegisterCurrency declares a quote currency for display purposes.
func RegisterCurrency(code, grapheme string, fraction int) {
	money.AddCurrency(code, grapheme, "1 $", ".", ",", fraction)
}

// Money represents an amount of quote currency.
type Money struct {
	value decimal.Decimal // as major unit value
	cur   string
}

func M[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T, currency string) Money {
	return Money{value: fix(newDecimal(value)), cur: currency}
}

// ParseMoney parses a decimal string into an amount of the given currency.
func ParseMoney(s, currency string) (Money, error) {
	q, err := ParseQuantity(s)
	if err != nil {
		return Money{}, err
	}
	return Money{value: q.value, cur: currency}, nil
}

// currency returns the money's currency
func (m Money) currency() money.Currency {
	// to get a never nil currency I need to call the Money constructor
	return *money.New(0, m.cur).Currency()
}

// String returns the string representation of the money value.
func (m Money) String() string {
	cur := m.currency()
	dec := m.value.Shift(int32(cur.Fraction))
	if dec.Abs().GreaterThan(maxMinorUnits) {
		// go-money formats int64 minor units only.
		return m.value.StringFixed(int32(cur.Fraction)) + " " + cur.Grapheme
	}
	return cur.Formatter().Format(dec.IntPart())
}

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

func (m Money) Currency() string                { return m.cur }
func (m Money) Decimal() decimal.Decimal        { return m.value }
func (m Money) Equal(n Money) bool              { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Money) IsZero() bool                    { return m.value.IsZero() }
func (m Money) IsPositive() bool                { return m.value.IsPositive() }
func (m Money) IsNegative() bool                { return m.value.IsNegative() }
func (m Money) LessThan(amount Money) bool      { return m.value.LessThan(amount.value) }
func (m Money) GreaterThan(n Money) bool        { return m.value.GreaterThan(n.value) }
func (m Money) GreaterThanOrEqual(n Money) bool { return m.value.GreaterThanOrEqual(n.value) }
func (m Money) Neg() Money                      { return Money{value: m.value.Neg(), cur: m.cur} }
func (m Money) Mul(n Quantity) Money            { return Money{value: fix(m.value.Mul(n.value)), cur: m.cur} }
func (m Money) Div(n Quantity) Money            { return Money{value: div(m.value, n.value), cur: m.cur} }
func (m Money) DivPrice(n Money) Quantity       { return Quantity{value: div(m.value, n.value)} }

// In returns m tagged with currency. It is used to give a currency to
// zero values.
func (m Money) In(currency string) Money { return Money{value: m.value, cur: currency} }

// binary operators.
func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value), cur: cur(m, n)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value), cur: cur(m, n)} }

// makes the "" currency totally weak.
func cur(A, B Money) string {
	if A.cur == "" {
		return B.cur
	}
	if B.cur == "" {
		return A.cur
	}
	if A.cur != B.cur {
		panic("currency mismatch" + A.cur + "!=" + B.cur)
	}
	return A.cur
}

// SignedString returns the string representation of the money value with a sign.
// 0 is represented as a "-"
func (m Money) SignedString() string {
	if m.value.IsZero() {
		return "-"
	}
	if m.value.IsPositive() {
		return "+" + m.String()
	}
	return m.String()
}

// MarshalJSON writes {"currency": ..., "amount": ...} keeping all the digits.
func (m Money) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Optional("currency", m.cur)
	w.Append("amount", m.value)
	return w.MarshalJSON()
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var temp struct {
		Currency string          `json:"currency"`
		Amount   decimal.Decimal `json:"amount"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	m.cur = temp.Currency
	m.value = fix(temp.Amount)
	return nil
}
