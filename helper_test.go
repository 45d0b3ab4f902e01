package pnl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const wallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"

// t0 is the reference time of test events.
var t0 = time.Date(2025, time.September, 8, 10, 0, 0, 0, time.UTC)

// SOL is a helper for test to create quote money from const.
func SOL(v float64) Money { return M(v, "SOL") }

// buy creates a buy of tokens for quote SOL at t0+minutes.
func buy(token string, tokens, quote float64, minutes int, ref string) TradeEvent {
	return TradeEvent{
		Token:       token,
		Direction:   Buy,
		TokenAmount: Q(tokens),
		QuoteAmount: SOL(quote),
		Time:        t0.Add(time.Duration(minutes) * time.Minute),
		Ref:         ref,
	}
}

// sell creates a sell of tokens for quote SOL at t0+minutes.
func sell(token string, tokens, quote float64, minutes int, ref string) TradeEvent {
	e := buy(token, tokens, quote, minutes, ref)
	e.Direction = Sell
	return e
}

// prices returns a price oracle from a map of token to SOL prices.
func prices(m map[string]float64) PriceOracle {
	s := make(PriceSnapshot, len(m))
	for token, p := range m {
		s[token] = SOL(p)
	}
	return s
}

func assertMoney(t *testing.T, name string, got, want Money) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %v (%s), want %v (%s)", name, got.Decimal(), got.Currency(), want.Decimal(), want.Currency())
	}
}

func assertQuantity(t *testing.T, name string, got, want Quantity) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal.NewFromString(%q) error = %v", s, err)
	}
	return d
}
