package pnl

import (
	"cmp"
	"slices"
	"time"
)

// PortfolioReport is the result of one computation cycle. It is never
// modified once returned by the Engine.
type PortfolioReport struct {
	Currency  string            `json:"currency"`
	Method    CostBasisMethod   `json:"method"`
	Totals    Totals            `json:"totals"`
	Positions []PositionSummary `json:"positions"` // ordered by token

	// Events is the sorted, deduplicated event list the report was built from.
	Events []TradeEvent `json:"events,omitempty"`
	// Realizations holds one entry per sell, in event order.
	Realizations []Realization `json:"realizations,omitempty"`
}

// Totals aggregates all positions of a report.
type Totals struct {
	Realized Money `json:"realized"`
	// Unrealized sums the positions with a known price only.
	Unrealized Money `json:"unrealized"`
	Spent      Money `json:"spent"`
	Received   Money `json:"received"`

	Active           int `json:"active"` // positions with a positive balance
	Closed           int `json:"closed"`
	Trades           int `json:"trades"`
	PriceUnavailable int `json:"priceUnavailable"` // open positions left out of Unrealized
	Anomalies        int `json:"anomalies"`        // positions that sold more than they bought
	Skipped          int `json:"skipped"`          // events quoted in another currency, left out
}

// Total returns realized plus unrealized gains.
func (t Totals) Total() Money { return t.Realized.Add(t.Unrealized) }

// UnrealizedIsPartial reports whether some open positions could not be
// valued, so that Unrealized is a lower bound of the real figure.
func (t Totals) UnrealizedIsPartial() bool { return t.PriceUnavailable > 0 }

// PositionSummary is the valuation of a single position.
type PositionSummary struct {
	Token string

	Balance    Quantity
	Bought     Quantity
	Sold       Quantity
	Spent      Money
	Received   Money
	Realized   Money
	CostOfSold Money

	Unrealized  Money
	Price       Money // zero when PriceUnavailable
	MarketValue Money

	RealizedPercent   Percent // Realized / CostOfSold
	UnrealizedPercent Percent // Unrealized / RemainingCost

	AverageBuyPrice   Money // lifetime
	AverageSellPrice  Money // lifetime
	RemainingCost     Money // cost basis of the lots still held
	RemainingUnitCost Money // weighted average unit cost of the lots still held

	FirstTrade time.Time
	LastTrade  time.Time
	Trades     int

	PriceUnavailable bool
	OverSold         Quantity
	OverSells        int
	Skipped          int // events quoted in another currency, left out of the replay

	Realizations []Realization
}

// IsActive reports whether tokens are still held.
func (p PositionSummary) IsActive() bool { return p.Balance.IsPositive() }

// HasAnomaly reports whether the position sold tokens it never bought.
func (p PositionSummary) HasAnomaly() bool { return p.OverSells > 0 }

// Total returns realized plus unrealized gains.
func (p PositionSummary) Total() Money { return p.Realized.Add(p.Unrealized) }

// Position returns the summary of token.
func (r *PortfolioReport) Position(token string) (PositionSummary, bool) {
	i, found := slices.BinarySearchFunc(r.Positions, token, func(p PositionSummary, t string) int {
		return cmp.Compare(p.Token, t)
	})
	if !found {
		return PositionSummary{}, false
	}
	return r.Positions[i], true
}

// Active returns the positions still held.
func (r *PortfolioReport) Active() []PositionSummary {
	return slices.DeleteFunc(slices.Clone(r.Positions), func(p PositionSummary) bool { return !p.IsActive() })
}

// Closed returns the positions fully sold.
func (r *PortfolioReport) Closed() []PositionSummary {
	return slices.DeleteFunc(slices.Clone(r.Positions), PositionSummary.IsActive)
}

func compareRealizations(a, b Realization) int {
	if c := a.Time.Compare(b.Time); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Ref, b.Ref); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

// MarshalJSON writes the summary with a stable field order, omitting the
// valuation fields when no price is available.
func (p PositionSummary) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("token", p.Token)
	w.Append("balance", p.Balance)
	w.Append("bought", p.Bought)
	w.Append("sold", p.Sold)
	w.Append("spent", p.Spent)
	w.Append("received", p.Received)
	w.Append("realized", p.Realized)
	w.Append("realizedPercent", p.RealizedPercent)
	w.Append("costOfSold", p.CostOfSold)
	w.Append("remainingCost", p.RemainingCost)
	w.Append("remainingUnitCost", p.RemainingUnitCost)
	w.Append("averageBuyPrice", p.AverageBuyPrice)
	w.Optional("averageSellPrice", p.AverageSellPrice)
	if p.PriceUnavailable {
		w.Append("priceUnavailable", true)
	} else if p.IsActive() {
		w.Append("price", p.Price)
		w.Append("marketValue", p.MarketValue)
		w.Append("unrealized", p.Unrealized)
		w.Append("unrealizedPercent", p.UnrealizedPercent)
	}
	w.Append("firstTrade", p.FirstTrade)
	w.Append("lastTrade", p.LastTrade)
	w.Append("holdHours", HoldHours(p))
	w.Append("trades", p.Trades)
	if p.HasAnomaly() {
		w.Append("overSold", p.OverSold)
		w.Append("overSells", p.OverSells)
	}
	w.Optional("skipped", p.Skipped)
	return w.MarshalJSON()
}
