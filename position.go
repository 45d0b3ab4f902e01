package pnl

import (
	"time"
)

// Realization is the realized gain produced by a single sell.
type Realization struct {
	Token    string    `json:"token"`
	Time     time.Time `json:"time"`
	Ref      string    `json:"ref"`
	Index    int       `json:"index,omitempty"`
	Quantity Quantity  `json:"quantity"` // tokens sold
	Proceeds Money     `json:"proceeds"` // quote received for the sold tokens
	Cost     Money     `json:"cost"`     // cost basis of the matched lots
	Gain     Money     `json:"gain"`     // Proceeds - Cost
	OverSold Quantity  `json:"overSold"` // part of Quantity that matched no lot, zero cost basis
}

// Position is the complete trading state of a wallet for one token.
type Position struct {
	Token string

	Bought        Quantity // cumulated tokens bought
	Sold          Quantity // cumulated tokens sold
	QuoteSpent    Money    // cumulated quote paid for buys
	QuoteReceived Money    // cumulated quote received from sells
	Balance       Quantity // Bought - Sold, floored at zero
	Realized      Money    // cumulated realized gain
	CostOfSold    Money    // cost basis consumed by sells

	Lots lots // FIFO queue, oldest first

	FirstTrade time.Time
	LastTrade  time.Time
	Trades     int

	// OverSold is the total quantity sold beyond what was ever bought,
	// OverSells counts the sells that triggered it.
	OverSold  Quantity
	OverSells int

	Realizations []Realization
}

// NewPosition creates an empty position for token.
func NewPosition(token string) *Position {
	return &Position{Token: token}
}

// Apply updates the position with e. Events must be applied in the order
// defined by SortEvents; events for other tokens are ignored.
func (p *Position) Apply(e TradeEvent, method CostBasisMethod) {
	if e.Token != p.Token {
		return
	}
	switch e.Direction {
	case Buy:
		p.buy(e)
	case Sell:
		p.sell(e, method)
	default:
		return
	}
	if p.FirstTrade.IsZero() {
		p.FirstTrade = e.Time
	}
	p.LastTrade = e.Time
	p.Trades++
}

func (p *Position) buy(e TradeEvent) {
	p.Lots = append(p.Lots, Lot{
		Remaining:  e.TokenAmount,
		UnitCost:   e.UnitPrice(),
		AcquiredAt: e.Time,
	})
	p.Bought = p.Bought.Add(e.TokenAmount)
	p.QuoteSpent = p.QuoteSpent.Add(e.QuoteAmount)
	p.Balance = p.Balance.Add(e.TokenAmount)
}

func (p *Position) sell(e TradeEvent, method CostBasisMethod) {
	var matched []match
	var unmatched Quantity
	switch method {
	case AverageCost:
		p.Lots, matched, unmatched = p.Lots.averageSell(e.TokenAmount)
	default:
		p.Lots, matched, unmatched = p.Lots.fifoSell(e.TokenAmount)
	}

	r := Realization{
		Token:    p.Token,
		Time:     e.Time,
		Ref:      e.Ref,
		Index:    e.Index,
		Quantity: e.TokenAmount,
		// matched and unmatched quantities add up to the whole sell.
		Proceeds: e.QuoteAmount,
		Cost:     Money{}.In(e.QuoteAmount.Currency()),
	}
	for _, m := range matched {
		r.Cost = r.Cost.Add(m.Cost)
	}
	if unmatched.IsPositive() {
		// Selling more than was ever bought: the excess has no cost basis.
		r.OverSold = unmatched
		p.OverSold = p.OverSold.Add(unmatched)
		p.OverSells++
	}
	r.Gain = r.Proceeds.Sub(r.Cost)

	p.Realized = p.Realized.Add(r.Gain)
	p.CostOfSold = p.CostOfSold.Add(r.Cost)
	p.Realizations = append(p.Realizations, r)

	p.Sold = p.Sold.Add(e.TokenAmount)
	p.QuoteReceived = p.QuoteReceived.Add(e.QuoteAmount)
	p.Balance = p.Balance.Sub(e.TokenAmount)
	if p.Balance.IsNegative() {
		p.Balance = Quantity{}
	}
}

// IsClosed reports whether no token is held anymore.
func (p *Position) IsClosed() bool { return !p.Balance.IsPositive() }

// HasAnomaly reports whether the position has sold tokens it never bought.
func (p *Position) HasAnomaly() bool { return p.OverSells > 0 }

// AverageBuyPrice is the lifetime average price paid per token.
func (p *Position) AverageBuyPrice() Money {
	if p.Bought.IsZero() {
		return Money{}
	}
	return p.QuoteSpent.Div(p.Bought)
}

// AverageSellPrice is the lifetime average price received per token.
func (p *Position) AverageSellPrice() Money {
	if p.Sold.IsZero() {
		return Money{}
	}
	return p.QuoteReceived.Div(p.Sold)
}

// RemainingCost is the cost basis of the tokens still held.
func (p *Position) RemainingCost() Money { return p.Lots.cost() }

// RemainingAverageCost is the weighted average unit cost of the lots still
// held. It differs from AverageBuyPrice as soon as a sell occurred.
func (p *Position) RemainingAverageCost() Money { return p.Lots.averageCost() }

// HoldTime is the time elapsed between the first and the last trade.
func (p *Position) HoldTime() time.Duration { return p.LastTrade.Sub(p.FirstTrade) }
