package pnl

import (
	"cmp"
	"slices"
	"time"

	"github.com/etnz/pnl/date"
)

// WindowedSummary is the trading activity of a time window [From, To).
//
// Realized only sums the realized contribution of sells inside the window,
// not the lifetime totals of the positions they belong to.
type WindowedSummary struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Currency string    `json:"currency"`

	Realized Money `json:"realized"`
	Proceeds Money `json:"proceeds"` // proceeds of in-window sells, over-sold excess included
	Cost     Money `json:"cost"`     // cost basis consumed by in-window sells
	Spent    Money `json:"spent"`    // quote paid by in-window buys
	Received Money `json:"received"` // quote received by in-window sells

	Buys   int `json:"buys"`
	Sells  int `json:"sells"`
	Wins   int `json:"wins"`   // sells with a positive gain
	Losses int `json:"losses"` // sells with a negative gain

	// OverSells counts the in-window sells that matched no lot for part of
	// their quantity.
	OverSells int `json:"overSells"`

	Tokens []TokenWindow `json:"tokens"` // ordered by token
}

// TokenWindow is the activity of a single token within a window.
type TokenWindow struct {
	Token    string   `json:"token"`
	Realized Money    `json:"realized"`
	Bought   Quantity `json:"bought"`
	Sold     Quantity `json:"sold"`
	Buys     int      `json:"buys"`
	Sells    int      `json:"sells"`
}

// Windowed sums the realized gains of the sells whose time falls in
// [from, to). An empty report or window yields a zero summary.
func (r *PortfolioReport) Windowed(from, to time.Time) WindowedSummary {
	zero := Money{}.In(r.Currency)
	s := WindowedSummary{
		From:     from,
		To:       to,
		Currency: r.Currency,
		Realized: zero,
		Proceeds: zero,
		Cost:     zero,
		Spent:    zero,
		Received: zero,
	}
	in := func(t time.Time) bool { return !t.Before(from) && t.Before(to) }

	tokens := make(map[string]*TokenWindow)
	token := func(name string) *TokenWindow {
		tw, ok := tokens[name]
		if !ok {
			tw = &TokenWindow{Token: name, Realized: zero}
			tokens[name] = tw
		}
		return tw
	}

	for _, e := range r.Events {
		if !in(e.Time) {
			continue
		}
		tw := token(e.Token)
		switch e.Direction {
		case Buy:
			s.Buys++
			s.Spent = s.Spent.Add(e.QuoteAmount)
			tw.Buys++
			tw.Bought = tw.Bought.Add(e.TokenAmount)
		case Sell:
			s.Received = s.Received.Add(e.QuoteAmount)
			tw.Sold = tw.Sold.Add(e.TokenAmount)
		}
	}

	for _, z := range r.Realizations {
		if !in(z.Time) {
			continue
		}
		s.Sells++
		s.Realized = s.Realized.Add(z.Gain)
		s.Proceeds = s.Proceeds.Add(z.Proceeds)
		s.Cost = s.Cost.Add(z.Cost)
		switch {
		case z.Gain.IsPositive():
			s.Wins++
		case z.Gain.IsNegative():
			s.Losses++
		}
		if z.OverSold.IsPositive() {
			s.OverSells++
		}
		tw := token(z.Token)
		tw.Sells++
		tw.Realized = tw.Realized.Add(z.Gain)
	}

	for _, tw := range tokens {
		s.Tokens = append(s.Tokens, *tw)
	}
	slices.SortFunc(s.Tokens, func(a, b TokenWindow) int { return cmp.Compare(a.Token, b.Token) })
	return s
}

// Range returns the summary of the UTC days covered by rg.
func (r *PortfolioReport) Range(rg date.Range) WindowedSummary {
	return r.Windowed(rg.Window())
}

// Daily returns the summary of the UTC day.
func (r *PortfolioReport) Daily(day date.Date) WindowedSummary {
	return r.Range(date.NewRange(day, date.Daily))
}

// Weekly returns the summary of the week, Monday to Sunday, containing day.
func (r *PortfolioReport) Weekly(day date.Date) WindowedSummary {
	return r.Range(date.NewRange(day, date.Weekly))
}

// DailySeries returns the daily summaries of every day of rg.
func (r *PortfolioReport) DailySeries(rg date.Range) []WindowedSummary {
	var series []WindowedSummary
	for day := range rg.Days() {
		series = append(series, r.Daily(day))
	}
	return series
}

// HoldTime is the time between the first and the last trade of p, zero
// when p has a single trade.
func HoldTime(p PositionSummary) time.Duration {
	if p.Trades < 2 {
		return 0
	}
	return p.LastTrade.Sub(p.FirstTrade)
}

// HoldDays is the hold time of p in whole days.
func HoldDays(p PositionSummary) int { return int(HoldTime(p) / date.Day) }

// HoldHours is the hold time of p in whole hours.
func HoldHours(p PositionSummary) int { return int(HoldTime(p) / time.Hour) }

// Stats gives an overview of the positions of a report.
type Stats struct {
	Positions int
	Winners   int // positions with a positive realized gain
	Losers    int // positions with a negative realized gain

	Best  *PositionSummary // highest realized gain, nil without sells
	Worst *PositionSummary // lowest realized gain, nil without sells

	AverageHoldTime time.Duration // over closed positions only
	WinRate         Percent       // winners over winners and losers
}

// Stats computes statistics over the positions of the report.
func (r *PortfolioReport) Stats() Stats {
	var s Stats
	var held time.Duration
	var closed int
	for i := range r.Positions {
		p := &r.Positions[i]
		s.Positions++
		switch {
		case p.Realized.IsPositive():
			s.Winners++
		case p.Realized.IsNegative():
			s.Losers++
		}
		if !p.Sold.IsZero() {
			if s.Best == nil || p.Realized.GreaterThan(s.Best.Realized) {
				s.Best = p
			}
			if s.Worst == nil || p.Realized.LessThan(s.Worst.Realized) {
				s.Worst = p
			}
		}
		if !p.IsActive() {
			held += HoldTime(*p)
			closed++
		}
	}
	if closed > 0 {
		s.AverageHoldTime = held / time.Duration(closed)
	}
	if n := s.Winners + s.Losers; n > 0 {
		s.WinRate = Percent(100 * float64(s.Winners) / float64(n))
	}
	return s
}
