package pnl

import (
	"log"
	"slices"

	"golang.org/x/sync/errgroup"
)

// PriceOracle gives the current price of a token in quote currency.
// Implementations must be safe for concurrent use.
type PriceOracle interface {
	// PriceOf returns the price of one token, or false when no price is
	// available for it.
	PriceOf(token string) (Money, bool)
}

// PriceFunc adapts a function to the PriceOracle interface.
type PriceFunc func(token string) (Money, bool)

func (f PriceFunc) PriceOf(token string) (Money, bool) { return f(token) }

// Engine computes portfolio reports from a snapshot of trade events and a
// snapshot of prices. It keeps no state between calls: every call replays
// the whole history into a fresh Ledger.
type Engine struct {
	method      CostBasisMethod
	currency    string
	parallelism int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMethod sets the cost basis method, FIFO by default.
func WithMethod(m CostBasisMethod) Option { return func(e *Engine) { e.method = m } }

// WithCurrency sets the quote currency of the report.
func WithCurrency(cur string) Option { return func(e *Engine) { e.currency = cur } }

// WithParallelism replays up to n tokens concurrently. Tokens are
// independent so the result does not depend on n.
func WithParallelism(n int) Option { return func(e *Engine) { e.parallelism = n } }

// NewEngine creates an engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{method: FIFO, currency: DefaultCurrency, parallelism: 1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Method returns the cost basis method used by the engine.
func (e *Engine) Method() CostBasisMethod { return e.method }

// Currency returns the quote currency used by the engine.
func (e *Engine) Currency() string { return e.currency }

// ComputePortfolio replays events and values open positions with prices.
//
// events is never modified: it is copied, sorted by (time, ref, index) and
// deduplicated before replay. Events quoted in another currency than the
// engine's are left out and counted in the Skipped field of their position.
// prices may be nil, in which case every open position is reported with an
// unavailable price.
func (e *Engine) ComputePortfolio(events []TradeEvent, prices PriceOracle) *PortfolioReport {
	sorted, skipped := e.accepted(SortEvents(events))

	ledger := NewLedger(e.method)
	byToken := make(map[string][]TradeEvent)
	for _, ev := range sorted {
		ledger.GetOrCreate(ev.Token)
		byToken[ev.Token] = append(byToken[ev.Token], ev)
	}
	for token := range skipped {
		ledger.GetOrCreate(token)
	}
	tokens := slices.Collect(ledger.Tokens())

	summaries := make([]PositionSummary, len(tokens))
	replay := func(i int) {
		p := ledger.Position(tokens[i])
		for _, ev := range byToken[tokens[i]] {
			p.Apply(ev, e.method)
		}
		summaries[i] = e.summarize(p, prices)
		summaries[i].Skipped = skipped[tokens[i]]
	}

	if e.parallelism > 1 && len(tokens) > 1 {
		var g errgroup.Group
		g.SetLimit(e.parallelism)
		for i := range tokens {
			g.Go(func() error {
				replay(i)
				return nil
			})
		}
		_ = g.Wait() // replay never fails
	} else {
		for i := range tokens {
			replay(i)
		}
	}

	return e.newReport(sorted, summaries)
}

// accepted removes the events quoted in another currency than the engine's
// and counts them per token.
func (e *Engine) accepted(events []TradeEvent) ([]TradeEvent, map[string]int) {
	skipped := make(map[string]int)
	events = slices.DeleteFunc(events, func(ev TradeEvent) bool {
		if cur := ev.QuoteAmount.Currency(); cur == "" || cur == e.currency {
			return false
		}
		skipped[ev.Token]++
		return true
	})
	for token, n := range skipped {
		log.Printf("warning: %d event(s) of %s not quoted in %s: ignored", n, token, e.currency)
	}
	return events, skipped
}

// summarize values a replayed position.
func (e *Engine) summarize(p *Position, prices PriceOracle) PositionSummary {
	s := PositionSummary{
		Token:             p.Token,
		Balance:           p.Balance,
		Bought:            p.Bought,
		Sold:              p.Sold,
		Spent:             e.money(p.QuoteSpent),
		Received:          e.money(p.QuoteReceived),
		Realized:          e.money(p.Realized),
		CostOfSold:        e.money(p.CostOfSold),
		Unrealized:        e.money(Money{}),
		AverageBuyPrice:   e.money(p.AverageBuyPrice()),
		AverageSellPrice:  e.money(p.AverageSellPrice()),
		RemainingCost:     e.money(p.RemainingCost()),
		RemainingUnitCost: e.money(p.RemainingAverageCost()),
		FirstTrade:        p.FirstTrade,
		LastTrade:         p.LastTrade,
		Trades:            p.Trades,
		OverSold:          p.OverSold,
		OverSells:         p.OverSells,
		Realizations:      slices.Clone(p.Realizations),
	}
	s.RealizedPercent = percentOf(s.Realized, s.CostOfSold)

	if p.IsClosed() {
		return s
	}
	price, ok := e.priceOf(prices, p.Token)
	if !ok {
		s.PriceUnavailable = true
		return s
	}
	s.Price = price
	s.MarketValue = price.Mul(p.Balance)
	s.Unrealized = price.Sub(s.RemainingUnitCost).Mul(p.Balance)
	s.UnrealizedPercent = percentOf(s.Unrealized, s.RemainingCost)
	return s
}

// priceOf looks a price up and rejects prices in another currency.
func (e *Engine) priceOf(prices PriceOracle, token string) (Money, bool) {
	if prices == nil {
		return Money{}, false
	}
	price, ok := prices.PriceOf(token)
	if !ok || price.IsNegative() {
		return Money{}, false
	}
	if price.Currency() != "" && price.Currency() != e.currency {
		log.Printf("warning: price of %s is in %s, want %s: ignored", token, price.Currency(), e.currency)
		return Money{}, false
	}
	return e.money(price), true
}

// money gives the engine currency to a money without one.
func (e *Engine) money(m Money) Money {
	if m.Currency() == "" {
		return m.In(e.currency)
	}
	return m
}

func (e *Engine) newReport(events []TradeEvent, positions []PositionSummary) *PortfolioReport {
	r := &PortfolioReport{
		Currency:  e.currency,
		Method:    e.method,
		Positions: positions,
		Events:    events,
		Totals: Totals{
			Realized:   e.money(Money{}),
			Unrealized: e.money(Money{}),
			Spent:      e.money(Money{}),
			Received:   e.money(Money{}),
		},
	}
	for _, p := range positions {
		t := &r.Totals
		t.Realized = t.Realized.Add(p.Realized)
		t.Spent = t.Spent.Add(p.Spent)
		t.Received = t.Received.Add(p.Received)
		t.Trades += p.Trades
		if p.IsActive() {
			t.Active++
		} else {
			t.Closed++
		}
		if p.PriceUnavailable {
			t.PriceUnavailable++
		} else {
			t.Unrealized = t.Unrealized.Add(p.Unrealized)
		}
		if p.HasAnomaly() {
			t.Anomalies++
		}
		t.Skipped += p.Skipped
		r.Realizations = append(r.Realizations, p.Realizations...)
	}
	slices.SortStableFunc(r.Realizations, compareRealizations)
	return r
}
