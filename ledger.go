package pnl

import (
	"iter"
	"maps"
	"slices"
)

// Ledger holds the positions of a wallet, one per token, built by applying
// trade events in order.
//
// A Ledger is not safe for concurrent use, but distinct positions are
// independent and can be updated from different goroutines once created.
type Ledger struct {
	method    CostBasisMethod
	positions map[string]*Position
}

// NewLedger creates an empty ledger matching sells with method.
func NewLedger(method CostBasisMethod) *Ledger {
	return &Ledger{
		method:    method,
		positions: make(map[string]*Position),
	}
}

// Method returns the cost basis method of the ledger.
func (l *Ledger) Method() CostBasisMethod { return l.method }

// GetOrCreate returns the position of token, creating it on first use.
func (l *Ledger) GetOrCreate(token string) *Position {
	p, ok := l.positions[token]
	if !ok {
		p = NewPosition(token)
		l.positions[token] = p
	}
	return p
}

// Position returns the position of token, or nil if it never traded.
func (l *Ledger) Position(token string) *Position {
	return l.positions[token]
}

// Apply applies a single event to its token position.
func (l *Ledger) Apply(e TradeEvent) {
	l.GetOrCreate(e.Token).Apply(e, l.method)
}

// Replay applies all events in their canonical order.
func (l *Ledger) Replay(events []TradeEvent) {
	for _, e := range SortEvents(events) {
		l.Apply(e)
	}
}

// Tokens returns an iterator over the traded tokens in alphabetical order.
func (l *Ledger) Tokens() iter.Seq[string] {
	return slices.Values(slices.Sorted(maps.Keys(l.positions)))
}

// Positions returns an iterator over all positions ordered by token.
func (l *Ledger) Positions() iter.Seq[*Position] {
	return func(yield func(*Position) bool) {
		for token := range l.Tokens() {
			if !yield(l.positions[token]) {
				return
			}
		}
	}
}
