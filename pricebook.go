package pnl

import (
	"maps"
	"sync"
	"time"
)

// PriceBook holds the latest known price of each token. Prices are refreshed
// on their own cadence; computation cycles read them through Snapshot. It is
// safe for concurrent use.
type PriceBook struct {
	mu      sync.RWMutex
	prices  map[string]Money
	updated time.Time
}

// NewPriceBook creates an empty price book.
func NewPriceBook() *PriceBook {
	return &PriceBook{prices: make(map[string]Money)}
}

// Set records the price of token.
func (b *PriceBook) Set(token string, price Money) {
	b.SetAll(map[string]Money{token: price})
}

// SetAll records several prices at once. Tokens absent from prices keep
// their previous price.
func (b *PriceBook) SetAll(prices map[string]Money) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.prices == nil {
		b.prices = make(map[string]Money)
	}
	maps.Copy(b.prices, prices)
	b.updated = time.Now()
}

// Update records the answer of a price source asked for tokens: tokens with
// a price get it, the others become unavailable.
func (b *PriceBook) Update(tokens []string, prices map[string]Money) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.prices == nil {
		b.prices = make(map[string]Money)
	}
	for _, token := range tokens {
		if price, ok := prices[token]; ok {
			b.prices[token] = price
		} else {
			delete(b.prices, token)
		}
	}
	b.updated = time.Now()
}

// Delete forgets the price of token, it becomes unavailable.
func (b *PriceBook) Delete(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.prices, token)
}

// Updated returns the time of the last update.
func (b *PriceBook) Updated() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updated
}

// Snapshot returns an immutable copy of the current prices.
func (b *PriceBook) Snapshot() PriceSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return PriceSnapshot(maps.Clone(b.prices))
}

// PriceSnapshot is an immutable set of prices. It implements PriceOracle.
type PriceSnapshot map[string]Money

// PriceOf implements PriceOracle.
func (s PriceSnapshot) PriceOf(token string) (Money, bool) {
	p, ok := s[token]
	return p, ok
}
