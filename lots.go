package pnl

import "time"

// Lot is the quantity of a token acquired by a single buy, with its cost
// basis.
type Lot struct {
	Remaining  Quantity  // never negative, decreases as sells consume it
	UnitCost   Money     // quote paid per token, fixed at buy time
	AcquiredAt time.Time // time of the originating buy
}

// Cost returns the cost basis of the remaining quantity.
func (l Lot) Cost() Money { return l.UnitCost.Mul(l.Remaining) }

// lots is a queue of lots, oldest first.
type lots []Lot

// quantity returns the total remaining quantity.
func (l lots) quantity() Quantity {
	var total Quantity
	for _, current := range l {
		total = total.Add(current.Remaining)
	}
	return total
}

// cost returns the total cost basis of the remaining quantities.
func (l lots) cost() Money {
	var total Money
	for _, current := range l {
		total = total.Add(current.Cost())
	}
	return total
}

// averageCost returns the weighted average unit cost of the remaining
// quantities, zero for an empty queue.
func (l lots) averageCost() Money {
	q := l.quantity()
	if q.IsZero() {
		return Money{}
	}
	return l.cost().Div(q)
}

// match is the part of a sell matched against one lot.
type match struct {
	Quantity Quantity
	Cost     Money
}

// fifoSell consumes quantityToSell from the oldest lots first. It returns the
// remaining lots, what was matched, and the quantity left unmatched when the
// queue runs dry.
func (l lots) fifoSell(quantityToSell Quantity) (remaining lots, matched []match, unmatched Quantity) {
	remaining = make(lots, 0, len(l))
	for _, currentLot := range l {
		if !quantityToSell.IsPositive() {
			remaining = append(remaining, currentLot)
			continue
		}
		consumed := currentLot.Remaining.Min(quantityToSell)
		matched = append(matched, match{Quantity: consumed, Cost: currentLot.UnitCost.Mul(consumed)})
		quantityToSell = quantityToSell.Sub(consumed)

		currentLot.Remaining = currentLot.Remaining.Sub(consumed)
		if currentLot.Remaining.IsPositive() {
			// Partial sale from this lot
			remaining = append(remaining, currentLot)
		}
	}
	return remaining, matched, quantityToSell
}

// averageSell consumes quantityToSell at the average cost of the queue. The
// remaining quantity is merged into a single lot dated like the oldest one.
func (l lots) averageSell(quantityToSell Quantity) (remaining lots, matched []match, unmatched Quantity) {
	held := l.quantity()
	if held.IsZero() {
		return nil, nil, quantityToSell
	}
	avg := l.averageCost()
	consumed := held.Min(quantityToSell)
	matched = []match{{Quantity: consumed, Cost: avg.Mul(consumed)}}
	if left := held.Sub(consumed); left.IsPositive() {
		remaining = lots{{Remaining: left, UnitCost: avg, AcquiredAt: l[0].AcquiredAt}}
	}
	return remaining, matched, quantityToSell.Sub(consumed)
}
