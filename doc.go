// Package pnl computes the profit and loss of a single wallet trading tokens
// against the chain's native currency.
//
// The core functionalities include:
//   - Normalization: raw token transfers are classified as Buy or Sell
//     TradeEvents from the point of view of the tracked wallet. Malformed,
//     blacklisted or unrelated transfers are rejected at this boundary.
//   - Lot accounting: each token Position keeps a FIFO queue of purchase
//     lots. Sells consume the oldest lots first and realize the difference
//     between their proceeds and the matched cost basis.
//   - Valuation: the Engine replays a snapshot of the event log into fresh
//     positions on every call and values open positions against a price
//     snapshot, using the average cost of the lots still held.
//   - Aggregation: realized gains are summed over arbitrary time windows,
//     UTC days and weeks in particular.
//
// Every amount is an arbitrary-precision decimal with Scale fractional digits.
// Divisions round half to even at that scale.
package pnl
