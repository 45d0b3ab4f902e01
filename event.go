package pnl

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Direction tells whether tokens entered or left the tracked wallet.
type Direction int

const (
	Buy Direction = iota + 1
	Sell
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// ParseDirection parses "buy" or "sell".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Direction) UnmarshalText(b []byte) (err error) {
	*d, err = ParseDirection(string(b))
	return err
}

// TradeEvent is a transfer of a token classified as a trade of the tracked
// wallet. TradeEvents are only produced by the Normalizer and are never
// modified afterwards.
type TradeEvent struct {
	Token       string    // token contract (mint) address
	Direction   Direction // Buy or Sell
	TokenAmount Quantity  // always positive
	QuoteAmount Money     // always positive
	Time        time.Time // block time, millisecond precision
	Ref         string    // transaction hash
	Index       int       // position of the transfer in the transaction
}

// UnitPrice returns the quote amount paid or received per token.
func (e TradeEvent) UnitPrice() Money {
	return e.QuoteAmount.Div(e.TokenAmount)
}

// key identifies an event for deduplication.
type key struct {
	ref   string
	index int
}

func (e TradeEvent) key() key { return key{e.Ref, e.Index} }

// compareEvents orders events by time, then transaction hash, then index.
func compareEvents(a, b TradeEvent) int {
	if c := a.Time.Compare(b.Time); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Ref, b.Ref); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

// SortEvents returns a sorted copy of events, with duplicated (Ref, Index)
// pairs removed. The input slice is left untouched.
func SortEvents(events []TradeEvent) []TradeEvent {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, compareEvents)
	seen := make(map[key]struct{}, len(sorted))
	return slices.DeleteFunc(sorted, func(e TradeEvent) bool {
		if _, dup := seen[e.key()]; dup {
			return true
		}
		seen[e.key()] = struct{}{}
		return false
	})
}

// MarshalJSON implements the json.Marshaler interface for TradeEvent.
func (e TradeEvent) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("time", e.Time.UTC().Format(time.RFC3339Nano))
	w.Append("ref", e.Ref)
	w.Optional("index", e.Index)
	w.Append("token", e.Token)
	w.Append("direction", e.Direction)
	w.Append("tokenAmount", e.TokenAmount)
	w.Merge(e.QuoteAmount)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for TradeEvent.
// The quote amount and currency are flat fields as written by MarshalJSON.
func (e *TradeEvent) UnmarshalJSON(data []byte) error {
	var temp struct {
		Time        time.Time `json:"time"`
		Ref         string    `json:"ref"`
		Index       int       `json:"index"`
		Token       string    `json:"token"`
		Direction   Direction `json:"direction"`
		TokenAmount Quantity  `json:"tokenAmount"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	var quote Money
	if err := json.Unmarshal(data, &quote); err != nil {
		return err
	}
	*e = TradeEvent{
		Token:       temp.Token,
		Direction:   temp.Direction,
		TokenAmount: temp.TokenAmount,
		QuoteAmount: quote,
		Time:        temp.Time,
		Ref:         temp.Ref,
		Index:       temp.Index,
	}
	return nil
}

// RawTransfer is a token transfer as delivered by the event source, before
// classification. Amounts are decimal strings, or integers in the smallest
// unit when the matching decimals field is set.
type RawTransfer struct {
	Signature     string `json:"signature"`
	Index         int    `json:"index,omitempty"`
	Timestamp     int64  `json:"timestamp"` // unix milliseconds
	Mint          string `json:"mint"`
	From          string `json:"from"`
	To            string `json:"to"`
	TokenAmount   string `json:"tokenAmount"`
	QuoteAmount   string `json:"quoteAmount"`
	Decimals      int32  `json:"decimals,omitempty"`
	QuoteDecimals int32  `json:"quoteDecimals,omitempty"`
}

// Time returns the block time of the transfer.
func (r RawTransfer) Time() time.Time { return time.UnixMilli(r.Timestamp).UTC() }
