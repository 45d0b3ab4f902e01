package pnl

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/etnz/pnl/metrics"
)

// Reasons for which a raw transfer never becomes a TradeEvent.
var (
	ErrBlacklisted       = errors.New("token is blacklisted")
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrSelfTransfer      = errors.New("self transfer")
	ErrMissingToken      = errors.New("token address is missing")
	ErrUnrelated         = errors.New("transfer does not involve the wallet")
	ErrMalformed         = errors.New("malformed transfer")
)

// RejectError explains why a raw transfer was rejected.
type RejectError struct {
	Ref    string
	Index  int
	Reason error
	Detail string
}

func (e *RejectError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("transfer %s#%d rejected: %v: %s", e.Ref, e.Index, e.Reason, e.Detail)
	}
	return fmt.Sprintf("transfer %s#%d rejected: %v", e.Ref, e.Index, e.Reason)
}

func (e *RejectError) Unwrap() error { return e.Reason }

// Normalizer turns raw transfers into TradeEvents from the point of view of
// a single wallet. It is safe for concurrent use.
type Normalizer struct {
	wallet    string
	currency  string
	blacklist map[string]struct{}

	mu       sync.Mutex
	reported map[key]struct{} // rejections already logged and counted
}

// NewNormalizer creates a normalizer for wallet. Transfers of any token in
// blacklist are rejected.
func NewNormalizer(wallet, currency string, blacklist ...string) *Normalizer {
	if currency == "" {
		currency = DefaultCurrency
	}
	n := &Normalizer{
		wallet:    wallet,
		currency:  currency,
		blacklist: make(map[string]struct{}, len(blacklist)),
		reported:  make(map[key]struct{}),
	}
	for _, token := range blacklist {
		n.blacklist[strings.TrimSpace(token)] = struct{}{}
	}
	return n
}

// Normalize classifies raw as a Buy (tokens received by the wallet) or a Sell
// (tokens sent by the wallet). Rejections are returned as *RejectError.
func (n *Normalizer) Normalize(raw RawTransfer) (TradeEvent, error) {
	reject := func(reason error, detail string) (TradeEvent, error) {
		return TradeEvent{}, &RejectError{Ref: raw.Signature, Index: raw.Index, Reason: reason, Detail: detail}
	}

	if raw.Mint == "" {
		return reject(ErrMissingToken, "")
	}
	if raw.Signature == "" || raw.Timestamp <= 0 {
		return reject(ErrMalformed, "missing signature or timestamp")
	}
	if _, ok := n.blacklist[raw.Mint]; ok {
		return reject(ErrBlacklisted, raw.Mint)
	}

	var dir Direction
	switch {
	case raw.From == n.wallet && raw.To == n.wallet:
		return reject(ErrSelfTransfer, "")
	case raw.To == n.wallet:
		dir = Buy
	case raw.From == n.wallet:
		dir = Sell
	default:
		return reject(ErrUnrelated, "")
	}

	tokens, err := parseAmount(raw.TokenAmount, raw.Decimals)
	if err != nil {
		return reject(ErrMalformed, err.Error())
	}
	quote, err := parseAmount(raw.QuoteAmount, raw.QuoteDecimals)
	if err != nil {
		return reject(ErrMalformed, err.Error())
	}
	if !tokens.IsPositive() {
		return reject(ErrNonPositiveAmount, "token amount "+tokens.String())
	}
	if !quote.IsPositive() {
		return reject(ErrNonPositiveAmount, "quote amount "+quote.String())
	}

	return TradeEvent{
		Token:       raw.Mint,
		Direction:   dir,
		TokenAmount: tokens,
		QuoteAmount: Money{value: quote.value, cur: n.currency},
		Time:        raw.Time(),
		Ref:         raw.Signature,
		Index:       raw.Index,
	}, nil
}

// NormalizeAll normalizes every raw transfer. Rejected transfers are returned
// alongside the accepted events, they never abort the batch. A rejection is
// logged and counted once per transfer, however many times it is normalized.
func (n *Normalizer) NormalizeAll(raws []RawTransfer) (events []TradeEvent, rejected []error) {
	events = make([]TradeEvent, 0, len(raws))
	for _, raw := range raws {
		e, err := n.Normalize(raw)
		if err != nil {
			rejected = append(rejected, err)
			n.report(raw, err)
			continue
		}
		events = append(events, e)
	}
	return events, rejected
}

// report logs and counts the rejection of raw once.
func (n *Normalizer) report(raw RawTransfer, err error) {
	k := key{raw.Signature, raw.Index}
	n.mu.Lock()
	if n.reported == nil {
		n.reported = make(map[key]struct{})
	}
	_, done := n.reported[k]
	n.reported[k] = struct{}{}
	n.mu.Unlock()
	if done {
		return
	}
	metrics.RejectedTransfers.WithLabelValues(rejectLabel(err)).Inc()
	if !errors.Is(err, ErrUnrelated) {
		log.Printf("warning: %v", err)
	}
}

func parseAmount(s string, decimals int32) (Quantity, error) {
	if decimals > 0 {
		return FromSmallestUnit(s, decimals)
	}
	return ParseQuantity(s)
}

// rejectLabel is the metrics label of a rejection.
func rejectLabel(err error) string {
	switch {
	case errors.Is(err, ErrBlacklisted):
		return "blacklisted"
	case errors.Is(err, ErrNonPositiveAmount):
		return "non_positive"
	case errors.Is(err, ErrSelfTransfer):
		return "self_transfer"
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, ErrUnrelated):
		return "unrelated"
	default:
		return "malformed"
	}
}
