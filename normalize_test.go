package pnl

import (
	"bytes"
	"errors"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/etnz/pnl/metrics"
)

func TestNormalizer_Normalize(t *testing.T) {
	const other = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	n := NewNormalizer(wallet, "SOL", "SCAM")

	base := RawTransfer{
		Signature:   "sig1",
		Index:       2,
		Timestamp:   t0.UnixMilli(),
		Mint:        "BONK",
		From:        other,
		To:          wallet,
		TokenAmount: "100",
		QuoteAmount: "2.5",
	}
	with := func(f func(r *RawTransfer)) RawTransfer {
		r := base
		f(&r)
		return r
	}

	testCases := []struct {
		name          string
		raw           RawTransfer
		wantErr       error
		wantDirection Direction
	}{
		{"buy", base, nil, Buy},
		{"sell", with(func(r *RawTransfer) { r.From, r.To = wallet, other }), nil, Sell},
		{"smallest units", with(func(r *RawTransfer) {
			r.TokenAmount, r.Decimals = "100000", 3
			r.QuoteAmount, r.QuoteDecimals = "2500000000", 9
		}), nil, Buy},
		{"zero token amount", with(func(r *RawTransfer) { r.TokenAmount = "0" }), ErrNonPositiveAmount, 0},
		{"negative quote amount", with(func(r *RawTransfer) { r.QuoteAmount = "-1" }), ErrNonPositiveAmount, 0},
		{"zero quote amount", with(func(r *RawTransfer) { r.QuoteAmount = "0" }), ErrNonPositiveAmount, 0},
		{"missing token", with(func(r *RawTransfer) { r.Mint = "" }), ErrMissingToken, 0},
		{"blacklisted", with(func(r *RawTransfer) { r.Mint = "SCAM" }), ErrBlacklisted, 0},
		{"self transfer", with(func(r *RawTransfer) { r.From = wallet }), ErrSelfTransfer, 0},
		{"unrelated", with(func(r *RawTransfer) { r.To = other }), ErrUnrelated, 0},
		{"missing signature", with(func(r *RawTransfer) { r.Signature = "" }), ErrMalformed, 0},
		{"missing timestamp", with(func(r *RawTransfer) { r.Timestamp = 0 }), ErrMalformed, 0},
		{"bad amount", with(func(r *RawTransfer) { r.TokenAmount = "1e" }), ErrMalformed, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := n.Normalize(tc.raw)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Normalize() error = %v, want %v", err, tc.wantErr)
				}
				var reject *RejectError
				if !errors.As(err, &reject) {
					t.Fatalf("Normalize() error = %T, want *RejectError", err)
				}
				if reject.Ref != tc.raw.Signature || reject.Index != tc.raw.Index {
					t.Errorf("RejectError = %s#%d, want %s#%d", reject.Ref, reject.Index, tc.raw.Signature, tc.raw.Index)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got.Direction != tc.wantDirection {
				t.Errorf("Direction = %v, want %v", got.Direction, tc.wantDirection)
			}
			assertQuantity(t, "TokenAmount", got.TokenAmount, Q(100))
			assertMoney(t, "QuoteAmount", got.QuoteAmount, SOL(2.5))
			if !got.Time.Equal(t0) {
				t.Errorf("Time = %v, want %v", got.Time, t0)
			}
			if got.Ref != "sig1" || got.Index != 2 {
				t.Errorf("Ref#Index = %s#%d, want sig1#2", got.Ref, got.Index)
			}
		})
	}
}

func TestNormalizeAll_ZeroAmountNeverReachesLedger(t *testing.T) {
	n := NewNormalizer(wallet, "SOL")
	raws := []RawTransfer{
		{Signature: "a", Timestamp: t0.UnixMilli(), Mint: "BONK", From: "x", To: wallet, TokenAmount: "100", QuoteAmount: "1"},
		{Signature: "b", Timestamp: t0.UnixMilli() + 1, Mint: "BONK", From: "x", To: wallet, TokenAmount: "0", QuoteAmount: "1"},
		{Signature: "c", Timestamp: t0.UnixMilli() + 2, Mint: "WIF", From: "x", To: wallet, TokenAmount: "0", QuoteAmount: "1"},
	}

	events, rejected := n.NormalizeAll(raws)
	if got, want := len(events), 1; got != want {
		t.Fatalf("len(events) = %d, want %d", got, want)
	}
	if got, want := len(rejected), 2; got != want {
		t.Fatalf("len(rejected) = %d, want %d", got, want)
	}

	r := NewEngine().ComputePortfolio(events, nil)
	if _, ok := r.Position("WIF"); ok {
		t.Errorf("Position(WIF) exists, want none")
	}
	p, _ := r.Position("BONK")
	assertQuantity(t, "BONK.Bought", p.Bought, Q(100))
	if got, want := p.Trades, 1; got != want {
		t.Errorf("BONK.Trades = %d, want %d", got, want)
	}
}

func TestNormalizeAll_ReportsRejectionsOnce(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	n := NewNormalizer(wallet, "SOL")
	zero := RawTransfer{Signature: "z", Timestamp: t0.UnixMilli(), Mint: "BONK", From: "x", To: wallet, TokenAmount: "0", QuoteAmount: "1"}
	counter := metrics.RejectedTransfers.WithLabelValues("non_positive")
	before := testutil.ToFloat64(counter)

	for range 3 {
		_, rejected := n.NormalizeAll([]RawTransfer{zero})
		if len(rejected) != 1 {
			t.Fatalf("len(rejected) = %d, want 1", len(rejected))
		}
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("rejections counted = %v, want 1", got)
	}
	if got := strings.Count(logs.String(), "rejected"); got != 1 {
		t.Errorf("rejections logged = %d, want 1:\n%s", got, logs.String())
	}

	// Another transfer of the same signature is a distinct rejection.
	other := zero
	other.Index = 1
	n.NormalizeAll([]RawTransfer{zero, other})
	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("rejections counted = %v, want 2", got)
	}
}
