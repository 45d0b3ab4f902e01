package dexscreener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/etnz/pnl"
)

const pairsJSON = `{
  "schemaVersion": "1.0.0",
  "pairs": [
    {"chainId": "solana", "pairAddress": "p1", "baseToken": {"address": "BONK", "symbol": "BONK"},
     "quoteToken": {"symbol": "SOL"}, "priceNative": "0.0000002", "liquidity": {"usd": 1000}},
    {"chainId": "solana", "pairAddress": "p2", "baseToken": {"address": "BONK", "symbol": "BONK"},
     "quoteToken": {"symbol": "SOL"}, "priceNative": "0.0000003", "liquidity": {"usd": 10}},
    {"chainId": "solana", "pairAddress": "p3", "baseToken": {"address": "BONK", "symbol": "BONK"},
     "quoteToken": {"symbol": "USDC"}, "priceNative": "0.00002", "liquidity": {"usd": 99999}},
    {"chainId": "ethereum", "pairAddress": "p4", "baseToken": {"address": "WIF", "symbol": "WIF"},
     "quoteToken": {"symbol": "SOL"}, "priceNative": "1", "liquidity": {"usd": 5}},
    {"chainId": "solana", "pairAddress": "p5", "baseToken": {"address": "POPCAT", "symbol": "POPCAT"},
     "quoteToken": {"symbol": "SOL"}, "priceNative": "0.005"}
  ]
}`

func TestClient_Prices(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(pairsJSON))
	}))
	defer srv.Close()

	c := New("solana", "SOL", WithBaseURL(srv.URL))
	got, err := c.Prices(context.Background(), "BONK", "WIF", "POPCAT")
	if err != nil {
		t.Fatalf("Prices() error = %v", err)
	}
	if want := "/latest/dex/tokens/BONK,WIF,POPCAT"; path != want {
		t.Errorf("request path = %q, want %q", path, want)
	}

	testCases := []struct {
		token string
		want  string
		found bool
	}{
		{"BONK", "0.0000002", true}, // most liquid SOL pair
		{"WIF", "", false},          // other chain only
		{"POPCAT", "0.005", true},   // no liquidity info
	}
	for _, tc := range testCases {
		t.Run(tc.token, func(t *testing.T) {
			price, ok := got[tc.token]
			if ok != tc.found {
				t.Fatalf("price of %s found = %v, want %v", tc.token, ok, tc.found)
			}
			if !ok {
				return
			}
			want, _ := pnl.ParseMoney(tc.want, "SOL")
			if !price.Equal(want) {
				t.Errorf("price of %s = %v, want %v", tc.token, price.Decimal(), want.Decimal())
			}
		})
	}
}

func TestClient_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(pairsJSON))
	}))
	defer srv.Close()

	c := New("solana", "SOL", WithBaseURL(srv.URL), WithRetry(4, time.Millisecond, 5*time.Millisecond))
	got, err := c.Prices(context.Background(), "BONK")
	if err != nil {
		t.Fatalf("Prices() error = %v", err)
	}
	if _, ok := got["BONK"]; !ok {
		t.Errorf("price of BONK not found after retries")
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("server called %d times, want 3", n)
	}
}

func TestClient_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New("solana", "SOL", WithBaseURL(srv.URL), WithRetry(2, time.Millisecond, time.Millisecond))
	book := pnl.NewPriceBook()
	book.Set("BONK", pnl.M(1, "SOL"))

	err := c.Refresh(context.Background(), book, []string{"BONK"})
	if err == nil {
		t.Fatalf("Refresh() error = nil, want an error")
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server called %d times, want 2", n)
	}
	// the previous price is kept.
	if p, ok := book.Snapshot().PriceOf("BONK"); !ok || !p.Equal(pnl.M(1, "SOL")) {
		t.Errorf("PriceOf(BONK) = %v, %v, want the previous price", p, ok)
	}
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New("solana", "SOL", WithBaseURL(srv.URL), WithRetry(5, time.Millisecond, time.Millisecond))
	_, err := c.Prices(context.Background(), "BONK")
	if err == nil || !strings.Contains(err.Error(), "Not Found") {
		t.Errorf("Prices() error = %v, want Not Found", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server called %d times, want 1", n)
	}
}

func TestClient_Batches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"pairs":null}`))
	}))
	defer srv.Close()

	tokens := make([]string, 65)
	for i := range tokens {
		tokens[i] = strings.Repeat("x", i+1)
	}
	c := New("solana", "SOL", WithBaseURL(srv.URL))
	got, err := c.Prices(context.Background(), tokens...)
	if err != nil {
		t.Fatalf("Prices() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(Prices()) = %d, want 0", len(got))
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("server called %d times, want 3", n)
	}
}

func TestClient_RefreshForgetsVanishedPairs(t *testing.T) {
	responses := []string{pairsJSON, `{"schemaVersion": "1.0.0", "pairs": null}`}
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(responses[min(int(n), len(responses))-1]))
	}))
	defer srv.Close()

	c := New("solana", "SOL", WithBaseURL(srv.URL))
	book := pnl.NewPriceBook()
	book.Set("UNRELATED", pnl.M(3, "SOL"))
	tokens := []string{"BONK", "POPCAT"}

	if err := c.Refresh(context.Background(), book, tokens); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}
	if _, ok := book.Snapshot().PriceOf("BONK"); !ok {
		t.Fatalf("PriceOf(BONK) not found after the first refresh")
	}

	if err := c.Refresh(context.Background(), book, tokens); err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}
	prices := book.Snapshot()
	for _, token := range tokens {
		if p, ok := prices.PriceOf(token); ok {
			t.Errorf("PriceOf(%s) = %v after its pairs vanished, want unavailable", token, p.Decimal())
		}
	}
	if _, ok := prices.PriceOf("UNRELATED"); !ok {
		t.Errorf("PriceOf(UNRELATED) was dropped, want it kept")
	}
}
