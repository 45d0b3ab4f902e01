// Package dexscreener fetches token prices from the DexScreener public API.
//
// Prices are quoted in the chain's native currency: for each token the
// priceNative of its most liquid pair against the native currency is used.
package dexscreener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/pnl"
	"github.com/etnz/pnl/metrics"
	"github.com/jpillora/backoff"
)

const (
	// DefaultBaseURL is the DexScreener public API.
	DefaultBaseURL = "https://api.dexscreener.com"
	// maxTokensPerRequest is the number of addresses the tokens endpoint accepts.
	maxTokensPerRequest = 30
)

// Client is a DexScreener price client. Its zero value is not usable, use New.
type Client struct {
	baseURL     string
	chain       string
	currency    string
	http        *http.Client
	maxAttempts int
	minBackoff  time.Duration
	maxBackoff  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API address, mainly for tests.
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") } }

// WithHTTPClient sets the http client used for requests.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithRetry sets the number of attempts for rate limited or failed requests
// and the bounds of the exponential backoff between them.
func WithRetry(attempts int, min, max time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts, c.minBackoff, c.maxBackoff = attempts, min, max
	}
}

// New creates a client for chain (e.g. "solana") returning prices in currency.
func New(chain, currency string, opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		chain:       chain,
		currency:    currency,
		http:        &http.Client{Timeout: 15 * time.Second},
		maxAttempts: 4,
		minBackoff:  500 * time.Millisecond,
		maxBackoff:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prices returns the price of each token for which a pair quoted in the
// client currency exists. Tokens without such a pair are absent from the
// result. Failed batches are reported in the error while the prices of the
// other batches are still returned.
func (c *Client) Prices(ctx context.Context, tokens ...string) (map[string]pnl.Money, error) {
	prices := make(map[string]pnl.Money, len(tokens))
	var errs []error
	for start := 0; start < len(tokens); start += maxTokensPerRequest {
		batch := tokens[start:min(start+maxTokensPerRequest, len(tokens))]
		if err := c.fetch(ctx, batch, prices); err != nil {
			metrics.PriceFetchErrors.Inc()
			errs = append(errs, err)
		}
	}
	return prices, errors.Join(errs...)
}

// Refresh fetches the prices of tokens and records them in book. A token
// missing from a successful response loses its price, the tokens of a failed
// request keep their previous one.
func (c *Client) Refresh(ctx context.Context, book *pnl.PriceBook, tokens []string) error {
	var errs []error
	found := 0
	for start := 0; start < len(tokens); start += maxTokensPerRequest {
		batch := tokens[start:min(start+maxTokensPerRequest, len(tokens))]
		prices := make(map[string]pnl.Money, len(batch))
		if err := c.fetch(ctx, batch, prices); err != nil {
			metrics.PriceFetchErrors.Inc()
			errs = append(errs, err)
			continue
		}
		book.Update(batch, prices)
		found += len(prices)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("partial price refresh (%d/%d prices): %w", found, len(tokens), err)
	}
	return nil
}

// fetch reads the pairs of a batch of tokens and keeps, for each token, the
// price of its most liquid pair.
func (c *Client) fetch(ctx context.Context, tokens []string, prices map[string]pnl.Money) error {
	escaped := make([]string, len(tokens))
	for i, t := range tokens {
		escaped[i] = url.PathEscape(t)
	}
	addr := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, strings.Join(escaped, ","))
	var jobj any
	if err := c.get(ctx, addr, &jobj); err != nil {
		return err
	}

	jpairs, err := jsonpath.Get("$.pairs[*]", jobj)
	if err != nil {
		// a null or missing "pairs" means no pair at all.
		return nil
	}
	list, _ := jpairs.([]any)

	wanted := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		wanted[t] = true
	}
	best := make(map[string]float64)
	for _, jpair := range list {
		p, ok := readPair(jpair)
		if !ok || p.chain != c.chain || !wanted[p.base] || !strings.EqualFold(p.quote, c.currency) {
			continue
		}
		if liq, seen := best[p.base]; seen && liq >= p.liquidity {
			continue
		}
		price, err := pnl.ParseMoney(p.priceNative, c.currency)
		if err != nil || !price.IsPositive() {
			log.Printf("warning: invalid price %q for %s: ignored", p.priceNative, p.base)
			continue
		}
		best[p.base] = p.liquidity
		prices[p.base] = price
	}
	return nil
}

// pair is the subset of a DexScreener pair used for pricing.
type pair struct {
	chain       string
	base        string
	quote       string
	priceNative string
	liquidity   float64
}

// readPair extracts the pricing fields of a pair object.
func readPair(jpair any) (p pair, ok bool) {
	str := func(path string) string {
		v, err := jsonpath.Get(path, jpair)
		if err != nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}
	p.chain = str("$.chainId")
	p.base = str("$.baseToken.address")
	p.quote = str("$.quoteToken.symbol")
	p.priceNative = str("$.priceNative")
	if v, err := jsonpath.Get("$.liquidity.usd", jpair); err == nil {
		p.liquidity, _ = v.(float64)
	}
	return p, p.base != "" && p.priceNative != ""
}

// retryable reports whether a status is worth another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// get performs an HTTP GET request and unmarshals the JSON response into data,
// retrying with exponential backoff on rate limits and server errors.
func (c *Client) get(ctx context.Context, addr string, data any) error {
	b := &backoff.Backoff{Min: c.minBackoff, Max: c.maxBackoff, Factor: 2, Jitter: true}
	for {
		status, body, err := c.do(ctx, addr)
		if err == nil && status == http.StatusOK {
			return json.Unmarshal(body, data)
		}
		if err == nil {
			err = fmt.Errorf("cannot http GET %s: %s", addr, http.StatusText(status))
			if !retryable(status) {
				return err
			}
		}
		if ctx.Err() != nil || int(b.Attempt())+1 >= c.maxAttempts {
			return err
		}
		wait := b.Duration()
		log.Printf("%v, retrying in %v", err, wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) do(ctx context.Context, addr string) (status int, body []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err = io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}
