// Package pricecache keeps token prices in Redis so that several processes,
// or successive runs of the CLI, share the rate limited price oracle.
package pricecache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/etnz/pnl"
	"github.com/etnz/pnl/metrics"
)

// Fetcher returns the current price of tokens. Tokens without a price are
// absent from the result.
type Fetcher interface {
	Prices(ctx context.Context, tokens ...string) (map[string]pnl.Money, error)
}

// Cache wraps a Fetcher with a Redis read-through cache. Reads check Redis
// first and only fetch the missing tokens from the primary.
type Cache struct {
	primary  Fetcher
	rdb      *redis.Client
	ttl      time.Duration
	currency string
}

// New creates a cache of prices in currency around primary.
func New(primary Fetcher, rdb *redis.Client, currency string, ttl time.Duration) *Cache {
	return &Cache{primary: primary, rdb: rdb, ttl: ttl, currency: currency}
}

// Dial connects to the redis server at url, as in "redis://localhost:6379/0".
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (c *Cache) key(token string) string {
	return fmt.Sprintf("wpnl:price:%s:%s", c.currency, token)
}

// Prices implements Fetcher. Redis failures are logged and fall back to the
// primary.
func (c *Cache) Prices(ctx context.Context, tokens ...string) (map[string]pnl.Money, error) {
	prices := make(map[string]pnl.Money, len(tokens))
	missing := c.cached(ctx, tokens, prices)
	if len(missing) == 0 {
		return prices, nil
	}

	fetched, err := c.primary.Prices(ctx, missing...)
	for token, price := range fetched {
		prices[token] = price
	}
	c.store(ctx, fetched)
	return prices, err
}

// Refresh fetches the prices of tokens and records them in book. When the
// primary source succeeds, tokens without a price become unavailable. On
// error the prices found are recorded and the others are left untouched.
func (c *Cache) Refresh(ctx context.Context, book *pnl.PriceBook, tokens []string) error {
	prices, err := c.Prices(ctx, tokens...)
	if err != nil {
		book.SetAll(prices)
		return err
	}
	book.Update(tokens, prices)
	return nil
}

// cached fills prices from Redis and returns the tokens not found.
func (c *Cache) cached(ctx context.Context, tokens []string, prices map[string]pnl.Money) (missing []string) {
	if len(tokens) == 0 {
		return nil
	}
	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = c.key(t)
	}
	values, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		log.Printf("price cache read err (ignored): %v", err)
		return tokens
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			missing = append(missing, tokens[i])
			continue
		}
		price, err := pnl.ParseMoney(s, c.currency)
		if err != nil {
			missing = append(missing, tokens[i])
			continue
		}
		prices[tokens[i]] = price
	}
	metrics.PriceCacheHits.WithLabelValues("hit").Add(float64(len(tokens) - len(missing)))
	metrics.PriceCacheHits.WithLabelValues("miss").Add(float64(len(missing)))
	return missing
}

func (c *Cache) store(ctx context.Context, prices map[string]pnl.Money) {
	if len(prices) == 0 {
		return
	}
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for token, price := range prices {
			pipe.Set(ctx, c.key(token), price.Decimal().String(), c.ttl)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Printf("price cache write err (ignored): %v", err)
	}
}
