// Package config loads the settings of wpnl from the environment, an optional
// .env file, and command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"

	"github.com/etnz/pnl"
)

// Environment variables read by FromEnv.
const (
	EnvWallet      = "WPNL_WALLET"
	EnvBlacklist   = "WPNL_BLACKLIST" // comma separated token addresses
	EnvCurrency    = "WPNL_CURRENCY"
	EnvMethod      = "WPNL_METHOD"
	EnvChain       = "WPNL_CHAIN"
	EnvInterval    = "WPNL_INTERVAL"
	EnvEventsFile  = "WPNL_EVENTS_FILE"
	EnvPriceURL    = "WPNL_PRICE_URL"
	EnvPriceTTL    = "WPNL_PRICE_TTL"
	EnvAddr        = "WPNL_ADDR"
	EnvParallelism = "WPNL_PARALLELISM"
	EnvDatabaseURL = "DATABASE_URL"
	EnvRedisURL    = "REDIS_URL"
)

// Config holds the settings of wpnl.
type Config struct {
	Wallet    string   // tracked wallet address
	Blacklist []string // tokens ignored by the normalizer
	Currency  string   // quote currency
	Method    pnl.CostBasisMethod
	Chain     string // chain id of the price oracle

	Interval    time.Duration // between computation cycles
	Parallelism int           // tokens replayed concurrently

	EventsFile  string // JSONL file of raw transfers, used without DatabaseURL
	DatabaseURL string // PostgreSQL event store
	RedisURL    string // price cache, optional
	PriceURL    string // price oracle base URL
	PriceTTL    time.Duration
	Addr        string // live view listen address
}

// Default returns the default configuration, without wallet.
func Default() *Config {
	return &Config{
		Currency:    pnl.DefaultCurrency,
		Method:      pnl.FIFO,
		Chain:       "solana",
		Interval:    time.Minute,
		Parallelism: 4,
		EventsFile:  "transfers.jsonl",
		PriceURL:    "https://api.dexscreener.com",
		PriceTTL:    30 * time.Second,
		Addr:        ":8080",
	}
}

// Load reads the .env files, the default one when files is empty, into the
// process environment and returns the configuration from the environment.
// Missing files are ignored.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("cannot load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv returns the default configuration overridden by the environment.
func FromEnv() (*Config, error) {
	c := Default()
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str(EnvWallet, &c.Wallet)
	str(EnvCurrency, &c.Currency)
	str(EnvChain, &c.Chain)
	str(EnvEventsFile, &c.EventsFile)
	str(EnvPriceURL, &c.PriceURL)
	str(EnvAddr, &c.Addr)
	str(EnvDatabaseURL, &c.DatabaseURL)
	str(EnvRedisURL, &c.RedisURL)
	duration(EnvInterval, &c.Interval)
	duration(EnvPriceTTL, &c.PriceTTL)

	if v, ok := os.LookupEnv(EnvBlacklist); ok {
		c.Blacklist = splitList(v)
	}
	if v, ok := os.LookupEnv(EnvMethod); ok {
		m, err := pnl.ParseCostBasisMethod(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvMethod, err))
		}
		c.Method = m
	}
	if v, ok := os.LookupEnv(EnvParallelism); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvParallelism, err))
		}
		c.Parallelism = n
	}
	return c, errors.Join(errs...)
}

// RegisterFlags binds the configuration to flags of f, using the current
// values as defaults.
func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.Wallet, "wallet", c.Wallet, "tracked wallet address")
	f.Var((*listValue)(&c.Blacklist), "blacklist", "comma separated token addresses to ignore")
	f.StringVar(&c.Currency, "currency", c.Currency, "quote currency")
	f.TextVar(&c.Method, "method", c.Method, "cost basis method (fifo, average)")
	f.StringVar(&c.EventsFile, "events", c.EventsFile, "JSONL file of raw transfers")
	f.StringVar(&c.DatabaseURL, "db", c.DatabaseURL, "PostgreSQL URL of the event store, replaces -events")
	f.StringVar(&c.RedisURL, "redis", c.RedisURL, "Redis URL of the price cache")
	f.StringVar(&c.PriceURL, "price-url", c.PriceURL, "base URL of the price oracle")
	f.IntVar(&c.Parallelism, "parallelism", c.Parallelism, "tokens replayed concurrently")
}

// Validate checks that the configuration can run a computation.
func (c *Config) Validate() error {
	var errs []error
	if c.Wallet == "" {
		errs = append(errs, fmt.Errorf("wallet is required, set %s or -wallet", EnvWallet))
	} else if err := ValidateAddress(c.Wallet); err != nil {
		errs = append(errs, fmt.Errorf("wallet: %w", err))
	}
	for _, token := range c.Blacklist {
		if err := ValidateAddress(token); err != nil {
			errs = append(errs, fmt.Errorf("blacklist: %w", err))
		}
	}
	if c.Currency == "" {
		errs = append(errs, errors.New("quote currency is required"))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %v", c.Interval))
	}
	if c.Parallelism < 1 {
		log.Printf("warning: parallelism %d, using 1", c.Parallelism)
		c.Parallelism = 1
	}
	return errors.Join(errs...)
}

// ValidateAddress checks that s is a base58 encoded public key.
func ValidateAddress(s string) error {
	if _, err := solana.PublicKeyFromBase58(s); err != nil {
		return fmt.Errorf("invalid address %q: %w", s, err)
	}
	return nil
}

func splitList(s string) []string {
	var list []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// listValue is a flag.Value of comma separated items.
type listValue []string

func (l *listValue) String() string { return strings.Join(*l, ",") }
func (l *listValue) Set(s string) error {
	*l = splitList(s)
	return nil
}
