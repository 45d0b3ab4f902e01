package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/etnz/pnl"
	"github.com/etnz/pnl/config"
	"github.com/etnz/pnl/dexscreener"
	"github.com/etnz/pnl/pricecache"
	"github.com/etnz/pnl/store"
)

// refresher updates a price book.
type refresher interface {
	Refresh(ctx context.Context, book *pnl.PriceBook, tokens []string) error
}

// pipeline wires the event store, the price oracle and the engine of a
// configuration. One computation cycle is: sync the event log from the
// store, refresh the prices of the open positions, replay everything.
type pipeline struct {
	cfg        *config.Config
	store      store.Store
	normalizer *pnl.Normalizer
	events     *pnl.EventLog
	prices     *pnl.PriceBook
	oracle     refresher // nil when offline
	engine     *pnl.Engine

	closers []func()
}

// newPipeline opens the collaborators of cfg. Without prices, open positions
// are reported without unrealized PnL.
func newPipeline(ctx context.Context, cfg *config.Config, withPrices bool) (*pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &pipeline{
		cfg:        cfg,
		normalizer: pnl.NewNormalizer(cfg.Wallet, cfg.Currency, cfg.Blacklist...),
		events:     pnl.NewEventLog(),
		prices:     pnl.NewPriceBook(),
		engine: pnl.NewEngine(
			pnl.WithMethod(cfg.Method),
			pnl.WithCurrency(cfg.Currency),
			pnl.WithParallelism(cfg.Parallelism),
		),
	}

	if cfg.DatabaseURL != "" {
		pg, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, pg.Close)
		p.store = pg
	} else {
		fs, err := store.NewFileStore(cfg.EventsFile)
		if err != nil {
			return nil, err
		}
		p.store = fs
	}

	if withPrices {
		client := dexscreener.New(cfg.Chain, cfg.Currency, dexscreener.WithBaseURL(cfg.PriceURL))
		p.oracle = client
		if cfg.RedisURL != "" {
			rdb, err := pricecache.Dial(ctx, cfg.RedisURL)
			if err != nil {
				log.Printf("warning: price cache disabled: %v", err)
			} else {
				p.closers = append(p.closers, func() { rdb.Close() })
				p.oracle = pricecache.New(client, rdb, cfg.Currency, cfg.PriceTTL)
			}
		}
	}
	return p, nil
}

// Close releases the connections of the pipeline.
func (p *pipeline) Close() {
	for _, c := range p.closers {
		c()
	}
}

// compute runs a computation cycle.
func (p *pipeline) compute(ctx context.Context) (*pnl.PortfolioReport, error) {
	if _, err := store.Sync(ctx, p.store, p.normalizer, p.events, time.Time{}); err != nil {
		return nil, err
	}
	events := p.events.Snapshot()

	if p.oracle != nil {
		if tokens := openTokens(events, p.cfg.Method); len(tokens) > 0 {
			if err := p.oracle.Refresh(ctx, p.prices, tokens); err != nil {
				log.Printf("warning: %v", err)
			}
		}
	}
	return p.engine.ComputePortfolio(events, p.prices.Snapshot()), nil
}

// openTokens returns the tokens still held after replaying events.
func openTokens(events []pnl.TradeEvent, method pnl.CostBasisMethod) []string {
	ledger := pnl.NewLedger(method)
	ledger.Replay(events)
	var tokens []string
	for p := range ledger.Positions() {
		if !p.IsClosed() {
			tokens = append(tokens, p.Token)
		}
	}
	return tokens
}

// source adapts the pipeline to the report source of the assistant.
func (p *pipeline) source(ctx context.Context) (*pnl.PortfolioReport, error) {
	r, err := p.compute(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot compute report: %w", err)
	}
	return r, nil
}
