package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/etnz/pnl/config"
	"github.com/etnz/pnl/renderer"
)

// reportCmd holds the flags for the 'report' subcommand.
type reportCmd struct {
	cfg        *config.Config
	offline    bool
	json       bool
	skipClosed bool
	full       bool
	stats      bool
	watch      int
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "display the realized and unrealized PnL of the wallet" }
func (*reportCmd) Usage() string {
	return `wpnl report [-offline] [-json] [-skip-closed] [-w n]

  Replays every trade of the wallet and values the open positions at the
  current price.

  Positions without price are left out of the unrealized total, which is then
  marked as partial.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	c.cfg.RegisterFlags(f)
	f.BoolVar(&c.offline, "offline", false, "do not fetch prices")
	f.BoolVar(&c.json, "json", false, "print the report as JSON")
	f.BoolVar(&c.skipClosed, "skip-closed", false, "do not list closed positions")
	f.BoolVar(&c.full, "full", false, "print full token addresses")
	f.BoolVar(&c.stats, "stats", false, "append statistics over the positions")
	f.IntVar(&c.watch, "w", 0, "run every n seconds")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	p, err := newPipeline(ctx, c.cfg, !c.offline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer p.Close()

	for {
		report, err := p.compute(ctx)
		if err != nil {
			return fail("%v", err)
		}

		if c.json {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fail("cannot encode report: %v", err)
			}
		} else {
			md := renderer.ReportMarkdown(report, renderer.ReportOptions{SkipClosed: c.skipClosed, FullAddress: c.full})
			if c.stats {
				md += "\n" + renderer.StatsMarkdown(report.Stats())
			}
			if c.watch > 0 {
				fmt.Println("\033[2J")
			}
			printMarkdown(md)
		}

		if c.watch <= 0 {
			return subcommands.ExitSuccess
		}
		select {
		case <-ctx.Done():
			return subcommands.ExitSuccess
		case <-time.After(time.Duration(c.watch) * time.Second):
		}
	}
}
