package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/etnz/pnl/config"
	"github.com/etnz/pnl/date"
	"github.com/etnz/pnl/renderer"
)

// windowCmd reports the realized PnL of a day or a week.
type windowCmd struct {
	cfg    *config.Config
	period date.Period
	date   string
	json   bool
	series bool
}

func (c *windowCmd) Name() string { return c.period.String() }
func (c *windowCmd) Synopsis() string {
	if c.period == date.Weekly {
		return "display the realized PnL of a week, Monday to Sunday"
	}
	return "display the realized PnL of a day"
}
func (c *windowCmd) Usage() string {
	return fmt.Sprintf(`wpnl %s [-d <date>] [-json] [-series]

  Sums the realized PnL of the sells made in the %s window containing the
  date, in UTC. Dates are YYYY-MM-DD or relative to today like "-1d" or "-2w".
`, c.period, c.period)
}

func (c *windowCmd) SetFlags(f *flag.FlagSet) {
	c.cfg.RegisterFlags(f)
	f.StringVar(&c.date, "d", "0d", "a date in the window")
	f.BoolVar(&c.json, "json", false, "print the summary as JSON")
	if c.period == date.Weekly {
		f.BoolVar(&c.series, "series", false, "detail the realized PnL of each day of the week")
	}
}

func (c *windowCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	// Realized PnL does not depend on current prices.
	p, err := newPipeline(ctx, c.cfg, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer p.Close()

	report, err := p.compute(ctx)
	if err != nil {
		return fail("%v", err)
	}
	rg := date.NewRange(day, c.period)
	summary := report.Range(rg)

	if c.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return fail("cannot encode summary: %v", err)
		}
		return subcommands.ExitSuccess
	}

	md := renderer.WindowMarkdown(rg, summary, report.Events)
	if c.series {
		md += "\n## Days\n\n" + renderer.SeriesMarkdown(report.DailySeries(rg))
	}
	printMarkdown(md)
	return subcommands.ExitSuccess
}
