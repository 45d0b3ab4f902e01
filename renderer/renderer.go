// Package renderer renders PnL reports to markdown, to be displayed in a
// terminal with glamour or sent to a language model.
package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/pnl"
)

// ReportOptions holds configuration for rendering a portfolio report.
type ReportOptions struct {
	SkipClosed  bool // Do not render the closed positions section.
	FullAddress bool // Print full token addresses instead of abbreviated ones.
}

func (o ReportOptions) token(t string) string {
	if o.FullAddress {
		return t
	}
	return Short(t)
}

// ReportMarkdown renders the portfolio report to a markdown string.
func ReportMarkdown(r *pnl.PortfolioReport, opts ReportOptions) string {
	var b strings.Builder
	t := r.Totals

	fmt.Fprintf(&b, "# PnL Report\n\n")
	fmt.Fprintf(&b, "Method: %s, quote currency: %s\n\n", r.Method, r.Currency)

	fmt.Fprintln(&b, "| Totals | |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Realized | %s |\n", t.Realized.SignedString())
	unrealized := t.Unrealized.SignedString()
	if t.UnrealizedIsPartial() {
		unrealized += " (partial)"
	}
	fmt.Fprintf(&b, "| Unrealized | %s |\n", unrealized)
	fmt.Fprintf(&b, "| **Total** | **%s** |\n", t.Total().SignedString())
	fmt.Fprintf(&b, "| Spent | %s |\n", t.Spent)
	fmt.Fprintf(&b, "| Received | %s |\n", t.Received)
	fmt.Fprintf(&b, "| Positions | %d active, %d closed |\n", t.Active, t.Closed)
	fmt.Fprintf(&b, "| Trades | %d |\n", t.Trades)
	fmt.Fprintln(&b)

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "## Active Positions\n\n")
		fmt.Fprintln(w, "| Token | Balance | Avg. Cost | Price | Market Value | Unrealized | Return |")
		fmt.Fprintln(w, "|:---|---:|---:|---:|---:|---:|---:|")
		active := r.Active()
		for _, p := range active {
			if p.PriceUnavailable {
				fmt.Fprintf(w, "| %s | %s | %s | n/a | n/a | n/a | |\n",
					opts.token(p.Token), p.Balance, p.RemainingUnitCost)
				continue
			}
			fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s | %s |\n",
				opts.token(p.Token),
				p.Balance,
				p.RemainingUnitCost,
				p.Price,
				p.MarketValue,
				p.Unrealized.SignedString(),
				p.UnrealizedPercent.SignedString(),
			)
		}
		fmt.Fprintln(w)
		return len(active) > 0
	})

	ConditionalBlock(&b, func(w io.Writer) bool {
		if opts.SkipClosed {
			return false
		}
		fmt.Fprint(w, "## Closed Positions\n\n")
		fmt.Fprintln(w, "| Token | Spent | Received | Realized | Return | Held |")
		fmt.Fprintln(w, "|:---|---:|---:|---:|---:|---:|")
		closed := r.Closed()
		for _, p := range closed {
			fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s |\n",
				opts.token(p.Token),
				p.Spent,
				p.Received,
				p.Realized.SignedString(),
				p.RealizedPercent.SignedString(),
				Hold(pnl.HoldTime(p)),
			)
		}
		fmt.Fprintln(w)
		return len(closed) > 0
	})

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "## Anomalies\n\n")
		n := 0
		for _, p := range r.Positions {
			if p.HasAnomaly() {
				n++
				fmt.Fprintf(w, "- %s sold %s more than it bought in %d sell(s), counted at zero cost\n",
					opts.token(p.Token), p.OverSold, p.OverSells)
			}
			if p.PriceUnavailable {
				n++
				fmt.Fprintf(w, "- %s has no price, left out of the unrealized total\n", opts.token(p.Token))
			}
			if p.Skipped > 0 {
				n++
				fmt.Fprintf(w, "- %s has %d trade(s) quoted in another currency than %s, ignored\n",
					opts.token(p.Token), p.Skipped, r.Currency)
			}
		}
		fmt.Fprintln(w)
		return n > 0
	})

	return b.String()
}
