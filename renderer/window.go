package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/pnl"
	"github.com/etnz/pnl/date"
)

// WindowMarkdown renders the summary of the range rg.
func WindowMarkdown(rg date.Range, s pnl.WindowedSummary, events []pnl.TradeEvent) string {
	var b strings.Builder

	title := "Activity"
	if p, ok := rg.Period(); ok {
		switch p {
		case date.Daily:
			title = "Daily Report"
		case date.Weekly:
			title = "Weekly Report"
		}
	}
	fmt.Fprintf(&b, "# %s %s\n\n", title, rg.Identifier())
	fmt.Fprintf(&b, "From %s to %s (UTC)\n\n", s.From.Format("2006-01-02 15:04"), s.To.Format("2006-01-02 15:04"))

	fmt.Fprintln(&b, "| Realized | |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| **Realized** | **%s** |\n", s.Realized.SignedString())
	fmt.Fprintf(&b, "| Proceeds | %s |\n", s.Proceeds)
	fmt.Fprintf(&b, "| Cost Basis | %s |\n", s.Cost)
	fmt.Fprintf(&b, "| Spent | %s |\n", s.Spent)
	fmt.Fprintf(&b, "| Buys | %d |\n", s.Buys)
	fmt.Fprintf(&b, "| Sells | %d (%d won, %d lost) |\n", s.Sells, s.Wins, s.Losses)
	fmt.Fprintln(&b)

	if s.OverSells > 0 {
		fmt.Fprintf(&b, "%d sell(s) matched no lot for part of their quantity.\n\n", s.OverSells)
	}

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "## Tokens\n\n")
		fmt.Fprintln(w, "| Token | Bought | Sold | Realized |")
		fmt.Fprintln(w, "|:---|---:|---:|---:|")
		for _, tw := range s.Tokens {
			fmt.Fprintf(w, "| %s | %s | %s | %s |\n", Short(tw.Token), tw.Bought, tw.Sold, tw.Realized.SignedString())
		}
		fmt.Fprintln(w)
		return len(s.Tokens) > 0
	})

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "## Trades\n\n")
		n := 0
		for _, e := range events {
			if e.Time.Before(s.From) || !e.Time.Before(s.To) {
				continue
			}
			n++
			fmt.Fprintf(w, "%d. %s\n", n, Event(e))
		}
		fmt.Fprintln(w)
		return n > 0
	})

	return b.String()
}

// SeriesMarkdown renders one row per summary, typically the days of a week.
func SeriesMarkdown(series []pnl.WindowedSummary) string {
	var b strings.Builder
	fmt.Fprintln(&b, "| Day | Buys | Sells | Realized |")
	fmt.Fprintln(&b, "|:---|---:|---:|---:|")
	total := pnl.Money{}
	for _, s := range series {
		fmt.Fprintf(&b, "| %s | %d | %d | %s |\n", s.From.Format("Mon 2006-01-02"), s.Buys, s.Sells, s.Realized.SignedString())
		total = total.Add(s.Realized)
	}
	fmt.Fprintf(&b, "| **Total** | | | **%s** |\n", total.SignedString())
	return b.String()
}

// StatsMarkdown renders statistics over the positions of a report.
func StatsMarkdown(st pnl.Stats) string {
	var b strings.Builder
	fmt.Fprint(&b, "## Statistics\n\n")
	fmt.Fprintf(&b, "- Positions: %d (%d winners, %d losers)\n", st.Positions, st.Winners, st.Losers)
	fmt.Fprintf(&b, "- Win rate: %s\n", st.WinRate)
	if st.Best != nil {
		fmt.Fprintf(&b, "- Best: %s %s\n", Short(st.Best.Token), st.Best.Realized.SignedString())
	}
	if st.Worst != nil {
		fmt.Fprintf(&b, "- Worst: %s %s\n", Short(st.Worst.Token), st.Worst.Realized.SignedString())
	}
	fmt.Fprintf(&b, "- Average hold time of closed positions: %s\n", Hold(st.AverageHoldTime))
	return b.String()
}
