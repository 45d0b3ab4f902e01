package renderer

import (
	"strings"
	"testing"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/etnz/pnl"
	"github.com/etnz/pnl/date"
)

var t0 = time.Date(2025, 9, 8, 10, 0, 0, 0, time.UTC)

const mint = "So11111111111111111111111111111111111111112"

func testReport() *pnl.PortfolioReport {
	events := []pnl.TradeEvent{
		{Token: "A", Direction: pnl.Buy, TokenAmount: pnl.Q(10), QuoteAmount: pnl.M(1, "SOL"), Time: t0, Ref: "tx1"},
		{Token: "A", Direction: pnl.Sell, TokenAmount: pnl.Q(5), QuoteAmount: pnl.M(1, "SOL"), Time: t0.Add(time.Hour), Ref: "tx2"},
		{Token: "B", Direction: pnl.Buy, TokenAmount: pnl.Q(4), QuoteAmount: pnl.M(2, "SOL"), Time: t0.Add(2 * time.Hour), Ref: "tx3"},
		{Token: mint, Direction: pnl.Buy, TokenAmount: pnl.Q(1), QuoteAmount: pnl.M(1, "SOL"), Time: t0, Ref: "tx4"},
		{Token: mint, Direction: pnl.Sell, TokenAmount: pnl.Q(2), QuoteAmount: pnl.M(3, "SOL"), Time: t0.Add(26 * time.Hour), Ref: "tx5"},
	}
	prices := pnl.PriceSnapshot{"A": pnl.M(0.2, "SOL")}
	return pnl.NewEngine().ComputePortfolio(events, prices)
}

// outline is the structure of a markdown document: its headings and the
// number of body rows of each table.
type outline struct {
	headings []string
	rows     []int
}

func parse(t *testing.T, md string) outline {
	t.Helper()
	source := []byte(md)
	parser := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser()
	root := parser.Parse(text.NewReader(source))

	var o outline
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Heading:
			o.headings = append(o.headings, string(n.Lines().Value(source)))
		case *east.Table:
			rows := 0
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if _, ok := c.(*east.TableRow); ok {
					rows++
				}
			}
			o.rows = append(o.rows, rows)
		}
		return ast.WalkContinue, nil
	})
	return o
}

func TestReportMarkdown(t *testing.T) {
	r := testReport()

	tests := []struct {
		name         string
		opts         ReportOptions
		wantHeadings []string
		wantRows     []int
	}{
		{
			name:         "all",
			opts:         ReportOptions{},
			wantHeadings: []string{"PnL Report", "Active Positions", "Closed Positions", "Anomalies"},
			wantRows:     []int{7, 2, 1},
		},
		{
			name:         "skip closed",
			opts:         ReportOptions{SkipClosed: true},
			wantHeadings: []string{"PnL Report", "Active Positions", "Anomalies"},
			wantRows:     []int{7, 2},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			md := ReportMarkdown(r, test.opts)
			got := parse(t, md)
			if strings.Join(got.headings, ",") != strings.Join(test.wantHeadings, ",") {
				t.Errorf("headings = %q, want %q", got.headings, test.wantHeadings)
			}
			if len(got.rows) != len(test.wantRows) {
				t.Fatalf("tables = %v, want %v", got.rows, test.wantRows)
			}
			for i := range got.rows {
				if got.rows[i] != test.wantRows[i] {
					t.Errorf("table %d has %d rows, want %d", i, got.rows[i], test.wantRows[i])
				}
			}
		})
	}
}

func TestReportMarkdown_Content(t *testing.T) {
	md := ReportMarkdown(testReport(), ReportOptions{})
	for _, want := range []string{
		"(partial)",
		"| B | 4 |",
		"n/a",
		"So11…1112 sold 1 more than it bought in 1 sell(s)",
		"B has no price",
		"1d 2h",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report does not contain %q:\n%s", want, md)
		}
	}

	full := ReportMarkdown(testReport(), ReportOptions{FullAddress: true})
	if !strings.Contains(full, mint) {
		t.Errorf("report with full addresses does not contain %q", mint)
	}
}

func TestReportMarkdown_Skipped(t *testing.T) {
	events := []pnl.TradeEvent{
		{Token: "A", Direction: pnl.Buy, TokenAmount: pnl.Q(10), QuoteAmount: pnl.M(1, "SOL"), Time: t0, Ref: "tx1"},
		{Token: "A", Direction: pnl.Buy, TokenAmount: pnl.Q(10), QuoteAmount: pnl.M(1, "ETH"), Time: t0, Ref: "tx2"},
	}
	r := pnl.NewEngine().ComputePortfolio(events, pnl.PriceSnapshot{"A": pnl.M(0.2, "SOL")})
	md := ReportMarkdown(r, ReportOptions{})
	if want := "A has 1 trade(s) quoted in another currency than SOL"; !strings.Contains(md, want) {
		t.Errorf("report does not contain %q:\n%s", want, md)
	}
}

func TestWindowMarkdown(t *testing.T) {
	r := testReport()

	day := date.New(2025, 9, 8)
	rg := date.NewRange(day, date.Daily)
	md := WindowMarkdown(rg, r.Range(rg), r.Events)
	got := parse(t, md)
	if want := []string{"Daily Report 2025-09-08", "Tokens", "Trades"}; strings.Join(got.headings, ",") != strings.Join(want, ",") {
		t.Errorf("headings = %q, want %q", got.headings, want)
	}
	// A and B traded, the mint was bought.
	if len(got.rows) != 2 || got.rows[1] != 3 {
		t.Errorf("tables = %v, want 2 tables, the second with 3 rows", got.rows)
	}
	if strings.Contains(md, "matched no lot") {
		t.Error("daily report of 2025-09-08 mentions an over-sell")
	}

	next := date.NewRange(day.Add(1), date.Daily)
	md = WindowMarkdown(next, r.Range(next), r.Events)
	if !strings.Contains(md, "1 sell(s) matched no lot") {
		t.Errorf("daily report of 2025-09-09 does not mention the over-sell:\n%s", md)
	}

	week := date.NewRange(day, date.Weekly)
	md = WindowMarkdown(week, r.Range(week), r.Events)
	if !strings.HasPrefix(md, "# Weekly Report 2025-W37") {
		t.Errorf("weekly report starts with %q", strings.SplitN(md, "\n", 2)[0])
	}
}

func TestWindowMarkdown_Empty(t *testing.T) {
	r := testReport()
	rg := date.NewRange(date.New(2025, 1, 1), date.Daily)
	got := parse(t, WindowMarkdown(rg, r.Range(rg), r.Events))
	if len(got.headings) != 1 {
		t.Errorf("headings = %q, want the title only", got.headings)
	}
}

func TestSeriesMarkdown(t *testing.T) {
	r := testReport()
	series := r.DailySeries(date.NewRange(date.New(2025, 9, 8), date.Weekly))
	got := parse(t, SeriesMarkdown(series))
	if len(got.rows) != 1 || got.rows[0] != 8 {
		t.Errorf("tables = %v, want one table with 7 days and a total", got.rows)
	}
}

func TestStatsMarkdown(t *testing.T) {
	md := StatsMarkdown(testReport().Stats())
	for _, want := range []string{"Best: So11…1112 +", "Worst: A +"} {
		if !strings.Contains(md, want) {
			t.Errorf("stats do not contain %q:\n%s", want, md)
		}
	}
}

func TestHold(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "-"},
		{45 * time.Minute, "45m"},
		{5 * time.Hour, "5h"},
		{50 * time.Hour, "2d 2h"},
	}
	for _, test := range tests {
		if got := Hold(test.d); got != test.want {
			t.Errorf("Hold(%v) = %q, want %q", test.d, got, test.want)
		}
	}
}

func TestShort(t *testing.T) {
	if got := Short("ABC"); got != "ABC" {
		t.Errorf("Short(ABC) = %q", got)
	}
	if got, want := Short(mint), "So11…1112"; got != want {
		t.Errorf("Short(%s) = %q, want %q", mint, got, want)
	}
}
