package renderer

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/etnz/pnl"
	"github.com/etnz/pnl/date"
)

// ConditionalBlock let you fully write a block and decide at the end to print it or not.
// If the block function returns true, the content is printed to w, otherwise it is discarded.
func ConditionalBlock(w io.Writer, block func(io.Writer) bool) {
	bw := &bytes.Buffer{}
	if block(bw) {
		io.Copy(w, bw)
	}
}

// Short abbreviates a token address to its first and last four characters.
func Short(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:4] + "…" + token[len(token)-4:]
}

// Hold formats a holding duration with a day and hour, or minute, resolution.
func Hold(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < date.Day:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd %dh", int(d/date.Day), int(d%date.Day/time.Hour))
	}
}

// Event renders a trade event to a string.
func Event(e pnl.TradeEvent) string {
	switch e.Direction {
	case pnl.Buy:
		return fmt.Sprintf("%s bought %s of %s for %s", e.Time.Format("15:04:05"), e.TokenAmount, Short(e.Token), e.QuoteAmount)
	case pnl.Sell:
		return fmt.Sprintf("%s sold %s of %s for %s", e.Time.Format("15:04:05"), e.TokenAmount, Short(e.Token), e.QuoteAmount)
	default:
		return fmt.Sprintf("%s %s %s", e.Time.Format("15:04:05"), e.Direction, Short(e.Token))
	}
}
