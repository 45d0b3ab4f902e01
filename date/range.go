package date

import (
	"fmt"
	"iter"
	"time"
)

// Range represents a range of days, both boundaries included.
type Range struct{ From, To Date }

// NewRange returns the period containing d.
func NewRange(d Date, period Period) Range {
	return Range{From: d.StartOf(period), To: d.EndOf(period)}
}

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool { return !date.Before(r.From) && !date.After(r.To) }

// Window returns the half-open time interval [from, to) covered by the
// range: from midnight UTC of r.From to midnight UTC of the day after r.To.
func (r Range) Window() (from, to time.Time) {
	return r.From.Midnight(), r.To.Add(1).Midnight()
}

// Includes reports whether instant t falls within the window of r.
func (r Range) Includes(t time.Time) bool {
	from, to := r.Window()
	return !t.Before(from) && t.Before(to)
}

// Days iterates over every day of the range in chronological order.
func (r Range) Days() iter.Seq[Date] {
	return func(yield func(Date) bool) {
		for d := r.From; !d.After(r.To); d = d.Add(1) {
			if !yield(d) {
				return
			}
		}
	}
}

// Period returns the period of the range when it is exactly one day or one
// week.
func (r Range) Period() (p Period, ok bool) {
	for _, p := range []Period{Daily, Weekly} {
		if NewRange(r.From, p) == r {
			return p, true
		}
	}
	return Daily, false
}

// Identifier is a short name of the range: "2025-09-08" for a day,
// "2025-W37" for an ISO week, and "from_to" otherwise.
func (r Range) Identifier() string {
	p, ok := r.Period()
	switch {
	case !ok:
		return fmt.Sprintf("%s_%s", r.From, r.To)
	case p == Weekly:
		year, week := r.From.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	default:
		return r.From.String()
	}
}

func (r Range) String() string { return fmt.Sprintf("%s..%s", r.From, r.To) }
