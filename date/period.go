package date

import (
	"fmt"
	"strings"
)

// Period is the length of a reporting window.
type Period int

const (
	// Daily windows cover one UTC day.
	Daily Period = iota
	// Weekly windows cover a week, Monday to Sunday.
	Weekly
)

func (p Period) String() string {
	if p == Weekly {
		return "weekly"
	}
	return "daily"
}

// ParsePeriod parses "daily" or "weekly", "day" and "week" are accepted too.
func ParsePeriod(p string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "daily", "day", "d":
		return Daily, nil
	case "weekly", "week", "w":
		return Weekly, nil
	}
	return Daily, fmt.Errorf("unknown period %q, want daily or weekly", p)
}

