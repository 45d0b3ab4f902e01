package pnl

import "fmt"

// CostBasisMethod defines how sells are matched against lots.
type CostBasisMethod int

const (
	// FIFO consumes the oldest lot first. It is the default method.
	FIFO CostBasisMethod = iota
	// AverageCost prices every sold unit at the weighted average cost of the
	// units still held, and merges the remaining lots into one.
	AverageCost
)

func (m CostBasisMethod) String() string {
	switch m {
	case AverageCost:
		return "average"
	case FIFO:
		return "fifo"
	default:
		return "unknown"
	}
}

// ParseCostBasisMethod parses a string into a CostBasisMethod.
func ParseCostBasisMethod(s string) (CostBasisMethod, error) {
	switch s {
	case "average", "avg":
		return AverageCost, nil
	case "fifo", "":
		return FIFO, nil
	default:
		return 0, fmt.Errorf("unknown cost basis method: %q", s)
	}
}

func (m CostBasisMethod) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *CostBasisMethod) UnmarshalText(b []byte) (err error) {
	*m, err = ParseCostBasisMethod(string(b))
	return err
}
