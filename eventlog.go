package pnl

import (
	"slices"
	"sync"
)

// EventLog is the append-only log of the trade events of a wallet.
//
// It is written by the ingestion side and read by computation cycles through
// Snapshot, which never exposes the live backing slice. It is safe for
// concurrent use.
type EventLog struct {
	mu     sync.RWMutex
	events []TradeEvent
	seen   map[key]struct{}
}

// NewEventLog creates a log holding events.
func NewEventLog(events ...TradeEvent) *EventLog {
	l := &EventLog{seen: make(map[key]struct{})}
	l.Append(events...)
	return l
}

// Append adds events to the log, ignoring events whose (Ref, Index) is already
// present. It returns the number of events actually added.
func (l *EventLog) Append(events ...TradeEvent) (added int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen == nil {
		l.seen = make(map[key]struct{})
	}
	for _, e := range events {
		if _, dup := l.seen[e.key()]; dup {
			continue
		}
		l.seen[e.key()] = struct{}{}
		l.events = append(l.events, e)
		added++
	}
	return added
}

// Len returns the number of events in the log.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Snapshot returns a copy of the log in insertion order.
func (l *EventLog) Snapshot() []TradeEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.events)
}
