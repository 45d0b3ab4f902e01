// Package store persists the raw transfers of the tracked wallet.
//
// Raw transfers are kept rather than normalized events so that a change of
// configuration (wallet, blacklist) applies to the whole history on the next
// replay. Every implementation is idempotent: appending a transfer whose
// (signature, index) is already stored is a no-op.
package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/etnz/pnl"
)

// Store is the persistence interface of the event source.
type Store interface {
	// Append stores raws, skipping already stored transfers. It returns
	// the number of transfers actually added.
	Append(ctx context.Context, raws ...pnl.RawTransfer) (added int, err error)

	// List returns every transfer with a time at or after since, ordered by
	// (time, signature, index). A zero since returns everything.
	List(ctx context.Context, since time.Time) ([]pnl.RawTransfer, error)
}

type key struct {
	signature string
	index     int
}

func keyOf(r pnl.RawTransfer) key { return key{r.Signature, r.Index} }

func compareRaw(a, b pnl.RawTransfer) int {
	if c := cmp.Compare(a.Timestamp, b.Timestamp); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Signature, b.Signature); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

// filterSince returns the sorted transfers at or after since.
func filterSince(raws []pnl.RawTransfer, since time.Time) []pnl.RawTransfer {
	list := slices.Clone(raws)
	if !since.IsZero() {
		ms := since.UnixMilli()
		list = slices.DeleteFunc(list, func(r pnl.RawTransfer) bool { return r.Timestamp < ms })
	}
	slices.SortStableFunc(list, compareRaw)
	return list
}

// Sync loads the transfers stored since the given time, normalizes them and
// appends the accepted events to log. It returns the number of new events.
// Rejected transfers are logged and counted by the normalizer.
func Sync(ctx context.Context, s Store, n *pnl.Normalizer, log *pnl.EventLog, since time.Time) (int, error) {
	raws, err := s.List(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("cannot list transfers: %w", err)
	}
	events, _ := n.NormalizeAll(raws)
	return log.Append(events...), nil
}
