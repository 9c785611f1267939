package dropcopy

import (
	"sort"

	"github.com/ismaiel54/fix-order-lifecycle/internal/msg"
)

// Tally counts consumed drop-copy events by kind and spots event ids seen
// more than once.
type Tally struct {
	total    int
	kinds    map[string]int
	eventIDs map[string]int
	orders   map[string]struct{}
}

// NewTally creates an empty tally.
func NewTally() *Tally {
	return &Tally{
		kinds:    make(map[string]int),
		eventIDs: make(map[string]int),
		orders:   make(map[string]struct{}),
	}
}

// Add counts one event.
func (t *Tally) Add(ev msg.LifecycleEventMsg) {
	t.total++
	t.kinds[ev.Kind]++
	t.eventIDs[ev.EventID]++
	t.orders[ev.ClOrdID] = struct{}{}
}

func (t *Tally) Total() int { return t.total }

// Orders is the number of distinct ClOrdIDs seen.
func (t *Tally) Orders() int { return len(t.orders) }

// Kinds returns the per-kind counts.
func (t *Tally) Kinds() map[string]int {
	out := make(map[string]int, len(t.kinds))
	for k, v := range t.kinds {
		out[k] = v
	}
	return out
}

// Duplicates returns event ids delivered more than once, sorted.
func (t *Tally) Duplicates() []string {
	var dups []string
	for id, n := range t.eventIDs {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)
	return dups
}

// Count returns how often eventID was seen.
func (t *Tally) Count(eventID string) int {
	return t.eventIDs[eventID]
}
