// Package ack tracks which message offsets have been fully processed and
// computes the highest offset that is safe to commit: the end of the
// contiguous run of acknowledged offsets starting from the lowest one still
// tracked. An offset past a gap is never reported safe.
package ack

import (
	"errors"
	"sort"
	"sync"
)

// ErrNoAckedOffsets is returned by NextSafeOffset while nothing has been
// acknowledged yet. Callers treat it as "skip this commit tick".
var ErrNoAckedOffsets = errors.New("ack: no acknowledged offsets")

// Tracker is safe for one writer (guards firing from the dispatch path) and
// one reader (the commit loop), and tolerates more of each.
type Tracker struct {
	mu    sync.Mutex
	acked []int64
	seen  map[int64]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{seen: make(map[int64]struct{})}
}

// Track registers an offset for later acknowledgment and returns the guard
// whose release marks it complete. The tracker holds no reference to the
// event itself; the guard is the only link between the event's lifetime and
// the acknowledged set.
func (t *Tracker) Track(offset int64) *Guard {
	return &Guard{tracker: t, offset: offset}
}

func (t *Tracker) ack(offset int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, dup := t.seen[offset]; dup {
		return
	}
	t.seen[offset] = struct{}{}

	i := sort.Search(len(t.acked), func(i int) bool { return t.acked[i] >= offset })
	t.acked = append(t.acked, 0)
	copy(t.acked[i+1:], t.acked[i:])
	t.acked[i] = offset
}

// NextSafeOffset returns the highest contiguously-acknowledged offset
// starting from the lowest tracked one. The first entry is trivially safe;
// the scan stops at the first entry that is neither equal to nor exactly one
// greater than its predecessor.
func (t *Tracker) NextSafeOffset() (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.acked) == 0 {
		return 0, ErrNoAckedOffsets
	}

	safe := t.acked[0]
	for _, offset := range t.acked[1:] {
		if offset != safe && offset != safe+1 {
			break
		}
		safe = offset
	}

	return safe, nil
}

// Compact drops tracked offsets below the given committed offset. The offset
// itself is kept so the contiguity scan still anchors on it; the seen set is
// kept whole so late duplicate acknowledgments stay idempotent.
func (t *Tracker) Compact(committed int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := sort.Search(len(t.acked), func(i int) bool { return t.acked[i] >= committed })
	if i > 0 {
		t.acked = append(t.acked[:0], t.acked[i:]...)
	}
}

// Len reports how many distinct offsets are currently tracked as acknowledged.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.acked)
}

// Guard acknowledges exactly one offset, exactly once. Extra Done calls are
// no-ops.
type Guard struct {
	once    sync.Once
	tracker *Tracker
	offset  int64
}

func (g *Guard) Done() {
	g.once.Do(func() { g.tracker.ack(g.offset) })
}

func (g *Guard) Offset() int64 {
	return g.offset
}
