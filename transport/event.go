package transport

import (
	"sync/atomic"

	"github.com/hugolhafner/streamtable/ack"
)

// Event is one decoded message together with the reference count that drives
// acknowledgment. The consumer holds the initial reference and releases it
// when the callback returns, on every exit path. A callback that keeps the
// event beyond its own invocation must Retain it first and Release it when
// done; the offset is acknowledged the moment the last reference goes away.
type Event struct {
	Key    any
	Value  any
	Offset int64

	refs  atomic.Int32
	guard *ack.Guard
}

func newEvent(key, value any, offset int64, guard *ack.Guard) *Event {
	e := &Event{
		Key:    key,
		Value:  value,
		Offset: offset,
		guard:  guard,
	}
	e.refs.Store(1)
	return e
}

// Retain adds a reference, delaying acknowledgment until a matching Release.
func (e *Event) Retain() {
	e.refs.Add(1)
}

// Release drops one reference. The last release fires the acknowledgment;
// extra releases are no-ops.
func (e *Event) Release() {
	if e.refs.Add(-1) == 0 {
		e.guard.Done()
	}
}
