// Package streamtable is a stream-processing runtime: consumers subscribe to
// topics on a message bus, receive decoded key/value events, and optionally
// materialize running state from a changelog stream. Acknowledgment is tied
// to event lifetime and a background loop commits the highest offset that is
// safe to resume from.
package streamtable

const Version = "v0.1.0" // x-release-please-version
