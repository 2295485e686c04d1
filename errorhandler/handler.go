// Package errorhandler provides handlers for per-message decode failures.
// A registered handler consumes the failure and the message is dropped from
// normal dispatch; without one, the failure propagates to the receive step.
package errorhandler

import (
	"context"

	"github.com/hugolhafner/streamtable/kafka"
)

// Handler is invoked with the classified decode error and the raw message it
// came from. Returning nil drops the message and processing continues; a
// non-nil return propagates as the message's outcome.
type Handler func(ctx context.Context, err error, msg kafka.Message) error
