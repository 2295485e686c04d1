package streamtable

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks invalid construction parameters. It is fatal at
// construction and never retried.
var ErrConfiguration = errors.New("invalid configuration")

// KeyDecodeError wraps a failure to decode a message key.
type KeyDecodeError struct {
	Err error
}

func (e *KeyDecodeError) Error() string {
	return fmt.Sprintf("decode key: %v", e.Err)
}

func (e *KeyDecodeError) Unwrap() error {
	return e.Err
}

// ValueDecodeError wraps a failure to decode a message value.
type ValueDecodeError struct {
	Err error
}

func (e *ValueDecodeError) Error() string {
	return fmt.Sprintf("decode value: %v", e.Err)
}

func (e *ValueDecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err is a key or value decode failure. These
// are the only errors a consumer recovers from per message; everything else
// stops the receive loop.
func IsDecodeError(err error) bool {
	var kerr *KeyDecodeError
	var verr *ValueDecodeError
	return errors.As(err, &kerr) || errors.As(err, &verr)
}
