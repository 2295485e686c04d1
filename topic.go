package streamtable

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Topic declares what a consumer subscribes to and how its messages decode.
// Topics and Pattern are mutually exclusive.
type Topic struct {
	Topics  []string
	Pattern *regexp.Regexp

	// Type decodes message values; nil means the resolved value codec is
	// applied to the raw value directly.
	Type EventDecoder

	// KeySerializer overrides the application-level key codec id. Empty
	// falls back to the application default; if that is empty too, keys
	// pass through as raw bytes.
	KeySerializer string

	// CommitInterval overrides the application-level commit interval when
	// non-zero.
	CommitInterval time.Duration
}

func (t Topic) Validate() error {
	if len(t.Topics) > 0 && t.Pattern != nil {
		return fmt.Errorf("%w: topic can specify either topics or pattern, not both", ErrConfiguration)
	}
	if len(t.Topics) == 0 && t.Pattern == nil {
		return fmt.Errorf("%w: topic requires at least one topic name or a pattern", ErrConfiguration)
	}
	return nil
}

func (t Topic) String() string {
	if t.Pattern != nil {
		return t.Pattern.String()
	}
	return strings.Join(t.Topics, ",")
}
