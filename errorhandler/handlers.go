package errorhandler

import (
	"context"
	"fmt"
	"time"

	"github.com/hugolhafner/dskit/backoff"
	"github.com/hugolhafner/streamtable/kafka"
	"github.com/hugolhafner/streamtable/logger"
)

// LogAndDrop logs the decode failure and drops the message.
func LogAndDrop(l logger.Logger) Handler {
	return func(ctx context.Context, err error, msg kafka.Message) error {
		l.Error(
			"dropping message that failed to decode",
			"error", err,
			"topic", msg.Topic,
			"offset", msg.Offset,
		)
		return nil
	}
}

// Sender is the producing surface DeadLetter needs; *transport.Producer
// satisfies it.
type Sender interface {
	SendAndWait(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error
}

type DeadLetterConfig struct {
	MaxAttempts int
	Backoff     backoff.Backoff
	Logger      logger.Logger
}

type DeadLetterOption func(*DeadLetterConfig)

func WithMaxAttempts(n int) DeadLetterOption {
	return func(cfg *DeadLetterConfig) {
		cfg.MaxAttempts = n
	}
}

func WithBackoff(b backoff.Backoff) DeadLetterOption {
	return func(cfg *DeadLetterConfig) {
		cfg.Backoff = b
	}
}

func WithLogger(l logger.Logger) DeadLetterOption {
	return func(cfg *DeadLetterConfig) {
		cfg.Logger = l
	}
}

// DeadLetter copies the undecodable message to a dead-letter topic with
// diagnostic headers and drops it from normal dispatch. The publish is
// retried with backoff; if every attempt fails the last error propagates so
// the message is not silently lost.
func DeadLetter(sender Sender, topic string, opts ...DeadLetterOption) Handler {
	cfg := DeadLetterConfig{
		MaxAttempts: 3,
		Backoff:     backoff.NewFixed(time.Second),
		Logger:      logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(ctx context.Context, decodeErr error, msg kafka.Message) error {
		headers := make([]kafka.Header, 0, len(msg.Headers)+3)
		headers = append(headers, msg.Headers...)
		headers = append(
			headers,
			kafka.Header{Key: "x-original-topic", Value: []byte(msg.Topic)},
			kafka.Header{Key: "x-original-offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
			kafka.Header{Key: "x-error-message", Value: []byte(decodeErr.Error())},
		)

		var lastErr error
		for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
			lastErr = sender.SendAndWait(ctx, topic, msg.Key, msg.Value, headers...)
			if lastErr == nil {
				return nil
			}

			cfg.Logger.Warn(
				"dead-letter publish failed",
				"error", lastErr,
				"attempt", attempt,
				"topic", topic,
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Backoff.Next(uint(attempt))):
			}
		}

		return fmt.Errorf("dead-letter publish after %d attempts: %w", cfg.MaxAttempts, lastErr)
	}
}
