package transport

import (
	"time"

	"github.com/hugolhafner/dskit/backoff"
	"github.com/hugolhafner/streamtable/errorhandler"
	"github.com/hugolhafner/streamtable/logger"
)

type ConsumerConfig struct {
	// ID identifies this consumer in logs and metrics. Randomly generated
	// when empty.
	ID string

	// CommitInterval overrides topic- and application-level settings.
	CommitInterval time.Duration

	// OnKeyDecodeError and OnValueDecodeError consume classified decode
	// failures; the failing message is dropped from normal dispatch. Nil
	// handlers let the failure surface to the receive step.
	OnKeyDecodeError   errorhandler.Handler
	OnValueDecodeError errorhandler.Handler

	// PollErrorBackoff paces retries after backend poll failures.
	PollErrorBackoff backoff.Backoff

	Logger logger.Logger
}

type ConsumerOption func(*ConsumerConfig)

func WithConsumerID(id string) ConsumerOption {
	return func(cfg *ConsumerConfig) {
		cfg.ID = id
	}
}

func WithCommitInterval(d time.Duration) ConsumerOption {
	return func(cfg *ConsumerConfig) {
		cfg.CommitInterval = d
	}
}

func WithKeyDecodeErrorHandler(h errorhandler.Handler) ConsumerOption {
	return func(cfg *ConsumerConfig) {
		cfg.OnKeyDecodeError = h
	}
}

func WithValueDecodeErrorHandler(h errorhandler.Handler) ConsumerOption {
	return func(cfg *ConsumerConfig) {
		cfg.OnValueDecodeError = h
	}
}

func WithPollErrorBackoff(b backoff.Backoff) ConsumerOption {
	return func(cfg *ConsumerConfig) {
		if b != nil {
			cfg.PollErrorBackoff = b
		}
	}
}

func WithConsumerLogger(l logger.Logger) ConsumerOption {
	return func(cfg *ConsumerConfig) {
		cfg.Logger = l
	}
}

type ProducerConfig struct {
	Logger logger.Logger
}

type ProducerOption func(*ProducerConfig)

func WithProducerLogger(l logger.Logger) ProducerOption {
	return func(cfg *ProducerConfig) {
		cfg.Logger = l
	}
}
