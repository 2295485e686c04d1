// Package stream runs plain (non-table) processing over a topic: one-to-one
// transforms or fan-out expansion, with an optional sink topic the outputs
// are published to.
package stream

import (
	"context"
	"fmt"

	"github.com/hugolhafner/streamtable"
	"github.com/hugolhafner/streamtable/logger"
	"github.com/hugolhafner/streamtable/serde"
	"github.com/hugolhafner/streamtable/transport"
)

type Config struct {
	Processor streamtable.Processor
	Expander  streamtable.Expander
	Sink      string

	Logger          logger.Logger
	ConsumerOptions []transport.ConsumerOption
}

type Option func(*Config)

// WithProcessor sets a one-to-one transform. Mutually exclusive with
// WithExpander.
func WithProcessor(p streamtable.Processor) Option {
	return func(cfg *Config) {
		cfg.Processor = p
	}
}

// WithExpander sets a fan-out transform producing zero or more outputs per
// input. Mutually exclusive with WithProcessor.
func WithExpander(e streamtable.Expander) Option {
	return func(cfg *Config) {
		cfg.Expander = e
	}
}

// WithSink publishes every output to the given topic, encoded with the
// application's value codec. Without a sink, outputs are discarded and the
// transforms run for their side effects.
func WithSink(topic string) Option {
	return func(cfg *Config) {
		cfg.Sink = topic
	}
}

func WithLogger(l logger.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

func WithConsumerOptions(opts ...transport.ConsumerOption) Option {
	return func(cfg *Config) {
		cfg.ConsumerOptions = append(cfg.ConsumerOptions, opts...)
	}
}

// Stream consumes a topic and applies its transform to every message.
type Stream struct {
	consumer *transport.Consumer
	producer *transport.Producer

	processor streamtable.Processor
	expander  streamtable.Expander
	sink      string

	keyCodec   serde.Codec // nil: keys must already be raw bytes
	valueCodec serde.Codec

	logger logger.Logger
}

func New(t *transport.Transport, topic streamtable.Topic, opts ...Option) (*Stream, error) {
	cfg := Config{Logger: t.App().Logger}
	for _, opt := range opts {
		opt(&cfg)
	}

	if (cfg.Processor == nil) == (cfg.Expander == nil) {
		return nil, fmt.Errorf(
			"%w: stream requires exactly one of a processor or an expander", streamtable.ErrConfiguration,
		)
	}

	app := t.App()
	valueCodec, ok := app.Registry.Lookup(app.ValueSerializer)
	if !ok {
		return nil, fmt.Errorf("%w: unknown value codec %q", streamtable.ErrConfiguration, app.ValueSerializer)
	}

	// the same topic-then-app fallback the consumer decodes with, so every
	// key the stream sees can be re-encoded for the sink
	keyCodecID := topic.KeySerializer
	if keyCodecID == "" {
		keyCodecID = app.KeySerializer
	}
	var keyCodec serde.Codec
	if keyCodecID != "" {
		keyCodec, ok = app.Registry.Lookup(keyCodecID)
		if !ok {
			return nil, fmt.Errorf("%w: unknown key codec %q", streamtable.ErrConfiguration, keyCodecID)
		}
	}

	s := &Stream{
		processor:  cfg.Processor,
		expander:   cfg.Expander,
		sink:       cfg.Sink,
		keyCodec:   keyCodec,
		valueCodec: valueCodec,
		logger:     cfg.Logger.With("component", "stream", "topic", topic.String()),
	}

	consumer, err := t.CreateConsumer(topic, s.onMessage, cfg.ConsumerOptions...)
	if err != nil {
		return nil, err
	}
	s.consumer = consumer

	if cfg.Sink != "" {
		s.producer = t.CreateProducer()
	}

	return s, nil
}

// Run consumes the topic until ctx is cancelled.
func (s *Stream) Run(ctx context.Context) error {
	return s.consumer.Run(ctx)
}

// Consumer exposes the underlying consumer, e.g. to feed messages directly.
func (s *Stream) Consumer() *transport.Consumer {
	return s.consumer
}

func (s *Stream) onMessage(ctx context.Context, _ streamtable.Topic, key any, event *transport.Event) error {
	if s.processor != nil {
		out, err := s.processor.Process(ctx, key, event.Value)
		if err != nil {
			return err
		}
		return s.emit(ctx, key, out)
	}

	outputs, err := s.expander.Expand(ctx, key, event.Value)
	if err != nil {
		return err
	}
	for _, kv := range outputs {
		if err := s.emit(ctx, kv.Key, kv.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stream) emit(ctx context.Context, key, value any) error {
	if s.sink == "" {
		return nil
	}

	rawKey, err := s.encodeKey(key)
	if err != nil {
		return fmt.Errorf("encode key for sink %s: %w", s.sink, err)
	}

	rawValue, err := s.valueCodec.Encode(value)
	if err != nil {
		return fmt.Errorf("encode value for sink %s: %w", s.sink, err)
	}

	return s.producer.SendAndWait(ctx, s.sink, rawKey, rawValue)
}

func (s *Stream) encodeKey(key any) ([]byte, error) {
	if key == nil {
		return nil, nil
	}
	if raw, ok := key.([]byte); ok {
		return raw, nil
	}
	if s.keyCodec != nil {
		return s.keyCodec.Encode(key)
	}
	if str, ok := key.(string); ok {
		return []byte(str), nil
	}
	return nil, fmt.Errorf("no key codec configured for %T", key)
}
