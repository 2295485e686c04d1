// Package table materializes a key/value view from a changelog topic. Each
// received message is folded into the store through a processor that yields
// exactly one value per input; the store records one value per key per
// message.
package table

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hugolhafner/streamtable"
	"github.com/hugolhafner/streamtable/logger"
	"github.com/hugolhafner/streamtable/transport"
)

// ErrKeyNotFound is returned by Get and Delete for keys the table does not
// hold.
var ErrKeyNotFound = errors.New("table: key not found")

type Config struct {
	Logger          logger.Logger
	ConsumerOptions []transport.ConsumerOption
}

type Option func(*Config)

func WithLogger(l logger.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

// WithConsumerOptions passes options through to the changelog consumer.
func WithConsumerOptions(opts ...transport.ConsumerOption) Option {
	return func(cfg *Config) {
		cfg.ConsumerOptions = append(cfg.ConsumerOptions, opts...)
	}
}

// Table is a consumer-driven materialized view. Keys must be comparable;
// direct accessor calls are serialized against the message path.
type Table struct {
	consumer  *transport.Consumer
	processor streamtable.Processor
	logger    logger.Logger

	mu    sync.RWMutex
	state map[any]any
}

// New constructs a Table over the given changelog topic. The processor must
// produce exactly one value per input message: nil processors and shapes
// that can also fan out are rejected.
func New(
	t *transport.Transport, topic streamtable.Topic, processor streamtable.Processor, opts ...Option,
) (*Table, error) {
	if processor == nil {
		return nil, fmt.Errorf("%w: table requires a processor", streamtable.ErrConfiguration)
	}
	if _, fanOut := processor.(streamtable.Expander); fanOut {
		return nil, fmt.Errorf(
			"%w: table processors must produce exactly one value per message", streamtable.ErrConfiguration,
		)
	}

	cfg := Config{Logger: t.App().Logger}
	for _, opt := range opts {
		opt(&cfg)
	}

	tbl := &Table{
		processor: processor,
		logger:    cfg.Logger.With("component", "table", "topic", topic.String()),
		state:     make(map[any]any),
	}

	consumer, err := t.CreateConsumer(topic, tbl.onMessage, cfg.ConsumerOptions...)
	if err != nil {
		return nil, fmt.Errorf("create changelog consumer: %w", err)
	}
	tbl.consumer = consumer

	return tbl, nil
}

// Run consumes the changelog until ctx is cancelled.
func (t *Table) Run(ctx context.Context) error {
	return t.consumer.Run(ctx)
}

// Consumer exposes the changelog consumer, e.g. to feed messages directly.
func (t *Table) Consumer() *transport.Consumer {
	return t.consumer
}

func (t *Table) onMessage(ctx context.Context, _ streamtable.Topic, key any, event *transport.Event) error {
	processed, err := t.processor.Process(ctx, key, event.Value)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.state[storeKey(key)] = processed
	t.mu.Unlock()

	return nil
}

// storeKey makes raw byte keys usable as map keys. Without a key codec the
// consumer passes keys through as []byte, which cannot hash; the string form
// is the store identity, so byte and string spellings of a key are the same
// entry.
func storeKey(key any) any {
	if raw, ok := key.([]byte); ok {
		return string(raw)
	}
	return key
}

func (t *Table) Get(key any) (any, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	value, ok := t.state[storeKey(key)]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrKeyNotFound, key)
	}
	return value, nil
}

func (t *Table) Set(key, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state[storeKey(key)] = value
}

func (t *Table) Delete(key any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := storeKey(key)
	if _, ok := t.state[k]; !ok {
		return fmt.Errorf("%w: %v", ErrKeyNotFound, key)
	}
	delete(t.state, k)
	return nil
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.state)
}

// Snapshot returns a copy of the current state.
func (t *Table) Snapshot() map[any]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	copied := make(map[any]any, len(t.state))
	for k, v := range t.state {
		copied[k] = v
	}
	return copied
}
