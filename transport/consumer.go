package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hugolhafner/dskit/backoff"
	"github.com/hugolhafner/streamtable"
	"github.com/hugolhafner/streamtable/ack"
	"github.com/hugolhafner/streamtable/errorhandler"
	"github.com/hugolhafner/streamtable/kafka"
	"github.com/hugolhafner/streamtable/logger"
	streamotel "github.com/hugolhafner/streamtable/otel"
	"github.com/hugolhafner/streamtable/serde"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

var ErrAlreadyRunning = errors.New("consumer is already running")

// Callback is invoked once per decoded message, strictly in receive order.
// The next message is not pulled until the callback returns. Errors other
// than the classified decode failures propagate and stop the consumer.
type Callback func(ctx context.Context, topic streamtable.Topic, key any, event *Event) error

// Consumer pulls raw messages from the backend, decodes them, dispatches
// them to the callback, and commits the highest contiguously-acknowledged
// offset on a fixed interval. The receive loop and the commit loop share
// only the acknowledgment tracker.
type Consumer struct {
	id        string
	transport *Transport
	client    kafka.Client
	topic     streamtable.Topic
	callback  Callback

	keyCodec   serde.Codec // nil: keys pass through raw
	valueCodec serde.Codec
	decoder    streamtable.EventDecoder

	commitInterval     time.Duration
	onKeyDecodeError   errorhandler.Handler
	onValueDecodeError errorhandler.Handler
	pollBackoff        backoff.Backoff

	tracker *ack.Tracker

	// commit state, owned by the commit loop; the mutex only serializes
	// external reads via CommittedOffset
	cmu          sync.Mutex
	committed    int64
	hasCommitted bool

	mu      sync.Mutex
	running bool

	logger logger.Logger
	tel    *streamotel.Telemetry
}

func newConsumer(t *Transport, topic streamtable.Topic, callback Callback, opts ...ConsumerOption) (*Consumer, error) {
	if callback == nil {
		return nil, fmt.Errorf("%w: consumer requires a callback", streamtable.ErrConfiguration)
	}
	if err := topic.Validate(); err != nil {
		return nil, err
	}

	cfg := ConsumerConfig{
		PollErrorBackoff: backoff.NewFixed(time.Second),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	app := t.app

	keyCodecID := topic.KeySerializer
	if keyCodecID == "" {
		keyCodecID = app.KeySerializer
	}
	var keyCodec serde.Codec
	if keyCodecID != "" {
		c, ok := app.Registry.Lookup(keyCodecID)
		if !ok {
			return nil, fmt.Errorf("%w: unknown key codec %q", streamtable.ErrConfiguration, keyCodecID)
		}
		keyCodec = c
	}

	valueCodec, ok := app.Registry.Lookup(app.ValueSerializer)
	if !ok {
		return nil, fmt.Errorf("%w: unknown value codec %q", streamtable.ErrConfiguration, app.ValueSerializer)
	}

	commitInterval := cfg.CommitInterval
	if commitInterval == 0 {
		commitInterval = topic.CommitInterval
	}
	if commitInterval == 0 {
		commitInterval = app.CommitInterval
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	l := cfg.Logger
	if l == nil {
		l = t.logger
	}

	return &Consumer{
		id:                 id,
		transport:          t,
		client:             t.client,
		topic:              topic,
		callback:           callback,
		keyCodec:           keyCodec,
		valueCodec:         valueCodec,
		decoder:            topic.Type,
		commitInterval:     commitInterval,
		onKeyDecodeError:   cfg.OnKeyDecodeError,
		onValueDecodeError: cfg.OnValueDecodeError,
		pollBackoff:        cfg.PollErrorBackoff,
		tracker:            ack.NewTracker(),
		logger:             l.With("component", "consumer", "consumer_id", id),
		tel:                t.tel,
	}, nil
}

func (c *Consumer) ID() string {
	return c.id
}

func (c *Consumer) Topic() streamtable.Topic {
	return c.topic
}

// CommittedOffset returns the last offset confirmed by the backend, if any.
func (c *Consumer) CommittedOffset() (int64, bool) {
	c.cmu.Lock()
	defer c.cmu.Unlock()

	return c.committed, c.hasCommitted
}

// Run subscribes to the topic and drives the receive loop in the calling
// goroutine, with the commit loop ticking alongside it. It returns when ctx
// is cancelled or the receive loop fails; an in-flight callback is allowed
// to finish before either loop stops.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.start(); err != nil {
		return err
	}
	defer c.stop()

	pattern := ""
	if c.topic.Pattern != nil {
		pattern = c.topic.Pattern.String()
	}
	if err := c.client.Subscribe(c.topic.Topics, pattern); err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.commitLoop(runCtx)
	}()

	err := c.receiveLoop(runCtx)
	cancel()
	wg.Wait()

	return err
}

func (c *Consumer) start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}
	c.running = true
	return nil
}

func (c *Consumer) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.running = false
}

func (c *Consumer) receiveLoop(ctx context.Context) error {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := c.client.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			attempt++
			c.logger.Warn("poll failed, backing off", "error", err, "attempt", attempt)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.pollBackoff.Next(uint(attempt))):
			}
			continue
		}
		attempt = 0

		for _, msg := range msgs {
			if err := c.OnMessage(ctx, msg); err != nil {
				if streamtable.IsDecodeError(err) {
					// fatal to the message, not to the consumer
					c.logger.Error(
						"halting undecodable message",
						"error", err,
						"topic", msg.Topic,
						"offset", msg.Offset,
					)
					continue
				}

				return err
			}
		}
	}
}

// OnMessage is the per-message receive step: decode, classify failures,
// track and dispatch. Exported so messages can be fed directly, e.g. from
// tests or replay tooling.
func (c *Consumer) OnMessage(ctx context.Context, msg kafka.Message) error {
	carrier := streamotel.NewKafkaHeadersCarrier(&msg.Headers)
	ctx = c.tel.Propagator.Extract(ctx, carrier)

	start := time.Now()
	ctx, span := c.tel.Tracer.Start(
		ctx, msg.Topic+" process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationTypeProcess,
			semconv.MessagingDestinationName(msg.Topic),
			semconv.MessagingKafkaOffsetKey.Int64(msg.Offset),
			streamotel.AttrConsumerID.String(c.id),
		),
	)
	defer span.End()

	recordStatus := func(status string) {
		c.tel.ProcessDuration.Record(
			ctx, time.Since(start).Seconds(), metric.WithAttributes(
				semconv.MessagingDestinationName(msg.Topic),
				streamotel.AttrProcessStatus.String(status),
			),
		)
	}

	key, value, err := c.decode(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		phase := "value"
		var kerr *streamtable.KeyDecodeError
		if errors.As(err, &kerr) {
			phase = "key"
		}
		c.tel.Errors.Add(
			ctx, 1, metric.WithAttributes(
				semconv.MessagingDestinationName(msg.Topic),
				streamotel.AttrErrorPhase.String(phase),
			),
		)

		recordStatus(streamotel.StatusDropped)
		return c.handleDecodeError(ctx, err, msg)
	}

	event := newEvent(key, value, msg.Offset, c.tracker.Track(msg.Offset))
	defer event.Release()

	err = c.callback(ctx, c.topic, key, event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordStatus(streamotel.StatusFailed)
		return err
	}

	c.tel.MessagesConsumed.Add(
		ctx, 1, metric.WithAttributes(semconv.MessagingDestinationName(msg.Topic)),
	)

	recordStatus(streamotel.StatusSuccess)
	return nil
}

func (c *Consumer) handleDecodeError(ctx context.Context, err error, msg kafka.Message) error {
	var kerr *streamtable.KeyDecodeError
	if errors.As(err, &kerr) {
		if c.onKeyDecodeError != nil {
			return c.onKeyDecodeError(ctx, kerr, msg)
		}
		return err
	}

	var verr *streamtable.ValueDecodeError
	if errors.As(err, &verr) {
		if c.onValueDecodeError != nil {
			return c.onValueDecodeError(ctx, verr, msg)
		}
	}

	return err
}

func (c *Consumer) decode(msg kafka.Message) (any, any, error) {
	var key any = msg.Key
	if c.keyCodec != nil {
		k, err := c.keyCodec.Decode(msg.Key)
		if err != nil {
			return nil, nil, &streamtable.KeyDecodeError{Err: err}
		}
		key = k
	}

	var value any
	var err error
	if c.decoder != nil {
		value, err = c.decoder.FromMessage(key, msg, c.valueCodec)
	} else {
		value, err = c.valueCodec.Decode(msg.Value)
	}
	if err != nil {
		return nil, nil, &streamtable.ValueDecodeError{Err: err}
	}

	return key, value, nil
}

func (c *Consumer) commitLoop(ctx context.Context) {
	ticker := time.NewTicker(c.commitInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.commitOnce(ctx)
	}
}

func (c *Consumer) commitOnce(ctx context.Context) {
	offset, err := c.tracker.NextSafeOffset()
	if err != nil {
		// nothing acknowledged yet, skip this tick
		return
	}

	if !c.shouldCommit(offset) {
		return
	}

	start := time.Now()
	if err := c.client.Commit(ctx, offset); err != nil {
		c.logger.Error("offset commit failed, retrying on next tick", "offset", offset, "error", err)
		c.tel.Errors.Add(
			ctx, 1, metric.WithAttributes(streamotel.AttrErrorPhase.String("commit")),
		)
		return
	}

	// confirmed durable only now that the backend call succeeded
	c.cmu.Lock()
	c.committed = offset
	c.hasCommitted = true
	c.cmu.Unlock()

	c.tracker.Compact(offset)

	c.tel.OffsetsCommitted.Add(ctx, 1, metric.WithAttributes(streamotel.AttrConsumerID.String(c.id)))
	c.tel.CommitDuration.Record(
		ctx, time.Since(start).Seconds(),
		metric.WithAttributes(streamotel.AttrConsumerID.String(c.id)),
	)

	c.logger.Debug("committed offset", "offset", offset)
}

func (c *Consumer) shouldCommit(offset int64) bool {
	c.cmu.Lock()
	defer c.cmu.Unlock()

	return !c.hasCommitted || offset > c.committed
}
