package transport

import (
	"context"
	"time"

	"github.com/hugolhafner/streamtable/kafka"
	"github.com/hugolhafner/streamtable/logger"
	streamotel "github.com/hugolhafner/streamtable/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

// Producer sends encoded messages through the bound transport's backend.
type Producer struct {
	transport *Transport
	client    kafka.Client

	logger logger.Logger
	tel    *streamotel.Telemetry
}

func newProducer(t *Transport, opts ...ProducerOption) *Producer {
	cfg := ProducerConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	l := cfg.Logger
	if l == nil {
		l = t.logger
	}

	return &Producer{
		transport: t,
		client:    t.client,
		logger:    l.With("component", "producer"),
		tel:       t.tel,
	}
}

// Send dispatches the record asynchronously and returns a handle that yields
// the send's outcome.
func (p *Producer) Send(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- p.send(ctx, topic, key, value, headers)
	}()

	return done
}

// SendAndWait dispatches the record and blocks until the backend confirms it.
func (p *Producer) SendAndWait(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	return p.send(ctx, topic, key, value, headers)
}

func (p *Producer) Flush(ctx context.Context) error {
	return p.client.Flush(ctx)
}

func (p *Producer) send(ctx context.Context, topic string, key, value []byte, headers []kafka.Header) error {
	start := time.Now()
	ctx, span := p.tel.Tracer.Start(
		ctx, topic+" send",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationTypeSend,
			semconv.MessagingDestinationName(topic),
		),
	)
	defer span.End()

	carrier := streamotel.NewKafkaHeadersCarrier(&headers)
	p.tel.Propagator.Inject(ctx, carrier)

	err := p.client.Send(ctx, topic, key, value, headers)

	p.tel.ProduceDuration.Record(
		ctx, time.Since(start).Seconds(),
		metric.WithAttributes(semconv.MessagingDestinationName(topic)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error("send failed", "topic", topic, "error", err)
		return err
	}

	p.tel.MessagesProduced.Add(
		ctx, 1, metric.WithAttributes(semconv.MessagingDestinationName(topic)),
	)

	return nil
}
