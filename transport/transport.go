// Package transport binds a backend client to an application and constructs
// the consumers and producers that share it. Consumers decode raw messages,
// dispatch them sequentially to a callback, and commit the highest safely
// resumable offset on a fixed interval.
package transport

import (
	"fmt"

	"github.com/hugolhafner/streamtable"
	"github.com/hugolhafner/streamtable/kafka"
	"github.com/hugolhafner/streamtable/logger"
	"github.com/hugolhafner/streamtable/otel"
)

// Transport is the sole factory for Consumer and Producer instances of one
// application. It owns no lifecycle: constructed consumers are not started.
type Transport struct {
	client kafka.Client
	app    *streamtable.App

	logger logger.Logger
	tel    *otel.Telemetry
}

// New binds an already-connected backend client to an application. A nil app
// gets the defaults.
func New(client kafka.Client, app *streamtable.App) *Transport {
	if app == nil {
		app = streamtable.New()
	}

	return &Transport{
		client: client,
		app:    app,
		logger: app.Logger,
		tel:    app.Telemetry,
	}
}

// Connect dials the backend at url and binds it to app.
func Connect(url string, app *streamtable.App, opts ...kafka.KgoOption) (*Transport, error) {
	if app == nil {
		app = streamtable.New()
	}

	opts = append([]kafka.KgoOption{kafka.WithLogger(app.Logger)}, opts...)
	client, err := kafka.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect transport: %w", err)
	}

	return New(client, app), nil
}

// CreateConsumer constructs a Consumer bound to this transport. The consumer
// is not started; call Run on it.
func (t *Transport) CreateConsumer(
	topic streamtable.Topic, callback Callback, opts ...ConsumerOption,
) (*Consumer, error) {
	return newConsumer(t, topic, callback, opts...)
}

// CreateProducer constructs a Producer bound to this transport.
func (t *Transport) CreateProducer(opts ...ProducerOption) *Producer {
	return newProducer(t, opts...)
}

func (t *Transport) App() *streamtable.App {
	return t.app
}

func (t *Transport) Client() kafka.Client {
	return t.client
}
