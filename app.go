package streamtable

import (
	"time"

	"github.com/hugolhafner/streamtable/logger"
	"github.com/hugolhafner/streamtable/otel"
	"github.com/hugolhafner/streamtable/serde"
)

// App carries application-level defaults shared by every consumer, producer
// and table created under one transport. Topic-level settings override them.
type App struct {
	// KeySerializer is the default key codec id. Empty means keys pass
	// through as raw bytes.
	KeySerializer string

	// ValueSerializer is the default value codec id.
	ValueSerializer string

	// CommitInterval is how often each consumer's commit loop wakes.
	CommitInterval time.Duration

	Logger    logger.Logger
	Telemetry *otel.Telemetry
	Registry  *serde.Registry
}

type Option func(*App)

func WithKeySerializer(codec string) Option {
	return func(a *App) {
		a.KeySerializer = codec
	}
}

func WithValueSerializer(codec string) Option {
	return func(a *App) {
		a.ValueSerializer = codec
	}
}

func WithCommitInterval(d time.Duration) Option {
	return func(a *App) {
		a.CommitInterval = d
	}
}

func WithLogger(l logger.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

func WithTelemetry(t *otel.Telemetry) Option {
	return func(a *App) {
		a.Telemetry = t
	}
}

func WithRegistry(r *serde.Registry) Option {
	return func(a *App) {
		a.Registry = r
	}
}

func New(opts ...Option) *App {
	app := &App{
		ValueSerializer: "json",
		CommitInterval:  5 * time.Second,
		Logger:          logger.NewNoopLogger(),
		Telemetry:       otel.Noop(),
		Registry:        serde.Default(),
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}
