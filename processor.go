package streamtable

import "context"

// Processor transforms one input into exactly one output. This is the only
// shape a Table accepts: its store records one value per key per message.
type Processor interface {
	Process(ctx context.Context, key, value any) (any, error)
}

type ProcessorFunc func(ctx context.Context, key, value any) (any, error)

func (f ProcessorFunc) Process(ctx context.Context, key, value any) (any, error) {
	return f(ctx, key, value)
}

// Identity returns the value unchanged.
func Identity() Processor {
	return ProcessorFunc(
		func(_ context.Context, _, value any) (any, error) {
			return value, nil
		},
	)
}

// KV is one output of an Expander.
type KV struct {
	Key   any
	Value any
}

// Expander transforms one input into zero or more outputs. Legal for plain
// streams, rejected by Table construction.
type Expander interface {
	Expand(ctx context.Context, key, value any) ([]KV, error)
}

type ExpanderFunc func(ctx context.Context, key, value any) ([]KV, error)

func (f ExpanderFunc) Expand(ctx context.Context, key, value any) ([]KV, error) {
	return f(ctx, key, value)
}
