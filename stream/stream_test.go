package stream_test

import (
	"context"
	"testing"

	"github.com/hugolhafner/streamtable"
	"github.com/hugolhafner/streamtable/kafka"
	mockkafka "github.com/hugolhafner/streamtable/kafka/mock"
	"github.com/hugolhafner/streamtable/stream"
	"github.com/hugolhafner/streamtable/transport"
	"github.com/stretchr/testify/require"
)

func newTestStream(
	t *testing.T, client *mockkafka.Client, opts ...stream.Option,
) (*stream.Stream, error) {
	t.Helper()
	tr := transport.New(client, streamtable.New(streamtable.WithKeySerializer("string")))
	return stream.New(tr, streamtable.Topic{Topics: []string{"in"}}, opts...)
}

func feed(t *testing.T, s *stream.Stream, key, value string) {
	t.Helper()
	require.NoError(
		t, s.Consumer().OnMessage(
			context.Background(), kafka.Message{
				Topic: "in",
				Key:   []byte(key),
				Value: []byte(value),
			},
		),
	)
}

func TestNew_RequiresExactlyOneTransform(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		opts []stream.Option
	}{
		{name: "neither"},
		{
			name: "both",
			opts: []stream.Option{
				stream.WithProcessor(streamtable.Identity()),
				stream.WithExpander(
					streamtable.ExpanderFunc(
						func(context.Context, any, any) ([]streamtable.KV, error) {
							return nil, nil
						},
					),
				),
			},
		},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				t.Parallel()
				_, err := newTestStream(t, mockkafka.NewClient(), tt.opts...)
				require.ErrorIs(t, err, streamtable.ErrConfiguration)
			},
		)
	}
}

func TestStream_ProcessorPublishesToSink(t *testing.T) {
	t.Parallel()
	client := mockkafka.NewClient()

	double := streamtable.ProcessorFunc(
		func(_ context.Context, _, value any) (any, error) {
			return value.(float64) * 2, nil
		},
	)

	s, err := newTestStream(t, client, stream.WithProcessor(double), stream.WithSink("out"))
	require.NoError(t, err)

	feed(t, s, "a", `21`)

	records := client.ProducedRecordsForTopic("out")
	require.Len(t, records, 1)
	require.Equal(t, []byte("a"), records[0].Key)
	require.JSONEq(t, `42`, string(records[0].Value))
}

func TestStream_TopicKeyCodecUsedForSink(t *testing.T) {
	t.Parallel()
	client := mockkafka.NewClient()
	tr := transport.New(client, streamtable.New()) // no app-level key codec

	s, err := stream.New(
		tr,
		streamtable.Topic{Topics: []string{"in"}, KeySerializer: "json"},
		stream.WithProcessor(streamtable.Identity()),
		stream.WithSink("out"),
	)
	require.NoError(t, err)

	// a json number key decodes to float64; only the topic codec can
	// re-encode it
	require.NoError(
		t, s.Consumer().OnMessage(
			context.Background(), kafka.Message{
				Topic: "in",
				Key:   []byte(`7`),
				Value: []byte(`1`),
			},
		),
	)

	records := client.ProducedRecordsForTopic("out")
	require.Len(t, records, 1)
	require.JSONEq(t, `7`, string(records[0].Key))
}

func TestStream_ExpanderFansOut(t *testing.T) {
	t.Parallel()
	client := mockkafka.NewClient()

	split := streamtable.ExpanderFunc(
		func(_ context.Context, key, value any) ([]streamtable.KV, error) {
			return []streamtable.KV{
				{Key: key, Value: value},
				{Key: key, Value: value},
			}, nil
		},
	)

	s, err := newTestStream(t, client, stream.WithExpander(split), stream.WithSink("out"))
	require.NoError(t, err)

	feed(t, s, "a", `7`)

	records := client.ProducedRecordsForTopic("out")
	require.Len(t, records, 2)
	for _, r := range records {
		require.Equal(t, []byte("a"), r.Key)
		require.JSONEq(t, `7`, string(r.Value))
	}
}

func TestStream_NoSinkDiscardsOutputs(t *testing.T) {
	t.Parallel()
	client := mockkafka.NewClient()

	var calls int
	counter := streamtable.ProcessorFunc(
		func(_ context.Context, _, value any) (any, error) {
			calls++
			return value, nil
		},
	)

	s, err := newTestStream(t, client, stream.WithProcessor(counter))
	require.NoError(t, err)

	feed(t, s, "a", `1`)

	require.Equal(t, 1, calls)
	require.Empty(t, client.ProducedRecords())
}

func TestStream_TransformErrorPropagates(t *testing.T) {
	t.Parallel()
	failing := streamtable.ProcessorFunc(
		func(_ context.Context, _, _ any) (any, error) {
			return nil, context.DeadlineExceeded
		},
	)

	s, err := newTestStream(t, mockkafka.NewClient(), stream.WithProcessor(failing))
	require.NoError(t, err)

	err = s.Consumer().OnMessage(
		context.Background(), kafka.Message{Topic: "in", Value: []byte(`1`)},
	)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
