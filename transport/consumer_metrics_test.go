package transport_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hugolhafner/streamtable"
	"github.com/hugolhafner/streamtable/kafka"
	mockkafka "github.com/hugolhafner/streamtable/kafka/mock"
	streamotel "github.com/hugolhafner/streamtable/otel"
	"github.com/hugolhafner/streamtable/transport"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func consumedCount(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "messaging.consumer.messages" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestOnMessage_FailedDispatchNotCountedAsConsumed(t *testing.T) {
	t.Parallel()
	reader := sdkmetric.NewManualReader()
	tel, err := streamotel.NewTelemetry(
		nil, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), nil,
	)
	require.NoError(t, err)

	app := streamtable.New(streamtable.WithTelemetry(tel))
	tr := transport.New(mockkafka.NewClient(), app)

	boom := errors.New("boom")
	fail := true
	consumer, err := tr.CreateConsumer(
		streamtable.Topic{Topics: []string{"events"}},
		func(context.Context, streamtable.Topic, any, *transport.Event) error {
			if fail {
				return boom
			}
			return nil
		},
	)
	require.NoError(t, err)

	err = consumer.OnMessage(
		context.Background(), kafka.Message{Topic: "events", Value: []byte(`1`)},
	)
	require.ErrorIs(t, err, boom)
	require.Zero(t, consumedCount(t, reader), "a failed dispatch is not a consumed message")

	fail = false
	require.NoError(
		t, consumer.OnMessage(
			context.Background(), kafka.Message{Topic: "events", Offset: 1, Value: []byte(`2`)},
		),
	)
	require.Equal(t, int64(1), consumedCount(t, reader))
}
