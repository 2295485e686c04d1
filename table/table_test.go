package table_test

import (
	"context"
	"testing"

	"github.com/hugolhafner/streamtable"
	"github.com/hugolhafner/streamtable/kafka"
	mockkafka "github.com/hugolhafner/streamtable/kafka/mock"
	"github.com/hugolhafner/streamtable/table"
	"github.com/hugolhafner/streamtable/transport"
	"github.com/stretchr/testify/require"
)

// fanOutProcessor can expand as well as process: illegal for tables.
type fanOutProcessor struct{}

func (fanOutProcessor) Process(_ context.Context, _, value any) (any, error) {
	return value, nil
}

func (fanOutProcessor) Expand(_ context.Context, key, value any) ([]streamtable.KV, error) {
	return []streamtable.KV{{Key: key, Value: value}}, nil
}

func newTestTable(t *testing.T, processor streamtable.Processor) (*table.Table, error) {
	t.Helper()
	tr := transport.New(mockkafka.NewClient(), streamtable.New(streamtable.WithKeySerializer("string")))
	return table.New(tr, streamtable.Topic{Topics: []string{"counts"}}, processor)
}

func feed(t *testing.T, tbl *table.Table, key, value string) {
	t.Helper()
	require.NoError(
		t, tbl.Consumer().OnMessage(
			context.Background(), kafka.Message{
				Topic: "counts",
				Key:   []byte(key),
				Value: []byte(value),
			},
		),
	)
}

func TestNew_RejectsNilProcessor(t *testing.T) {
	t.Parallel()
	_, err := newTestTable(t, nil)
	require.ErrorIs(t, err, streamtable.ErrConfiguration)
}

func TestNew_RejectsFanOutProcessor(t *testing.T) {
	t.Parallel()
	_, err := newTestTable(t, fanOutProcessor{})
	require.ErrorIs(t, err, streamtable.ErrConfiguration)
}

func TestTable_RawByteKeys(t *testing.T) {
	t.Parallel()
	// no key serializer anywhere: the consumer hands the table []byte keys
	tr := transport.New(mockkafka.NewClient(), streamtable.New())
	tbl, err := table.New(tr, streamtable.Topic{Topics: []string{"counts"}}, streamtable.Identity())
	require.NoError(t, err)

	feed(t, tbl, "a", `1`)

	got, err := tbl.Get("a")
	require.NoError(t, err)
	require.Equal(t, float64(1), got)

	got, err = tbl.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, float64(1), got)

	require.NoError(t, tbl.Delete([]byte("a")))
	_, err = tbl.Get("a")
	require.ErrorIs(t, err, table.ErrKeyNotFound)
}

func TestTable_MaterializesChangelog(t *testing.T) {
	t.Parallel()
	tbl, err := newTestTable(t, streamtable.Identity())
	require.NoError(t, err)

	feed(t, tbl, "a", `1`)
	feed(t, tbl, "b", `2`)
	feed(t, tbl, "a", `3`)

	got, err := tbl.Get("a")
	require.NoError(t, err)
	require.Equal(t, float64(3), got)

	got, err = tbl.Get("b")
	require.NoError(t, err)
	require.Equal(t, float64(2), got)

	require.Equal(t, 2, tbl.Len())
}

func TestTable_ChangelogOverwritesDirectWrite(t *testing.T) {
	t.Parallel()
	tbl, err := newTestTable(t, streamtable.Identity())
	require.NoError(t, err)

	tbl.Set("a", 1)
	feed(t, tbl, "a", `2`)

	got, err := tbl.Get("a")
	require.NoError(t, err)
	require.Equal(t, float64(2), got)
}

func TestTable_ProcessorDerivesStoredValue(t *testing.T) {
	t.Parallel()
	double := streamtable.ProcessorFunc(
		func(_ context.Context, _, value any) (any, error) {
			return value.(float64) * 2, nil
		},
	)

	tbl, err := newTestTable(t, double)
	require.NoError(t, err)

	feed(t, tbl, "a", `21`)

	got, err := tbl.Get("a")
	require.NoError(t, err)
	require.Equal(t, float64(42), got)
}

func TestTable_GetMissingKey(t *testing.T) {
	t.Parallel()
	tbl, err := newTestTable(t, streamtable.Identity())
	require.NoError(t, err)

	_, err = tbl.Get("missing")
	require.ErrorIs(t, err, table.ErrKeyNotFound)
}

func TestTable_Delete(t *testing.T) {
	t.Parallel()
	tbl, err := newTestTable(t, streamtable.Identity())
	require.NoError(t, err)

	tbl.Set("a", 1)
	require.NoError(t, tbl.Delete("a"))

	_, err = tbl.Get("a")
	require.ErrorIs(t, err, table.ErrKeyNotFound)
	require.ErrorIs(t, tbl.Delete("a"), table.ErrKeyNotFound)
}

func TestTable_SnapshotIsACopy(t *testing.T) {
	t.Parallel()
	tbl, err := newTestTable(t, streamtable.Identity())
	require.NoError(t, err)

	tbl.Set("a", 1)

	snap := tbl.Snapshot()
	snap["a"] = 99
	snap["b"] = 2

	got, err := tbl.Get("a")
	require.NoError(t, err)
	require.Equal(t, 1, got)
	require.Equal(t, 1, tbl.Len())
}

func TestTable_ProcessorErrorPropagates(t *testing.T) {
	t.Parallel()
	failing := streamtable.ProcessorFunc(
		func(_ context.Context, _, _ any) (any, error) {
			return nil, context.DeadlineExceeded
		},
	)

	tbl, err := newTestTable(t, failing)
	require.NoError(t, err)

	err = tbl.Consumer().OnMessage(
		context.Background(), kafka.Message{
			Topic: "counts",
			Key:   []byte("a"),
			Value: []byte(`1`),
		},
	)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 0, tbl.Len(), "a failed fold must not touch the store")
}
