package streamtable_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hugolhafner/streamtable"
	"github.com/stretchr/testify/require"
)

func TestIsDecodeError(t *testing.T) {
	t.Parallel()
	cause := errors.New("unexpected end of input")

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "key decode", err: &streamtable.KeyDecodeError{Err: cause}, want: true},
		{name: "value decode", err: &streamtable.ValueDecodeError{Err: cause}, want: true},
		{
			name: "wrapped key decode",
			err:  fmt.Errorf("handling message: %w", &streamtable.KeyDecodeError{Err: cause}),
			want: true,
		},
		{name: "plain error", err: cause, want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				t.Parallel()
				require.Equal(t, tt.want, streamtable.IsDecodeError(tt.err))
			},
		)
	}
}

func TestDecodeErrorsUnwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("bad bytes")

	require.ErrorIs(t, &streamtable.KeyDecodeError{Err: cause}, cause)
	require.ErrorIs(t, &streamtable.ValueDecodeError{Err: cause}, cause)
}
