package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrom_MissingLogger_FallsBackToDefault(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.Default(), From(context.Background()))
}

func TestInto_And_From_RoundTrip(t *testing.T) {
	t.Parallel()

	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := Into(context.Background(), l)

	require.Same(t, l, From(ctx))
}

func TestWith_EnrichesLoggerAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := Into(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
	ctx = With(ctx, slog.String("request_id", "req-1"))

	From(ctx).Info("hello")
	require.Contains(t, buf.String(), "request_id=req-1")
}
