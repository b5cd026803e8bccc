package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func TestNewFormats(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("debug", "json", &buf)
	require.NoError(t, err)

	logger.Debug("hello", slog.String("k", "v"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "hello", entry["msg"])
	require.Equal(t, "v", entry["k"])

	_, err = New("info", "xml", &buf)
	require.Error(t, err)
	_, err = New("loud", "text", &buf)
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	require.Equal(t, slog.Default(), FromContext(context.Background()))

	logger := Discard()
	ctx := WithLogger(context.Background(), logger)
	require.Same(t, logger, FromContext(ctx))
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	require.Equal(t, "req-1", RequestIDFromContext(ctx))
	require.Empty(t, RequestIDFromContext(context.Background()))
}

func TestStartSpanNests(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("debug", "text", &buf)
	require.NoError(t, err)
	ctx := WithLogger(context.Background(), logger)

	ctx, parent := StartSpan(ctx, "feed.load")
	traceID := TraceIDFromContext(ctx)
	parentID := SpanIDFromContext(ctx)
	require.NotEmpty(t, traceID)
	require.NotEmpty(t, parentID)

	childCtx, child := StartSpan(ctx, "api.request")
	require.Equal(t, traceID, TraceIDFromContext(childCtx))
	require.NotEqual(t, parentID, SpanIDFromContext(childCtx))
	require.Equal(t, "api.request", child.Name())

	child.End(errors.New("boom"))
	parent.End(nil)

	out := buf.String()
	require.True(t, strings.Contains(out, "parent_span_id="+parentID))
	require.Contains(t, out, "span failed")
	require.Contains(t, out, "span completed")
}
