package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "", GraphID(ctx))
	assert.Equal(t, "", NodeID(ctx))
	assert.Equal(t, "", SessionID(ctx))

	ctx = WithGraphID(ctx, "g-123")
	ctx = WithNodeID(ctx, "n-1")
	ctx = WithSessionID(ctx, "sess-42")

	assert.Equal(t, "g-123", GraphID(ctx))
	assert.Equal(t, "n-1", NodeID(ctx))
	assert.Equal(t, "sess-42", SessionID(ctx))
}

func TestLogWith(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithSessionID(WithNodeID(WithGraphID(context.Background(), "g-abc"), "n-x"), "sess-7")
	LogWith(ctx, logger).Info("test message")

	output := buf.String()
	assert.Contains(t, output, "graph_id=g-abc")
	assert.Contains(t, output, "node_id=n-x")
	assert.Contains(t, output, "session_id=sess-7")
	assert.Contains(t, output, "test message")
}

func TestLogWithMissingKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	LogWith(WithGraphID(context.Background(), "g-only"), logger).Info("partial context")

	output := buf.String()
	assert.Contains(t, output, "graph_id=g-only")
	assert.NotContains(t, output, "node_id")
	assert.NotContains(t, output, "session_id")
}

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	ctx := WithNodeID(WithSessionID(context.Background(), "sess-auto"), "n-auto")
	logger.InfoContext(ctx, "auto inject")

	output := buf.String()
	assert.Contains(t, output, `"session_id":"sess-auto"`)
	assert.Contains(t, output, `"node_id":"n-auto"`)
	assert.NotContains(t, output, "graph_id")
}

func TestCorrelationHandlerEmptyContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewJSONHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "bare log")

	output := buf.String()
	assert.NotContains(t, output, "graph_id")
	assert.NotContains(t, output, "session_id")
	assert.Contains(t, output, "bare log")
}

func TestCorrelationHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	handler := NewCorrelationHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler.WithAttrs([]slog.Attr{slog.String("component", "store")}))

	logger.InfoContext(WithGraphID(context.Background(), "g-attr"), "with attrs")
	assert.Contains(t, buf.String(), `"graph_id":"g-attr"`)
	assert.Contains(t, buf.String(), `"component":"store"`)

	buf.Reset()
	slog.New(handler.WithGroup("interact")).InfoContext(WithGraphID(context.Background(), "g-grp"), "grouped", "key", "val")
	assert.Contains(t, buf.String(), "g-grp")
	assert.Contains(t, buf.String(), "grouped")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)

	logger.InfoContext(context.Background(), "hidden")
	logger.WarnContext(WithSessionID(context.Background(), "s1"), "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"session_id":"s1"`)

	Discard().Info("nowhere")
}
