package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWriterJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, "warn", "json")

	ctx := WithRequestID(context.Background(), "abc123")
	FromContext(ctx).Info("dropped")
	FromContext(ctx).Warn("kept", "query", "cat")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "abc123", entry["request_id"])
	assert.Equal(t, "cat", entry["query"])
}

func TestWithComponent(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, "debug", "text")
	WithComponent("query-cache").Debug("cache hit")
	assert.Contains(t, buf.String(), "component=query-cache")
	assert.Empty(t, RequestIDFromContext(context.Background()))
}
