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

func TestContextAttrsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	handler, err := NewHandler(&buf, &Config{Encoding: "json", Level: "debug"})
	require.NoError(t, err)
	log := slog.New(handler)

	ctx := WithContextAttrs(context.Background(), slog.String("request_id", "req-1"))
	ctx = WithContextAttrs(ctx, slog.String("user_id", "u-1"))
	log.InfoContext(ctx, "spend", "amount", 2)

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, "u-1", record["user_id"])
	assert.Equal(t, float64(2), record["amount"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	handler, err := NewHandler(&buf, &Config{Encoding: "console", Level: "warn"})
	require.NoError(t, err)
	log := slog.New(handler)

	log.Info("hidden")
	assert.Empty(t, buf.String())
	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestInvalidConfig(t *testing.T) {
	_, err := NewHandler(&bytes.Buffer{}, &Config{Encoding: "xml"})
	assert.Error(t, err)
	_, err = NewHandler(&bytes.Buffer{}, &Config{Level: "loud"})
	assert.Error(t, err)
}
