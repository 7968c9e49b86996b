package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	lgr := FromZap(zap.New(core))

	lgr.Info("order_synced", "Orders synced", "req-1", map[string]interface{}{"count": 2})
	lgr.Error("fetch_failed", "Fetch failed", "", nil, errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "Orders synced", entries[0].Message)
	assert.Equal(t, "order_synced", first["action"])
	assert.Equal(t, "req-1", first["request_id"])
	assert.Equal(t, map[string]interface{}{"count": 2}, first["details"])

	second := entries[1].ContextMap()
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", second["error"])
	_, hasRequestID := second["request_id"]
	assert.False(t, hasRequestID)
}

func TestZapLogger_LevelFilter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	lgr := FromZap(zap.New(core))

	lgr.Debug("noise", "dropped", "", nil)
	lgr.Warn("slow_poll", "kept", "", nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}

func TestNewNop(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNop().Error("x", "y", "", nil, errors.New("z"))
	})
	assert.NoError(t, Sync(NewNop()))
}
