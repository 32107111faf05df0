package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := Wrap(zap.New(core))

	l.Debug("hidden", nil)
	l.Info("receipt saved", map[string]any{"rid": "OLY-AB12-CD34", "chain": "8453"})
	l.Error("settlement failed", map[string]any{"code": "FEE_TRANSFER_FAILED"})

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	assert.Equal(t, "receipt saved", entries[0].Message)
	assert.Equal(t, []string{"chain", "rid"}, []string{entries[0].Context[0].Key, entries[0].Context[1].Key})
	assert.Equal(t, "OLY-AB12-CD34", entries[0].ContextMap()["rid"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "FEE_TRANSFER_FAILED", entries[1].ContextMap()["code"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestNewZapLogger(t *testing.T) {
	l, err := NewZapLogger("warn", true)
	require.NoError(t, err)
	l.Info("dropped", nil)
	var _ Logger = l
}
