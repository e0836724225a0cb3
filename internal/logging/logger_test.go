package logging

import (
	"testing"

	"github.com/jakoblorz/go-projectdoc/internal/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := New(config.LoggingConfig{Level: "debug", Format: format})
		require.NoError(t, err)
		require.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	}

	logger, err := New(config.LoggingConfig{Level: "WARN", Format: "json"})
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = New(config.LoggingConfig{Level: "loud", Format: "json"})
	require.Error(t, err)
}

func TestNewTestLogger(t *testing.T) {
	logger, observed := NewTestLogger()
	logger.Warn("extension failed", zap.String("item", "abc"))

	entries := observed.FilterMessage("extension failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
	require.Equal(t, "abc", entries[0].ContextMap()["item"])
}

func TestOrNop(t *testing.T) {
	require.NotNil(t, OrNop(nil))

	logger := zap.NewExample()
	require.Same(t, logger, OrNop(logger))
}
