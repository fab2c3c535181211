package logging_test

import (
	"testing"

	"github.com/garagon/tatu/internal/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	debug, err := logging.New(true)
	require.NoError(t, err)
	require.True(t, debug.Desugar().Core().Enabled(zapcore.DebugLevel))

	quiet, err := logging.New(false)
	require.NoError(t, err)
	require.False(t, quiet.Desugar().Core().Enabled(zapcore.InfoLevel))
	require.True(t, quiet.Desugar().Core().Enabled(zapcore.WarnLevel))
}

func TestNop(t *testing.T) {
	l := logging.Nop()
	l.Warnw("discarded", "key", "value")
	require.False(t, l.Desugar().Core().Enabled(zapcore.ErrorLevel))
}
