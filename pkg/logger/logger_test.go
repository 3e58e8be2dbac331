package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestNewLogger_SinkUnavailable(t *testing.T) {
	t.Parallel()
	buf := &zaptest.Buffer{}
	sink := filepath.Join(t.TempDir(), "missing", "library.log")

	log := newLogger(Log{LogLevel: zapcore.InfoLevel, Sink: sink}, "library", buf)
	log.Info("started")

	lines := buf.Lines()
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "log sink unavailable")
	require.Contains(t, lines[0], sink)
	require.Contains(t, lines[1], "started")
}

func TestNewLogger_Sink(t *testing.T) {
	t.Parallel()
	buf := &zaptest.Buffer{}
	sink := filepath.Join(t.TempDir(), "library.log")

	log := newLogger(Log{LogLevel: zapcore.InfoLevel, Sink: sink}, "library", buf)
	log.Info("started")
	require.NoError(t, log.Sync())

	require.Len(t, buf.Lines(), 1)
	b, err := os.ReadFile(sink)
	require.NoError(t, err)
	require.Contains(t, string(b), `"msg":"started"`)
}

func TestNewLogger_Level(t *testing.T) {
	t.Parallel()
	buf := &zaptest.Buffer{}

	log := newLogger(Log{LogLevel: zapcore.WarnLevel}, "library", buf)
	log.Info("hidden")
	log.Warn("shown")

	lines := buf.Lines()
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], `"logger":"library"`)
}
