package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		" Warn": zapcore.WarnLevel,
		"dpanic": zapcore.DPanicLevel,
		"panic": zapcore.PanicLevel,
		"fatal": zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	lvl, ok := ParseLogLevel("unknown")
	require.False(t, ok)
	require.Equal(t, zapcore.InfoLevel, lvl)
}

// TestNew_UsesLevel checks the level filter of created loggers.
func TestNew_UsesLevel(t *testing.T) {
	t.Parallel()

	core := New(zapcore.WarnLevel).Desugar().Core()
	require.False(t, core.Enabled(zapcore.InfoLevel))
	require.True(t, core.Enabled(zapcore.WarnLevel))

	require.Equal(t, Level().Enabled(zapcore.DebugLevel), New(nil).Desugar().Core().Enabled(zapcore.DebugLevel))
}

// TestWithLevel lets a component log below the level of its base core.
func TestWithLevel(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	base.Debug("dropped")
	base.WithOptions(WithLevel(zapcore.DebugLevel)).With(zap.String("component", "paho")).Debug("kept")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "kept", entries[0].Message)
	require.Equal(t, "paho", entries[0].ContextMap()["component"])
}

// TestWriter forwards written lines to the context logger.
func TestWriter(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	w := Writer(ctx, zapcore.InfoLevel)
	_, err := w.Write([]byte("GET /healthz 200\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.Equal(t, 1, logs.FilterMessage("GET /healthz 200").Len())
}

// TestStdLogger bridges standard library loggers at a fixed level.
func TestStdLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	StdLogger(ctx, zapcore.WarnLevel, false).Print("ping timeout")
	StdLogger(ctx, zapcore.DebugLevel, false).Print("filtered")
	StdLogger(ctx, zapcore.DebugLevel, true).Print("forced")

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
	require.Equal(t, "ping timeout", entries[0].Message)
	require.Equal(t, zapcore.DebugLevel, entries[1].Level)
	require.Equal(t, "forced", entries[1].Message)
}
