package logger

import (
	"context"
	"io"
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"
)

// Writer returns an io.Writer that logs every written line at the given level
// using the logger from ctx. Close the writer to flush a trailing partial line.
func Writer(ctx context.Context, level zapcore.Level) io.WriteCloser {
	//nolint:exhaustruct // Defaults are fine for the remaining fields.
	return &zapio.Writer{
		Log:   FromContext(ctx).Desugar(),
		Level: level,
	}
}

// StdLogger returns a standard library logger that writes at level through the
// logger from ctx. When force is set, the entries bypass the global level.
func StdLogger(ctx context.Context, level zapcore.Level, force bool) *log.Logger {
	base := FromContext(ctx).Desugar()
	if force {
		base = base.WithOptions(WithLevel(level))
	}

	stdLogger, err := zap.NewStdLogAt(base, level)
	if err != nil {
		// Only invalid levels fail; fall back to the info level bridge.
		return zap.NewStdLog(base)
	}

	return stdLogger
}
