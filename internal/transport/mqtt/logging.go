package mqtt

import (
	"context"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/air-alarm/internal/logger"
)

//nolint:gochecknoglobals // Paho loggers are package globals as well.
var loggingOnce sync.Once

// ConfigureLogging routes Paho's internal loggers to the application logger.
// Debug output is only enabled on request; it is very chatty.
func ConfigureLogging(ctx context.Context, debug bool) {
	loggingOnce.Do(func() {
		ctx = logger.WithName(ctx, "paho")

		paho.CRITICAL = logger.StdLogger(ctx, zapcore.ErrorLevel, false)
		paho.ERROR = logger.StdLogger(ctx, zapcore.ErrorLevel, false)
		paho.WARN = logger.StdLogger(ctx, zapcore.WarnLevel, false)

		if debug {
			paho.DEBUG = logger.StdLogger(ctx, zapcore.DebugLevel, true)
		}
	})
}
