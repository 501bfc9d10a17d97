// Package log provides the process wide zap setup and the structured fields
// shared by replication components.
package log

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu sync.Mutex
	// where logs go by default.
	logWriter io.Writer = os.Stdout
	encoder             = zap.NewDevelopmentEncoderConfig()
	jsonLog             = false
)

// JSONLog turns JSON format on or off for loggers created after the call.
func JSONLog(b bool) {
	mu.Lock()
	defer mu.Unlock()
	jsonLog = b
	if b {
		encoder = zap.NewProductionEncoderConfig()
		encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		encoder = zap.NewDevelopmentEncoderConfig()
	}
}

// SetWriter overwrites the destination of loggers created after the call.
// A nil writer restores stdout.
func SetWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	logWriter = w
}

func newEncoder() zapcore.Encoder {
	if jsonLog {
		return zapcore.NewJSONEncoder(encoder)
	}
	return zapcore.NewConsoleEncoder(encoder)
}

// NewWithLevel creates a logger with a fixed level and with a set of (optional) hooks.
func NewWithLevel(module string, level zap.AtomicLevel, hooks ...func(zapcore.Entry) error) *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	core := zapcore.NewCore(newEncoder(), zapcore.AddSync(logWriter), level)
	return zap.New(zapcore.RegisterHooks(core, hooks...)).Named(module)
}

// ParseLevel parses a textual level ("debug", "info", ...) into an atomic level.
func ParseLevel(text string) (zap.AtomicLevel, error) {
	return zap.ParseAtomicLevel(text)
}
