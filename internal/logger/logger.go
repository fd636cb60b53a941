// Package logger builds the zap logger shared by the CLI and the HTTP server.
package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with request and component scoping.
type Logger struct {
	*zap.Logger
}

// Config selects level and encoding.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	// Output defaults to stderr so scan results on stdout stay parseable.
	Output io.Writer
}

// New creates a logger from cfg. An empty level means info.
func New(cfg Config) (*Logger, error) {
	lvl := strings.TrimSpace(cfg.Level)
	if lvl == "" {
		lvl = "info"
	}
	level, err := zapcore.ParseLevel(lvl)
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(ec)
	} else {
		ec := zap.NewProductionEncoderConfig()
		ec.TimeKey = "timestamp"
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(ec)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)
	return &Logger{Logger: zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger { return &Logger{Logger: zap.NewNop()} }

// WithRequestID adds a request ID to the logger context.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("request_id", requestID))}
}

// WithComponent adds a component name to the logger context.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("component", component))}
}
