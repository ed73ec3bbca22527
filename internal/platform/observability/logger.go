package observability

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hrportfolio.dev/web/internal/platform/requestctx"
)

// LoggerSettings selects the level, encoding and sinks of NewLoggerWith.
type LoggerSettings struct {
	Service string
	// Level is a zap level name; unknown or empty values mean info.
	Level string
	// Format is "json" (default) or "console".
	Format  string
	Outputs []string
}

// NewLogger builds the process logger for service from LOG_LEVEL and LOG_FORMAT.
func NewLogger(service string) (*zap.Logger, error) {
	return NewLoggerWith(LoggerSettings{
		Service: service,
		Level:   os.Getenv("LOG_LEVEL"),
		Format:  os.Getenv("LOG_FORMAT"),
	})
}

// NewLoggerWith builds a logger with severity/message/timestamp keys understood by Cloud
// Logging. Every entry carries the service name.
func NewLoggerWith(s LoggerSettings) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(s.Level))
	if err != nil || strings.TrimSpace(s.Level) == "" {
		level = zapcore.InfoLevel
	}

	encoding := strings.ToLower(strings.TrimSpace(s.Format))
	switch encoding {
	case "", "json":
		encoding = "json"
	case "console":
	default:
		return nil, fmt.Errorf("observability: unknown log format %q", s.Format)
	}

	outputs := s.Outputs
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	enc := zapcore.EncoderConfig{
		MessageKey:     "message",
		TimeKey:        "timestamp",
		LevelKey:       "severity",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		NameKey:        "logger",
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	if encoding == "console" {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Encoding:          encoding,
		EncoderConfig:     enc,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}
	if s.Service != "" {
		cfg.InitialFields = map[string]any{"service": s.Service}
	}
	return cfg.Build()
}

// WithLogger injects the logger into the provided context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return requestctx.WithLogger(ctx, logger)
}

// FromContext retrieves the logger from context, defaulting to a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	return requestctx.Logger(ctx)
}
