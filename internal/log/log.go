// Package log provides structured logging for go-optcam.
// It wraps zerolog with sensible defaults for production use.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // "debug", "info", "warn", "error"; falls back to LOG_LEVEL
	Output  io.Writer // defaults to os.Stdout
	JSON    bool      // force JSON output; GO_ENV=production implies it
	Service string    // attached to every entry
}

var (
	logger zerolog.Logger
	once   sync.Once
)

// New builds a logger from cfg without touching the global one.
func New(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	name := cfg.Level
	if name == "" {
		name = os.Getenv("LOG_LEVEL")
	}
	if name != "" {
		if parsed, err := zerolog.ParseLevel(name); err == nil {
			level = parsed
		}
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	// Use JSON in production, console output in development
	if !cfg.JSON && os.Getenv("GO_ENV") != "production" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: cfg.Output != nil}
	}

	service := cfg.Service
	if service == "" {
		service = "optcam"
	}

	return zerolog.New(out).Level(level).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// Configure initializes the global logger exactly once.
func Configure(cfg Config) {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		logger = New(cfg)
	})
}

// Init initializes the global logger with the specified level.
// Valid levels: "debug", "info", "warn", "error"
func Init(level string) {
	Configure(Config{Level: level})
}

// L returns the global logger instance.
func L() *zerolog.Logger {
	Configure(Config{})
	return &logger
}

// Debug logs at debug level. kv is a flat list of key/value pairs.
func Debug(msg string, kv ...any) {
	L().Debug().Fields(kv).Msg(msg)
}

// Info logs at info level.
func Info(msg string, kv ...any) {
	L().Info().Fields(kv).Msg(msg)
}

// Warn logs at warn level.
func Warn(msg string, kv ...any) {
	L().Warn().Fields(kv).Msg(msg)
}

// Error logs at error level.
func Error(msg string, kv ...any) {
	L().Error().Fields(kv).Msg(msg)
}

// With returns a child logger with the given key/value pairs attached.
func With(kv ...any) zerolog.Logger {
	return L().With().Fields(kv).Logger()
}

// WithComponent returns a child logger annotated with the component name.
func WithComponent(component string) zerolog.Logger {
	return L().With().Str(FieldComponent, component).Logger()
}
