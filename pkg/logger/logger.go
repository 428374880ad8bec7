package logger

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// The TUI owns the terminal, so log output defaults to a discard sink
// until SetOutput points it at the configured log file.
type Logger struct {
	mu     sync.RWMutex
	level  zerolog.Level
	writer io.Writer
}

var defaultLogger = &Logger{
	level:  zerolog.InfoLevel,
	writer: io.Discard,
}

func SetOutput(w io.Writer) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.writer = zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
}

func SetLogLevel(level string) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()

	switch strings.ToLower(level) {
	case "debug":
		defaultLogger.level = zerolog.DebugLevel
	case "info":
		defaultLogger.level = zerolog.InfoLevel
	case "warn", "warning":
		defaultLogger.level = zerolog.WarnLevel
	case "error":
		defaultLogger.level = zerolog.ErrorLevel
	case "fatal":
		defaultLogger.level = zerolog.FatalLevel
	default:
		defaultLogger.level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(defaultLogger.level)
}

func ComponentLogger(component string) zerolog.Logger {
	defaultLogger.mu.RLock()
	defer defaultLogger.mu.RUnlock()

	return zerolog.New(defaultLogger.writer).With().
		Timestamp().
		Str("component", component).
		Logger().Level(defaultLogger.level)
}

func SubLogger(base zerolog.Logger, fields map[string]string) zerolog.Logger {
	ctx := base.With()
	for k, v := range fields {
		ctx = ctx.Str(k, v)
	}
	return ctx.Logger()
}
