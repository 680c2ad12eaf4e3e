// Package logging provides structured logging via zerolog. The gateway
// logs one line per completion attempt plus warnings for degraded
// bookkeeping paths, so everything funnels through a single process-wide
// logger configured at startup.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger.
var Logger zerolog.Logger

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level to emit, e.g. "debug" or "warn".
	Level string
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Pretty enables human-readable console output.
	Pretty bool
}

// Init configures the process-wide logger.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339

	output := cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: time.RFC3339,
		}
	}

	Logger = zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel parses a case-insensitive level name. Unrecognized values
// fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component returns a child logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// Debug starts a debug level log message.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Info starts an info level log message.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Warn starts a warn level log message.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Error starts an error level log message.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Fatal starts a fatal level log message. Msg or Send on the returned
// event exits the process.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

func init() {
	Init(Config{})
}
