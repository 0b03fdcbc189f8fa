package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is the global logger instance. It starts at info level on stdout
// and can be reconfigured with Init once flags are parsed.
var Logger zerolog.Logger

func init() {
	Logger = zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = Logger
}

// Init reconfigures the global logger with the given level and,
// optionally, human-readable console output.
func Init(level string, pretty bool) {
	var zlLevel zerolog.Level
	switch strings.ToLower(level) {
	case "debug":
		zlLevel = zerolog.DebugLevel
	case "warn", "warning":
		zlLevel = zerolog.WarnLevel
	case "error":
		zlLevel = zerolog.ErrorLevel
	default:
		zlLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(zlLevel)

	var output io.Writer = os.Stdout
	if pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	Logger = zerolog.New(output).
		With().
		Timestamp().
		Logger()
	log.Logger = Logger
}

// Get returns the global logger instance.
func Get() *zerolog.Logger {
	return &Logger
}

// WithComponent returns a logger with a component field set.
func WithComponent(component string) *zerolog.Logger {
	l := Logger.With().Str("component", component).Logger()
	return &l
}

// SetOutput redirects the global logger to w. Tests use this to capture
// log output; production code never calls it.
func SetOutput(w io.Writer) {
	Logger = zerolog.New(w).With().Timestamp().Logger()
	log.Logger = Logger
}
