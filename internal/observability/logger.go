package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global logger and returns it.
// level is one of debug, info, warn, error; anything else means info.
func InitLogger(level string, pretty bool) zerolog.Logger {
	return initLogger(os.Stderr, level, pretty)
}

func initLogger(out io.Writer, level string, pretty bool) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(level))

	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// ParseLevel maps a config string onto a zerolog level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component returns a child logger tagged with the subsystem name. When debug
// is false the child never emits below info, so per-subsystem debug switches
// work independently of the global level.
func Component(parent zerolog.Logger, name string, debug bool) zerolog.Logger {
	l := parent.With().Str("component", name).Logger()
	if !debug {
		l = l.Level(zerolog.InfoLevel)
	}
	return l
}
