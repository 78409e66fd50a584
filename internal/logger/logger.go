package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log is a no-op until Init is called.
var Log = zerolog.Nop()

func Init(logFilePath, level string) error {
	var out io.Writer
	if strings.TrimSpace(logFilePath) == "" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	} else {
		file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			return err
		}
		out = file
	}

	Log = zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()
	Log.Info().Msg("Logger initialized.")
	return nil
}

// ParseLevel falls back to info for empty or unknown input.
func ParseLevel(raw string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
