package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the process-wide zerolog logger: human-readable
// console output when stdout is a terminal, JSON lines otherwise, and an
// append-mode tee to logPath when one is configured.
func InitLogger(logPath, level string) {
	zerolog.SetGlobalLevel(logLevel(level))
	zerolog.DurationFieldUnit = time.Millisecond

	var console io.Writer = os.Stdout
	if isatty.IsTerminal(os.Stdout.Fd()) {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	sinks := []io.Writer{console}
	if logPath != "" {
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			sinks = append(sinks, f)
		} else {
			log.Warn().Err(err).Str("path", logPath).Msg("observability: log file unavailable, writing to stdout only")
		}
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(sinks...)).With().Timestamp().Logger()
}

func logLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
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
