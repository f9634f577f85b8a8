// Package logging provides structured logging via zerolog, matching
// the density and conventions the rest of the corpus uses: one line per
// state transition or connection event, not per internal function call.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const sessionIDKey contextKey = "session_id"

const milliTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Init configures the global zerolog logger from environment variables:
// LOG_LEVEL (default "info") and DEV/DEV_MODE (console writer vs JSON).
func Init() {
	zerolog.TimeFieldFormat = milliTimeFormat
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }

	const callerWidth = 30
	zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
		path := fmt.Sprintf("%s:%d", filepath.Base(file), line)
		if len(path) >= callerWidth {
			return path[len(path)-callerWidth:]
		}
		return path + strings.Repeat(" ", callerWidth-len(path))
	}

	level, err := zerolog.ParseLevel(envOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout
	if isDevelopmentMode() {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: milliTimeFormat}
	}

	log.Logger = log.Output(output).With().Caller().Logger()
	log.Info().Str("level", level.String()).Msg("logger initialized")
}

func isDevelopmentMode() bool {
	return os.Getenv("DEV") == "true" || os.Getenv("DEV_MODE") == "true"
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Get returns the global logger.
func Get() zerolog.Logger { return log.Logger }

// WithSessionID returns a context carrying sessionID for later retrieval
// by ForSession, so log lines across a connection's lifetime correlate.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// ForSession returns a logger enriched with the session id from ctx, if any.
func ForSession(ctx context.Context) zerolog.Logger {
	id, _ := ctx.Value(sessionIDKey).(string)
	if id == "" {
		return log.Logger
	}
	return log.Logger.With().Str("session_id", id).Logger()
}
