// Package logging configures the global zerolog logger for every binary.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Environment variables read by Init.
const (
	LevelEnv  = "MARKETING_LOG_LEVEL"
	FormatEnv = "MARKETING_LOG_FORMAT"
)

// Init sets the global level from MARKETING_LOG_LEVEL (debug, info, warn,
// error; default info) and routes output to stderr. MARKETING_LOG_FORMAT=json
// keeps raw JSON lines, otherwise a console writer is used.
func Init() {
	InitWriter(os.Stderr)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer) {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv(LevelEnv)))

	if strings.EqualFold(os.Getenv(FormatEnv), "json") {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
