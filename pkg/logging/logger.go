// Package logging configures structured zerolog output for the scraper.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs every page fetch and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs scrape summaries and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs capacity limits and request errors.
	LevelWarn LogLevel = "warn"

	// LevelError logs failed scrapes only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr). Items go
	// to stdout, so logs must not.
	Output io.Writer

	// Fields are attached to every entry, e.g. {"app": "hn-scraper"}.
	Fields map[string]string
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	ctx := zerolog.New(output).With().Timestamp()
	for key, value := range cfg.Fields {
		ctx = ctx.Str(key, value)
	}
	logger := ctx.Logger()

	log.Logger = logger
	return logger
}

// ParseLevel validates a user supplied level name.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
	}
}

// parseLevel converts LogLevel to zerolog.Level, defaulting to info.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug:
//   - Every page request (tag, page, numeric filters, timeout)
//   - Every page received (hits, nbHits, nbPages, duration)
//   - Checkpoint reads and writes
//
// Info:
//   - Scrape finished (kind, items, pages)
//   - Checkpoint advanced by the CLI
//
// Warn:
//   - Search API returned an HTTP error
//   - Pagination limit reached (window too wide)
//
// Error:
//   - Network failures and timeouts
//   - Scrape aborted
//
// Context Fields:
//   - component: hn-scraper, algolia-client, checkpoint, cli
//   - tag: story or comment
//   - page: zero-based page number
//   - since / until: window bounds (unix seconds)
//   - error_class: client, server, network, timeout, invalid_response
