// Package qlog provides structured logging for the quad store using zerolog.
package qlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the package-level logger instance, configured once via Init.
var Logger zerolog.Logger

// Level represents a logging severity threshold.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger. Safe to call multiple times; the last
// call wins. Packages that need a logger before Init runs get zerolog's
// no-op default (an empty zerolog.Logger discards all events).
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent returns a child logger tagging events with a component name
// (e.g. "pager", "index", "planner").
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithStore returns a child logger tagging events with a store name, for use
// by the store pool and store lifecycle events.
func WithStore(name string) zerolog.Logger {
	return Logger.With().Str("store", name).Logger()
}

// WithTxn returns a child logger tagging events with a write-transaction id.
func WithTxn(txnID uint64) zerolog.Logger {
	return Logger.With().Uint64("txn_id", txnID).Logger()
}

// WithQuery returns a child logger tagging events with a query correlation id.
func WithQuery(queryID string) zerolog.Logger {
	return Logger.With().Str("query_id", queryID).Logger()
}
