// Package tracelog configures the structured diagnostic logging
// channel used inside the Device Adapter, the Locator Store & Resolver
// and the Test Orchestrator — the granularity the original engine covered with the
// `tracing` crate, here backed by zerolog.
package tracelog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger. levelName is one of
// "debug", "info", "warn", "error"; pretty selects a human-readable
// console writer instead of newline-delimited JSON (config.Defaults
// turns it on; set log_pretty to false for CI/automation).
func Setup(levelName string, pretty bool, out io.Writer) error {
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return err
	}
	if out == nil {
		out = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339
	var writer io.Writer = out
	if pretty {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	log.Logger = zerolog.New(writer).With().Timestamp().Logger().Level(level)
	return nil
}
