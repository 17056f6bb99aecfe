// Package delay is the root of a scheduled transaction engine for replicated
// ledgers. It holds the global logger and the list of metric collectors that
// the packages register.
package delay

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance.
var Logger = zerolog.New(logout).
	With().Timestamp().Logger().
	With().Caller().Logger().
	Level(zerolog.InfoLevel)

// PromCollectors exposes the Prometheus collectors created in the packages so
// that a single endpoint can register them.
var PromCollectors []prometheus.Collector
