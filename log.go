package influxrel

import (
	"os"

	"github.com/rs/zerolog"
)

// logger is the package-level logger. It only speaks on degraded paths
// (read-side timestamp passthrough, unknown scope names), so the default
// stderr sink is fine for most embedders.
var logger = zerolog.New(os.Stderr).With().Timestamp().Str("component", "influxrel").Logger()

// SetLogger replaces the package-level logger.
func SetLogger(l zerolog.Logger) {
	logger = l
}
