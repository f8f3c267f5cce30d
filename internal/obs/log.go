// Package obs provides the engine's structured logging, standing in for
// the ad hoc debug-header helper of earlier tooling with a real
// structured logger.
package obs

import (
	"go.uber.org/zap"
)

// NewLogger builds a production zap.Logger; verbose lowers its level to
// debug. The engine itself emits no per-phase debug entries.
func NewLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// NewNop returns a logger that discards everything, for tests and
// callers that don't supply one.
func NewNop() *zap.Logger {
	return zap.NewNop()
}

// PhaseTimer logs the start and, via the returned func, the completion
// of one engine phase at debug level.
func PhaseTimer(log *zap.Logger, phase string) func() {
	log.Debug("phase start", zap.String("phase", phase))
	return func() {
		log.Debug("phase done", zap.String("phase", phase))
	}
}
