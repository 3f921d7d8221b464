// Package kit holds what every feature kind receives at construction.
package kit

import (
	"barstatus/internal/alert"
	"barstatus/internal/config"
	"barstatus/internal/feature"
	"barstatus/internal/notifier"
	logx "barstatus/pkg/logx"
)

// Env is shared by all feature constructors.
type Env struct {
	Settings *config.Settings
	Notifier notifier.Deps
	// Alerts may be nil when desktop alerts are disabled.
	Alerts alert.Enqueuer
	Log    logx.Logger
}

// Logger returns a logger tagged with the feature id.
func (e Env) Logger(id feature.ID) logx.Logger {
	if e.Log.IsZero() {
		return logx.Nop()
	}
	return e.Log.With(logx.String("feature", string(id)))
}

// Factory constructs one feature instance. Construction failures are
// feature.ConstructionError.
type Factory func(id feature.ID, env Env) (feature.Feature, error)
