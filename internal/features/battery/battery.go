// Package battery shows charge level and time estimation of every system
// battery, read from UPower.
package battery

import (
	"context"
	"time"

	"barstatus/internal/feature"
	"barstatus/internal/features/kit"
	"barstatus/internal/notifier"
)

const Name = "battery"

const dialTimeout = 5 * time.Second

func New(id feature.ID, env kit.Env) (feature.Feature, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	up, err := DialUPower(ctx)
	if err != nil {
		return nil, feature.ConstructionError(Name, "cannot reach UPower", err)
	}
	return build(id, env, up, up), nil
}

func build(id feature.ID, env kit.Env, src feature.Source[Data], events notifier.EventSource) feature.Feature {
	cfg := env.Settings.Battery
	opts := []feature.UpdaterOption[Data]{feature.WithPlaceholder[Data](cfg.NoBattery)}
	if cfg.EnableNotifier && env.Alerts != nil {
		la := newLevelAlerts(cfg, env.Alerts, env.Logger(id))
		opts = append(opts, feature.WithOnUpdate(la.update))
	}
	u := feature.NewUpdater(Name, src, func(d Data) string { return Render(d, cfg) }, opts...)
	return feature.Compose(id, Name, notifier.NewEvent(id, events, env.Notifier), u)
}
