// Package clock shows the wall clock.
package clock

import (
	"context"
	"strings"
	"time"

	"barstatus/internal/feature"
	"barstatus/internal/features/kit"
	"barstatus/internal/notifier"
)

const Name = "time"

const (
	everyMinute = "0 * * * * *"
	everySecond = "* * * * * *"
)

func New(id feature.ID, env kit.Env) (feature.Feature, error) {
	return build(id, env, time.Now)
}

func build(id feature.ID, env kit.Env, now func() time.Time) (feature.Feature, error) {
	cfg := env.Settings.Time
	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, feature.ConstructionError(Name, "invalid timezone", err)
		}
		loc = l
	}

	spec := everyMinute
	if cfg.UpdateSeconds {
		spec = everySecond
	}
	n := notifier.NewCron(id, spec, env.Notifier).WithLocation(loc)

	src := feature.SourceFunc[time.Time](func(context.Context) (time.Time, error) { return now().In(loc), nil })
	u := feature.NewUpdater(Name, src, func(t time.Time) string { return t.Format(cfg.Format) })
	return feature.Compose(id, Name, n, u), nil
}
