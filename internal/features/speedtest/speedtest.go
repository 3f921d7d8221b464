// Package speedtest periodically measures download and upload throughput.
//
// A measurement takes tens of seconds and holds up every other segment while
// it runs, so schedules should be sparse.
package speedtest

import (
	"context"
	"strconv"
	"time"

	"barstatus/internal/config"
	"barstatus/internal/feature"
	"barstatus/internal/features/kit"
	"barstatus/internal/notifier"
)

const Name = "speedtest"

// Data is one measurement. Speeds are in Mbit/s.
type Data struct {
	Down   float64
	Up     float64
	PingMs float64
}

func Render(d Data, tpl feature.Template) string {
	return tpl.Render(map[string]string{
		"DOWN": strconv.FormatFloat(d.Down, 'f', 1, 64),
		"UP":   strconv.FormatFloat(d.Up, 'f', 1, 64),
		"PING": strconv.FormatFloat(d.PingMs, 'f', 0, 64),
	})
}

func New(id feature.ID, env kit.Env) (feature.Feature, error) {
	cfg := env.Settings.Speedtest
	r := NewRunner(RunConfig{ServerCount: cfg.ServerCount})
	return build(id, env, r)
}

func build(id feature.ID, env kit.Env, src feature.Source[Data]) (feature.Feature, error) {
	cfg := env.Settings.Speedtest
	n, err := notifier.FromSchedule(id, cfg.Schedule, env.Notifier)
	if err != nil {
		return nil, feature.ConstructionError(Name, "bad schedule", err)
	}
	timeout, err := config.ParseDurationOrDefault("speedtest.timeout", cfg.Timeout, 0)
	if err != nil {
		return nil, feature.ConstructionError(Name, "bad timeout", err)
	}
	if timeout > 0 {
		src = withTimeout(src, timeout)
	}
	tpl := feature.Template(cfg.Template)
	u := feature.NewUpdater(Name, src,
		func(d Data) string { return Render(d, tpl) },
		feature.WithPlaceholder[Data](cfg.NoValue))
	return feature.Compose(id, Name, n, u), nil
}

// withTimeout bounds every fetch of src by d.
func withTimeout(src feature.Source[Data], d time.Duration) feature.Source[Data] {
	return feature.SourceFunc[Data](func(ctx context.Context) (Data, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return src.Fetch(ctx)
	})
}
