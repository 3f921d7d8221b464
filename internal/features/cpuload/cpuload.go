// Package cpuload shows the 1, 5 and 15 minute load averages.
package cpuload

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/load"

	"barstatus/internal/feature"
	"barstatus/internal/features/kit"
	"barstatus/internal/notifier"
)

const Name = "cpu_load"

// Data holds load averages.
type Data struct {
	One, Five, Fifteen float64
}

// Render substitutes {CL1}, {CL5} and {CL15} with two decimals.
func Render(d Data, tpl feature.Template) string {
	return tpl.Render(map[string]string{
		"CL1":  fmt.Sprintf("%.2f", d.One),
		"CL5":  fmt.Sprintf("%.2f", d.Five),
		"CL15": fmt.Sprintf("%.2f", d.Fifteen),
	})
}

func fetch(ctx context.Context) (Data, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return Data{}, err
	}
	return Data{One: avg.Load1, Five: avg.Load5, Fifteen: avg.Load15}, nil
}

func New(id feature.ID, env kit.Env) (feature.Feature, error) {
	return build(id, env, feature.SourceFunc[Data](fetch))
}

func build(id feature.ID, env kit.Env, src feature.Source[Data]) (feature.Feature, error) {
	cfg := env.Settings.CPULoad
	n, err := notifier.FromSchedule(id, cfg.UpdateInterval, env.Notifier)
	if err != nil {
		return nil, feature.ConstructionError(Name, "invalid update_interval", err)
	}
	tpl := feature.Template(cfg.Template)
	u := feature.NewUpdater(Name, src, func(d Data) string { return Render(d, tpl) })
	return feature.Compose(id, Name, n, u), nil
}
