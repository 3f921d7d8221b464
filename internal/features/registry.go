// Package features maps feature names from the feature list to their
// constructors.
package features

import (
	"fmt"
	"sort"
	"strings"

	"barstatus/internal/feature"
	"barstatus/internal/features/audio"
	"barstatus/internal/features/backlight"
	"barstatus/internal/features/battery"
	"barstatus/internal/features/clock"
	"barstatus/internal/features/cpuload"
	"barstatus/internal/features/kit"
	"barstatus/internal/features/network"
	"barstatus/internal/features/speedtest"
	"barstatus/internal/features/systemd"
)

// Registry is a name-keyed factory map.
type Registry struct {
	factories map[string]kit.Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]kit.Factory{}}
}

// Default returns a registry with every built-in feature kind.
func Default() *Registry {
	r := NewRegistry()
	r.Register(audio.Name, audio.New)
	r.Register(backlight.Name, backlight.New)
	r.Register(battery.Name, battery.New)
	r.Register(clock.Name, clock.New)
	r.Register(cpuload.Name, cpuload.New)
	r.Register(network.Name, network.New)
	r.Register(speedtest.Name, speedtest.New)
	r.Register(systemd.Name, systemd.New)
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f kit.Factory) {
	r.factories[strings.ToLower(strings.TrimSpace(name))] = f
}

// Names lists registered kinds, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.factories))
	for n := range r.factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Create builds the feature at position ordinal of the feature list.
func (r *Registry) Create(name string, ordinal int, env kit.Env) (feature.Feature, error) {
	kind := strings.ToLower(strings.TrimSpace(name))
	f, ok := r.factories[kind]
	if !ok {
		return nil, feature.ConstructionError(name,
			fmt.Sprintf("unknown feature (known: %s)", strings.Join(r.Names(), ", ")), nil)
	}
	return f(feature.NewID(kind, ordinal), env)
}
