package battery

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"barstatus/internal/config"
)

// Info is one battery's state.
type Info struct {
	// Capacity is the charge level in 0..1.
	Capacity float64
	// Estimation is time to empty (discharging) or full (charging); 0 is unknown.
	Estimation time.Duration
}

// Data is the battery feature state.
type Data struct {
	ACOnline  bool
	Batteries map[string]Info
}

func (i Info) render() string {
	s := fmtCapacity(i.Capacity)
	if i.Estimation > 0 {
		s += " (" + fmtTime(i.Estimation) + ")"
	}
	return s
}

// Render formats d with batteries sorted by name.
func Render(d Data, cfg config.BatteryConfig) string {
	if len(d.Batteries) == 0 {
		return cfg.NoBattery
	}
	names := make([]string, 0, len(d.Batteries))
	for n := range d.Batteries {
		names = append(names, n)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, d.Batteries[n].render())
	}
	state := cfg.Discharging
	if d.ACOnline {
		state = cfg.Charging
	}
	return state + " " + strings.Join(parts, cfg.Separator)
}

// Lowest returns the smallest capacity as a rounded percentage.
func (d Data) Lowest() (int, bool) {
	lowest, found := 0, false
	for _, b := range d.Batteries {
		p := percent(b.Capacity)
		if !found || p < lowest {
			lowest, found = p, true
		}
	}
	return lowest, found
}

func percent(capacity float64) int { return int(math.Round(capacity * 100)) }

func fmtCapacity(capacity float64) string { return fmt.Sprintf("%d%%", percent(capacity)) }

// fmtTime renders HH:MM, truncating seconds.
func fmtTime(d time.Duration) string {
	mins := int64(d / time.Minute)
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}
