package battery

import (
	"fmt"
	"sort"

	"barstatus/internal/alert"
	"barstatus/internal/config"
	logx "barstatus/pkg/logx"
)

// levelAlerts raises one alert per configured level crossed while
// discharging. Levels re-arm when AC comes back.
type levelAlerts struct {
	levels   []int // ascending
	critical int
	fired    map[int]bool
	out      alert.Enqueuer
	log      logx.Logger
}

func newLevelAlerts(cfg config.BatteryConfig, out alert.Enqueuer, log logx.Logger) *levelAlerts {
	levels := append([]int(nil), cfg.NotifierLevels...)
	sort.Ints(levels)
	return &levelAlerts{
		levels:   levels,
		critical: cfg.NotifierCritical,
		fired:    map[int]bool{},
		out:      out,
		log:      log,
	}
}

// observe returns the alert raised for d, if any.
func (l *levelAlerts) observe(d Data) (alert.Alert, bool) {
	if d.ACOnline {
		if len(l.fired) > 0 {
			l.fired = map[int]bool{}
		}
		return alert.Alert{}, false
	}
	pct, ok := d.Lowest()
	if !ok {
		return alert.Alert{}, false
	}

	hit := -1
	for _, lvl := range l.levels {
		if pct > lvl {
			continue
		}
		if hit < 0 && !l.fired[lvl] {
			hit = lvl
		}
		l.fired[lvl] = true
	}
	if hit < 0 {
		return alert.Alert{}, false
	}

	a := alert.Alert{
		Summary:  "Battery low",
		Body:     fmt.Sprintf("%d%% remaining", pct),
		Icon:     "battery-low",
		Urgency:  alert.UrgencyNormal,
		Key:      "battery",
		DedupKey: fmt.Sprintf("battery-%d", hit),
	}
	if pct <= l.critical {
		a.Summary = "Battery critical"
		a.Icon = "battery-caution"
		a.Urgency = alert.UrgencyCritical
	}
	return a, true
}

// update is the DataUpdater hook.
func (l *levelAlerts) update(d Data) {
	a, ok := l.observe(d)
	if !ok || l.out == nil {
		return
	}
	if err := l.out.Enqueue(a); err != nil {
		l.log.Debug("battery alert not queued", logx.Err(err))
	}
}
