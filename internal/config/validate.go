package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate rejects settings the application cannot run with.
func Validate(s *Settings) error {
	if s == nil {
		return fmt.Errorf("settings are nil")
	}
	if s.BusBuffer < 1 {
		return fmt.Errorf("bus_buffer must be >= 1")
	}
	if s.Alerts.QueueSize < 0 {
		return fmt.Errorf("alerts.queue_size must be >= 0")
	}
	if s.Alerts.RatePerSec < 0 {
		return fmt.Errorf("alerts.rate_per_sec must be >= 0")
	}
	if _, err := ParseDurationField("alerts.dedup_window", s.Alerts.DedupWindow); err != nil {
		return err
	}
	if _, err := ParseDurationField("alerts.timeout", s.Alerts.Timeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("speedtest.timeout", s.Speedtest.Timeout); err != nil {
		return err
	}
	for _, lvl := range s.Battery.NotifierLevels {
		if lvl < 0 || lvl > 100 {
			return fmt.Errorf("battery.notifier_levels: %d out of range 0..100", lvl)
		}
	}
	if strings.TrimSpace(s.Time.Format) == "" {
		return fmt.Errorf("time.format required")
	}
	if tz := strings.TrimSpace(s.Time.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("time.timezone: invalid %q: %w", tz, err)
		}
	}
	return nil
}
