package app

import (
	"strings"
	"time"

	"barstatus/internal/alert"
	"barstatus/internal/config"
	"barstatus/internal/observability/pprof"
	logx "barstatus/pkg/logx"
)

// mapLoggingConfig maps logging settings; a non-empty levelOverride (the
// -log-level flag) wins over the file.
func mapLoggingConfig(s *config.Settings, levelOverride string) logx.Config {
	level := s.Logging.Level
	if lvl := strings.TrimSpace(levelOverride); lvl != "" {
		level = lvl
	}
	return logx.Config{
		Level:   level,
		Console: s.Logging.Console,
		File: logx.FileConfig{
			Enabled: s.Logging.File.Enabled,
			Path:    s.Logging.File.Path,
		},
	}
}

func mapAlertConfig(s *config.Settings) (alert.Config, error) {
	dedup, err := config.ParseDurationOrDefault("alerts.dedup_window", s.Alerts.DedupWindow, 5*time.Minute)
	if err != nil {
		return alert.Config{}, err
	}
	timeout, err := config.ParseDurationOrDefault("alerts.timeout", s.Alerts.Timeout, 10*time.Second)
	if err != nil {
		return alert.Config{}, err
	}
	return alert.Config{
		Enabled:     s.Alerts.Enabled,
		AppName:     s.Alerts.AppName,
		QueueSize:   s.Alerts.QueueSize,
		RatePerSec:  s.Alerts.RatePerSec,
		DedupWindow: dedup,
		Timeout:     timeout,
	}, nil
}

func mapPprofConfig(s *config.Settings) pprof.Config {
	return pprof.Config{
		Enabled:              s.Pprof.Enabled,
		Addr:                 s.Pprof.Addr,
		Token:                s.Pprof.Token,
		MutexProfileFraction: s.Pprof.MutexProfileFraction,
		BlockProfileRate:     s.Pprof.BlockProfileRate,
	}
}
