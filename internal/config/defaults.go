package config

// Defaults returns the settings used when no file is present.
func Defaults() *Settings {
	return &Settings{
		Separator: " | ",
		BusBuffer: 64,
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
		Alerts: AlertsConfig{
			Enabled:     true,
			AppName:     "barstatus",
			QueueSize:   32,
			RatePerSec:  1,
			DedupWindow: "5m",
			Timeout:     "10s",
		},
		Pprof: PprofConfig{Addr: "127.0.0.1:6060"},
		Audio: AudioConfig{
			Control:  "Master",
			Template: "S {VOL}%",
			Mute:     "MUTE",
			NoValue:  "NA",
		},
		Backlight: BacklightConfig{
			Device:   "intel_backlight",
			Template: "L {BL}%",
			NoValue:  "NA",
		},
		Battery: BatteryConfig{
			Charging:         "▲",
			Discharging:      "▼",
			NoBattery:        "NO BATT",
			Separator:        " · ",
			EnableNotifier:   true,
			NotifierLevels:   []int{2, 5, 10, 15, 20},
			NotifierCritical: 10,
		},
		CPULoad: CPULoadConfig{
			Template:       "{CL1} {CL5} {CL15}",
			UpdateInterval: "20s",
		},
		Network: NetworkConfig{
			Template: "{IPv4} · {IPv6} · {ESSID}",
			NoValue:  "NA",
		},
		Systemd: SystemdConfig{
			Template: "F {FAILED}",
			NoValue:  "NA",
		},
		Speedtest: SpeedtestConfig{
			Schedule:    "@every 1h",
			Template:    "↓{DOWN} ↑{UP} {PING}ms",
			NoValue:     "NA",
			Timeout:     "90s",
			ServerCount: 3,
		},
		Time: TimeConfig{
			Format: "2006-01-02 15:04",
		},
	}
}
