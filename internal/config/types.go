package config

// Settings is the on-disk settings file (YAML or JSON).
//
// Every field has a default (see Defaults); a key present in the file
// overrides only itself.
type Settings struct {
	// Separator joins rendered features in the status line.
	Separator string `json:"separator"`
	// BusBuffer is the message channel capacity.
	BusBuffer int `json:"bus_buffer"`

	Logging LoggingConfig `json:"logging"`
	Alerts  AlertsConfig  `json:"alerts"`
	Pprof   PprofConfig   `json:"pprof"`

	Audio     AudioConfig     `json:"audio"`
	Backlight BacklightConfig `json:"backlight"`
	Battery   BatteryConfig   `json:"battery"`
	CPULoad   CPULoadConfig   `json:"cpu_load"`
	Network   NetworkConfig   `json:"network"`
	Systemd   SystemdConfig   `json:"systemd"`
	Speedtest SpeedtestConfig `json:"speedtest"`
	Time      TimeConfig      `json:"time"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// AlertsConfig controls desktop notifications raised by features.
//
// Durations are Go duration strings (e.g. "10s", "5m").
type AlertsConfig struct {
	Enabled     bool   `json:"enabled"`
	AppName     string `json:"app_name"`
	QueueSize   int    `json:"queue_size"`
	RatePerSec  int    `json:"rate_per_sec"`
	DedupWindow string `json:"dedup_window"`
	Timeout     string `json:"timeout"`
}

// PprofConfig controls the optional pprof HTTP server.
//
// Prefer binding to localhost; a non-loopback address needs a token.
type PprofConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Token   string `json:"token,omitempty"`

	MutexProfileFraction int `json:"mutex_profile_fraction,omitempty"`
	BlockProfileRate     int `json:"block_profile_rate,omitempty"`
}

type AudioConfig struct {
	Control  string `json:"control"`
	Template string `json:"template"`
	Mute     string `json:"mute"`
	NoValue  string `json:"no_value"`
}

type BacklightConfig struct {
	Device   string `json:"device"`
	Template string `json:"template"`
	NoValue  string `json:"no_value"`
}

type BatteryConfig struct {
	Charging         string `json:"charging"`
	Discharging      string `json:"discharging"`
	NoBattery        string `json:"no_battery"`
	Separator        string `json:"separator"`
	EnableNotifier   bool   `json:"enable_notifier"`
	NotifierLevels   []int  `json:"notifier_levels"`
	NotifierCritical int    `json:"notifier_critical"`
}

type CPULoadConfig struct {
	Template string `json:"template"`
	// UpdateInterval accepts a duration, HH:MM or a cron expression.
	UpdateInterval string `json:"update_interval"`
}

type NetworkConfig struct {
	Template string `json:"template"`
	NoValue  string `json:"no_value"`
}

type SystemdConfig struct {
	// User selects the per-user service manager instead of the system one.
	User     bool   `json:"user"`
	Template string `json:"template"`
	OK       string `json:"ok"`
	NoValue  string `json:"no_value"`
}

type SpeedtestConfig struct {
	Schedule string `json:"schedule"`
	Template string `json:"template"`
	NoValue  string `json:"no_value"`
	Timeout  string `json:"timeout"`
	// ServerCount bounds how many of the closest servers are pinged.
	ServerCount int `json:"server_count"`
}

type TimeConfig struct {
	// Format is a Go reference-time layout.
	Format        string `json:"format"`
	UpdateSeconds bool   `json:"update_seconds"`
	Timezone      string `json:"timezone,omitempty"`
}
