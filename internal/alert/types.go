package alert

import "time"

// Config controls the async alert pipeline.
type Config struct {
	Enabled         bool
	AppName         string
	QueueSize       int
	RatePerSec      int
	RetryMax        int
	RetryBase       time.Duration
	DedupWindow     time.Duration
	DedupMaxEntries int
	// Timeout bounds each delivery attempt.
	Timeout time.Duration
}

// Urgency mirrors the freedesktop notification urgency hint.
type Urgency byte

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyCritical:
		return "critical"
	default:
		return "normal"
	}
}

// Alert is one desktop notification.
type Alert struct {
	Summary string
	Body    string
	Icon    string
	Urgency Urgency
	// Key lets a later alert replace this one on screen.
	Key string
	// DedupKey groups alerts for the dedup window; empty means Summary+Body.
	DedupKey string
}

type HistoryItem struct {
	At      time.Time
	Summary string
	Body    string
}
