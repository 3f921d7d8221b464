package app

// StopReason records why the loop ended; it is logged at teardown.
type StopReason string

const (
	StopUnknown    StopReason = "unknown"
	StopTerminate  StopReason = "terminate"
	StopSignal     StopReason = "signal"
	StopFatalError StopReason = "fatal_error"
)
