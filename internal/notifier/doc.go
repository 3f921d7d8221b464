// Package notifier implements the triggers that ask the dispatch loop to
// refresh a feature.
//
// Three variants exist:
//   - Interval: sleeps a fixed duration, then sends Refresh(id), forever.
//   - Cron: sends Refresh(id) on a cron schedule (robfig/cron).
//   - Event: sends Refresh(id) once per event of an external source.
//
// Notifiers only ever send feature ids. A send that fails with
// eventbus.ErrClosed means the process is shutting down; the notifier
// goroutine then returns quietly.
//
// Event notifiers do not debounce: a burst of N events yields N messages.
package notifier
