// Package alert delivers desktop notifications raised by features.
//
// Alerts are short, high-signal messages (for example "battery at 5%").
// Enqueue never blocks: alerts go through a bounded queue to a single
// worker that applies a token-bucket rate limit, a dedup window and a small
// retry budget before handing them to a Sender.
//
// # Transport
//
// DBusSender talks to org.freedesktop.Notifications on the session bus,
// which every common notification daemon (dunst, mako, the GNOME/KDE
// shells) implements.
//
// # History
//
// The service keeps a small in-memory history of delivered alerts for
// debug logging.
package alert
