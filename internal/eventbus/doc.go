// Package eventbus provides the in-process message queue that connects the
// feature notifiers (many producers) to the dispatch loop (one consumer).
package eventbus
