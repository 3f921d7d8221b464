package notifier

import (
	"context"
	"fmt"

	"barstatus/internal/feature"
	logx "barstatus/pkg/logx"
)

// EventSource is an external change-notification stream. Events returns a
// channel receiving one value per change; the channel is closed when the
// source ends or ctx is canceled. A setup failure is returned immediately.
type EventSource interface {
	Events(ctx context.Context) (<-chan struct{}, error)
}

// EventSourceFunc adapts a function to EventSource.
type EventSourceFunc func(ctx context.Context) (<-chan struct{}, error)

func (f EventSourceFunc) Events(ctx context.Context) (<-chan struct{}, error) { return f(ctx) }

// Event sends Refresh(id) once per event of its source.
type Event struct {
	id   feature.ID
	src  EventSource
	deps Deps
}

func NewEvent(id feature.ID, src EventSource, deps Deps) *Event {
	return &Event{id: id, src: src, deps: deps}
}

func (n *Event) Start(ctx context.Context) error {
	if n.src == nil || n.deps.Bus == nil || n.deps.Spawner == nil {
		return fmt.Errorf("event notifier for %s: missing source, bus or spawner", n.id)
	}
	events, err := n.src.Events(ctx)
	if err != nil {
		return err
	}
	log := n.deps.logger().With(logx.String("feature", string(n.id)))
	n.deps.Spawner.Go(goroutineName("event", n.id), func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case _, open := <-events:
				if !open {
					if ctx.Err() == nil {
						log.Warn("event source ended; feature will no longer refresh")
					}
					return nil
				}
			}
			ok, err := send(ctx, n.deps.Bus, n.id)
			if err != nil {
				return err
			}
			if !ok {
				log.Debug("event notifier stopped")
				return nil
			}
		}
	})
	log.Debug("event notifier armed")
	return nil
}
