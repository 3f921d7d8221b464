package notifier

import (
	"context"
	"errors"

	"barstatus/internal/eventbus"
	"barstatus/internal/feature"
	logx "barstatus/pkg/logx"
)

// Spawner owns notifier goroutines. *supervisor.Supervisor satisfies it.
type Spawner interface {
	Go(name string, fn func(ctx context.Context) error)
}

// SpawnerFunc adapts a function to Spawner.
type SpawnerFunc func(name string, fn func(ctx context.Context) error)

func (f SpawnerFunc) Go(name string, fn func(ctx context.Context) error) { f(name, fn) }

// Sender is the producer side of the message bus.
type Sender = eventbus.Sender[feature.Message]

// Deps is shared by all notifier variants.
type Deps struct {
	Bus     Sender
	Spawner Spawner
	Log     logx.Logger
}

func (d Deps) logger() logx.Logger {
	if d.Log.IsZero() {
		return logx.Nop()
	}
	return d.Log
}

// send delivers Refresh(id). It reports false when the notifier should stop.
func send(ctx context.Context, bus Sender, id feature.ID) (bool, error) {
	err := bus.Send(ctx, feature.Refresh(id))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, eventbus.ErrClosed), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false, nil
	default:
		return false, err
	}
}

func goroutineName(kind string, id feature.ID) string {
	return "notifier." + kind + "." + string(id)
}
