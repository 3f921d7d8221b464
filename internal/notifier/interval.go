package notifier

import (
	"context"
	"fmt"
	"time"

	"barstatus/internal/feature"
	logx "barstatus/pkg/logx"
)

// Interval sends Refresh(id) every Every, starting one interval after Start.
type Interval struct {
	id    feature.ID
	every time.Duration
	deps  Deps
}

func NewInterval(id feature.ID, every time.Duration, deps Deps) *Interval {
	return &Interval{id: id, every: every, deps: deps}
}

func (n *Interval) Every() time.Duration { return n.every }

func (n *Interval) Start(ctx context.Context) error {
	if n.every <= 0 {
		return fmt.Errorf("interval must be > 0, got %s", n.every)
	}
	if n.deps.Bus == nil || n.deps.Spawner == nil {
		return fmt.Errorf("interval notifier for %s: missing bus or spawner", n.id)
	}
	log := n.deps.logger().With(logx.String("feature", string(n.id)))
	n.deps.Spawner.Go(goroutineName("interval", n.id), func(ctx context.Context) error {
		t := time.NewTimer(n.every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
			ok, err := send(ctx, n.deps.Bus, n.id)
			if err != nil {
				return err
			}
			if !ok {
				log.Debug("interval notifier stopped")
				return nil
			}
			t.Reset(n.every)
		}
	})
	log.Debug("interval notifier armed", logx.Duration("every", n.every))
	return nil
}
