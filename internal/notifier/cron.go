package notifier

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"barstatus/internal/feature"
	logx "barstatus/pkg/logx"
)

// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Cron sends Refresh(id) on a cron schedule.
type Cron struct {
	id   feature.ID
	spec string
	loc  *time.Location
	deps Deps
}

func NewCron(id feature.ID, spec string, deps Deps) *Cron {
	return &Cron{id: id, spec: strings.TrimSpace(spec), loc: time.Local, deps: deps}
}

// WithLocation overrides the timezone used to evaluate the schedule.
func (n *Cron) WithLocation(loc *time.Location) *Cron {
	if loc != nil {
		n.loc = loc
	}
	return n
}

func (n *Cron) Spec() string { return n.spec }

func (n *Cron) Start(ctx context.Context) error {
	if n.deps.Bus == nil || n.deps.Spawner == nil {
		return fmt.Errorf("cron notifier for %s: missing bus or spawner", n.id)
	}
	sched, err := cronParser.Parse(n.spec)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", n.spec, err)
	}
	log := n.deps.logger().With(logx.String("feature", string(n.id)))

	c := cron.New(cron.WithParser(cronParser), cron.WithLocation(n.loc))
	var (
		stopOnce sync.Once
		stopErr  error
	)
	stopped := make(chan struct{})
	n.deps.Spawner.Go(goroutineName("cron", n.id), func(ctx context.Context) error {
		// cron runs each firing in its own goroutine; the first one that
		// sees a closed bus ends the notifier.
		c.Schedule(sched, cron.FuncJob(func() {
			ok, err := send(ctx, n.deps.Bus, n.id)
			if ok {
				return
			}
			stopOnce.Do(func() {
				stopErr = err
				close(stopped)
			})
		}))
		c.Start()
		log.Debug("cron notifier armed", logx.String("spec", n.spec))

		select {
		case <-ctx.Done():
		case <-stopped:
			log.Debug("cron notifier stopped")
		}
		<-c.Stop().Done()
		select {
		case <-stopped:
			return stopErr
		default:
			return ctx.Err()
		}
	})
	return nil
}
