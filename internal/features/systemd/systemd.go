// Package systemd shows how many units the service manager reports as
// failed.
package systemd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	sddbus "github.com/coreos/go-systemd/v22/dbus"

	"barstatus/internal/feature"
	"barstatus/internal/features/kit"
	"barstatus/internal/notifier"
	logx "barstatus/pkg/logx"
)

const Name = "systemd"

const dialTimeout = 5 * time.Second

// Data is the number of failed units.
type Data struct {
	Failed int
}

// Render shows ok (when non-empty) instead of a zero count.
func Render(d Data, tpl feature.Template, ok string) string {
	if d.Failed == 0 && ok != "" {
		return ok
	}
	return tpl.Render(map[string]string{"FAILED": strconv.Itoa(d.Failed)})
}

// Manager counts failed units and reports unit sub-state changes over the
// systemd D-Bus API.
type Manager struct {
	conn *sddbus.Conn
	log  logx.Logger
}

// Dial connects to the system manager, or the per-user one when user is set.
func Dial(ctx context.Context, user bool, log logx.Logger) (*Manager, error) {
	var (
		conn *sddbus.Conn
		err  error
	)
	if user {
		conn, err = sddbus.NewUserConnectionContext(ctx)
	} else {
		conn, err = sddbus.NewSystemConnectionContext(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	return &Manager{conn: conn, log: log}, nil
}

func (m *Manager) Close() error {
	m.conn.Close()
	return nil
}

func (m *Manager) Fetch(ctx context.Context) (Data, error) {
	units, err := m.conn.ListUnitsFilteredContext(ctx, []string{"failed"})
	if err != nil {
		return Data{}, fmt.Errorf("list failed units: %w", err)
	}
	return Data{Failed: countFailed(units)}, nil
}

func countFailed(units []sddbus.UnitStatus) int {
	n := 0
	for _, u := range units {
		if u.ActiveState == "failed" {
			n++
		}
	}
	return n
}

// Events emits one event per unit sub-state change.
func (m *Manager) Events(ctx context.Context) (<-chan struct{}, error) {
	if err := m.conn.Subscribe(); err != nil {
		return nil, fmt.Errorf("systemd subscribe: %w", err)
	}
	updates := make(chan *sddbus.SubStateUpdate, 16)
	errs := make(chan error, 4)
	m.conn.SetSubStateSubscriber(updates, errs)

	out := make(chan struct{})
	go func() {
		defer close(out)
		defer func() {
			m.conn.SetSubStateSubscriber(nil, nil)
			_ = m.conn.Unsubscribe()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-errs:
				// the subscriber drops updates when its channel is full;
				// the next change still triggers a full recount
				m.log.Debug("systemd substate subscriber", logx.Err(err))
			case u := <-updates:
				if u == nil {
					continue
				}
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func New(id feature.ID, env kit.Env) (feature.Feature, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	m, err := Dial(ctx, env.Settings.Systemd.User, env.Logger(id))
	if err != nil {
		return nil, feature.ConstructionError(Name, "cannot reach the service manager", err)
	}
	return build(id, env, m, m), nil
}

func build(id feature.ID, env kit.Env, src feature.Source[Data], events notifier.EventSource) feature.Feature {
	cfg := env.Settings.Systemd
	tpl := feature.Template(cfg.Template)
	u := feature.NewUpdater(Name, src,
		func(d Data) string { return Render(d, tpl, cfg.OK) },
		feature.WithPlaceholder[Data](cfg.NoValue))
	return feature.Compose(id, Name, notifier.NewEvent(id, events, env.Notifier), u)
}
