package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"barstatus/internal/alert"
	"barstatus/internal/config"
	"barstatus/internal/eventbus"
	"barstatus/internal/feature"
	"barstatus/internal/features"
	"barstatus/internal/features/kit"
	"barstatus/internal/notifier"
	"barstatus/internal/observability/pprof"
	rtsup "barstatus/internal/runtime/supervisor"
	"barstatus/internal/statusbar"
	logx "barstatus/pkg/logx"
)

// Options is what the command line provides.
type Options struct {
	// FeatureList is the path of the feature list file (required).
	FeatureList string
	// SettingsPath overrides the settings search path.
	SettingsPath string
	// LogLevel overrides logging.level from the settings file.
	LogLevel string
	// Stdout receives status lines; nil means os.Stdout.
	Stdout io.Writer
	// Registry resolves feature names; nil means features.Default().
	Registry *features.Registry
}

type App struct {
	opts Options

	cfgm *config.Manager
	cfg  *config.Settings
	log  logx.Logger
	logs *logx.Service

	bus    *eventbus.Bus[feature.Message]
	sup    *rtsup.Supervisor
	alerts *alert.Service
	dbus   *alert.DBusSender
	pprof  *pprof.Service

	names []string
	order []feature.ID
	table map[feature.ID]feature.Feature

	reasonMu sync.Mutex
	reason   StopReason
}

// Run builds the app from opts and runs it until Terminate or a fatal error.
func Run(ctx context.Context, opts Options) error {
	a, err := New(opts)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

// New loads settings, sets up logging and reads the feature list. Nothing is
// started yet.
func New(opts Options) (*App, error) {
	if strings.TrimSpace(opts.FeatureList) == "" {
		return nil, feature.ConfigurationError("app", "missing feature list argument", nil)
	}
	if opts.Stdout == nil {
		opts.Stdout = logx.Stdout()
	}
	if opts.Registry == nil {
		opts.Registry = features.Default()
	}

	cfgm := config.NewManager(opts.SettingsPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, feature.ConfigurationError("settings", "cannot load settings", err)
	}
	logs, log := logx.New(mapLoggingConfig(cfg, opts.LogLevel))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	names, err := config.ReadFeatureList(opts.FeatureList)
	if err != nil {
		logs.Close()
		return nil, feature.ConfigurationError("app", "cannot read feature list", err)
	}
	if len(names) == 0 {
		logs.Close()
		return nil, feature.ConfigurationError("app", fmt.Sprintf("no features listed in %s", opts.FeatureList), nil)
	}

	return &App{
		opts:   opts,
		cfgm:   cfgm,
		cfg:    cfg,
		log:    log.With(logx.String("comp", "app")),
		logs:   logs,
		bus:    eventbus.New[feature.Message](cfg.BusBuffer),
		names:  names,
		reason: StopUnknown,
	}, nil
}

// Run starts every feature, runs the dispatch loop and tears everything down
// when the loop returns. ctx cancellation is turned into one Terminate.
func (a *App) Run(ctx context.Context) (err error) {
	a.sup = rtsup.NewSupervisor(context.Background(),
		rtsup.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		// a failing notifier goroutine must not take the bar down; fatal
		// errors reach the loop as Refresh failures instead
		rtsup.WithCancelOnError(false),
	)
	defer func() { a.stop(err) }()

	if err := a.startAlerts(); err != nil {
		return err
	}
	a.pprof = pprof.New(a.log)
	if err := a.pprof.Apply(a.sup.Context(), mapPprofConfig(a.cfg)); err != nil {
		a.log.Warn("pprof disabled", logx.Err(err))
	}

	if err := a.startFeatures(); err != nil {
		return err
	}

	bar := statusbar.New(a.cfg.Separator, a.opts.Stdout)
	loop, err := NewLoop(a.order, a.table, bar, a.bus.Receive(), a.log.With(logx.String("comp", "loop")))
	if err != nil {
		return err
	}
	var ready sync.Once
	loop.OnRender(func(string) { ready.Do(a.notifyReady) })

	a.watchSignals(ctx)
	a.watchSettings()

	a.log.Info("started", logx.Int("features", len(a.order)), logx.String("settings", a.cfgm.Path()))
	if err := loop.Run(context.Background()); err != nil {
		a.setReason(StopFatalError)
		return err
	}
	a.setReason(StopTerminate)
	return nil
}

func (a *App) startAlerts() error {
	acfg, err := mapAlertConfig(a.cfg)
	if err != nil {
		return feature.ConfigurationError("alerts", "invalid settings", err)
	}
	if !acfg.Enabled {
		return nil
	}
	a.dbus = alert.NewDBusSender(acfg.AppName)
	a.alerts = alert.New(acfg, a.dbus, a.log.With(logx.String("comp", "alert")))
	a.alerts.Start(a.sup.Context())
	return nil
}

// startFeatures constructs, arms and refreshes each listed feature in order.
func (a *App) startFeatures() error {
	env := kit.Env{
		Settings: a.cfg,
		Notifier: notifier.Deps{
			Bus:     a.bus,
			Spawner: a.sup,
			Log:     a.log.With(logx.String("comp", "notifier")),
		},
		Log: a.log,
	}
	if a.alerts != nil {
		env.Alerts = a.alerts
	}

	a.order = make([]feature.ID, 0, len(a.names))
	a.table = make(map[feature.ID]feature.Feature, len(a.names))
	for i, name := range a.names {
		f, err := a.opts.Registry.Create(name, i, env)
		if err != nil {
			return err
		}
		if err := f.StartNotifier(a.sup.Context()); err != nil {
			a.closeFeature(f)
			return err
		}
		if err := f.Refresh(a.sup.Context()); err != nil {
			a.closeFeature(f)
			return err
		}
		a.order = append(a.order, f.ID())
		a.table[f.ID()] = f
		a.log.Debug("feature started", logx.String("feature", string(f.ID())))
	}
	return nil
}

// watchSignals sends exactly one Terminate once ctx is done.
func (a *App) watchSignals(ctx context.Context) {
	a.sup.Go0("app.signals", func(c context.Context) {
		select {
		case <-c.Done():
			return
		case <-ctx.Done():
		}
		a.setReason(StopSignal)
		a.log.Info("shutdown requested")
		if err := a.bus.Send(c, feature.Terminate()); err != nil && !errors.Is(err, eventbus.ErrClosed) && !errors.Is(err, context.Canceled) {
			a.log.Warn("terminate not delivered", logx.Err(err))
		}
	})
}

// watchSettings reloads the settings file on change and applies logging and
// pprof settings live. Feature settings take effect on restart.
func (a *App) watchSettings() {
	if a.cfgm.Path() == "" {
		return
	}
	sub := a.cfgm.Subscribe(4)
	a.sup.Go("config.watch", func(c context.Context) error { return a.cfgm.Watch(c) })
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case next, ok := <-sub:
				if !ok {
					return
				}
				a.logs.Apply(mapLoggingConfig(next, a.opts.LogLevel))
				if err := a.pprof.Apply(c, mapPprofConfig(next)); err != nil {
					a.log.Warn("pprof reconfigure failed", logx.Err(err))
				}
				a.log.Info("settings reloaded; feature settings apply on restart")
			}
		}
	})
}

// closeFeature releases connections a feature holds, e.g. its system bus
// connection.
func (a *App) closeFeature(f feature.Feature) {
	c, ok := f.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		a.log.Warn("feature close failed", logx.String("feature", string(f.ID())), logx.Err(err))
	}
}

func (a *App) notifyReady() {
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify ready failed", logx.Err(err))
	} else if ok {
		a.log.Debug("sd_notify ready sent")
	}
}

func (a *App) setReason(r StopReason) {
	a.reasonMu.Lock()
	defer a.reasonMu.Unlock()
	// a signal-triggered Terminate stays a signal stop
	if a.reason == StopSignal && r == StopTerminate {
		return
	}
	a.reason = r
}

func (a *App) stopReason() StopReason {
	a.reasonMu.Lock()
	defer a.reasonMu.Unlock()
	return a.reason
}

func (a *App) stop(cause error) {
	if cause != nil {
		a.setReason(StopFatalError)
	}
	a.log.Info("stopping", logx.String("reason", string(a.stopReason())))
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	// Producers see ErrClosed from here on.
	a.bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.step(ctx, "alerts", time.Second, func(c context.Context) error {
		if a.alerts != nil {
			a.alerts.Stop(c)
		}
		if a.dbus != nil {
			return a.dbus.Close()
		}
		return nil
	})
	a.step(ctx, "pprof", time.Second, func(c context.Context) error {
		if a.pprof != nil {
			a.pprof.Stop(c)
		}
		return nil
	})
	a.sup.Cancel()
	a.step(ctx, "supervisor", 2*time.Second, func(c context.Context) error {
		if err := a.sup.Wait(c); err != nil && !errors.Is(err, eventbus.ErrClosed) {
			return err
		}
		return nil
	})
	a.step(ctx, "features", time.Second, func(c context.Context) error {
		for _, id := range a.order {
			a.closeFeature(a.table[id])
		}
		return nil
	})

	cnt := a.sup.Counters()
	a.log.Info("stopped", logx.Int64("goroutines_active", cnt.Active), logx.Uint64("goroutines_started", cnt.Started))
	if a.log.Enabled(logx.LevelDebug) {
		for _, st := range a.sup.Snapshot() {
			if st.Active > 0 || st.LastErr != "" {
				a.log.Debug("goroutine", logx.String("name", st.Name), logx.Int64("active", st.Active), logx.String("last_err", st.LastErr))
			}
		}
		if a.alerts != nil {
			for _, h := range a.alerts.History() {
				a.log.Debug("alert delivered", logx.String("at", h.At.Format(time.RFC3339)), logx.String("summary", h.Summary), logx.String("body", h.Body))
			}
		}
	}
	if cause != nil {
		kind := "unknown"
		if k := feature.KindOf(cause); k != nil {
			kind = k.Error()
		}
		a.log.Error("fatal", logx.String("kind", kind), logx.Err(cause))
	}
	_ = a.logs.Close()
}

// step runs one teardown step with an upper bound so a stuck component can't
// stall the whole stop.
func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", max))

	// respect the caller's deadline; never extend it
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < max {
			max = rem
		}
	}
	if max <= 0 {
		a.log.Warn("stop step skipped (no time left)", logx.String("name", name))
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		// fn must honor stepCtx; if it doesn't, report the leak when it finishes
		a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		go func() {
			if err := <-done; err != nil {
				a.log.Warn("stop step finished after deadline", logx.String("name", name), logx.Err(err))
			}
		}()
	}
}
