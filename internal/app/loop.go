package app

import (
	"context"
	"fmt"
	"time"

	"barstatus/internal/feature"
	"barstatus/internal/observability/metrics"
	"barstatus/internal/statusbar"
	logx "barstatus/pkg/logx"
)

// LoopState is the dispatch loop's lifecycle state.
type LoopState int

const (
	StateIdle LoopState = iota
	StateRunning
	StateTerminated
)

func (s LoopState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("LoopState(%d)", int(s))
	}
}

// Loop is the single consumer of the message bus. It owns the feature table
// and display order; Features are only ever touched from Run's goroutine.
type Loop struct {
	order []feature.ID
	table map[feature.ID]feature.Feature
	bar   *statusbar.Bar
	in    <-chan feature.Message
	log   logx.Logger

	state LoopState
	// onRender runs after each emitted line (used for readiness).
	onRender func(line string)
}

// NewLoop checks that order and table describe the same features.
func NewLoop(order []feature.ID, table map[feature.ID]feature.Feature, bar *statusbar.Bar, in <-chan feature.Message, log logx.Logger) (*Loop, error) {
	if len(order) != len(table) {
		return nil, feature.ConfigurationError("loop",
			fmt.Sprintf("feature order has %d entries but table has %d", len(order), len(table)), nil)
	}
	seen := make(map[feature.ID]struct{}, len(order))
	for _, id := range order {
		if _, dup := seen[id]; dup {
			return nil, feature.ConfigurationError("loop", fmt.Sprintf("feature %q listed twice", id), nil)
		}
		seen[id] = struct{}{}
		if _, ok := table[id]; !ok {
			return nil, feature.ConfigurationError("loop", fmt.Sprintf("feature %q has no table entry", id), nil)
		}
	}
	if bar == nil || in == nil {
		return nil, feature.ConfigurationError("loop", "status bar and message channel are required", nil)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Loop{order: order, table: table, bar: bar, in: in, log: log}, nil
}

func (l *Loop) State() LoopState { return l.state }

// OnRender registers fn to observe every emitted line.
func (l *Loop) OnRender(fn func(line string)) { l.onRender = fn }

// Run renders once, then processes one message at a time until Terminate
// (nil), an error, or ctx cancellation (ctx.Err()).
func (l *Loop) Run(ctx context.Context) error {
	if err := l.render(); err != nil {
		return err
	}
	l.state = StateRunning
	l.log.Debug("loop running", logx.Int("features", len(l.order)))

	for {
		select {
		case <-ctx.Done():
			l.state = StateTerminated
			return ctx.Err()
		case msg := <-l.in:
			done, err := l.handle(ctx, msg)
			if err != nil {
				l.state = StateTerminated
				return err
			}
			if done {
				l.state = StateTerminated
				l.log.Info("terminate received")
				return nil
			}
		}
	}
}

func (l *Loop) handle(ctx context.Context, msg feature.Message) (bool, error) {
	switch msg.Kind {
	case feature.KindTerminate:
		return true, nil
	case feature.KindRefresh:
		f, ok := l.table[msg.ID]
		if !ok {
			return false, feature.ProtocolError("loop", fmt.Sprintf("refresh for unknown feature %q", msg.ID), nil)
		}
		start := time.Now()
		err := f.Refresh(ctx)
		metrics.ObserveRefresh(string(msg.ID), time.Since(start), err)
		if err != nil {
			return false, err
		}
		if l.log.Enabled(logx.LevelTrace) {
			l.log.Trace("feature refreshed", logx.String("feature", string(msg.ID)))
		}
		return false, l.render()
	default:
		return false, feature.ProtocolError("loop", fmt.Sprintf("unexpected message kind %s", msg.Kind), nil)
	}
}

func (l *Loop) render() error {
	line, err := l.bar.Render(l.order, l.table)
	if err != nil {
		return err
	}
	metrics.Renders.Inc()
	if l.onRender != nil {
		l.onRender(line)
	}
	return nil
}
