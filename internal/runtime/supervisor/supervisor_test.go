package supervisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGoStopsOnCancel(t *testing.T) {
	s := NewSupervisor(context.Background())
	s.Go0("ticker", func(ctx context.Context) { <-ctx.Done() })
	s.Go("canceled", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if c := s.Counters(); c.Started != 2 {
		t.Fatalf("Started = %d, want 2", c.Started)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if c := s.Counters(); c.Active != 0 {
		t.Fatalf("Active = %d after Stop, want 0", c.Active)
	}
}

func TestPanicIsRecoveredAndRecorded(t *testing.T) {
	s := NewSupervisor(context.Background(), WithCancelOnError(true))
	s.Go0("boom", func(ctx context.Context) { panic("kaput") })

	select {
	case <-s.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("panic should cancel the supervisor when cancel-on-error is set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.Wait(ctx)
	if err == nil || !strings.Contains(err.Error(), "kaput") {
		t.Fatalf("Wait error = %v, want panic error", err)
	}

	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].Name != "boom" || snap[0].Panics != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestFirstErrorWins(t *testing.T) {
	s := NewSupervisor(context.Background())
	first := errors.New("first")
	s.Go("a", func(ctx context.Context) error { return first })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Wait(ctx); !errors.Is(err, first) {
		t.Fatalf("Wait error = %v, want wrapped %v", err, first)
	}
	if s.Context().Err() != nil {
		t.Fatal("context should stay alive without cancel-on-error")
	}
}
