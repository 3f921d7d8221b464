package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstatus/internal/eventbus"
	"barstatus/internal/feature"
	"barstatus/internal/runtime/supervisor"
)

func newHarness(t *testing.T, buffer int) (*eventbus.Bus[feature.Message], *supervisor.Supervisor, Deps) {
	t.Helper()
	bus := eventbus.New[feature.Message](buffer)
	sup := supervisor.NewSupervisor(context.Background())
	t.Cleanup(func() {
		bus.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = sup.Stop(ctx)
	})
	return bus, sup, Deps{Bus: bus, Spawner: sup}
}

func recv(t *testing.T, bus *eventbus.Bus[feature.Message], within time.Duration) feature.Message {
	t.Helper()
	select {
	case m := <-bus.Receive():
		return m
	case <-time.After(within):
		t.Fatalf("no message within %s", within)
		return feature.Message{}
	}
}

func TestIntervalSendsRefresh(t *testing.T) {
	bus, sup, deps := newHarness(t, 8)
	n := NewInterval("cpu_load0", 10*time.Millisecond, deps)
	require.NoError(t, n.Start(sup.Context()))

	for i := 0; i < 3; i++ {
		m := recv(t, bus, time.Second)
		assert.Equal(t, feature.Refresh("cpu_load0"), m)
	}
}

func TestIntervalStopsWhenBusClosed(t *testing.T) {
	bus, sup, deps := newHarness(t, 1)
	n := NewInterval("cpu_load0", time.Millisecond, deps)
	require.NoError(t, n.Start(sup.Context()))

	bus.Close()
	require.Eventually(t, func() bool { return sup.Counters().Active == 0 }, time.Second, 5*time.Millisecond)
	assert.NoError(t, sup.Err())
}

func TestIntervalRejectsNonPositive(t *testing.T) {
	_, sup, deps := newHarness(t, 1)
	err := NewInterval("cpu_load0", 0, deps).Start(sup.Context())
	require.Error(t, err)
	assert.Equal(t, uint64(0), sup.Counters().Started)
}

func TestEventForwardsEveryEvent(t *testing.T) {
	bus, sup, deps := newHarness(t, 16)
	events := make(chan struct{})
	src := EventSourceFunc(func(ctx context.Context) (<-chan struct{}, error) { return events, nil })
	require.NoError(t, NewEvent("net1", src, deps).Start(sup.Context()))

	const n = 5
	for i := 0; i < n; i++ {
		events <- struct{}{}
	}
	for i := 0; i < n; i++ {
		assert.Equal(t, feature.Refresh("net1"), recv(t, bus, time.Second))
	}
	close(events)
	require.Eventually(t, func() bool { return sup.Counters().Active == 0 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, bus.Receive())
}

func TestEventSubscribeFailure(t *testing.T) {
	_, sup, deps := newHarness(t, 1)
	boom := errors.New("no bus")
	src := EventSourceFunc(func(ctx context.Context) (<-chan struct{}, error) { return nil, boom })

	err := NewEvent("battery0", src, deps).Start(sup.Context())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(0), sup.Counters().Started)
}

func TestCronFiresAndStops(t *testing.T) {
	bus, sup, deps := newHarness(t, 4)
	n := NewCron("time0", "@every 1s", deps)
	require.NoError(t, n.Start(sup.Context()))

	assert.Equal(t, feature.Refresh("time0"), recv(t, bus, 3*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sup.Stop(ctx))
}

func TestCronInvalidSpec(t *testing.T) {
	_, sup, deps := newHarness(t, 1)
	require.Error(t, NewCron("time0", "61 * * * *", deps).Start(sup.Context()))
}

func TestSpawnerFunc(t *testing.T) {
	var (
		mu    sync.Mutex
		names []string
	)
	sp := SpawnerFunc(func(name string, fn func(ctx context.Context) error) {
		mu.Lock()
		names = append(names, name)
		mu.Unlock()
	})
	bus := eventbus.New[feature.Message](1)
	require.NoError(t, NewInterval("cpu_load0", time.Second, Deps{Bus: bus, Spawner: sp}).Start(context.Background()))
	assert.Equal(t, []string{"notifier.interval.cpu_load0"}, names)
}
