package battery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstatus/internal/alert"
	"barstatus/internal/config"
	"barstatus/internal/eventbus"
	"barstatus/internal/feature"
	"barstatus/internal/features/kit"
	"barstatus/internal/notifier"
	logx "barstatus/pkg/logx"
)

func testConfig() config.BatteryConfig {
	return config.BatteryConfig{
		Charging:         "charging",
		Discharging:      "discharging",
		NoBattery:        "no_battery",
		Separator:        "-separator-",
		NotifierLevels:   []int{2, 5, 10, 15, 20},
		NotifierCritical: 10,
	}
}

func TestRender(t *testing.T) {
	t.Parallel()
	info1 := Info{Capacity: 0.56, Estimation: 600 * time.Second}
	info2 := Info{Capacity: 0.75, Estimation: 720 * time.Second}
	info3 := Info{Capacity: 0.21, Estimation: 1510 * time.Second}

	tests := []struct {
		name string
		data Data
		want string
	}{
		{name: "empty charging", data: Data{ACOnline: true}, want: "no_battery"},
		{name: "empty discharging", data: Data{}, want: "no_battery"},
		{name: "one charging", data: Data{ACOnline: true, Batteries: map[string]Info{"BAT0": info1}}, want: "charging 56% (00:10)"},
		{name: "one discharging", data: Data{Batteries: map[string]Info{"BAT0": info1}}, want: "discharging 56% (00:10)"},
		{
			name: "two",
			data: Data{ACOnline: true, Batteries: map[string]Info{"BAT0": info1, "BAT1": info2}},
			want: "charging 56% (00:10)-separator-75% (00:12)",
		},
		{
			name: "sorted by name",
			data: Data{Batteries: map[string]Info{"BAT1": info2, "BAT2": info3, "BAT0": info1}},
			want: "discharging 56% (00:10)-separator-75% (00:12)-separator-21% (00:25)",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.data, testConfig()); got != tt.want {
				t.Fatalf("Render = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInfoRender(t *testing.T) {
	t.Parallel()
	tests := []struct {
		info Info
		want string
	}{
		{Info{Capacity: 0}, "0%"},
		{Info{Capacity: 0.356, Estimation: 11759 * time.Second}, "36% (03:15)"},
		{Info{Capacity: 0.356}, "36%"},
		{Info{Capacity: 1, Estimation: 59 * time.Second}, "100% (00:00)"},
	}
	for _, tt := range tests {
		if got := tt.info.render(); got != tt.want {
			t.Fatalf("render(%+v) = %q, want %q", tt.info, got, tt.want)
		}
	}
}

func TestParseDevice(t *testing.T) {
	t.Parallel()
	props := map[string]dbus.Variant{
		"Type":        dbus.MakeVariant(uint32(deviceTypeBattery)),
		"PowerSupply": dbus.MakeVariant(true),
		"IsPresent":   dbus.MakeVariant(true),
		"NativePath":  dbus.MakeVariant("/sys/devices/LNXSYSTM:00/PNP0C0A:00/power_supply/BAT0"),
		"Percentage":  dbus.MakeVariant(42.0),
		"State":       dbus.MakeVariant(uint32(2)),
		"TimeToEmpty": dbus.MakeVariant(int64(3600)),
		"TimeToFull":  dbus.MakeVariant(int64(0)),
	}
	name, info, ok := parseDevice(props)
	require.True(t, ok)
	assert.Equal(t, "BAT0", name)
	assert.InDelta(t, 0.42, info.Capacity, 1e-9)
	assert.Equal(t, time.Hour, info.Estimation)

	props["State"] = dbus.MakeVariant(uint32(stateCharging))
	_, info, _ = parseDevice(props)
	assert.Zero(t, info.Estimation, "charging uses TimeToFull")

	props["PowerSupply"] = dbus.MakeVariant(false)
	_, _, ok = parseDevice(props)
	assert.False(t, ok, "peripheral batteries are skipped")

	_, _, ok = parseDevice(map[string]dbus.Variant{"Type": dbus.MakeVariant(uint32(1))})
	assert.False(t, ok, "line power is not a battery")
}

func TestLevelAlerts(t *testing.T) {
	t.Parallel()
	la := newLevelAlerts(testConfig(), nil, logx.Nop())
	dis := func(c float64) Data { return Data{Batteries: map[string]Info{"BAT0": {Capacity: c}}} }

	_, ok := la.observe(dis(0.50))
	assert.False(t, ok)

	a, ok := la.observe(dis(0.12))
	require.True(t, ok)
	assert.Equal(t, alert.UrgencyNormal, a.Urgency)
	assert.Equal(t, "12% remaining", a.Body)

	_, ok = la.observe(dis(0.11))
	assert.False(t, ok, "15 already fired")

	a, ok = la.observe(dis(0.09))
	require.True(t, ok)
	assert.Equal(t, alert.UrgencyCritical, a.Urgency)

	_, ok = la.observe(Data{ACOnline: true, Batteries: map[string]Info{"BAT0": {Capacity: 0.09}}})
	assert.False(t, ok)

	_, ok = la.observe(dis(0.09))
	assert.True(t, ok, "levels re-arm after AC")
}

type queue struct{ got []alert.Alert }

func (q *queue) Enqueue(a alert.Alert) error {
	q.got = append(q.got, a)
	return nil
}

func TestFeatureRefreshRaisesAlert(t *testing.T) {
	cfg := config.Defaults()
	cfg.Battery = testConfig()
	cfg.Battery.EnableNotifier = true

	cur := Data{ACOnline: true, Batteries: map[string]Info{"BAT0": {Capacity: 0.8}}}
	src := feature.SourceFunc[Data](func(ctx context.Context) (Data, error) { return cur, nil })
	events := notifier.EventSourceFunc(func(ctx context.Context) (<-chan struct{}, error) {
		return make(chan struct{}), nil
	})
	q := &queue{}
	env := kit.Env{
		Settings: cfg,
		Notifier: notifier.Deps{Bus: eventbus.New[feature.Message](1), Spawner: notifier.SpawnerFunc(func(string, func(context.Context) error) {})},
		Alerts:   q,
	}

	f := build("battery0", env, src, events)
	assert.Equal(t, "no_battery", f.Render())
	require.NoError(t, f.StartNotifier(context.Background()))
	require.NoError(t, f.Refresh(context.Background()))
	assert.Equal(t, "charging 80%", f.Render())
	assert.Empty(t, q.got)

	cur = Data{Batteries: map[string]Info{"BAT0": {Capacity: 0.04, Estimation: 5 * time.Minute}}}
	require.NoError(t, f.Refresh(context.Background()))
	assert.Equal(t, "discharging 4% (00:05)", f.Render())
	require.Len(t, q.got, 1)
	assert.Equal(t, alert.UrgencyCritical, q.got[0].Urgency)
}

func TestLevelCrossingsInsideDedupWindow(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []alert.Alert
	)
	snd := alert.SenderFunc(func(ctx context.Context, a alert.Alert) error {
		mu.Lock()
		sent = append(sent, a)
		mu.Unlock()
		return nil
	})
	svc := alert.New(alert.Config{Enabled: true, RatePerSec: 100, DedupWindow: 5 * time.Minute}, snd, logx.Nop())
	svc.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		svc.Stop(ctx)
	})

	la := newLevelAlerts(testConfig(), svc, logx.Nop())
	la.update(Data{Batteries: map[string]Info{"BAT0": {Capacity: 0.11}}})
	la.update(Data{Batteries: map[string]Info{"BAT0": {Capacity: 0.10}}})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sent) == 2
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, alert.UrgencyNormal, sent[0].Urgency)
	assert.Equal(t, alert.UrgencyCritical, sent[1].Urgency)
	assert.Equal(t, "10% remaining", sent[1].Body)
	assert.Equal(t, sent[0].Key, sent[1].Key, "the critical popup replaces the low one")
}
