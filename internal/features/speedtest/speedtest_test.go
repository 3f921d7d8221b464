package speedtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstatus/internal/config"
	"barstatus/internal/feature"
	"barstatus/internal/features/kit"
)

func TestRender(t *testing.T) {
	t.Parallel()
	got := Render(Data{Down: 93.456, Up: 11.04, PingMs: 12.6}, feature.Template("↓{DOWN} ↑{UP} {PING}ms"))
	assert.Equal(t, "↓93.5 ↑11.0 13ms", got)
}

func TestAverage(t *testing.T) {
	t.Parallel()
	avg := average([]serverResult{
		{Download: 100, Upload: 10, Ping: 10 * time.Millisecond},
		{Download: 50, Upload: 20, Ping: 30 * time.Millisecond},
	})
	assert.InDelta(t, 75.0, avg.Download, 1e-9)
	assert.InDelta(t, 15.0, avg.Upload, 1e-9)
	assert.Equal(t, 20*time.Millisecond, avg.Ping)
	assert.Equal(t, serverResult{}, average(nil))
}

func TestNewRunnerDefaults(t *testing.T) {
	t.Parallel()
	r := NewRunner(RunConfig{ServerCount: 2, FullTestServers: 5})
	assert.Equal(t, 2, r.cfg.ServerCount)
	assert.Equal(t, 2, r.cfg.FullTestServers)
	assert.Equal(t, 4, r.cfg.MaxConnections)
}

func TestFeatureRefresh(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	src := feature.SourceFunc[Data](func(context.Context) (Data, error) {
		return Data{Down: 10, Up: 2, PingMs: 5}, nil
	})
	f, err := build("speedtest0", kit.Env{Settings: cfg}, src)
	require.NoError(t, err)
	assert.Equal(t, "NA", f.Render())
	require.NoError(t, f.Refresh(context.Background()))
	assert.Equal(t, "↓10.0 ↑2.0 5ms", f.Render())
}

func TestFeatureTimeout(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	cfg.Speedtest.Timeout = "20ms"
	src := feature.SourceFunc[Data](func(ctx context.Context) (Data, error) {
		<-ctx.Done()
		return Data{}, ctx.Err()
	})
	f, err := build("speedtest0", kit.Env{Settings: cfg}, src)
	require.NoError(t, err)
	err = f.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, errors.Is(err, feature.ErrRefresh))
}

func TestBuildRejectsBadSchedule(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	cfg.Speedtest.Schedule = "whenever"
	_, err := build("speedtest0", kit.Env{Settings: cfg}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, feature.ErrConstruction))
}
