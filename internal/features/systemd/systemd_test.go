package systemd

import (
	"context"
	"testing"

	sddbus "github.com/coreos/go-systemd/v22/dbus"

	"barstatus/internal/config"
	"barstatus/internal/feature"
	"barstatus/internal/features/kit"
	"barstatus/internal/notifier"
)

func TestRender(t *testing.T) {
	t.Parallel()
	tpl := feature.Template("F {FAILED}")
	tests := []struct {
		name string
		data Data
		ok   string
		want string
	}{
		{name: "zero without ok", data: Data{}, want: "F 0"},
		{name: "zero with ok", data: Data{}, ok: "✓", want: "✓"},
		{name: "failed", data: Data{Failed: 3}, ok: "✓", want: "F 3"},
	}
	for _, tt := range tests {
		if got := Render(tt.data, tpl, tt.ok); got != tt.want {
			t.Fatalf("%s: Render = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCountFailed(t *testing.T) {
	t.Parallel()
	units := []sddbus.UnitStatus{
		{Name: "a.service", ActiveState: "failed"},
		{Name: "b.service", ActiveState: "active"},
		{Name: "c.mount", ActiveState: "failed"},
	}
	if got := countFailed(units); got != 2 {
		t.Fatalf("countFailed = %d, want 2", got)
	}
}

func TestFeature(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	n := 0
	src := feature.SourceFunc[Data](func(context.Context) (Data, error) { return Data{Failed: n}, nil })
	events := notifier.EventSourceFunc(func(context.Context) (<-chan struct{}, error) { return nil, nil })
	f := build("systemd4", kit.Env{Settings: cfg}, src, events)

	if got := f.Render(); got != "NA" {
		t.Fatalf("Render before refresh = %q", got)
	}
	n = 2
	if err := f.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := f.Render(); got != "F 2" {
		t.Fatalf("Render = %q", got)
	}
}
