package audio

import (
	"context"
	"testing"

	"barstatus/internal/config"
	"barstatus/internal/feature"
	"barstatus/internal/features/kit"
	"barstatus/internal/notifier"
)

const amixerOn = `Simple mixer control 'Master',0
  Capabilities: pvolume pswitch pswitch-joined
  Playback channels: Front Left - Front Right
  Limits: Playback 0 - 65536
  Mono:
  Front Left: Playback 45875 [70%] [on]
  Front Right: Playback 45875 [70%] [on]
`

const amixerOff = `Simple mixer control 'Master',0
  Mono: Playback 31 [100%] [-0.00dB] [off]
`

func TestParseAmixer(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		out     string
		want    Data
		wantErr bool
	}{
		{name: "on", out: amixerOn, want: Data{Volume: 70}},
		{name: "muted", out: amixerOff, want: Data{Volume: 100, Muted: true}},
		{name: "capture only", out: "Simple mixer control 'Capture',0\n", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmixer([]byte(tt.out))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAmixer: %v", err)
			}
			if got != tt.want {
				t.Fatalf("parseAmixer = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFeatureRender(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	cur := Data{Volume: 35}
	src := feature.SourceFunc[Data](func(context.Context) (Data, error) { return cur, nil })
	events := notifier.EventSourceFunc(func(context.Context) (<-chan struct{}, error) { return nil, nil })
	f := build("audio0", kit.Env{Settings: cfg}, src, events)

	if got := f.Render(); got != "NA" {
		t.Fatalf("Render before refresh = %q", got)
	}
	if err := f.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := f.Render(); got != "S 35%" {
		t.Fatalf("Render = %q", got)
	}
	cur.Muted = true
	if err := f.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := f.Render(); got != "MUTE" {
		t.Fatalf("Render muted = %q", got)
	}
}
