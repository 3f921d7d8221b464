// Package audio shows the volume of an ALSA mixer control.
package audio

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"

	"barstatus/internal/feature"
	"barstatus/internal/features/kit"
	"barstatus/internal/notifier"
)

const Name = "audio"

// Data is the control state.
type Data struct {
	Volume int
	Muted  bool
}

func Render(d Data, tpl feature.Template, mute string) string {
	if d.Muted {
		return mute
	}
	return tpl.Render(map[string]string{"VOL": strconv.Itoa(d.Volume)})
}

var (
	reVolume = regexp.MustCompile(`\[(\d{1,3})%\]`)
	reSwitch = regexp.MustCompile(`\[(on|off)\]`)
)

// parseAmixer reads the first channel of `amixer get <control>` output.
func parseAmixer(out []byte) (Data, error) {
	m := reVolume.FindSubmatch(out)
	if m == nil {
		return Data{}, fmt.Errorf("no volume in amixer output")
	}
	vol, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return Data{}, err
	}
	d := Data{Volume: vol}
	if s := reSwitch.FindSubmatch(out); s != nil && string(s[1]) == "off" {
		d.Muted = true
	}
	return d, nil
}

type amixer struct {
	control string
}

func (a amixer) Fetch(ctx context.Context) (Data, error) {
	out, err := exec.CommandContext(ctx, "amixer", "get", a.control).Output()
	if err != nil {
		return Data{}, fmt.Errorf("amixer get %s: %w", a.control, err)
	}
	return parseAmixer(out)
}

func New(id feature.ID, env kit.Env) (feature.Feature, error) {
	if _, err := exec.LookPath("amixer"); err != nil {
		return nil, feature.ConstructionError(Name, "amixer not found", err)
	}
	return build(id, env, amixer{control: env.Settings.Audio.Control}, notifier.NewLineSource("alsactl", "monitor")), nil
}

func build(id feature.ID, env kit.Env, src feature.Source[Data], events notifier.EventSource) feature.Feature {
	cfg := env.Settings.Audio
	tpl := feature.Template(cfg.Template)
	u := feature.NewUpdater(Name, src,
		func(d Data) string { return Render(d, tpl, cfg.Mute) },
		feature.WithPlaceholder[Data](cfg.NoValue))
	return feature.Compose(id, Name, notifier.NewEvent(id, events, env.Notifier), u)
}
