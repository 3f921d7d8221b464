// Package backlight shows the screen brightness read from sysfs.
package backlight

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"barstatus/internal/feature"
	"barstatus/internal/features/kit"
	"barstatus/internal/notifier"
)

const Name = "backlight"

// DefaultRoot is where the kernel exposes backlight devices.
const DefaultRoot = "/sys/class/backlight"

// Data is the brightness in percent.
type Data struct {
	Percent int
}

func Render(d Data, tpl feature.Template) string {
	return tpl.Render(map[string]string{"BL": strconv.Itoa(d.Percent)})
}

// sysfs reads brightness and max_brightness of one device.
type sysfs struct {
	dir string
}

func (s sysfs) Fetch(ctx context.Context) (Data, error) {
	cur, err := readUint(filepath.Join(s.dir, "brightness"))
	if err != nil {
		return Data{}, err
	}
	max, err := readUint(filepath.Join(s.dir, "max_brightness"))
	if err != nil {
		return Data{}, err
	}
	if max == 0 {
		return Data{}, fmt.Errorf("%s: max_brightness is 0", s.dir)
	}
	return Data{Percent: int(math.Round(100 * float64(cur) / float64(max)))}, nil
}

func readUint(path string) (uint64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func New(id feature.ID, env kit.Env) (feature.Feature, error) {
	return build(id, env, DefaultRoot)
}

func build(id feature.ID, env kit.Env, root string) (feature.Feature, error) {
	cfg := env.Settings.Backlight
	dir := filepath.Join(root, cfg.Device)
	if _, err := os.Stat(filepath.Join(dir, "brightness")); err != nil {
		return nil, feature.ConstructionError(Name, fmt.Sprintf("device %q not found", cfg.Device), err)
	}
	tpl := feature.Template(cfg.Template)
	u := feature.NewUpdater(Name, feature.Source[Data](sysfs{dir: dir}),
		func(d Data) string { return Render(d, tpl) },
		feature.WithPlaceholder[Data](cfg.NoValue))
	events := notifier.NewFileSource(filepath.Join(dir, "brightness"))
	return feature.Compose(id, Name, notifier.NewEvent(id, events, env.Notifier), u), nil
}
