package battery

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	upowerDest        = "org.freedesktop.UPower"
	upowerPath        = dbus.ObjectPath("/org/freedesktop/UPower")
	upowerIface       = "org.freedesktop.UPower"
	upowerDeviceIface = "org.freedesktop.UPower.Device"
	propsIface        = "org.freedesktop.DBus.Properties"

	// UPower device type and state enums.
	deviceTypeBattery = 2
	stateCharging     = 1
)

// UPower reads batteries from the UPower daemon on the system bus and emits
// an event whenever UPower reports a property change or a device appears or
// disappears.
type UPower struct {
	conn *dbus.Conn
}

// DialUPower connects to the system bus.
func DialUPower(ctx context.Context) (*UPower, error) {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("system bus: %w", err)
	}
	return &UPower{conn: conn}, nil
}

func (u *UPower) Close() error { return u.conn.Close() }

func (u *UPower) Fetch(ctx context.Context) (Data, error) {
	root := u.conn.Object(upowerDest, upowerPath)

	var onBattery dbus.Variant
	if err := root.CallWithContext(ctx, propsIface+".Get", 0, upowerIface, "OnBattery").Store(&onBattery); err != nil {
		return Data{}, fmt.Errorf("upower OnBattery: %w", err)
	}
	var devices []dbus.ObjectPath
	if err := root.CallWithContext(ctx, upowerIface+".EnumerateDevices", 0).Store(&devices); err != nil {
		return Data{}, fmt.Errorf("upower EnumerateDevices: %w", err)
	}

	ob, _ := onBattery.Value().(bool)
	d := Data{ACOnline: !ob, Batteries: map[string]Info{}}
	for _, p := range devices {
		var props map[string]dbus.Variant
		if err := u.conn.Object(upowerDest, p).CallWithContext(ctx, propsIface+".GetAll", 0, upowerDeviceIface).Store(&props); err != nil {
			return Data{}, fmt.Errorf("upower device %s: %w", p, err)
		}
		name, info, ok := parseDevice(props)
		if !ok {
			continue
		}
		if name == "" {
			name = path.Base(string(p))
		}
		d.Batteries[name] = info
	}
	return d, nil
}

// parseDevice extracts a system battery from UPower device properties.
// Peripheral batteries (mice, headsets) are skipped.
func parseDevice(props map[string]dbus.Variant) (string, Info, bool) {
	typ, _ := variant[uint32](props, "Type")
	supply, _ := variant[bool](props, "PowerSupply")
	if typ != deviceTypeBattery || !supply {
		return "", Info{}, false
	}
	if present, ok := variant[bool](props, "IsPresent"); ok && !present {
		return "", Info{}, false
	}

	name, _ := variant[string](props, "NativePath")
	pct, _ := variant[float64](props, "Percentage")
	state, _ := variant[uint32](props, "State")

	key := "TimeToEmpty"
	if state == stateCharging {
		key = "TimeToFull"
	}
	secs, _ := variant[int64](props, key)

	info := Info{Capacity: pct / 100}
	if secs > 0 {
		info.Estimation = time.Duration(secs) * time.Second
	}
	return path.Base(name), info, true
}

func variant[T any](props map[string]dbus.Variant, key string) (T, bool) {
	var zero T
	v, ok := props[key]
	if !ok {
		return zero, false
	}
	t, ok := v.Value().(T)
	return t, ok
}

// Events subscribes to UPower signals.
func (u *UPower) Events(ctx context.Context) (<-chan struct{}, error) {
	matches := [][]dbus.MatchOption{
		{
			dbus.WithMatchInterface(propsIface),
			dbus.WithMatchMember("PropertiesChanged"),
			dbus.WithMatchPathNamespace(upowerPath),
		},
		{dbus.WithMatchInterface(upowerIface), dbus.WithMatchMember("DeviceAdded")},
		{dbus.WithMatchInterface(upowerIface), dbus.WithMatchMember("DeviceRemoved")},
	}
	for i, m := range matches {
		if err := u.conn.AddMatchSignalContext(ctx, m...); err != nil {
			for _, prev := range matches[:i] {
				_ = u.conn.RemoveMatchSignal(prev...)
			}
			return nil, fmt.Errorf("upower subscribe: %w", err)
		}
	}

	signals := make(chan *dbus.Signal, 16)
	u.conn.Signal(signals)

	out := make(chan struct{})
	go func() {
		defer close(out)
		defer func() {
			u.conn.RemoveSignal(signals)
			for _, m := range matches {
				_ = u.conn.RemoveMatchSignal(m...)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
