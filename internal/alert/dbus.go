package alert

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	notifyDest  = "org.freedesktop.Notifications"
	notifyPath  = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyIface = "org.freedesktop.Notifications"
)

// DBusSender delivers alerts through org.freedesktop.Notifications.Notify on
// the session bus. The connection is opened lazily and reopened after a
// failure.
type DBusSender struct {
	AppName string

	mu   sync.Mutex
	conn *dbus.Conn
	// lastID lets a newer alert with the same key replace the popup.
	lastID map[string]uint32
}

func NewDBusSender(appName string) *DBusSender {
	return &DBusSender{AppName: appName, lastID: map[string]uint32{}}
}

func (d *DBusSender) connect(ctx context.Context) (*dbus.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil && d.conn.Connected() {
		return d.conn, nil
	}
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("session bus: %w", err)
	}
	d.conn = conn
	return conn, nil
}

func (d *DBusSender) Send(ctx context.Context, a Alert) error {
	conn, err := d.connect(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	replaces := uint32(0)
	if a.Key != "" {
		replaces = d.lastID[a.Key]
	}
	d.mu.Unlock()

	hints := map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(a.Urgency))}
	// -1 lets the daemon pick; critical alerts stay until dismissed
	expire := int32(-1)
	if a.Urgency == UrgencyCritical {
		expire = 0
	}

	var id uint32
	call := conn.Object(notifyDest, notifyPath).CallWithContext(ctx, notifyIface+".Notify", 0,
		d.AppName, replaces, a.Icon, a.Summary, a.Body, []string{}, hints, expire)
	if err := call.Store(&id); err != nil {
		d.mu.Lock()
		if d.conn == conn {
			_ = conn.Close()
			d.conn = nil
		}
		d.mu.Unlock()
		return fmt.Errorf("notify: %w", err)
	}
	if a.Key != "" {
		d.mu.Lock()
		d.lastID[a.Key] = id
		d.mu.Unlock()
	}
	return nil
}

func (d *DBusSender) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}
