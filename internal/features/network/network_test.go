package network

import (
	"context"
	"testing"

	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barstatus/internal/config"
	"barstatus/internal/feature"
	"barstatus/internal/features/kit"
	"barstatus/internal/notifier"
)

func TestRender(t *testing.T) {
	t.Parallel()
	tpl := feature.Template("{IPv4} · {IPv6} · {ESSID}")
	tests := []struct {
		name string
		data Data
		want string
	}{
		{name: "all", data: Data{IPv4: "10.0.0.2", IPv6: "2001:db8::1", ESSID: "home"}, want: "10.0.0.2 · 2001:db8::1 · home"},
		{name: "none", data: Data{}, want: "NA · NA · NA"},
		{name: "partial", data: Data{IPv4: "10.0.0.2"}, want: "10.0.0.2 · NA · NA"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.data, tpl, "NA"); got != tt.want {
				t.Fatalf("Render = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWantsFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		tpl  string
		want wants
	}{
		{"{IPv4} · {IPv6} · {ESSID}", wants{ipv4: true, ipv6: true, essid: true}},
		{"IPv4} · IPv6} · {ESSID}", wants{essid: true}},
		{"{IPv4} · IPv6} · ESSID}", wants{ipv4: true}},
		{"IPv4} · {IPv6} · ESSID}", wants{ipv6: true}},
		{"schubidu", wants{}},
	}
	for _, tt := range tests {
		if got := wantsFor(feature.Template(tt.tpl)); got != tt.want {
			t.Fatalf("wantsFor(%q) = %+v, want %+v", tt.tpl, got, tt.want)
		}
	}
}

func TestPickAddrs(t *testing.T) {
	t.Parallel()
	ifaces := psnet.InterfaceStatList{
		{Name: "lo", Flags: []string{"up", "loopback"}, Addrs: psnet.InterfaceAddrList{{Addr: "127.0.0.1/8"}, {Addr: "::1/128"}}},
		{Name: "eth0", Flags: []string{"broadcast"}, Addrs: psnet.InterfaceAddrList{{Addr: "192.168.9.9/24"}}},
		{Name: "wlan0", Flags: []string{"up", "broadcast"}, Addrs: psnet.InterfaceAddrList{
			{Addr: "fe80::1/64"},
			{Addr: "192.168.1.20/24"},
			{Addr: "2001:db8::20/64"},
			{Addr: "192.168.1.21/24"},
		}},
	}
	v4, v6 := pickAddrs(ifaces)
	assert.Equal(t, "192.168.1.20", v4)
	assert.Equal(t, "2001:db8::20", v6)

	v4, v6 = pickAddrs(nil)
	assert.Empty(t, v4)
	assert.Empty(t, v6)
}

func TestSourceSkipsUnwantedLookups(t *testing.T) {
	t.Parallel()
	called := false
	s := source{want: wants{}, essid: func(context.Context) string { called = true; return "x" }}
	d, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Data{}, d)
	assert.False(t, called)

	s.want.essid = true
	d, err = s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", d.ESSID)
}

func TestIsMonitorEvent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		line string
		want bool
	}{
		{"2: wlan0    inet 192.168.1.23/24 brd 192.168.1.255 scope global wlan0", true},
		{"Deleted 2: wlan0    inet6 fe80::1/64 scope link", true},
		{"3: wlan0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 state UP", true},
		{"valid_lft 86399sec preferred_lft 86399sec", false},
		{"link/ether aa:bb:cc:dd:ee:ff brd ff:ff:ff:ff:ff:ff", false},
		{"Deleted ", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isMonitorEvent(tt.line), tt.line)
	}
	src, ok := monitorSource().(*notifier.LineSource)
	require.True(t, ok)
	assert.NotNil(t, src.Match)
}

func TestFeaturePlaceholderBeforeRefresh(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	src := feature.SourceFunc[Data](func(context.Context) (Data, error) { return Data{IPv4: "10.1.1.1"}, nil })
	events := notifier.EventSourceFunc(func(context.Context) (<-chan struct{}, error) { return nil, nil })
	f := build("network1", kit.Env{Settings: cfg}, src, events)

	assert.Equal(t, "NA · NA · NA", f.Render())
	require.NoError(t, f.Refresh(context.Background()))
	assert.Equal(t, "10.1.1.1 · NA · NA", f.Render())
}
