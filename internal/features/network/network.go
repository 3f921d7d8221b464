// Package network shows the first IPv4 and IPv6 address of the active
// interfaces and the ESSID of the connected wireless network.
package network

import (
	"context"
	"net/netip"
	"os/exec"
	"slices"
	"strings"

	psnet "github.com/shirou/gopsutil/v4/net"

	"barstatus/internal/feature"
	"barstatus/internal/features/kit"
	"barstatus/internal/notifier"
)

const Name = "network"

const (
	placeholderIPv4  = "IPv4"
	placeholderIPv6  = "IPv6"
	placeholderESSID = "ESSID"
)

// Data holds the current addresses; empty means not available.
type Data struct {
	IPv4  string
	IPv6  string
	ESSID string
}

// Render substitutes placeholders, using noValue for missing parts.
func Render(d Data, tpl feature.Template, noValue string) string {
	or := func(s string) string {
		if s == "" {
			return noValue
		}
		return s
	}
	return tpl.Render(map[string]string{
		placeholderIPv4:  or(d.IPv4),
		placeholderIPv6:  or(d.IPv6),
		placeholderESSID: or(d.ESSID),
	})
}

// wants records which values the template needs, so unused lookups are
// skipped.
type wants struct {
	ipv4, ipv6, essid bool
}

func wantsFor(tpl feature.Template) wants {
	return wants{
		ipv4:  tpl.Has(placeholderIPv4),
		ipv6:  tpl.Has(placeholderIPv6),
		essid: tpl.Has(placeholderESSID),
	}
}

// pickAddrs returns the first IPv4 and IPv6 address found on interfaces that
// are up and not loopback. Link-local IPv6 addresses are ignored.
func pickAddrs(ifaces psnet.InterfaceStatList) (v4, v6 string) {
	for _, ifc := range ifaces {
		if !slices.Contains(ifc.Flags, "up") || slices.Contains(ifc.Flags, "loopback") {
			continue
		}
		for _, a := range ifc.Addrs {
			p, err := netip.ParsePrefix(a.Addr)
			if err != nil {
				continue
			}
			ip := p.Addr()
			switch {
			case ip.Is4() && v4 == "":
				v4 = ip.String()
			case ip.Is6() && !ip.IsLinkLocalUnicast() && v6 == "":
				v6 = ip.String()
			}
		}
	}
	return v4, v6
}

type source struct {
	want  wants
	essid func(ctx context.Context) string
}

func (s source) Fetch(ctx context.Context) (Data, error) {
	var d Data
	if s.want.ipv4 || s.want.ipv6 {
		ifaces, err := psnet.InterfacesWithContext(ctx)
		if err != nil {
			return Data{}, err
		}
		v4, v6 := pickAddrs(ifaces)
		if s.want.ipv4 {
			d.IPv4 = v4
		}
		if s.want.ipv6 {
			d.IPv6 = v6
		}
	}
	if s.want.essid && s.essid != nil {
		d.ESSID = s.essid(ctx)
	}
	return d, nil
}

// iwgetidESSID asks wireless-tools for the current ESSID. Not being on a
// wireless network (or not having iwgetid) is a missing value, not an error.
func iwgetidESSID(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, "iwgetid", "-r").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// monitorSource emits an event for every address or link change reported by
// iproute2.
func monitorSource() notifier.EventSource {
	src := notifier.NewLineSource("ip", "monitor", "address", "link")
	src.Match = isMonitorEvent
	return src
}

// isMonitorEvent accepts the header line of an "ip monitor" record
// ("3: wlan0 ..." or "Deleted 3: ...") and skips continuation lines such as
// "valid_lft ..." and "link/ether ...".
func isMonitorEvent(line string) bool {
	line = strings.TrimPrefix(line, "Deleted ")
	return line != "" && line[0] >= '0' && line[0] <= '9'
}

func New(id feature.ID, env kit.Env) (feature.Feature, error) {
	return build(id, env, nil, monitorSource()), nil
}

func build(id feature.ID, env kit.Env, src feature.Source[Data], events notifier.EventSource) feature.Feature {
	cfg := env.Settings.Network
	tpl := feature.Template(cfg.Template)
	if src == nil {
		src = source{want: wantsFor(tpl), essid: iwgetidESSID}
	}
	u := feature.NewUpdater(Name, src,
		func(d Data) string { return Render(d, tpl, cfg.NoValue) },
		feature.WithPlaceholder[Data](Render(Data{}, tpl, cfg.NoValue)))
	return feature.Compose(id, Name, notifier.NewEvent(id, events, env.Notifier), u)
}
