// Package netenum enumerates the local network interfaces eligible for
// mDNS/DNS-SD browsing.
//
// Discovery only reasons about IPv4 reachability, so an interface counts as
// active when it is up, not a loopback, and carries at least one IPv4
// address. An empty result is a valid outcome (e.g., airplane mode), distinct
// from enumeration failing outright.
package netenum

import (
	"net"

	"go.uber.org/zap"

	"github.com/zgxtoolkit/zgxctl/internal/logging"
)

// Interface is a network interface usable for discovery, paired with its
// IPv4 addresses in the order the OS reported them.
type Interface struct {
	Iface net.Interface
	IPv4  []string
}

// Enumerator lists active IPv4-capable interfaces. The zero value is not
// usable; construct with New. The listing functions are swappable so tests
// can supply a fake topology.
type Enumerator struct {
	listInterfaces func() ([]net.Interface, error)
	listAddrs      func(net.Interface) ([]net.Addr, error)
}

// New returns an Enumerator backed by the host's real interface table.
func New() *Enumerator {
	return &Enumerator{
		listInterfaces: net.Interfaces,
		listAddrs: func(iface net.Interface) ([]net.Addr, error) {
			return iface.Addrs()
		},
	}
}

// ActiveInterfaces returns every up, non-loopback interface that has at
// least one IPv4 address. Interfaces whose addresses cannot be read, or that
// are IPv6-only, are skipped silently. The returned slice may be empty; that
// is not an error. An error is returned only when the interface table itself
// cannot be read.
func (e *Enumerator) ActiveInterfaces() ([]Interface, error) {
	ifaces, err := e.listInterfaces()
	if err != nil {
		return nil, err
	}

	var active []Interface
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := e.listAddrs(iface)
		if err != nil {
			// A single unreadable interface never fails enumeration.
			logging.Debug("skipping interface with unreadable addresses",
				zap.String("interface", iface.Name),
				zap.Error(err),
			)
			continue
		}

		ipv4 := ipv4Strings(addrs)
		if len(ipv4) == 0 {
			continue
		}

		active = append(active, Interface{Iface: iface, IPv4: ipv4})
	}

	return active, nil
}

// ipv4Strings extracts IPv4 address strings from interface addresses,
// preserving their original relative order.
func ipv4Strings(addrs []net.Addr) []string {
	var out []string
	for _, addr := range addrs {
		var ip net.IP
		switch a := addr.(type) {
		case *net.IPNet:
			ip = a.IP
		case *net.IPAddr:
			ip = a.IP
		default:
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			out = append(out, v4.String())
		}
	}
	return out
}
