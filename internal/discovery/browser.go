package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
)

// ServiceEvent is one "service appeared" notification from a browser.
// Host is the advertised host name as received (typically with a ".local."
// suffix); Addresses may mix IPv4 and IPv6 literals; filtering is the
// consumer's job.
type ServiceEvent struct {
	Name      string
	Host      string
	Addresses []string
	Port      int
}

// Browser is a single DNS-SD service browser bound to one network interface.
// Start wires the handler and begins browsing; the handler may be invoked
// arbitrarily many times from the browser's own goroutine until Stop.
// Stop is idempotent: calling it more than once is safe.
type Browser interface {
	Start(handler func(ServiceEvent)) error
	Stop()
}

// BrowserFactory creates browsers for a service type, transport protocol
// ("tcp" or "udp") and a specific local interface. Construction may fail
// per interface; callers treat that as a degraded state, not a fatal one.
type BrowserFactory interface {
	NewBrowser(serviceType, protocol string, iface net.Interface) (Browser, error)
}

// dnssdServiceName composes the full DNS-SD service name,
// e.g. ("ssh", "tcp") -> "_ssh._tcp".
func dnssdServiceName(serviceType, protocol string) string {
	return fmt.Sprintf("_%s._%s", serviceType, protocol)
}

// ZeroconfFactory creates zeroconf-backed browsers. Each browser gets its own
// resolver pinned to exactly one interface and restricted to IPv4 traffic, so
// queries go out only via that interface.
type ZeroconfFactory struct{}

func (ZeroconfFactory) NewBrowser(serviceType, protocol string, iface net.Interface) (Browser, error) {
	resolver, err := zeroconf.NewResolver(
		zeroconf.SelectIfaces([]net.Interface{iface}),
		zeroconf.SelectIPTraffic(zeroconf.IPv4),
	)
	if err != nil {
		return nil, fmt.Errorf("mDNS resolver on %s: %w", iface.Name, err)
	}
	return &zeroconfBrowser{
		resolver: resolver,
		service:  dnssdServiceName(serviceType, protocol),
	}, nil
}

type zeroconfBrowser struct {
	resolver *zeroconf.Resolver
	service  string
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func (b *zeroconfBrowser) Start(handler func(ServiceEvent)) error {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for entry := range entries {
			handler(eventFromEntry(entry))
		}
	}()

	if err := b.resolver.Browse(ctx, b.service, "local.", entries); err != nil {
		cancel()
		return fmt.Errorf("browse %s: %w", b.service, err)
	}
	return nil
}

func (b *zeroconfBrowser) Stop() {
	b.stopOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
	})
}

func eventFromEntry(entry *zeroconf.ServiceEntry) ServiceEvent {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return ServiceEvent{
		Name:      entry.Instance,
		Host:      entry.HostName,
		Addresses: addrs,
		Port:      entry.Port,
	}
}
