package discovery

import (
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zgxtoolkit/zgxctl/internal/logging"
	"github.com/zgxtoolkit/zgxctl/internal/netenum"
	"github.com/zgxtoolkit/zgxctl/internal/telemetry"
)

const (
	// SSHServiceType is the generic SSH advertisement every device exposes
	// once its SSH server is up (_ssh._tcp).
	SSHServiceType = "ssh"

	// VendorServiceType is the vendor-specific advertisement
	// (_hpzgx._tcp) published only by fully provisioned ZGX devices. It
	// carries the authoritative display name and port.
	VendorServiceType = "hpzgx"

	// TCPProtocol is the transport used by both advertisements.
	TCPProtocol = "tcp"

	// DefaultTimeout is the discovery window used when callers pass a
	// non-positive timeout.
	DefaultTimeout = 10 * time.Second

	// EventTypeDeviceDiscovery tags all discovery telemetry.
	EventTypeDeviceDiscovery = "deviceDiscovery"
)

// InterfaceEnumerator lists the local interfaces discovery may browse on.
type InterfaceEnumerator interface {
	ActiveInterfaces() ([]netenum.Interface, error)
}

// Service discovers ZGX devices on the local network over mDNS/DNS-SD.
//
// None of its methods return an error: every documented failure mode degrades
// to an empty or partial result plus a log entry and a telemetry event, so
// discovery can never take down its caller.
type Service struct {
	enum    InterfaceEnumerator
	factory BrowserFactory
	sink    telemetry.Sink
}

// NewService wires a discovery service from its capabilities.
func NewService(enum InterfaceEnumerator, factory BrowserFactory, sink telemetry.Sink) *Service {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Service{enum: enum, factory: factory, sink: sink}
}

// DiscoverService browses one DNS-SD service across all active interfaces
// for the full timeout window and returns every device seen, one entry per
// hostname. When the same hostname is announced more than once during the
// window, the last event wins outright; address lists are not merged.
//
// With zero viable interfaces the call returns immediately with an empty
// slice and records a "no-interfaces" telemetry event rather than waiting
// out the window.
func (s *Service) DiscoverService(serviceType, protocol string, timeout time.Duration) []DiscoveredDevice {
	return s.collect(serviceType, protocol, timeout, hostnameKey)
}

// DiscoverDevices runs the generic SSH pass and the vendor pass concurrently
// over the same window, keeps only hostnames matching a recognized device
// naming convention, and merges the two sets by hostname. The vendor record
// always wins for a hostname present in both sets, regardless of event
// arrival order: it carries the authoritative instance name and port.
func (s *Service) DiscoverDevices(timeout time.Duration) []DiscoveredDevice {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var sshDevices, vendorDevices []DiscoveredDevice
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sshDevices = s.DiscoverService(SSHServiceType, TCPProtocol, timeout)
	}()
	go func() {
		defer wg.Done()
		vendorDevices = s.DiscoverService(VendorServiceType, TCPProtocol, timeout)
	}()
	wg.Wait()

	merged := make(map[string]DiscoveredDevice)
	for _, d := range sshDevices {
		if IsRecognizedDeviceHostname(d.Hostname) {
			merged[d.Hostname] = d
		}
	}
	// Vendor entries overwrite SSH entries for the same hostname.
	for _, d := range vendorDevices {
		if IsRecognizedDeviceHostname(d.Hostname) {
			merged[d.Hostname] = d
		}
	}

	devices := make([]DiscoveredDevice, 0, len(merged))
	for _, d := range merged {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Hostname < devices[j].Hostname })

	s.sink.TrackEvent(telemetry.Event{
		EventType:    EventTypeDeviceDiscovery,
		Action:       "discoverDevices",
		Properties:   map[string]string{"method": "dns-sd", "result": "success"},
		Measurements: map[string]float64{"deviceCount": float64(len(devices))},
	})
	return devices
}

// RediscoverDevices looks up the current addresses of already-provisioned
// devices by their exact DNS-SD instance names. Only the vendor service is
// browsed: a device without the vendor advertisement never completed setup
// and is not a rediscovery target. Names match by exact string equality;
// events with an empty instance name are skipped. Names that were not
// observed simply have no entry in the result.
//
// An empty instanceNames list returns immediately without creating a single
// browser.
func (s *Service) RediscoverDevices(instanceNames []string, timeout time.Duration) []DiscoveredDevice {
	if len(instanceNames) == 0 {
		return []DiscoveredDevice{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	requested := make(map[string]struct{}, len(instanceNames))
	for _, name := range instanceNames {
		requested[name] = struct{}{}
	}

	return s.collect(VendorServiceType, TCPProtocol, timeout, func(event ServiceEvent) (string, bool) {
		if event.Name == "" {
			return "", false
		}
		if _, ok := requested[event.Name]; !ok {
			return "", false
		}
		return event.Name, true
	})
}

// collect is the deadline-based aggregation primitive shared by every
// discovery entry point: start a browser pool, fold events keyed by keyFor
// into a map until the window elapses, then stop everything and return the
// accumulated set. It always returns (possibly empty), never fails.
func (s *Service) collect(serviceType, protocol string, timeout time.Duration, keyFor func(ServiceEvent) (string, bool)) []DiscoveredDevice {
	started := time.Now()

	ifaces, err := s.enum.ActiveInterfaces()
	if err != nil {
		logging.Error("interface enumeration failed",
			zap.String("service_type", serviceType),
			zap.Error(err),
		)
		s.sink.TrackError(EventTypeDeviceDiscovery, err, "discoverService")
		return []DiscoveredDevice{}
	}
	if len(ifaces) == 0 {
		logging.Debug("no active interfaces, skipping discovery",
			zap.String("service_type", serviceType),
		)
		s.trackNoInterfaces()
		return []DiscoveredDevice{}
	}

	var (
		mu    sync.Mutex
		seen  = make(map[string]DiscoveredDevice)
		order []string
	)
	handler := func(event ServiceEvent) {
		key, ok := keyFor(event)
		if !ok {
			return
		}
		device := DiscoveredDevice{
			Name:      event.Name,
			Hostname:  stripLocalSuffix(event.Host),
			Addresses: filterIPv4(event.Addresses),
			Port:      event.Port,
		}
		mu.Lock()
		if _, exists := seen[key]; !exists {
			order = append(order, key)
		}
		seen[key] = device
		mu.Unlock()
	}

	pool := NewServiceBrowserPool(s.factory, serviceType, protocol, ifaces)
	if err := pool.Start(handler); err != nil {
		// Every per-interface attempt failed; nothing can ever arrive, so
		// don't wait out the window.
		pool.Stop()
		logging.Warn("discovery has no viable path",
			zap.String("service_type", serviceType),
			zap.Int("interfaces", len(ifaces)),
		)
		s.trackNoInterfaces()
		return []DiscoveredDevice{}
	}

	<-time.After(timeout)
	pool.Stop()

	mu.Lock()
	devices := make([]DiscoveredDevice, 0, len(seen))
	for _, key := range order {
		devices = append(devices, seen[key])
	}
	mu.Unlock()

	logging.LogDiscoveryPass(serviceType, len(devices), time.Since(started).Milliseconds())
	return devices
}

// hostnameKey keys collected events by their advertised hostname, with the
// local suffix removed. Events without a hostname are unusable and dropped.
func hostnameKey(event ServiceEvent) (string, bool) {
	if event.Host == "" {
		return "", false
	}
	return stripLocalSuffix(event.Host), true
}

func (s *Service) trackNoInterfaces() {
	s.sink.TrackEvent(telemetry.Event{
		EventType:    EventTypeDeviceDiscovery,
		Action:       "discoverService",
		Properties:   map[string]string{"method": "dns-sd", "result": "no-interfaces"},
		Measurements: map[string]float64{"deviceCount": 0},
	})
}

// stripLocalSuffix removes the trailing dot and ".local" domain from an
// advertised host name: "zgx-ab12cd.local." -> "zgx-ab12cd".
func stripLocalSuffix(host string) string {
	host = strings.TrimSuffix(host, ".")
	return strings.TrimSuffix(host, ".local")
}

// filterIPv4 keeps only IPv4 literals, preserving their relative order.
func filterIPv4(addrs []string) []string {
	var out []string
	for _, addr := range addrs {
		ip := net.ParseIP(addr)
		if ip != nil && ip.To4() != nil {
			out = append(out, addr)
		}
	}
	return out
}
