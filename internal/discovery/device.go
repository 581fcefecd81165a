package discovery

import "fmt"

// DiscoveredDevice is a single device observed during one discovery pass.
// Records are created fresh on every pass and never mutated; callers either
// surface them or use them to patch a stored device.
type DiscoveredDevice struct {
	// Name is the raw DNS-SD service instance name as advertised
	// (e.g., "ZGX Device 1"). This is the key used for targeted rediscovery.
	Name string

	// Hostname is the resolved host label with the ".local" suffix stripped
	// (e.g., "zgx-ab12cd").
	Hostname string

	// Addresses holds the device's IPv4 addresses in the order they were
	// advertised. IPv6 literals are dropped during discovery.
	Addresses []string

	// Port is the port advertised by the service.
	Port int
}

// String returns a human-readable one-line summary of the device.
func (d DiscoveredDevice) String() string {
	addr := "<no address>"
	if len(d.Addresses) > 0 {
		addr = d.Addresses[0]
	}
	return fmt.Sprintf("%s (%s) at %s:%d", d.Name, d.Hostname, addr, d.Port)
}
