// Package devices manages the persisted registry of ZGX workstations and the
// background loop that keeps their addresses fresh.
//
// The Store is a YAML file in the user's config directory, written
// atomically on every mutation. The Service layers the background
// rediscovery loop on top: at a fixed interval it collects the devices
// eligible for rediscovery (set up, with a recorded DNS-SD instance name and
// an IPv4 host), asks the discovery service for their current addresses, and
// rewrites a stored host only when the device no longer advertises it.
package devices
