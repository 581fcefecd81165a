// Package discovery locates HP ZGX workstations on the local network using
// mDNS/DNS-SD.
//
// Devices advertise two services: the generic SSH service (_ssh._tcp) and,
// once fully provisioned, a vendor service (_hpzgx._tcp) carrying the
// authoritative display name and port. A discovery pass browses one or both
// services on every active IPv4 interface concurrently, one browser per
// interface, and aggregates whatever arrives within a fixed time window.
//
// The package is built around three layers:
//
//   - Browser/BrowserFactory: the DNS-SD client capability, implemented over
//     github.com/grandcat/zeroconf and replaceable with fakes in tests.
//   - ServiceBrowserPool: per-interface browser lifecycle, tolerant of
//     partial failures.
//   - Service: time-bounded aggregation, hostname filtering, and
//     cross-service priority merging.
//
// Discovery is deliberately non-fatal: the Service methods never return an
// error. Failures degrade to empty or partial results and are reported
// through the logger and the telemetry sink.
package discovery
