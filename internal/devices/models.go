package devices

import (
	"net"
	"strings"
	"time"
)

// Device is a stored ZGX workstation managed by the toolkit.
type Device struct {
	// ID is the stable identifier assigned when the device is added.
	ID string `yaml:"id"`

	// Name is the user-facing display name.
	Name string `yaml:"name"`

	// Host is the address used for SSH connections. The background updater
	// rewrites it when rediscovery observes the device at a new address.
	Host string `yaml:"host"`

	// Port is the SSH port.
	Port int `yaml:"port"`

	// Username is the account used for SSH sessions.
	Username string `yaml:"username,omitempty"`

	// IsSetup is true once the device completed setup (key authentication
	// established and connection verified).
	IsSetup bool `yaml:"is_setup"`

	// DNSInstanceName is the DNS-SD instance name recorded during
	// discovery. It is the key used for targeted rediscovery.
	DNSInstanceName string `yaml:"dns_instance_name,omitempty"`

	// AddedAt is when the device entry was created.
	AddedAt time.Time `yaml:"added_at,omitempty"`

	// LastSeenAt is updated whenever the device is observed on the network.
	LastSeenAt time.Time `yaml:"last_seen_at,omitempty"`
}

// EligibleForRediscovery reports whether the background updater should try
// to refresh this device's address: setup must be complete, a DNS-SD
// instance name must be recorded, and the stored host must be an IPv4
// literal (hostname-addressed devices don't go stale with DHCP leases).
func (d Device) EligibleForRediscovery() bool {
	if !d.IsSetup {
		return false
	}
	if strings.TrimSpace(d.DNSInstanceName) == "" {
		return false
	}
	ip := net.ParseIP(d.Host)
	return ip != nil && ip.To4() != nil
}

// Patch is a partial device update; nil fields are left unchanged.
type Patch struct {
	Name            *string
	Host            *string
	Port            *int
	Username        *string
	IsSetup         *bool
	DNSInstanceName *string
	LastSeenAt      *time.Time
}

func (p Patch) apply(d *Device) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Host != nil {
		d.Host = *p.Host
	}
	if p.Port != nil {
		d.Port = *p.Port
	}
	if p.Username != nil {
		d.Username = *p.Username
	}
	if p.IsSetup != nil {
		d.IsSetup = *p.IsSetup
	}
	if p.DNSInstanceName != nil {
		d.DNSInstanceName = *p.DNSInstanceName
	}
	if p.LastSeenAt != nil {
		d.LastSeenAt = *p.LastSeenAt
	}
}
