package discovery

import (
	"errors"
	"testing"
	"time"

	"github.com/zgxtoolkit/zgxctl/internal/telemetry"
)

const testWindow = 80 * time.Millisecond

func TestDiscoverService_LastEventWinsPerHostname(t *testing.T) {
	factory := newFakeFactory()
	factory.events[SSHServiceType] = []ServiceEvent{
		{Name: "zgx-ab12cd", Host: "zgx-ab12cd.local.", Addresses: []string{"10.0.0.1"}, Port: 22},
		{Name: "zgx-wxyz", Host: "zgx-wxyz.local.", Addresses: []string{"10.0.0.7"}, Port: 22},
		{Name: "zgx-ab12cd (2)", Host: "zgx-ab12cd.local.", Addresses: []string{"10.0.0.2"}, Port: 2222},
	}

	svc := NewService(fakeEnum{ifaces: testInterfaces(1)}, factory, nil)
	devices := svc.DiscoverService(SSHServiceType, TCPProtocol, testWindow)

	if len(devices) != 2 {
		t.Fatalf("DiscoverService() returned %d devices, want 2: %v", len(devices), devices)
	}

	var got *DiscoveredDevice
	for i := range devices {
		if devices[i].Hostname == "zgx-ab12cd" {
			got = &devices[i]
		}
	}
	if got == nil {
		t.Fatalf("no entry for zgx-ab12cd in %v", devices)
	}
	if got.Name != "zgx-ab12cd (2)" {
		t.Errorf("Name = %q, want the later event's %q", got.Name, "zgx-ab12cd (2)")
	}
	if got.Port != 2222 {
		t.Errorf("Port = %d, want 2222", got.Port)
	}
	if len(got.Addresses) != 1 || got.Addresses[0] != "10.0.0.2" {
		t.Errorf("Addresses = %v, want [10.0.0.2] (no merging across duplicate events)", got.Addresses)
	}
}

func TestDiscoverService_DropsIPv6Addresses(t *testing.T) {
	factory := newFakeFactory()
	factory.events[SSHServiceType] = []ServiceEvent{
		{
			Name:      "zgx-ab12cd",
			Host:      "zgx-ab12cd.local.",
			Addresses: []string{"fe80::1", "10.0.0.5", "2001:db8::1", "10.0.0.6"},
			Port:      22,
		},
	}

	svc := NewService(fakeEnum{ifaces: testInterfaces(1)}, factory, nil)
	devices := svc.DiscoverService(SSHServiceType, TCPProtocol, testWindow)

	if len(devices) != 1 {
		t.Fatalf("DiscoverService() returned %d devices, want 1", len(devices))
	}
	want := []string{"10.0.0.5", "10.0.0.6"}
	got := devices[0].Addresses
	if len(got) != len(want) {
		t.Fatalf("Addresses = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Addresses[%d] = %q, want %q (original relative order)", i, got[i], want[i])
		}
	}
}

func TestDiscoverService_NoInterfacesResolvesImmediately(t *testing.T) {
	factory := newFakeFactory()
	recorder := telemetry.NewRecorder()
	svc := NewService(fakeEnum{}, factory, recorder)

	start := time.Now()
	devices := svc.DiscoverService(SSHServiceType, TCPProtocol, 3*time.Second)
	elapsed := time.Since(start)

	if len(devices) != 0 {
		t.Errorf("DiscoverService() = %v, want empty", devices)
	}
	if elapsed > time.Second {
		t.Errorf("DiscoverService() took %v, want immediate return (no waiting out the window)", elapsed)
	}
	if factory.createdCount() != 0 {
		t.Errorf("browsers created = %d, want 0", factory.createdCount())
	}

	events := recorder.Events()
	if len(events) != 1 {
		t.Fatalf("telemetry events = %d, want 1", len(events))
	}
	if events[0].Properties["result"] != "no-interfaces" {
		t.Errorf("result = %q, want no-interfaces", events[0].Properties["result"])
	}
	if events[0].Properties["method"] != "dns-sd" {
		t.Errorf("method = %q, want dns-sd", events[0].Properties["method"])
	}
	if events[0].Measurements["deviceCount"] != 0 {
		t.Errorf("deviceCount = %v, want 0", events[0].Measurements["deviceCount"])
	}
}

func TestDiscoverService_EnumeratorFailureIsNonFatal(t *testing.T) {
	recorder := telemetry.NewRecorder()
	svc := NewService(fakeEnum{err: errors.New("netlink failure")}, newFakeFactory(), recorder)

	devices := svc.DiscoverService(SSHServiceType, TCPProtocol, testWindow)

	if devices == nil || len(devices) != 0 {
		t.Errorf("DiscoverService() = %v, want empty non-nil slice", devices)
	}
	if len(recorder.Errors()) != 1 {
		t.Fatalf("telemetry errors = %d, want 1", len(recorder.Errors()))
	}
	// The error path must not masquerade as the no-interfaces outcome.
	if len(recorder.Events()) != 0 {
		t.Errorf("telemetry events = %v, want none on the error path", recorder.Events())
	}
}

func TestDiscoverService_AllBrowsersFailingShortCircuits(t *testing.T) {
	factory := newFakeFactory()
	factory.newErr = func(string, string) error { return errBindFailed }
	recorder := telemetry.NewRecorder()
	svc := NewService(fakeEnum{ifaces: testInterfaces(3)}, factory, recorder)

	start := time.Now()
	devices := svc.DiscoverService(SSHServiceType, TCPProtocol, 3*time.Second)
	elapsed := time.Since(start)

	if len(devices) != 0 {
		t.Errorf("DiscoverService() = %v, want empty", devices)
	}
	if elapsed > time.Second {
		t.Errorf("DiscoverService() took %v, want short-circuit when no browser exists", elapsed)
	}
	events := recorder.Events()
	if len(events) != 1 || events[0].Properties["result"] != "no-interfaces" {
		t.Errorf("telemetry = %v, want one no-interfaces event", events)
	}
}

func TestDiscoverService_PartialInterfaceFailureStillCollects(t *testing.T) {
	factory := newFakeFactory()
	factory.newErr = func(_, ifaceName string) error {
		if ifaceName == "en0" {
			return errBindFailed
		}
		return nil
	}
	factory.events[SSHServiceType] = []ServiceEvent{
		{Name: "zgx-ab12cd", Host: "zgx-ab12cd.local.", Addresses: []string{"10.0.0.1"}, Port: 22},
	}

	svc := NewService(fakeEnum{ifaces: testInterfaces(2)}, factory, nil)
	devices := svc.DiscoverService(SSHServiceType, TCPProtocol, testWindow)

	if len(devices) != 1 {
		t.Fatalf("DiscoverService() = %v, want the surviving interface's result", devices)
	}
}

func TestDiscoverService_StopsAllBrowsers(t *testing.T) {
	factory := newFakeFactory()
	svc := NewService(fakeEnum{ifaces: testInterfaces(2)}, factory, nil)

	svc.DiscoverService(SSHServiceType, TCPProtocol, 10*time.Millisecond)

	for i, b := range factory.browsers {
		if b.stopCount() != 1 {
			t.Errorf("browser %d stopped %d times, want exactly 1", i, b.stopCount())
		}
	}
}

func TestDiscoverDevices_VendorServiceWins(t *testing.T) {
	for _, tc := range []struct {
		name        string
		vendorDelay time.Duration
		sshDelay    time.Duration
	}{
		{name: "vendor event arrives first"},
		{name: "vendor event arrives last", vendorDelay: 30 * time.Millisecond},
		{name: "ssh event arrives last", sshDelay: 30 * time.Millisecond},
	} {
		t.Run(tc.name, func(t *testing.T) {
			factory := newFakeFactory()
			factory.delays[SSHServiceType] = tc.sshDelay
			factory.delays[VendorServiceType] = tc.vendorDelay
			factory.events[SSHServiceType] = []ServiceEvent{
				{Name: "zgx-ab12cd", Host: "zgx-ab12cd.local.", Addresses: []string{"10.0.0.1"}, Port: 22},
			}
			factory.events[VendorServiceType] = []ServiceEvent{
				{Name: "ZGX Device 1", Host: "zgx-ab12cd.local.", Addresses: []string{"10.0.0.1"}, Port: 8022},
			}

			recorder := telemetry.NewRecorder()
			svc := NewService(fakeEnum{ifaces: testInterfaces(1)}, factory, recorder)
			devices := svc.DiscoverDevices(testWindow)

			if len(devices) != 1 {
				t.Fatalf("DiscoverDevices() = %v, want one merged device", devices)
			}
			if devices[0].Name != "ZGX Device 1" {
				t.Errorf("Name = %q, want the vendor record's name", devices[0].Name)
			}
			if devices[0].Port != 8022 {
				t.Errorf("Port = %d, want the vendor record's 8022", devices[0].Port)
			}

			success := recorder.EventsWithAction("discoverDevices")
			if len(success) != 1 {
				t.Fatalf("success telemetry events = %d, want 1", len(success))
			}
			if success[0].Measurements["deviceCount"] != 1 {
				t.Errorf("deviceCount = %v, want 1", success[0].Measurements["deviceCount"])
			}
		})
	}
}

func TestDiscoverDevices_RejectsUnrecognizedHostnames(t *testing.T) {
	factory := newFakeFactory()
	factory.events[SSHServiceType] = []ServiceEvent{
		{Name: "myhost", Host: "myhost.local.", Addresses: []string{"10.0.0.3"}, Port: 22},
		{Name: "zgx-wxyz", Host: "zgx-wxyz.local.", Addresses: []string{"10.0.0.4"}, Port: 22},
	}

	svc := NewService(fakeEnum{ifaces: testInterfaces(1)}, factory, nil)
	devices := svc.DiscoverDevices(testWindow)

	if len(devices) != 1 || devices[0].Hostname != "zgx-wxyz" {
		t.Fatalf("DiscoverDevices() = %v, want only zgx-wxyz", devices)
	}
}

func TestDiscoverDevices_PartialPassFailureIsSuccess(t *testing.T) {
	factory := newFakeFactory()
	// The vendor pass cannot create a single browser; the SSH pass works.
	factory.newErr = func(serviceType, _ string) error {
		if serviceType == VendorServiceType {
			return errBindFailed
		}
		return nil
	}
	factory.events[SSHServiceType] = []ServiceEvent{
		{Name: "zgx-ab12cd", Host: "zgx-ab12cd.local.", Addresses: []string{"10.0.0.1"}, Port: 22},
	}

	recorder := telemetry.NewRecorder()
	svc := NewService(fakeEnum{ifaces: testInterfaces(1)}, factory, recorder)
	devices := svc.DiscoverDevices(testWindow)

	if len(devices) != 1 || devices[0].Hostname != "zgx-ab12cd" {
		t.Fatalf("DiscoverDevices() = %v, want the surviving pass's result", devices)
	}
	if len(recorder.EventsWithAction("discoverDevices")) != 1 {
		t.Error("expected one success event even with a degraded pass")
	}
}

func TestDiscoverDevices_ZeroDevicesStillReportsSuccess(t *testing.T) {
	recorder := telemetry.NewRecorder()
	svc := NewService(fakeEnum{ifaces: testInterfaces(1)}, newFakeFactory(), recorder)

	devices := svc.DiscoverDevices(20 * time.Millisecond)

	if len(devices) != 0 {
		t.Fatalf("DiscoverDevices() = %v, want empty", devices)
	}
	success := recorder.EventsWithAction("discoverDevices")
	if len(success) != 1 {
		t.Fatalf("success telemetry events = %d, want 1", len(success))
	}
	if success[0].Measurements["deviceCount"] != 0 {
		t.Errorf("deviceCount = %v, want 0", success[0].Measurements["deviceCount"])
	}
}

func TestRediscoverDevices_EmptyInputFastPath(t *testing.T) {
	factory := newFakeFactory()
	svc := NewService(fakeEnum{ifaces: testInterfaces(1)}, factory, nil)

	start := time.Now()
	devices := svc.RediscoverDevices(nil, 3*time.Second)
	elapsed := time.Since(start)

	if len(devices) != 0 {
		t.Errorf("RediscoverDevices(nil) = %v, want empty", devices)
	}
	if factory.createdCount() != 0 {
		t.Errorf("browsers created = %d, want 0 on the empty fast path", factory.createdCount())
	}
	if elapsed > time.Second {
		t.Errorf("RediscoverDevices(nil) took %v, want immediate return", elapsed)
	}
}

func TestRediscoverDevices_ExactNameMatch(t *testing.T) {
	factory := newFakeFactory()
	factory.events[VendorServiceType] = []ServiceEvent{
		{Name: "Device-A", Host: "zgx-ab12cd.local.", Addresses: []string{"10.0.0.9"}, Port: 8022},
		{Name: "Device-A-2", Host: "zgx-wxyz.local.", Addresses: []string{"10.0.0.10"}, Port: 8022},
		{Name: "", Host: "zgx-qrst.local.", Addresses: []string{"10.0.0.11"}, Port: 8022},
	}

	svc := NewService(fakeEnum{ifaces: testInterfaces(1)}, factory, nil)
	devices := svc.RediscoverDevices([]string{"Device-A"}, testWindow)

	if len(devices) != 1 {
		t.Fatalf("RediscoverDevices() = %v, want only the exact match", devices)
	}
	if devices[0].Name != "Device-A" {
		t.Errorf("Name = %q, want Device-A", devices[0].Name)
	}
	if len(devices[0].Addresses) != 1 || devices[0].Addresses[0] != "10.0.0.9" {
		t.Errorf("Addresses = %v, want [10.0.0.9]", devices[0].Addresses)
	}
}

func TestRediscoverDevices_CaseSensitive(t *testing.T) {
	factory := newFakeFactory()
	factory.events[VendorServiceType] = []ServiceEvent{
		{Name: "device-a", Host: "zgx-ab12cd.local.", Addresses: []string{"10.0.0.9"}, Port: 8022},
	}

	svc := NewService(fakeEnum{ifaces: testInterfaces(1)}, factory, nil)
	devices := svc.RediscoverDevices([]string{"Device-A"}, testWindow)

	if len(devices) != 0 {
		t.Fatalf("RediscoverDevices() = %v, want no match for a different case", devices)
	}
}

func TestStripLocalSuffix(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"zgx-ab12cd.local.", "zgx-ab12cd"},
		{"zgx-ab12cd.local", "zgx-ab12cd"},
		{"zgx-ab12cd", "zgx-ab12cd"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stripLocalSuffix(tt.host); got != tt.want {
			t.Errorf("stripLocalSuffix(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}
