package discovery

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/zgxtoolkit/zgxctl/internal/netenum"
)

// fakeEnum is a canned InterfaceEnumerator.
type fakeEnum struct {
	ifaces []netenum.Interface
	err    error
}

func (f fakeEnum) ActiveInterfaces() ([]netenum.Interface, error) {
	return f.ifaces, f.err
}

func testInterfaces(n int) []netenum.Interface {
	ifaces := make([]netenum.Interface, n)
	for i := range ifaces {
		ifaces[i] = netenum.Interface{
			Iface: net.Interface{Index: i + 1, Name: "en" + string(rune('0'+i)), Flags: net.FlagUp},
			IPv4:  []string{"192.168.1.1"},
		}
	}
	return ifaces
}

// fakeBrowser delivers its scripted events from a single goroutine once
// started, preserving their order. Stops are counted to verify lifecycle.
type fakeBrowser struct {
	events   []ServiceEvent
	delay    time.Duration
	startErr error

	mu    sync.Mutex
	stops int
}

func (b *fakeBrowser) Start(handler func(ServiceEvent)) error {
	if b.startErr != nil {
		return b.startErr
	}
	events := b.events
	delay := b.delay
	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		for _, ev := range events {
			handler(ev)
		}
	}()
	return nil
}

func (b *fakeBrowser) Stop() {
	b.mu.Lock()
	b.stops++
	b.mu.Unlock()
}

func (b *fakeBrowser) stopCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stops
}

// fakeFactory hands out one scripted browser per (service type, interface)
// pair. Only the first browser created for a service type carries the
// scripted events; siblings on other interfaces stay silent so event order
// stays deterministic.
type fakeFactory struct {
	mu sync.Mutex

	// events per service type, delivered by that service's first browser.
	events map[string][]ServiceEvent
	// delays per service type, applied before that service's events.
	delays map[string]time.Duration
	// newErr, when set, fails browser construction for matching calls.
	newErr func(serviceType, ifaceName string) error

	created   int
	browsers  []*fakeBrowser
	handedOut map[string]bool
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		events:    make(map[string][]ServiceEvent),
		delays:    make(map[string]time.Duration),
		handedOut: make(map[string]bool),
	}
}

func (f *fakeFactory) NewBrowser(serviceType, protocol string, iface net.Interface) (Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.newErr != nil {
		if err := f.newErr(serviceType, iface.Name); err != nil {
			return nil, err
		}
	}

	f.created++
	browser := &fakeBrowser{delay: f.delays[serviceType]}
	if !f.handedOut[serviceType] {
		browser.events = f.events[serviceType]
		f.handedOut[serviceType] = true
	}
	f.browsers = append(f.browsers, browser)
	return browser, nil
}

func (f *fakeFactory) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

var errBindFailed = errors.New("bind: address already in use")
