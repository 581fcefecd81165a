package discovery

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/zgxtoolkit/zgxctl/internal/logging"
	"github.com/zgxtoolkit/zgxctl/internal/netenum"
)

// ErrNoBrowsers indicates that no browser could be created or started on any
// interface, whether because there were no interfaces or because every
// per-interface attempt failed. Callers short-circuit instead of waiting out
// a discovery window that can never produce events.
var ErrNoBrowsers = errors.New("no viable service browsers on any interface")

// ServiceBrowserPool owns one browser per local interface for a single
// (service type, protocol) pair. A browser that cannot be created or started
// is logged and dropped; its siblings keep running. Stop tears down every
// remaining browser exactly once.
type ServiceBrowserPool struct {
	serviceType string
	browsers    []poolEntry
	stopOnce    sync.Once
}

type poolEntry struct {
	browser   Browser
	ifaceName string
}

// NewServiceBrowserPool creates one browser per interface. Per-interface
// construction failures are logged and skipped; the pool may end up with
// fewer browsers than interfaces, or none at all.
func NewServiceBrowserPool(factory BrowserFactory, serviceType, protocol string, ifaces []netenum.Interface) *ServiceBrowserPool {
	pool := &ServiceBrowserPool{serviceType: serviceType}
	for _, ni := range ifaces {
		browser, err := factory.NewBrowser(serviceType, protocol, ni.Iface)
		if err != nil {
			logging.Warn("failed to create service browser",
				zap.String("service_type", serviceType),
				zap.String("interface", ni.Iface.Name),
				zap.Error(err),
			)
			continue
		}
		pool.browsers = append(pool.browsers, poolEntry{browser: browser, ifaceName: ni.Iface.Name})
	}
	return pool
}

// Start begins browsing on every interface, delivering each "service
// appeared" event to handler. Handler may be called concurrently from
// multiple browsers. Browsers that fail to start are stopped and dropped.
// Returns ErrNoBrowsers when nothing is browsing afterwards.
func (p *ServiceBrowserPool) Start(handler func(ServiceEvent)) error {
	started := p.browsers[:0]
	for _, entry := range p.browsers {
		if err := entry.browser.Start(handler); err != nil {
			logging.Warn("failed to start service browser",
				zap.String("service_type", p.serviceType),
				zap.String("interface", entry.ifaceName),
				zap.Error(err),
			)
			entry.browser.Stop()
			continue
		}
		started = append(started, entry)
	}
	p.browsers = started

	if len(p.browsers) == 0 {
		return ErrNoBrowsers
	}

	logging.Debug("service browser pool started",
		zap.String("service_type", p.serviceType),
		zap.Int("browsers", len(p.browsers)),
	)
	return nil
}

// Size returns the number of live browsers in the pool.
func (p *ServiceBrowserPool) Size() int {
	return len(p.browsers)
}

// Stop stops every browser in the pool. Safe to call multiple times.
func (p *ServiceBrowserPool) Stop() {
	p.stopOnce.Do(func() {
		for _, entry := range p.browsers {
			entry.browser.Stop()
		}
	})
}
