package devices

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zgxtoolkit/zgxctl/internal/discovery"
	"github.com/zgxtoolkit/zgxctl/internal/logging"
	"github.com/zgxtoolkit/zgxctl/internal/telemetry"
)

const (
	// DefaultUpdateInterval is the background rediscovery interval used when
	// callers pass a non-positive interval.
	DefaultUpdateInterval = 5 * time.Minute

	// EventTypeBackgroundUpdate tags background updater telemetry.
	EventTypeBackgroundUpdate = "backgroundUpdate"
)

// Rediscoverer is the slice of the discovery service the background updater
// needs: targeted rediscovery by exact DNS-SD instance name.
type Rediscoverer interface {
	RediscoverDevices(instanceNames []string, timeout time.Duration) []discovery.DiscoveredDevice
}

// DeviceStore is the store surface the service consumes. *Store implements
// it; tests substitute fakes.
type DeviceStore interface {
	GetAll() []Device
	Update(id string, patch Patch) error
}

// Service owns the stored-device lifecycle, most importantly the background
// rediscovery loop that keeps device addresses current as DHCP leases churn.
//
// The loop is a stopped/running two-state machine: StartBackgroundUpdater
// while running and StopBackgroundUpdater while stopped are both no-ops.
// Each tick reads the store, rediscovers eligible devices, and rewrites a
// device's host only when its stored address is no longer among the
// addresses the device advertises. A failing tick is logged and reported but
// never stops the schedule.
type Service struct {
	store             DeviceStore
	disc              Rediscoverer
	sink              telemetry.Sink
	rediscoverTimeout time.Duration

	// newTicker is swappable so tests can drive ticks manually.
	newTicker func(time.Duration) (<-chan time.Time, func())

	mu     sync.Mutex
	stopCh chan struct{}
}

// NewService wires a device service.
func NewService(store DeviceStore, disc Rediscoverer, sink telemetry.Sink) *Service {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Service{
		store:             store,
		disc:              disc,
		sink:              sink,
		rediscoverTimeout: discovery.DefaultTimeout,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// StartBackgroundUpdater starts the rediscovery loop: one pass immediately,
// then one per interval. Starting an already-running loop is a logged no-op;
// there is never more than one active schedule.
func (s *Service) StartBackgroundUpdater(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopCh != nil {
		logging.Debug("background updater already running")
		return
	}
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}

	stop := make(chan struct{})
	s.stopCh = stop
	tick, cancel := s.newTicker(interval)

	logging.Info("background updater started", zap.Duration("interval", interval))

	go func() {
		defer cancel()
		s.runTick()
		for {
			select {
			case <-stop:
				return
			case <-tick:
				// A stop racing a pending tick must win.
				select {
				case <-stop:
					return
				default:
				}
				s.runTick()
			}
		}
	}()
}

// StopBackgroundUpdater cancels the schedule. No tick fires after it
// returns; a tick already in flight is allowed to finish. Stopping a stopped
// loop is a no-op.
func (s *Service) StopBackgroundUpdater() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	s.stopCh = nil
	logging.Info("background updater stopped")
}

// runTick executes one rediscovery pass. Every failure mode is contained
// here; the loop must survive any single tick going wrong.
func (s *Service) runTick() {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("background update tick panicked: %v", r)
			logging.Error("background update tick failed", zap.Error(err))
			s.sink.TrackError(EventTypeBackgroundUpdate, err, "tick")
		}
	}()

	var eligible []Device
	for _, d := range s.store.GetAll() {
		if d.EligibleForRediscovery() {
			eligible = append(eligible, d)
		}
	}
	if len(eligible) == 0 {
		logging.Debug("no devices eligible for rediscovery")
		return
	}

	names := make([]string, len(eligible))
	for i, d := range eligible {
		names[i] = d.DNSInstanceName
	}

	updated := 0
	for _, record := range s.disc.RediscoverDevices(names, s.rediscoverTimeout) {
		device, ok := matchByInstanceName(eligible, record.Name)
		if !ok {
			continue
		}
		if len(record.Addresses) == 0 {
			continue
		}
		if containsAddress(record.Addresses, device.Host) {
			// The stored host is still valid; skip the write to avoid
			// needless store churn.
			continue
		}

		newHost := record.Addresses[0]
		if err := s.store.Update(device.ID, Patch{Host: &newHost}); err != nil {
			logging.Warn("failed to update device host",
				zap.String("device_id", device.ID),
				zap.Error(err),
			)
			s.sink.TrackError(EventTypeBackgroundUpdate, err, "updateHost")
			continue
		}
		logging.LogHostUpdate(device.ID, device.Host, newHost)
		updated++
	}

	if updated > 0 {
		s.sink.TrackEvent(telemetry.Event{
			EventType:    EventTypeBackgroundUpdate,
			Action:       "updateDeviceHosts",
			Properties:   map[string]string{"method": "dns-sd", "result": "success"},
			Measurements: map[string]float64{"updatedCount": float64(updated)},
		})
	}
}

// matchByInstanceName finds the stored device a rediscovery record belongs
// to. The comparison is case-insensitive, unlike the exact matching inside
// RediscoverDevices itself.
func matchByInstanceName(devices []Device, instanceName string) (Device, bool) {
	for _, d := range devices {
		if strings.EqualFold(d.DNSInstanceName, instanceName) {
			return d, true
		}
	}
	return Device{}, false
}

func containsAddress(addrs []string, addr string) bool {
	for _, a := range addrs {
		if a == addr {
			return true
		}
	}
	return false
}
