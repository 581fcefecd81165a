package devices

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName   = "zgxctl"
	storeFile = "devices.yaml"

	storeVersion = 1
)

// Preferences are user-tunable defaults stored alongside the devices.
type Preferences struct {
	// ScanTimeoutSeconds is the default discovery window for `zgxctl scan`.
	ScanTimeoutSeconds int `yaml:"scan_timeout_seconds"`

	// UpdateIntervalMinutes is the background rediscovery interval.
	UpdateIntervalMinutes int `yaml:"update_interval_minutes"`
}

func defaultPreferences() Preferences {
	return Preferences{
		ScanTimeoutSeconds:    10,
		UpdateIntervalMinutes: 5,
	}
}

// storeDocument is the on-disk shape of the device store.
type storeDocument struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // keyed by device ID
	Preferences Preferences        `yaml:"preferences"`
}

// Store is a YAML-file-backed device registry. All methods are safe for
// concurrent use; every mutation is persisted with an atomic write before it
// returns. Construct with Open.
type Store struct {
	mu          sync.Mutex
	path        string
	devices     map[string]*Device
	preferences Preferences
	subscribers map[int]func()
	nextSubID   int
}

// DefaultPath returns the platform-appropriate location of the device store:
//   - Linux: $XDG_CONFIG_HOME/zgxctl or $HOME/.config/zgxctl
//   - macOS: $HOME/.config/zgxctl
//   - Windows: %LOCALAPPDATA%\zgxctl
func DefaultPath() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	default:
		// Linux, macOS and other Unix-like systems: XDG_CONFIG_HOME or
		// $HOME/.config
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return filepath.Join(baseDir, storeFile), nil
}

// Open loads the store at path, creating an empty store with default
// preferences when the file does not exist yet.
func Open(path string) (*Store, error) {
	store := &Store{
		path:        path,
		devices:     make(map[string]*Device),
		preferences: defaultPreferences(),
		subscribers: make(map[int]func()),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read device store: %w", err)
	}

	var doc storeDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse device store: %w", err)
	}
	if doc.Version != storeVersion {
		return nil, fmt.Errorf("unsupported device store version: %d (expected %d)", doc.Version, storeVersion)
	}

	if doc.Devices != nil {
		store.devices = doc.Devices
	}
	if doc.Preferences != (Preferences{}) {
		store.preferences = doc.Preferences
	}
	return store, nil
}

// GetAll returns a snapshot of every stored device, sorted by name.
func (s *Store) GetAll() []Device {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]Device, 0, len(s.devices))
	for _, d := range s.devices {
		all = append(all, *d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Get returns the device with the given ID.
func (s *Store) Get(id string) (Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[id]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// Add stores a new device and persists the store. A missing ID is assigned;
// a duplicate ID is an error. The stored device is returned.
func (s *Store) Add(device Device) (Device, error) {
	s.mu.Lock()

	if device.ID == "" {
		device.ID = newDeviceID()
	}
	if _, exists := s.devices[device.ID]; exists {
		s.mu.Unlock()
		return Device{}, fmt.Errorf("device %q already exists", device.ID)
	}
	if device.AddedAt.IsZero() {
		device.AddedAt = time.Now()
	}

	s.devices[device.ID] = &device
	if err := s.saveLocked(); err != nil {
		delete(s.devices, device.ID)
		s.mu.Unlock()
		return Device{}, err
	}
	s.mu.Unlock()

	s.notify()
	return device, nil
}

// Update applies a partial update to the device with the given ID and
// persists the store.
func (s *Store) Update(id string, patch Patch) error {
	s.mu.Lock()

	device, ok := s.devices[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("device %q not found", id)
	}

	previous := *device
	patch.apply(device)
	if err := s.saveLocked(); err != nil {
		*device = previous
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// Remove deletes the device with the given ID and persists the store.
func (s *Store) Remove(id string) error {
	s.mu.Lock()

	device, ok := s.devices[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("device %q not found", id)
	}

	delete(s.devices, id)
	if err := s.saveLocked(); err != nil {
		s.devices[id] = device
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// Preferences returns the stored preferences.
func (s *Store) Preferences() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preferences
}

// Subscribe registers fn to run after every successful mutation. The
// returned function removes the subscription. Callbacks run outside the
// store lock; they may call back into the store.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// saveLocked writes the store to disk with an atomic tmp-file + rename.
// Callers must hold s.mu.
func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	doc := storeDocument{
		Version:     storeVersion,
		Devices:     s.devices,
		Preferences: s.preferences,
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal device store: %w", err)
	}

	header := []byte("# zgxctl device store\n# Managed by zgxctl; edit while the tool is running at your own risk.\n\n")
	data = append(header, data...)

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary store file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save device store: %w", err)
	}
	return nil
}

func newDeviceID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform RNG is broken; fall back
		// to a time-derived ID rather than aborting an add.
		return fmt.Sprintf("dev-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
