package telemetry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/zgxtoolkit/zgxctl/internal/logging"
)

// Event is a single analytics event. Property names and measurement keys are
// a contract consumed by downstream analytics; renaming them is a breaking
// change even though they are plain strings here.
type Event struct {
	// EventType groups related actions (e.g., "deviceDiscovery").
	EventType string

	// Action is what happened within the event type (e.g., "discoverDevices").
	Action string

	// Properties carries low-cardinality string dimensions
	// (e.g., "method": "dns-sd", "result": "success").
	Properties map[string]string

	// Measurements carries numeric values (e.g., "deviceCount": 3).
	Measurements map[string]float64
}

// ErrorEvent is a recorded failure with the context it occurred in.
type ErrorEvent struct {
	EventType string
	Err       error
	Context   string
}

// Sink receives telemetry events. Implementations must be safe for
// concurrent use and must never block the caller for long; discovery and the
// background updater report from hot paths.
type Sink interface {
	TrackEvent(event Event)
	TrackError(eventType string, err error, context string)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) TrackEvent(Event) {}

func (NopSink) TrackError(string, error, string) {}

// LogSink writes telemetry to the structured log at debug level. It is the
// default sink for the CLI, where no analytics backend is wired up.
type LogSink struct{}

func (LogSink) TrackEvent(event Event) {
	logging.Debug("telemetry event",
		zap.String("event_type", event.EventType),
		zap.String("action", event.Action),
		zap.Any("properties", event.Properties),
		zap.Any("measurements", event.Measurements),
	)
}

func (LogSink) TrackError(eventType string, err error, context string) {
	logging.Debug("telemetry error",
		zap.String("event_type", eventType),
		zap.Error(err),
		zap.String("context", context),
	)
}

// Recorder is an in-memory sink that retains every event it receives.
// It exists for tests that assert on emitted telemetry.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	errors []ErrorEvent
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) TrackEvent(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *Recorder) TrackError(eventType string, err error, context string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, ErrorEvent{EventType: eventType, Err: err, Context: context})
}

// Events returns a copy of all recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Errors returns a copy of all recorded error events.
func (r *Recorder) Errors() []ErrorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ErrorEvent, len(r.errors))
	copy(out, r.errors)
	return out
}

// EventsWithAction returns recorded events whose Action matches.
func (r *Recorder) EventsWithAction(action string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
