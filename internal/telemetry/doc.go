// Package telemetry defines the analytics sink consumed by the discovery and
// device-management services.
//
// The core never depends on a concrete analytics backend: it emits Event and
// error records through the Sink interface and lets the embedding application
// decide where they go. The CLI wires LogSink (debug-level structured log);
// tests wire Recorder to assert on emitted events.
package telemetry
