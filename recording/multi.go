package recording

import (
	"errors"
	"time"
)

// MultiRecorder records every entry into all of its sinks.
type MultiRecorder struct {
	sinks []LatencyRecorder
}

// NewMultiRecorder creates a fan-out over sinks.
func NewMultiRecorder(sinks ...LatencyRecorder) *MultiRecorder {
	return &MultiRecorder{sinks: sinks}
}

// Add appends a sink.
func (m *MultiRecorder) Add(sink LatencyRecorder) {
	m.sinks = append(m.sinks, sink)
}

// Len returns the number of sinks.
func (m *MultiRecorder) Len() int {
	return len(m.sinks)
}

// Record writes into every sink, even after one of them fails. The errors of
// all failing sinks are joined.
func (m *MultiRecorder) Record(id uint64, latency time.Duration) error {
	var errs []error

	for _, s := range m.sinks {
		if err := s.Record(id, latency); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (m *MultiRecorder) Close() error {
	var errs []error

	for _, s := range m.sinks {
		if err := Close(s); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
