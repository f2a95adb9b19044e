// Package recording persists per-packet service latency. Recorders are
// append-only sinks; a failing sink costs a log line, never a round.
package recording

import (
	"errors"
	"time"
)

// ErrClosed is returned when recording into a closed sink.
var ErrClosed = errors.New("recording: recorder is closed")

// ErrDropped is returned when an entry is discarded because the sink cannot
// keep up.
var ErrDropped = errors.New("recording: entry dropped")

// LatencyRecorder appends one latency entry per served packet.
type LatencyRecorder interface {
	Record(id uint64, latency time.Duration) error
}

// A Closer is a recorder that holds resources. Close drains anything buffered
// and releases the sink.
type Closer interface {
	Close() error
}

// LatencyEntry is one latency record.
type LatencyEntry struct {
	PacketID uint64
	Latency  time.Duration
}

// Close closes r if it holds resources.
func Close(r LatencyRecorder) error {
	if c, ok := r.(Closer); ok {
		return c.Close()
	}

	return nil
}
