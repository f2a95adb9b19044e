package recording

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultAsyncBuffer is the number of entries an AsyncRecorder queues before
// it starts dropping.
const DefaultAsyncBuffer = 4096

// AsyncRecorder hands entries to a single writer goroutine, so a slow sink
// never holds up a scheduling round. Record never blocks: when the queue is
// full the entry is dropped and ErrDropped is returned. Errors from the inner
// sink are logged as warnings.
type AsyncRecorder struct {
	inner  LatencyRecorder
	logger *log.Logger

	lock    sync.RWMutex
	entries chan LatencyEntry
	closed  bool
	done    chan struct{}

	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewAsyncRecorder starts the writer goroutine. A buffer of zero or less
// uses DefaultAsyncBuffer.
func NewAsyncRecorder(
	inner LatencyRecorder,
	buffer int,
	logger *log.Logger,
) *AsyncRecorder {
	if buffer <= 0 {
		buffer = DefaultAsyncBuffer
	}

	if logger == nil {
		logger = log.Default()
	}

	r := &AsyncRecorder{
		inner:   inner,
		logger:  logger,
		entries: make(chan LatencyEntry, buffer),
		done:    make(chan struct{}),
	}

	go r.run()

	return r
}

func (r *AsyncRecorder) run() {
	defer close(r.done)

	for e := range r.entries {
		if err := r.inner.Record(e.PacketID, e.Latency); err != nil {
			r.failed.Add(1)
			r.logger.Printf("warning: latency entry for packet %d lost: %v",
				e.PacketID, err)
		}
	}
}

// Record queues the entry for the writer goroutine.
func (r *AsyncRecorder) Record(id uint64, latency time.Duration) error {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.closed {
		return ErrClosed
	}

	select {
	case r.entries <- LatencyEntry{PacketID: id, Latency: latency}:
		return nil
	default:
		r.dropped.Add(1)
		return ErrDropped
	}
}

// Dropped returns how many entries were discarded because the queue was full.
func (r *AsyncRecorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Failed returns how many entries the inner sink refused.
func (r *AsyncRecorder) Failed() uint64 {
	return r.failed.Load()
}

// Close stops accepting entries, waits until the queued ones are written and
// closes the inner sink.
func (r *AsyncRecorder) Close() error {
	r.lock.Lock()
	if r.closed {
		r.lock.Unlock()
		return nil
	}

	r.closed = true
	close(r.entries)
	r.lock.Unlock()

	<-r.done

	err := Close(r.inner)
	if errors.Is(err, ErrClosed) {
		return nil
	}

	return err
}
