package recording

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/tebeka/atexit"
)

// DefaultLogFile is the latency log written when no path is configured.
const DefaultLogFile = "latency_log.txt"

// FormatLine renders an entry as a latency log line, seconds in the shortest
// decimal form that round-trips.
func FormatLine(id uint64, latency time.Duration) string {
	secs := strconv.FormatFloat(latency.Seconds(), 'f', -1, 64)
	return fmt.Sprintf("Packet ID: %d , latency: %s sec\n", id, secs)
}

// WriterRecorder writes latency log lines to an io.Writer.
type WriterRecorder struct {
	lock   sync.Mutex
	w      io.Writer
	closer io.Closer
	closed bool
}

// NewWriterRecorder creates a recorder over w. The recorder does not close w.
func NewWriterRecorder(w io.Writer) *WriterRecorder {
	return &WriterRecorder{w: w}
}

// FileRecorder is a WriterRecorder that owns a file opened in append mode.
type FileRecorder struct {
	*WriterRecorder

	path string
	buf  *bufio.Writer
}

// NewFileRecorder opens path for appending, creating it if absent.
func NewFileRecorder(path string) (*FileRecorder, error) {
	if path == "" {
		path = DefaultLogFile
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("recording: open latency log: %w", err)
	}

	buf := bufio.NewWriter(file)
	r := &FileRecorder{
		WriterRecorder: &WriterRecorder{w: buf, closer: file},
		path:           path,
		buf:            buf,
	}

	atexit.Register(func() { _ = r.Flush() })

	return r, nil
}

// Path returns the file the recorder appends to.
func (r *FileRecorder) Path() string {
	return r.path
}

// Record appends one line.
func (r *WriterRecorder) Record(id uint64, latency time.Duration) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return ErrClosed
	}

	if _, err := io.WriteString(r.w, FormatLine(id, latency)); err != nil {
		return fmt.Errorf("recording: write latency entry %d: %w", id, err)
	}

	return nil
}

// Flush pushes buffered lines to the file.
func (r *FileRecorder) Flush() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return nil
	}

	return r.buf.Flush()
}

// Close flushes and closes the file.
func (r *FileRecorder) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true

	if err := r.buf.Flush(); err != nil {
		r.closer.Close()
		return fmt.Errorf("recording: flush latency log: %w", err)
	}

	return r.closer.Close()
}

// Close marks the recorder closed. The underlying writer is left open.
func (r *WriterRecorder) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.closed = true

	return nil
}
