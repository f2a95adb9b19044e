package tracing

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/pktmux/packet"
	"github.com/sarchlab/pktmux/scheduling"
)

// CSVTraceWriter is a tracer that stores the departures into a CSV file.
type CSVTraceWriter struct {
	lock sync.Mutex
	path string
	file *os.File
	w    *bufio.Writer

	departures []scheduling.Departure
	bufferSize int
	errs       []error
}

// NewCSVTraceWriter creates a new CSVTraceWriter. The file is only created by
// Init.
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// Path returns the name of the CSV file, including the extension.
func (t *CSVTraceWriter) Path() string {
	return t.path + ".csv"
}

// Init creates the trace csv file. It fails if the file already exists.
func (t *CSVTraceWriter) Init() error {
	if t.path == "" {
		t.path = "pktmux_trace_" + xid.New().String()
	}

	filename := t.Path()
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("tracing: create %s: %w", filename, err)
	}

	t.file = file
	t.w = bufio.NewWriter(file)

	fmt.Fprintf(t.w,
		"Round, Port, PacketID, Priority, PayloadLen, Arrival, Departure, LatencySec\n")

	atexit.Register(func() {
		_ = t.Close()
	})

	return nil
}

// TickGenerated does nothing.
func (t *CSVTraceWriter) TickGenerated(packet.TickSummary) {}

// RoundStarted does nothing.
func (t *CSVTraceWriter) RoundStarted(uint64) {}

// RoundEnded does nothing.
func (t *CSVTraceWriter) RoundEnded(scheduling.RoundSummary) {}

// PacketServed buffers a departure and writes the buffer out when it is full.
// Write errors are kept and returned by Close.
func (t *CSVTraceWriter) PacketServed(d scheduling.Departure) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.departures = append(t.departures, d)
	if len(t.departures) >= t.bufferSize {
		if err := t.flush(); err != nil {
			t.errs = append(t.errs, err)
		}
	}
}

// Flush writes the buffered departures to the CSV file.
func (t *CSVTraceWriter) Flush() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.flush()
}

func (t *CSVTraceWriter) flush() error {
	if t.w == nil {
		return nil
	}

	for _, d := range t.departures {
		fmt.Fprintf(t.w, "%d, %d, %d, %d, %d, %.9f, %.9f, %.9f\n",
			d.Round,
			d.Port,
			d.Packet.ID,
			d.Packet.Priority,
			len(d.Packet.Payload),
			float64(d.Packet.ArrivalTime.UnixNano())/1e9,
			float64(d.DepartureTime.UnixNano())/1e9,
			d.Latency.Seconds(),
		)
	}

	t.departures = nil

	return t.w.Flush()
}

// Close flushes and closes the file. It returns the write errors seen since
// Init, joined with the flush and close errors. Closing twice is a no-op.
func (t *CSVTraceWriter) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.file == nil {
		return nil
	}

	errs := append(t.errs, t.flush(), t.file.Close())

	t.errs = nil
	t.file = nil
	t.w = nil

	return errors.Join(errs...)
}
