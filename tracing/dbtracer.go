package tracing

import (
	"errors"
	"sync"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/pktmux/datarecording"
	"github.com/sarchlab/pktmux/packet"
	"github.com/sarchlab/pktmux/scheduling"
)

// Table names written by DBTracer.
const (
	DepartureTable = "departure"
	TickTable      = "tick"
	RoundTable     = "round"
)

// DepartureEntry is one row of the departure table. PacketID holds the int64
// bit pattern of the packet ID, as in recording.LatencyRow.
type DepartureEntry struct {
	Round       uint64
	Port        int
	PacketID    int64
	Priority    uint32
	PayloadLen  int
	EgressPort  int
	ArrivalNs   int64
	DepartureNs int64
	LatencySec  float64
}

// TickEntry is one row of the tick table.
type TickEntry struct {
	Tick      uint64
	Generated int
}

// RoundEntry is one row of the round table.
type RoundEntry struct {
	Round   uint64
	Served  int
	Backlog int
}

// DBTracer is a tracer that stores departures, ticks and rounds into a
// database through a DataRecorder.
type DBTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder
	errs    []error
}

// NewDBTracer creates the trace tables in dataRecorder and returns a tracer
// writing into them.
func NewDBTracer(dataRecorder datarecording.DataRecorder) (*DBTracer, error) {
	tables := []struct {
		name   string
		sample any
	}{
		{DepartureTable, DepartureEntry{}},
		{TickTable, TickEntry{}},
		{RoundTable, RoundEntry{}},
	}

	for _, table := range tables {
		err := dataRecorder.CreateTable(table.name, table.sample)
		if err != nil {
			return nil, err
		}
	}

	t := &DBTracer{backend: dataRecorder}

	atexit.Register(func() {
		_ = t.Terminate()
	})

	return t, nil
}

// TickGenerated records a tick.
func (t *DBTracer) TickGenerated(s packet.TickSummary) {
	t.insert(TickTable, TickEntry{Tick: s.Tick, Generated: s.Generated})
}

// RoundStarted does nothing.
func (t *DBTracer) RoundStarted(uint64) {}

// PacketServed records a departure.
func (t *DBTracer) PacketServed(d scheduling.Departure) {
	t.insert(DepartureTable, DepartureEntry{
		Round:       d.Round,
		Port:        d.Port,
		PacketID:    int64(d.Packet.ID),
		Priority:    d.Packet.Priority,
		PayloadLen:  len(d.Packet.Payload),
		EgressPort:  d.Packet.EgressPort,
		ArrivalNs:   d.Packet.ArrivalTime.UnixNano(),
		DepartureNs: d.DepartureTime.UnixNano(),
		LatencySec:  d.Latency.Seconds(),
	})
}

// RoundEnded records a round.
func (t *DBTracer) RoundEnded(s scheduling.RoundSummary) {
	t.insert(RoundTable, RoundEntry{
		Round:   s.Round,
		Served:  s.Served,
		Backlog: s.Backlog,
	})
}

func (t *DBTracer) insert(table string, entry any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.backend.InsertData(table, entry); err != nil {
		t.errs = append(t.errs, err)
	}
}

// Terminate flushes the buffered rows. It returns the insertion errors seen
// since the last call, joined with the flush error.
func (t *DBTracer) Terminate() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	errs := append(t.errs, t.backend.Flush())
	t.errs = nil

	return errors.Join(errs...)
}
