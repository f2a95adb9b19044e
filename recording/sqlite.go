package recording

import (
	"time"

	"github.com/sarchlab/pktmux/datarecording"
)

// LatencyTable is the table SQLiteRecorder writes into.
const LatencyTable = "latency"

// LatencyRow is one row of the latency table. SQLite integers are signed, so
// the packet ID is stored as its int64 bit pattern; IDs at or above 1<<63 come
// out negative and uint64(PacketID) restores them.
type LatencyRow struct {
	PacketID   int64
	LatencySec float64
}

// SQLiteRecorder stores latency entries as rows through a DataRecorder.
// Rows are buffered by the DataRecorder and written in batches.
type SQLiteRecorder struct {
	backend datarecording.DataRecorder
	owned   bool
}

// NewSQLiteRecorder creates the latency table in backend. Closing the
// recorder flushes the backend but leaves it open for other tables.
func NewSQLiteRecorder(
	backend datarecording.DataRecorder,
) (*SQLiteRecorder, error) {
	if err := backend.CreateTable(LatencyTable, LatencyRow{}); err != nil {
		return nil, err
	}

	return &SQLiteRecorder{backend: backend}, nil
}

// OpenSQLiteRecorder opens (or creates) the database file at path with the
// named driver. The recorder owns the database and closes it on Close.
func OpenSQLiteRecorder(driver, path string) (*SQLiteRecorder, error) {
	backend, err := datarecording.NewWithDriver(driver, path)
	if err != nil {
		return nil, err
	}

	r, err := NewSQLiteRecorder(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	r.owned = true

	return r, nil
}

// Record buffers one row.
func (r *SQLiteRecorder) Record(id uint64, latency time.Duration) error {
	return r.backend.InsertData(LatencyTable, LatencyRow{
		PacketID:   int64(id),
		LatencySec: latency.Seconds(),
	})
}

// Close flushes the buffered rows, and closes the database if the recorder
// opened it.
func (r *SQLiteRecorder) Close() error {
	if r.owned {
		return r.backend.Close()
	}

	return r.backend.Flush()
}
