package recording

import (
	"sync"
	"time"

	"github.com/sarchlab/pktmux/stats"
)

// Summary is a snapshot of the latency distribution seen so far.
type Summary struct {
	Count      uint64  `json:"count"`
	MeanSec    float64 `json:"mean_sec"`
	StdDevSec  float64 `json:"stddev_sec"`
	MinSec     float64 `json:"min_sec"`
	MaxSec     float64 `json:"max_sec"`
	LastPacket uint64  `json:"last_packet"`
}

// SummaryRecorder keeps running latency statistics in memory. It is safe for
// concurrent use.
type SummaryRecorder struct {
	lock    sync.Mutex
	latency stats.Running[time.Duration]
	last    uint64
}

// NewSummaryRecorder creates an empty SummaryRecorder.
func NewSummaryRecorder() *SummaryRecorder {
	return &SummaryRecorder{}
}

// Record folds the latency into the summary. It never fails.
func (r *SummaryRecorder) Record(id uint64, latency time.Duration) error {
	r.lock.Lock()
	r.latency.Add(latency)
	r.last = id
	r.lock.Unlock()

	return nil
}

// Summary returns the current statistics.
func (r *SummaryRecorder) Summary() Summary {
	r.lock.Lock()
	defer r.lock.Unlock()

	return Summary{
		Count:      r.latency.Count(),
		MeanSec:    r.latency.Mean() / float64(time.Second),
		StdDevSec:  r.latency.StdDev() / float64(time.Second),
		MinSec:     r.latency.Min().Seconds(),
		MaxSec:     r.latency.Max().Seconds(),
		LastPacket: r.last,
	}
}
