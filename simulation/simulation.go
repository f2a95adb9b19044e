// Package simulation wires a generator, a scheduler, the latency recorders
// and the tracers into a run driven by a tick loop.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/sarchlab/pktmux/config"
	"github.com/sarchlab/pktmux/datarecording"
	"github.com/sarchlab/pktmux/monitoring"
	"github.com/sarchlab/pktmux/packet"
	"github.com/sarchlab/pktmux/recording"
	"github.com/sarchlab/pktmux/scheduling"
	"github.com/sarchlab/pktmux/timing"
	"github.com/sarchlab/pktmux/tracing"
)

// Stats counts what happened to the packets of a run.
type Stats struct {
	Ticks     uint64
	Generated uint64
	Served    uint64

	// Dropped counts packets the scheduler refused.
	Dropped uint64

	Backlog int
}

// A Simulation is one configured run.
type Simulation struct {
	id     string
	cfg    config.Config
	seed   uint64
	logger *log.Logger
	status io.Writer

	clock        timing.TimeTeller
	virtualClock *timing.ManualClock
	loop         *timing.Loop

	generator *packet.Generator
	scheduler *scheduling.RoundRobin

	recorder *recording.MultiRecorder
	sinks    *recording.MultiRecorder
	async    *recording.AsyncRecorder
	summary  *recording.SummaryRecorder

	dataRecorder *datarecording.SQLiteWriter
	execRecorder *datarecording.ExecRecorder
	csvTracer    *tracing.CSVTraceWriter
	dbTracer     *tracing.DBTracer

	monitor    *monitoring.Monitor
	monitorURL string
	progress   *monitoring.TickProgress

	statsLock sync.Mutex
	stats     Stats

	terminateOnce sync.Once
	terminateErr  error
}

// ID returns the unique id of the run.
func (s *Simulation) ID() string {
	return s.id
}

// Config returns the options the run was built with.
func (s *Simulation) Config() config.Config {
	return s.cfg
}

// Seed returns the seed of the random source, which is picked from the clock
// when the configuration leaves it zero.
func (s *Simulation) Seed() uint64 {
	return s.seed
}

// Generator returns the packet generator.
func (s *Simulation) Generator() *packet.Generator {
	return s.generator
}

// Scheduler returns the scheduler.
func (s *Simulation) Scheduler() *scheduling.RoundRobin {
	return s.scheduler
}

// Loop returns the loop that drives the run.
func (s *Simulation) Loop() *timing.Loop {
	return s.loop
}

// Clock returns the clock packets are stamped with.
func (s *Simulation) Clock() timing.TimeTeller {
	return s.clock
}

// Monitor returns the monitor, nil if monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the address of the monitor, empty if monitoring is off.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// Summary returns the latency statistics so far.
func (s *Simulation) Summary() recording.Summary {
	return s.summary.Summary()
}

// Stats returns the packet counts so far.
func (s *Simulation) Stats() Stats {
	s.statsLock.Lock()
	defer s.statsLock.Unlock()

	stats := s.stats
	stats.Backlog = s.scheduler.Backlog()

	return stats
}

// Tick generates the packets of one tick, queues them and serves one round.
// Packets the scheduler refuses are logged and dropped.
func (s *Simulation) Tick(tick uint64) error {
	packets, err := s.generator.Generate(tick)
	if err != nil {
		return fmt.Errorf("tick %d: %w", tick, err)
	}

	dropped := uint64(0)
	for _, p := range packets {
		if err := s.scheduler.Enqueue(p); err != nil {
			s.logWarning("dropping packet %d: %v", p.ID, err)
			dropped++
		}
	}

	departures := s.scheduler.ServeRound()

	s.statsLock.Lock()
	s.stats.Ticks++
	s.stats.Generated += uint64(len(packets))
	s.stats.Served += uint64(len(departures))
	s.stats.Dropped += dropped
	s.statsLock.Unlock()

	if s.progress != nil {
		s.progress.TickDone(tick)
	}

	return nil
}

// Run drives the loop until the tick limit is reached, ctx is cancelled or a
// tick fails. It does not release any resources; call Terminate for that.
func (s *Simulation) Run(ctx context.Context) error {
	if s.execRecorder != nil {
		s.execRecorder.Start()
		s.execRecorder.Set("Run ID", s.id)
		s.execRecorder.Set("Seed", fmt.Sprint(s.seed))
	}

	return s.loop.Run(ctx)
}

// Terminate drains and closes every recorder and tracer, stops the monitor
// and prints the end-of-run summary. Calling it again returns the first
// result.
func (s *Simulation) Terminate() error {
	s.terminateOnce.Do(func() {
		s.terminateErr = s.release()
		s.printSummary()
	})

	return s.terminateErr
}

func (s *Simulation) release() error {
	var errs []error

	if s.monitor != nil {
		if s.progress != nil {
			s.monitor.StopTracking(s.progress)
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		errs = append(errs, s.monitor.StopServer(ctx))
		cancel()
	}

	if s.async != nil {
		errs = append(errs, s.async.Close())
		if dropped := s.async.Dropped(); dropped > 0 {
			s.logWarning("%d latency entries dropped", dropped)
		}
	} else if s.sinks != nil {
		errs = append(errs, s.sinks.Close())
	}

	if s.csvTracer != nil {
		errs = append(errs, s.csvTracer.Close())
	}

	if s.dbTracer != nil {
		errs = append(errs, s.dbTracer.Terminate())
	}

	if s.execRecorder != nil {
		errs = append(errs, s.execRecorder.End())
	}

	if s.dataRecorder != nil {
		errs = append(errs, s.dataRecorder.Close())
	}

	return errors.Join(errs...)
}

func (s *Simulation) printSummary() {
	stats := s.Stats()
	sum := s.Summary()

	s.printStatus("Run %s: %d ticks, %d packets generated, "+
		"%d served, %d dropped, %d still queued\n",
		s.id, stats.Ticks, stats.Generated,
		stats.Served, stats.Dropped, stats.Backlog)

	if sum.Count == 0 {
		return
	}

	s.printStatus("Latency: mean %.6f s, stddev %.6f s, "+
		"min %.6f s, max %.6f s\n",
		sum.MeanSec, sum.StdDevSec, sum.MinSec, sum.MaxSec)
}

var _ timing.Ticker = (*Simulation)(nil)
