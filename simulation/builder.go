package simulation

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/rs/xid"

	"github.com/sarchlab/pktmux/config"
	"github.com/sarchlab/pktmux/datarecording"
	"github.com/sarchlab/pktmux/monitoring"
	"github.com/sarchlab/pktmux/packet"
	"github.com/sarchlab/pktmux/recording"
	"github.com/sarchlab/pktmux/scheduling"
	"github.com/sarchlab/pktmux/timing"
	"github.com/sarchlab/pktmux/tracing"
)

// VirtualEpoch is the time a virtual clock starts at.
var VirtualEpoch = time.Unix(0, 0).UTC()

// Builder can be used to build a simulation.
type Builder struct {
	cfg    config.Config
	logger *log.Logger
	status io.Writer
}

// MakeBuilder creates a new builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		cfg:    config.Default(),
		logger: log.Default(),
		status: os.Stderr,
	}
}

// WithConfig sets every option of the run.
func (b Builder) WithConfig(cfg config.Config) Builder {
	b.cfg = cfg
	return b
}

// WithLogger sets the logger that receives warnings and, in verbose mode,
// the per-tick log.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// WithStatusWriter sets where status messages and the end-of-run summary
// go. It defaults to stderr.
func (b Builder) WithStatusWriter(w io.Writer) Builder {
	b.status = w
	return b
}

// Build builds the simulation. On error every resource opened so far is
// released.
func (b Builder) Build() (s *Simulation, err error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	s = &Simulation{
		id:     xid.New().String(),
		cfg:    b.cfg,
		logger: b.logger,
		status: b.status,
	}

	defer func() {
		if err != nil {
			s.release()
			s = nil
		}
	}()

	s.buildClock()

	if err := s.buildGenerator(); err != nil {
		return s, err
	}

	if err := s.buildRecorders(); err != nil {
		return s, err
	}

	if err := s.buildScheduler(); err != nil {
		return s, err
	}

	if err := s.buildTracers(); err != nil {
		return s, err
	}

	if err := s.buildLoop(); err != nil {
		return s, err
	}

	if err := s.buildMonitor(); err != nil {
		return s, err
	}

	return s, nil
}

func (s *Simulation) buildClock() {
	if s.cfg.VirtualTime {
		s.virtualClock = timing.NewManualClock(VirtualEpoch)
		s.clock = s.virtualClock

		return
	}

	s.clock = timing.WallClock{}
}

func (s *Simulation) buildGenerator() error {
	s.seed = s.cfg.Seed
	if s.seed == 0 {
		s.seed = uint64(time.Now().UnixNano())
	}

	gen, err := packet.NewGenerator(
		s.cfg.GeneratorConfig(), packet.NewSource(s.seed), s.clock)
	if err != nil {
		return err
	}

	s.generator = gen

	return nil
}

func (s *Simulation) buildRecorders() error {
	s.summary = recording.NewSummaryRecorder()

	sinks := recording.NewMultiRecorder()
	s.sinks = sinks

	if s.cfg.LatencyLog != "" {
		file, err := recording.NewFileRecorder(s.cfg.LatencyLog)
		if err != nil {
			return err
		}

		sinks.Add(file)
	}

	if s.cfg.SQLitePath != "" {
		backend, err := datarecording.NewWithDriver(
			s.cfg.SQLiteDriver, s.cfg.SQLitePath)
		if err != nil {
			return err
		}

		s.dataRecorder = backend

		latency, err := recording.NewSQLiteRecorder(backend)
		if err != nil {
			return err
		}

		sinks.Add(latency)

		s.execRecorder, err = datarecording.NewExecRecorder(backend)
		if err != nil {
			return err
		}
	}

	all := recording.NewMultiRecorder(s.summary)

	if sinks.Len() > 0 {
		if s.cfg.Async {
			s.async = recording.NewAsyncRecorder(
				sinks, s.cfg.AsyncBuffer, s.logger)
			all.Add(s.async)
		} else {
			all.Add(sinks)
		}
	}

	s.recorder = all

	return nil
}

func (s *Simulation) buildScheduler() error {
	sched, err := scheduling.NewRoundRobin(
		s.cfg.SchedulerConfig(), s.recorder, s.clock)
	if err != nil {
		return err
	}

	s.scheduler = sched.WithLogger(s.logger)

	return nil
}

func (s *Simulation) buildTracers() error {
	var tracers []tracing.Tracer

	if s.cfg.Verbose {
		tracers = append(tracers,
			tracing.NewEventLogger(s.logger, s.scheduler))
	}

	if s.cfg.TraceCSV != "" {
		s.csvTracer = tracing.NewCSVTraceWriter(s.cfg.TraceCSV)
		if err := s.csvTracer.Init(); err != nil {
			s.csvTracer = nil
			return err
		}

		tracers = append(tracers, s.csvTracer)
	}

	if s.dataRecorder != nil {
		dbTracer, err := tracing.NewDBTracer(s.dataRecorder)
		if err != nil {
			return err
		}

		s.dbTracer = dbTracer
		tracers = append(tracers, dbTracer)
	}

	for _, t := range tracers {
		tracing.CollectTrace(s.generator, t)
		tracing.CollectTrace(s.scheduler, t)
	}

	return nil
}

func (s *Simulation) buildLoop() error {
	loop, err := timing.NewLoop(s, s.cfg.TickInterval)
	if err != nil {
		return err
	}

	loop.WithMaxTicks(s.cfg.Ticks)

	if s.virtualClock != nil {
		loop.WithVirtualClock(s.virtualClock)
	}

	s.loop = loop

	return nil
}

func (s *Simulation) buildMonitor() error {
	if !s.cfg.Monitor {
		return nil
	}

	s.monitor = monitoring.NewMonitor().
		WithPortNumber(s.cfg.MonitorPort).
		WithBrowser(s.cfg.OpenBrowser)
	s.monitor.RegisterLoop(s.loop)
	s.monitor.RegisterComponent(s.generator)
	s.monitor.RegisterComponent(s.scheduler)
	s.monitor.RegisterLatencySource(s.summary)

	if s.cfg.Ticks > 0 {
		s.progress = s.monitor.TrackTicks("Ticks", s.cfg.Ticks)
	}

	url, err := s.monitor.StartServer()
	if err != nil {
		return err
	}

	s.monitorURL = url

	return nil
}

func (s *Simulation) logWarning(format string, args ...any) {
	s.logger.Printf("warning: "+format, args...)
}

func (s *Simulation) printStatus(format string, args ...any) {
	fmt.Fprintf(s.status, format, args...)
}
