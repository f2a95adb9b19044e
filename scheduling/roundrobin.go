package scheduling

import (
	"fmt"
	"log"
	"sync"

	"github.com/sarchlab/pktmux/hooking"
	"github.com/sarchlab/pktmux/packet"
	"github.com/sarchlab/pktmux/queueing"
	"github.com/sarchlab/pktmux/recording"
	"github.com/sarchlab/pktmux/timing"
)

// Config sizes a RoundRobin scheduler.
type Config struct {
	IngressPorts int
	EgressPorts  int

	// QueueCapacity bounds every ingress queue. queueing.Unbounded (0) lets
	// the queues grow without limit.
	QueueCapacity int
}

// DefaultConfig returns four unbounded ports.
func DefaultConfig() Config {
	return Config{
		IngressPorts:  4,
		EgressPorts:   4,
		QueueCapacity: queueing.Unbounded,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.IngressPorts <= 0:
		return fmt.Errorf("%w: ingress ports must be positive, got %d",
			packet.ErrInvalidParameter, c.IngressPorts)
	case c.EgressPorts <= 0:
		return fmt.Errorf("%w: egress ports must be positive, got %d",
			packet.ErrInvalidParameter, c.EgressPorts)
	case c.EgressPorts != c.IngressPorts:
		return fmt.Errorf(
			"%w: egress ports (%d) must match ingress ports (%d)",
			packet.ErrInvalidParameter, c.EgressPorts, c.IngressPorts)
	case c.QueueCapacity < 0:
		return fmt.Errorf("%w: queue capacity must not be negative, got %d",
			packet.ErrInvalidParameter, c.QueueCapacity)
	}

	return nil
}

// RoundRobin serves every ingress port once per round. Ingress port i only
// ever feeds egress port i, so at most one packet leaves each egress port per
// round.
type RoundRobin struct {
	*hooking.HookableBase

	recorder recording.LatencyRecorder
	clock    timing.TimeTeller
	logger   *log.Logger

	ingress []*queueing.Buffer[packet.Packet]

	lock   sync.RWMutex
	egress []Departure
	filled []bool
	round  uint64
}

// NewRoundRobin creates a scheduler. A nil recorder disables latency
// recording.
func NewRoundRobin(
	cfg Config,
	recorder recording.LatencyRecorder,
	clock timing.TimeTeller,
) (*RoundRobin, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if clock == nil {
		return nil, fmt.Errorf("%w: clock must not be nil",
			packet.ErrInvalidParameter)
	}

	s := &RoundRobin{
		HookableBase: hooking.NewHookableBase(),
		recorder:     recorder,
		clock:        clock,
		logger:       log.Default(),
		ingress:      make([]*queueing.Buffer[packet.Packet], cfg.IngressPorts),
		egress:       make([]Departure, cfg.EgressPorts),
		filled:       make([]bool, cfg.EgressPorts),
	}

	for i := range s.ingress {
		s.ingress[i] = queueing.NewBuffer[packet.Packet](
			fmt.Sprintf("%s.Ingress[%d]", s.Name(), i), cfg.QueueCapacity)
	}

	return s, nil
}

// WithLogger sets the logger that receives recorder warnings.
func (s *RoundRobin) WithLogger(logger *log.Logger) *RoundRobin {
	if logger != nil {
		s.logger = logger
	}

	return s
}

// Name returns the name of the scheduler.
func (s *RoundRobin) Name() string {
	return "Scheduler"
}

// Enqueue appends p to the queue of its ingress port.
func (s *RoundRobin) Enqueue(p packet.Packet) error {
	if p.IngressPort < 0 || p.IngressPort >= len(s.ingress) {
		return fmt.Errorf("%w: packet %d names ingress port %d, have %d",
			ErrInvalidPort, p.ID, p.IngressPort, len(s.ingress))
	}

	buf := s.ingress[p.IngressPort]
	if !buf.CanPush() {
		return fmt.Errorf("%w: ingress port %d holds %d packets",
			ErrQueueFull, p.IngressPort, buf.Size())
	}

	buf.Push(p)

	return nil
}

// ServeRound pops the head of every non-empty ingress queue, in port order,
// and returns the departures of the round.
func (s *RoundRobin) ServeRound() []Departure {
	s.lock.Lock()
	round := s.round
	s.lock.Unlock()

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosRoundStart,
			Item:   round,
		})
	}

	var departures []Departure

	for port, buf := range s.ingress {
		p, ok := buf.Pop()
		if !ok {
			continue
		}

		departures = append(departures, s.depart(round, port, p))
	}

	s.lock.Lock()
	s.round++
	s.lock.Unlock()

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosRoundEnd,
			Item: RoundSummary{
				Round:   round,
				Served:  len(departures),
				Backlog: s.backlog(),
			},
		})
	}

	return departures
}

func (s *RoundRobin) depart(round uint64, port int, p packet.Packet) Departure {
	now := s.clock.CurrentTime()

	latency := now.Sub(p.ArrivalTime)
	if latency < 0 {
		latency = 0
	}

	d := Departure{
		Round:         round,
		Port:          port,
		Packet:        p,
		DepartureTime: now,
		Latency:       latency,
	}

	if s.recorder != nil {
		if err := s.recorder.Record(p.ID, latency); err != nil {
			s.logger.Printf("warning: cannot record latency of packet %d: %v",
				p.ID, err)
		}
	}

	s.lock.Lock()
	s.egress[port] = d
	s.filled[port] = true
	s.lock.Unlock()

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosPacketServed,
			Item:   d,
		})
	}

	return d
}

func (s *RoundRobin) backlog() int {
	n := 0
	for _, buf := range s.ingress {
		n += buf.Size()
	}

	return n
}

// Round returns the number of rounds served so far.
func (s *RoundRobin) Round() uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.round
}

// NumPorts returns the number of ingress (and egress) ports.
func (s *RoundRobin) NumPorts() int {
	return len(s.ingress)
}

// QueueLen returns the number of packets waiting at an ingress port.
func (s *RoundRobin) QueueLen(port int) int {
	return s.ingress[port].Size()
}

// Backlog returns the number of packets waiting over all ingress ports.
func (s *RoundRobin) Backlog() int {
	return s.backlog()
}

// QueueSnapshot returns the ids of the packets waiting at an ingress port,
// oldest first.
func (s *RoundRobin) QueueSnapshot(port int) []uint64 {
	packets := s.ingress[port].Snapshot()

	ids := make([]uint64, len(packets))
	for i, p := range packets {
		ids[i] = p.ID
	}

	return ids
}

// EgressSlot returns the last departure through an egress port. The second
// return value is false if nothing has left through the port yet.
func (s *RoundRobin) EgressSlot(port int) (Departure, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.egress[port], s.filled[port]
}

// Buffers returns the ingress queues.
func (s *RoundRobin) Buffers() []*queueing.Buffer[packet.Packet] {
	return s.ingress
}

var _ Scheduler = (*RoundRobin)(nil)
