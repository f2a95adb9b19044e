package packet

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sarchlab/pktmux/hooking"
	"github.com/sarchlab/pktmux/idgen"
	"github.com/sarchlab/pktmux/timing"
)

// HookPosTickGenerated fires once per Generate call with a TickSummary.
var HookPosTickGenerated = &hooking.HookPos{Name: "Tick Generated"}

// ErrInvalidParameter is returned when a generator or scheduler is built from
// an unusable configuration.
var ErrInvalidParameter = errors.New("invalid parameter")

// DefaultMaxPerTick is the default ceiling on packets generated per tick.
const DefaultMaxPerTick = 5

// GeneratorConfig holds the parameters of the arrival process.
type GeneratorConfig struct {
	IngressPorts int
	EgressPorts  int

	// ArrivalRate is the mean of the Poisson distribution the per-tick
	// arrival count is drawn from.
	ArrivalRate float64

	// MaxPerTick caps the per-tick arrival count. Samples above the cap are
	// simply not generated.
	MaxPerTick int

	Priority PriorityConfig
}

// DefaultGeneratorConfig returns 4x4 ports, rate 5 and at most 5 packets per
// tick.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		IngressPorts: 4,
		EgressPorts:  4,
		ArrivalRate:  5,
		MaxPerTick:   DefaultMaxPerTick,
		Priority:     DefaultPriorityConfig(),
	}
}

// Validate reports the first problem with the configuration, wrapped around
// ErrInvalidParameter.
func (c GeneratorConfig) Validate() error {
	if !(c.ArrivalRate > 0) || math.IsInf(c.ArrivalRate, 0) {
		return fmt.Errorf("%w: arrival rate must be positive, got %v",
			ErrInvalidParameter, c.ArrivalRate)
	}

	if c.IngressPorts <= 0 {
		return fmt.Errorf("%w: ingress port count must be positive, got %d",
			ErrInvalidParameter, c.IngressPorts)
	}

	if c.EgressPorts <= 0 {
		return fmt.Errorf("%w: egress port count must be positive, got %d",
			ErrInvalidParameter, c.EgressPorts)
	}

	if c.MaxPerTick <= 0 {
		return fmt.Errorf("%w: max packets per tick must be positive, got %d",
			ErrInvalidParameter, c.MaxPerTick)
	}

	return c.Priority.validate()
}

// Generator synthesizes a bounded batch of packets per tick. Every random
// draw comes from the source given at construction, so a fixed seed gives a
// fixed packet stream.
type Generator struct {
	*hooking.HookableBase

	lock     sync.Mutex
	cfg      GeneratorConfig
	clock    timing.TimeTeller
	ids      *idgen.Sequential
	rng      *rand.Rand
	arrivals distuv.Poisson
	priority PrioritySampler
}

// NewGenerator creates a generator. It fails with ErrInvalidParameter and
// returns no generator if the configuration is unusable.
func NewGenerator(
	cfg GeneratorConfig,
	src rand.Source,
	clock timing.TimeTeller,
) (*Generator, error) {
	return newGenerator(cfg, src, clock, idgen.New())
}

// NewGeneratorWithIDs creates a generator that draws packet IDs from ids.
func NewGeneratorWithIDs(
	cfg GeneratorConfig,
	src rand.Source,
	clock timing.TimeTeller,
	ids *idgen.Sequential,
) (*Generator, error) {
	return newGenerator(cfg, src, clock, ids)
}

func newGenerator(
	cfg GeneratorConfig,
	src rand.Source,
	clock timing.TimeTeller,
	ids *idgen.Sequential,
) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if src == nil {
		return nil, fmt.Errorf("%w: random source is nil", ErrInvalidParameter)
	}

	if clock == nil {
		return nil, fmt.Errorf("%w: clock is nil", ErrInvalidParameter)
	}

	if ids == nil {
		return nil, fmt.Errorf("%w: id generator is nil", ErrInvalidParameter)
	}

	rng := rand.New(src)

	return &Generator{
		HookableBase: hooking.NewHookableBase(),
		cfg:          cfg,
		clock:        clock,
		ids:          ids,
		rng:          rng,
		arrivals:     distuv.Poisson{Lambda: cfg.ArrivalRate, Src: src},
		priority:     cfg.Priority.newSampler(src, rng),
	}, nil
}

// Name returns the name of the generator.
func (g *Generator) Name() string {
	return "Generator"
}

// Config returns the configuration the generator was built with.
func (g *Generator) Config() GeneratorConfig {
	return g.cfg
}

// NumGenerated returns how many packets have been generated so far.
func (g *Generator) NumGenerated() uint64 {
	return g.ids.Issued()
}

// Generate produces the packets that arrive during the given tick. If the ID
// space runs out, the partial batch is discarded and idgen.ErrCounterOverflow
// is returned.
func (g *Generator) Generate(tick uint64) ([]Packet, error) {
	g.lock.Lock()
	packets, err := g.generate()
	g.lock.Unlock()

	if err != nil {
		return nil, err
	}

	if g.NumHooks() > 0 {
		g.InvokeHook(hooking.HookCtx{
			Domain: g,
			Pos:    HookPosTickGenerated,
			Item:   TickSummary{Tick: tick, Generated: len(packets)},
		})
	}

	return packets, nil
}

func (g *Generator) generate() ([]Packet, error) {
	n := g.arrivalCount()
	packets := make([]Packet, 0, n)

	for i := 0; i < n; i++ {
		id, err := g.ids.Generate()
		if err != nil {
			return nil, err
		}

		packets = append(packets, Packet{
			ID:          id,
			Priority:    g.priority.Sample(),
			Payload:     g.payload(),
			IngressPort: g.rng.IntN(g.cfg.IngressPorts),
			EgressPort:  g.rng.IntN(g.cfg.EgressPorts),
			ArrivalTime: g.clock.CurrentTime(),
		})
	}

	return packets, nil
}

func (g *Generator) arrivalCount() int {
	sample := g.arrivals.Rand()
	if sample >= float64(g.cfg.MaxPerTick) {
		return g.cfg.MaxPerTick
	}

	return int(sample)
}

func (g *Generator) payload() []byte {
	n := MinPayloadLen + g.rng.IntN(MaxPayloadLen-MinPayloadLen+1)
	data := make([]byte, n)

	for i := range data {
		data[i] = byte(g.rng.UintN(256))
	}

	return data
}

// NewSource returns a PCG source seeded from seed. The same seed always
// produces the same packet stream.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}
