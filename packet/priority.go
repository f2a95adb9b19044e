package packet

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Names of the priority distributions.
const (
	PriorityPoisson  = "poisson"
	PriorityUniform  = "uniform"
	PriorityConstant = "constant"
)

// PriorityConfig selects how packet priorities are drawn. It is independent
// of the arrival rate.
type PriorityConfig struct {
	// Dist is one of PriorityPoisson, PriorityUniform or PriorityConstant.
	Dist string

	// Rate is the mean of the Poisson distribution.
	Rate float64

	// Max is the upper bound (inclusive) of the uniform distribution and the
	// value of the constant distribution.
	Max uint32
}

// DefaultPriorityConfig returns a Poisson distribution with mean 5.
func DefaultPriorityConfig() PriorityConfig {
	return PriorityConfig{
		Dist: PriorityPoisson,
		Rate: 5,
	}
}

// A PrioritySampler draws one priority per call.
type PrioritySampler interface {
	Sample() uint32
}

func (c PriorityConfig) validate() error {
	switch c.Dist {
	case PriorityPoisson:
		if !(c.Rate > 0) || math.IsInf(c.Rate, 0) {
			return fmt.Errorf("%w: priority rate must be positive, got %v",
				ErrInvalidParameter, c.Rate)
		}
	case PriorityUniform, PriorityConstant:
	default:
		return fmt.Errorf("%w: unknown priority distribution %q",
			ErrInvalidParameter, c.Dist)
	}

	return nil
}

func (c PriorityConfig) newSampler(src rand.Source, rng *rand.Rand) PrioritySampler {
	switch c.Dist {
	case PriorityPoisson:
		return poissonPriority{dist: distuv.Poisson{Lambda: c.Rate, Src: src}}
	case PriorityUniform:
		return uniformPriority{rng: rng, max: c.Max}
	default:
		return constantPriority(c.Max)
	}
}

type poissonPriority struct {
	dist distuv.Poisson
}

func (p poissonPriority) Sample() uint32 {
	v := p.dist.Rand()
	if v > math.MaxUint32 {
		return math.MaxUint32
	}

	return uint32(v)
}

type uniformPriority struct {
	rng *rand.Rand
	max uint32
}

func (p uniformPriority) Sample() uint32 {
	return uint32(p.rng.Uint64N(uint64(p.max) + 1))
}

type constantPriority uint32

func (p constantPriority) Sample() uint32 {
	return uint32(p)
}
