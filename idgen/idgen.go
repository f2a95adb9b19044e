// Package idgen provides the sequential packet ID counter.
package idgen

import (
	"errors"
	"math"
	"sync"
)

// ErrCounterOverflow is returned once every value of the 64-bit ID space has
// been handed out.
var ErrCounterOverflow = errors.New("idgen: id counter overflow")

// Generator produces unique identifiers.
type Generator interface {
	Generate() (uint64, error)
}

// Sequential hands out 0, 1, 2, ... and never wraps. Each instance owns its
// own counter, so two generators produce independent sequences.
type Sequential struct {
	lock      sync.Mutex
	next      uint64
	issued    uint64
	exhausted bool
}

// New returns a sequential generator whose first emitted ID is 0.
func New() *Sequential {
	return &Sequential{}
}

// NewStartingAt returns a sequential generator whose first emitted ID is
// first.
func NewStartingAt(first uint64) *Sequential {
	return &Sequential{next: first}
}

// Generate returns the next ID. After math.MaxUint64 has been returned, every
// further call fails with ErrCounterOverflow.
func (g *Sequential) Generate() (uint64, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	if g.exhausted {
		return 0, ErrCounterOverflow
	}

	id := g.next
	if g.issued < math.MaxUint64 {
		g.issued++
	}

	if g.next == math.MaxUint64 {
		g.exhausted = true
	} else {
		g.next++
	}

	return id, nil
}

// Issued returns how many IDs this generator has handed out, whatever its
// first ID was. It saturates at math.MaxUint64.
func (g *Sequential) Issued() uint64 {
	g.lock.Lock()
	defer g.lock.Unlock()

	return g.issued
}
