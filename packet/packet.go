// Package packet defines the packets that flow through the multiplexer and
// the stochastic generator that creates them.
package packet

import (
	"fmt"
	"time"
)

// Payload length bounds, inclusive.
const (
	MinPayloadLen = 1
	MaxPayloadLen = 100
)

// Packet is one unit of traffic.
type Packet struct {
	ID uint64

	// Priority is carried for observers; scheduling never reads it.
	Priority uint32

	Payload []byte

	IngressPort int

	// EgressPort is the generated destination. The identity-bound scheduler
	// sends a packet to the egress port that matches its ingress port and
	// ignores this field.
	EgressPort int

	ArrivalTime time.Time
}

func (p Packet) String() string {
	return fmt.Sprintf("packet %d (in %d, out %d, prio %d, %d bytes)",
		p.ID, p.IngressPort, p.EgressPort, p.Priority, len(p.Payload))
}

// TickSummary describes what the generator produced in one tick.
type TickSummary struct {
	Tick      uint64
	Generated int
}
