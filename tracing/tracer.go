// Package tracing turns the hooks fired by the generator and the scheduler
// into logs and traces.
package tracing

import (
	"github.com/sarchlab/pktmux/packet"
	"github.com/sarchlab/pktmux/scheduling"
)

// A Tracer is told about every tick and every departure.
type Tracer interface {
	TickGenerated(summary packet.TickSummary)
	RoundStarted(round uint64)
	PacketServed(departure scheduling.Departure)
	RoundEnded(summary scheduling.RoundSummary)
}
