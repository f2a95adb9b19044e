// Package scheduling moves queued packets from ingress ports to egress ports,
// one service round at a time.
package scheduling

import (
	"errors"
	"time"

	"github.com/sarchlab/pktmux/hooking"
	"github.com/sarchlab/pktmux/packet"
)

// ErrInvalidPort is returned when a packet names an ingress port the
// scheduler does not have.
var ErrInvalidPort = errors.New("invalid port")

// ErrQueueFull is returned when a bounded ingress queue cannot take another
// packet.
var ErrQueueFull = errors.New("queue full")

// HookPosRoundStart fires before a round is served. The hook item is the
// round number.
var HookPosRoundStart = &hooking.HookPos{Name: "Round Start"}

// HookPosPacketServed fires once per departure. The hook item is a Departure.
var HookPosPacketServed = &hooking.HookPos{Name: "Packet Served"}

// HookPosRoundEnd fires after every round. The hook item is a RoundSummary.
var HookPosRoundEnd = &hooking.HookPos{Name: "Round End"}

// A Scheduler accepts packets into ingress queues and serves them in rounds.
type Scheduler interface {
	Enqueue(p packet.Packet) error
	ServeRound() []Departure
}

// Departure records a packet leaving through an egress port.
type Departure struct {
	Round         uint64
	Port          int
	Packet        packet.Packet
	DepartureTime time.Time
	Latency       time.Duration
}

// RoundSummary describes one finished round.
type RoundSummary struct {
	Round uint64

	// Served is the number of packets that departed in the round.
	Served int

	// Backlog is the number of packets still queued after the round.
	Backlog int
}
