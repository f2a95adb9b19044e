package tracing

import (
	"fmt"
	"log"
	"strings"

	"github.com/sarchlab/pktmux/packet"
	"github.com/sarchlab/pktmux/scheduling"
)

// QueueInspector exposes the ingress queues of a scheduler.
type QueueInspector interface {
	NumPorts() int
	QueueSnapshot(port int) []uint64
}

// EventLogger is a tracer that prints what happens in every tick.
type EventLogger struct {
	logger *log.Logger
	queues QueueInspector
}

// NewEventLogger returns a new EventLogger which will write into the logger.
// When queues is not nil, the ingress queues are dumped before and after
// every round.
func NewEventLogger(logger *log.Logger, queues QueueInspector) *EventLogger {
	return &EventLogger{
		logger: logger,
		queues: queues,
	}
}

// TickGenerated prints how many packets a tick produced.
func (l *EventLogger) TickGenerated(s packet.TickSummary) {
	l.logger.Printf("tick %d: generated %d packets", s.Tick, s.Generated)
}

// RoundStarted dumps the queues as they are before the round.
func (l *EventLogger) RoundStarted(round uint64) {
	l.dumpQueues(fmt.Sprintf("before round %d", round))
}

// PacketServed prints one departure.
func (l *EventLogger) PacketServed(d scheduling.Departure) {
	l.logger.Printf("round %d: port %d served packet %d, latency %s",
		d.Round, d.Port, d.Packet.ID, d.Latency)
}

// RoundEnded dumps the queues as they are after the round.
func (l *EventLogger) RoundEnded(s scheduling.RoundSummary) {
	l.dumpQueues(fmt.Sprintf("after round %d", s.Round))
}

func (l *EventLogger) dumpQueues(when string) {
	if l.queues == nil {
		return
	}

	for port := 0; port < l.queues.NumPorts(); port++ {
		ids := l.queues.QueueSnapshot(port)

		strs := make([]string, len(ids))
		for i, id := range ids {
			strs[i] = fmt.Sprint(id)
		}

		l.logger.Printf("%s: ingress %d [%s]",
			when, port, strings.Join(strs, " "))
	}
}
