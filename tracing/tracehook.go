package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/pktmux/hooking"
	"github.com/sarchlab/pktmux/packet"
	"github.com/sarchlab/pktmux/scheduling"
)

// CollectTrace let the tracer to collect trace from a domain
func CollectTrace(domain hooking.NamedHookable, tracer Tracer) {
	hooks := domain.Hooks()
	for _, hook := range hooks {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	h := traceHook{t: tracer}
	domain.AcceptHook(&h)
}

// A traceHook forwards hook invocations to a tracer
type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case packet.HookPosTickGenerated:
		h.t.TickGenerated(ctx.Item.(packet.TickSummary))
	case scheduling.HookPosRoundStart:
		h.t.RoundStarted(ctx.Item.(uint64))
	case scheduling.HookPosPacketServed:
		h.t.PacketServed(ctx.Item.(scheduling.Departure))
	case scheduling.HookPosRoundEnd:
		h.t.RoundEnded(ctx.Item.(scheduling.RoundSummary))
	}
}
