package tracing

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/pktmux/packet"
	"github.com/sarchlab/pktmux/scheduling"
	"github.com/sarchlab/pktmux/timing"
)

var _ = Describe("CollectTrace", func() {
	var (
		mockCtrl *gomock.Controller
		tracer   *MockTracer
		clock    *timing.ManualClock
		sched    *scheduling.RoundRobin
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		tracer = NewMockTracer(mockCtrl)
		clock = timing.NewManualClock(time.Unix(0, 0))

		var err error
		sched, err = scheduling.NewRoundRobin(
			scheduling.DefaultConfig(), nil, clock)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should forward scheduler hooks to the tracer", func() {
		CollectTrace(sched, tracer)

		Expect(sched.Enqueue(packet.Packet{ID: 3, IngressPort: 1,
			ArrivalTime: clock.CurrentTime()})).To(Succeed())

		gomock.InOrder(
			tracer.EXPECT().RoundStarted(uint64(0)),
			tracer.EXPECT().PacketServed(gomock.Any()).
				Do(func(d scheduling.Departure) {
					Expect(d.Packet.ID).To(Equal(uint64(3)))
					Expect(d.Port).To(Equal(1))
				}),
			tracer.EXPECT().RoundEnded(scheduling.RoundSummary{
				Round: 0, Served: 1, Backlog: 0,
			}),
		)

		sched.ServeRound()
	})

	It("should forward generator hooks to the tracer", func() {
		gen, err := packet.NewGenerator(packet.DefaultGeneratorConfig(),
			packet.NewSource(1), clock)
		Expect(err).NotTo(HaveOccurred())

		CollectTrace(gen, tracer)

		tracer.EXPECT().TickGenerated(gomock.Any()).
			Do(func(s packet.TickSummary) {
				Expect(s.Tick).To(Equal(uint64(4)))
			})

		_, err = gen.Generate(4)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should panic when the same tracer is attached twice", func() {
		CollectTrace(sched, tracer)
		Expect(func() { CollectTrace(sched, tracer) }).To(Panic())
	})
})
