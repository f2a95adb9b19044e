package packet_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pktmux/hooking"
	"github.com/sarchlab/pktmux/idgen"
	"github.com/sarchlab/pktmux/packet"
	"github.com/sarchlab/pktmux/timing"
)

var _ = Describe("Generator", func() {
	var (
		cfg   packet.GeneratorConfig
		clock *timing.ManualClock
		start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	)

	BeforeEach(func() {
		cfg = packet.DefaultGeneratorConfig()
		clock = timing.NewManualClock(start)
	})

	newGenerator := func(seed uint64) *packet.Generator {
		g, err := packet.NewGenerator(cfg, packet.NewSource(seed), clock)
		Expect(err).NotTo(HaveOccurred())
		return g
	}

	Context("with invalid parameters", func() {
		DescribeTable("should refuse to build",
			func(mutate func(c *packet.GeneratorConfig)) {
				mutate(&cfg)
				g, err := packet.NewGenerator(cfg, packet.NewSource(1), clock)
				Expect(err).To(MatchError(packet.ErrInvalidParameter))
				Expect(g).To(BeNil())
			},
			Entry("zero rate", func(c *packet.GeneratorConfig) { c.ArrivalRate = 0 }),
			Entry("negative rate", func(c *packet.GeneratorConfig) { c.ArrivalRate = -1 }),
			Entry("NaN rate", func(c *packet.GeneratorConfig) { c.ArrivalRate = math.NaN() }),
			Entry("no ingress ports", func(c *packet.GeneratorConfig) { c.IngressPorts = 0 }),
			Entry("no egress ports", func(c *packet.GeneratorConfig) { c.EgressPorts = 0 }),
			Entry("zero cap", func(c *packet.GeneratorConfig) { c.MaxPerTick = 0 }),
			Entry("negative cap", func(c *packet.GeneratorConfig) { c.MaxPerTick = -1 }),
			Entry("unknown priority", func(c *packet.GeneratorConfig) { c.Priority.Dist = "zipf" }),
			Entry("zero priority rate", func(c *packet.GeneratorConfig) { c.Priority.Rate = 0 }),
		)

		It("should refuse a nil source or clock", func() {
			_, err := packet.NewGenerator(cfg, nil, clock)
			Expect(err).To(MatchError(packet.ErrInvalidParameter))

			_, err = packet.NewGenerator(cfg, packet.NewSource(1), nil)
			Expect(err).To(MatchError(packet.ErrInvalidParameter))
		})
	})

	It("should never exceed the per-tick cap", func() {
		cfg.ArrivalRate = 50
		cfg.MaxPerTick = 3
		g := newGenerator(7)

		for tick := uint64(0); tick < 200; tick++ {
			packets, err := g.Generate(tick)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(packets)).To(BeNumerically("<=", 3))
		}
	})

	It("should average close to the arrival rate", func() {
		cfg.ArrivalRate = 2
		cfg.MaxPerTick = 5
		g := newGenerator(42)

		total := 0
		for tick := uint64(0); tick < 1000; tick++ {
			packets, err := g.Generate(tick)
			Expect(err).NotTo(HaveOccurred())
			total += len(packets)
		}

		mean := float64(total) / 1000
		Expect(mean).To(BeNumerically("~", 2.0, 0.3))
	})

	It("should hand out unique, strictly increasing ids from zero", func() {
		g := newGenerator(3)

		var ids []uint64
		for tick := uint64(0); tick < 100; tick++ {
			packets, _ := g.Generate(tick)
			for _, p := range packets {
				ids = append(ids, p.ID)
			}
		}

		Expect(ids).NotTo(BeEmpty())
		for i, id := range ids {
			Expect(id).To(Equal(uint64(i)))
		}
		Expect(g.NumGenerated()).To(Equal(uint64(len(ids))))
	})

	It("should keep independent counters per generator", func() {
		cfg.ArrivalRate = 100
		g1 := newGenerator(1)
		g2 := newGenerator(2)

		p1, _ := g1.Generate(0)
		p2, _ := g2.Generate(0)

		Expect(p1[0].ID).To(Equal(uint64(0)))
		Expect(p2[0].ID).To(Equal(uint64(0)))
	})

	It("should draw fields within their ranges", func() {
		cfg.IngressPorts = 3
		cfg.EgressPorts = 2
		g := newGenerator(11)

		for tick := uint64(0); tick < 200; tick++ {
			packets, _ := g.Generate(tick)
			for _, p := range packets {
				Expect(p.IngressPort).To(BeNumerically(">=", 0))
				Expect(p.IngressPort).To(BeNumerically("<", 3))
				Expect(p.EgressPort).To(BeNumerically(">=", 0))
				Expect(p.EgressPort).To(BeNumerically("<", 2))
				Expect(len(p.Payload)).To(BeNumerically(">=", packet.MinPayloadLen))
				Expect(len(p.Payload)).To(BeNumerically("<=", packet.MaxPayloadLen))
				Expect(p.ArrivalTime).To(Equal(start))
			}
		}
	})

	It("should stamp arrival times from the clock", func() {
		cfg.ArrivalRate = 100
		g := newGenerator(5)

		clock.Advance(time.Second)
		packets, _ := g.Generate(1)

		Expect(packets).NotTo(BeEmpty())
		Expect(packets[0].ArrivalTime).To(Equal(start.Add(time.Second)))
	})

	It("should be reproducible for a fixed seed", func() {
		g1 := newGenerator(99)
		g2 := newGenerator(99)

		for tick := uint64(0); tick < 50; tick++ {
			p1, _ := g1.Generate(tick)
			p2, _ := g2.Generate(tick)
			Expect(p1).To(Equal(p2))
		}
	})

	It("should use the configured priority distribution", func() {
		cfg.ArrivalRate = 100
		cfg.Priority = packet.PriorityConfig{Dist: packet.PriorityConstant, Max: 7}
		g := newGenerator(1)

		packets, _ := g.Generate(0)
		for _, p := range packets {
			Expect(p.Priority).To(Equal(uint32(7)))
		}

		cfg.Priority = packet.PriorityConfig{Dist: packet.PriorityUniform, Max: 2}
		g = newGenerator(1)
		for tick := uint64(0); tick < 20; tick++ {
			packets, _ = g.Generate(tick)
			for _, p := range packets {
				Expect(p.Priority).To(BeNumerically("<=", 2))
			}
		}
	})

	It("should report the tick summary to hooks", func() {
		g := newGenerator(8)
		var summaries []packet.TickSummary
		g.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			Expect(ctx.Pos).To(Equal(packet.HookPosTickGenerated))
			summaries = append(summaries, ctx.Item.(packet.TickSummary))
		}))

		packets, _ := g.Generate(12)

		Expect(summaries).To(Equal([]packet.TickSummary{
			{Tick: 12, Generated: len(packets)},
		}))
	})

	It("should count generated packets when ids start above zero", func() {
		g, err := packet.NewGeneratorWithIDs(cfg, packet.NewSource(3), clock,
			idgen.NewStartingAt(500))
		Expect(err).NotTo(HaveOccurred())

		total := 0
		for tick := uint64(0); tick < 10; tick++ {
			packets, err := g.Generate(tick)
			Expect(err).NotTo(HaveOccurred())
			total += len(packets)
		}

		Expect(g.NumGenerated()).To(Equal(uint64(total)))
	})

	It("should fail instead of wrapping when ids run out", func() {
		cfg.ArrivalRate = 100
		g, err := packet.NewGeneratorWithIDs(cfg, packet.NewSource(1), clock,
			idgen.NewStartingAt(math.MaxUint64-1))
		Expect(err).NotTo(HaveOccurred())

		packets, err := g.Generate(0)
		Expect(err).To(MatchError(idgen.ErrCounterOverflow))
		Expect(packets).To(BeNil())

		_, err = g.Generate(1)
		Expect(err).To(MatchError(idgen.ErrCounterOverflow))
	})
})
