package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pktmux/queueing"
	"github.com/sarchlab/pktmux/recording"
)

type fakeLoop struct {
	paused bool
	tick   uint64
}

func (l *fakeLoop) Pause()              { l.paused = true }
func (l *fakeLoop) Continue()           { l.paused = false }
func (l *fakeLoop) IsPaused() bool      { return l.paused }
func (l *fakeLoop) CurrentTick() uint64 { return l.tick }

type sampleComponent struct {
	Count   int
	round   uint64
	buffers []*queueing.Buffer[int]
}

func (c *sampleComponent) Name() string { return "Comp" }

func (c *sampleComponent) Round() uint64 { return c.round }

func (c *sampleComponent) Buffers() []*queueing.Buffer[int] {
	return c.buffers
}

func newSampleComponent() *sampleComponent {
	c := &sampleComponent{
		Count: 3,
		round: 7,
		buffers: []*queueing.Buffer[int]{
			queueing.NewBuffer[int]("Comp.Buf0", 10),
			queueing.NewBuffer[int]("Comp.Buf1", 4),
			queueing.NewBuffer[int]("Comp.Buf2", queueing.Unbounded),
		},
	}

	c.buffers[0].Push(1)
	c.buffers[0].Push(2)
	c.buffers[0].Push(3)
	c.buffers[1].Push(1)
	c.buffers[1].Push(2)
	for i := 0; i < 5; i++ {
		c.buffers[2].Push(i)
	}

	return c
}

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		loop   *fakeLoop
		comp   *sampleComponent
		router http.Handler
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		m = NewMonitor().WithProfileDuration(10 * time.Millisecond)
		loop = &fakeLoop{tick: 12}
		comp = newSampleComponent()

		m.RegisterLoop(loop)
		m.RegisterComponent(comp)
		router = m.Router()
	})

	It("should register components and their buffers", func() {
		Expect(m.components).To(HaveLen(1))
		Expect(m.buffers).To(HaveLen(3))
	})

	It("should pause and continue the loop", func() {
		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		Expect(loop.paused).To(BeTrue())

		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
		Expect(loop.paused).To(BeFalse())
	})

	It("should report the current tick and round", func() {
		rsp := nowRsp{}
		Expect(json.Unmarshal(get("/api/now").Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(Equal(nowRsp{Tick: 12, Round: 7}))
	})

	It("should answer 503 without a loop", func() {
		router = NewMonitor().Router()
		Expect(get("/api/now").Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should list components", func() {
		Expect(get("/api/list_components").Body.String()).
			To(Equal(`["Comp"]`))
	})

	It("should serialize a component", func() {
		rec := get("/api/component/Comp")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("Count"))
	})

	It("should return 404 for unknown components", func() {
		Expect(get("/api/component/Nope").Code).To(Equal(http.StatusNotFound))
	})

	It("should serialize a single field", func() {
		req, _ := json.Marshal(fieldReq{CompName: "Comp", FieldName: "Count"})
		rec := get("/api/field/" + url.PathEscape(string(req)))
		Expect(rec.Code).NotTo(Equal(http.StatusNotFound))
	})

	It("should sort buffers by percent by default", func() {
		rsp := []bufferRsp{}
		body := get("/api/hangdetector/buffers").Body.Bytes()
		Expect(json.Unmarshal(body, &rsp)).To(Succeed())

		Expect(rsp).To(Equal([]bufferRsp{
			{Buffer: "Comp.Buf1", Level: 2, Cap: 4},
			{Buffer: "Comp.Buf0", Level: 3, Cap: 10},
			{Buffer: "Comp.Buf2", Level: 5, Cap: 0},
		}))
	})

	It("should sort buffers by level with limit and offset", func() {
		rsp := []bufferRsp{}
		body := get("/api/hangdetector/buffers?sort=level&limit=1&offset=1").
			Body.Bytes()
		Expect(json.Unmarshal(body, &rsp)).To(Succeed())

		Expect(rsp).To(Equal([]bufferRsp{
			{Buffer: "Comp.Buf0", Level: 3, Cap: 10},
		}))
	})

	It("should clamp an offset past the end", func() {
		Expect(get("/api/hangdetector/buffers?offset=10").Body.String()).
			To(Equal("[]"))
	})

	DescribeTable("should reject bad buffer queries",
		func(query string) {
			Expect(get("/api/hangdetector/buffers?" + query).Code).
				To(Equal(http.StatusBadRequest))
		},
		Entry("unknown sort", "sort=name"),
		Entry("bad limit", "limit=x"),
		Entry("negative offset", "offset=-1"),
	)

	It("should report tick progress until tracking stops", func() {
		p := m.TrackTicks("Ticks", 10)
		for _, tick := range []uint64{0, 2, 1, 3} {
			p.TickDone(tick)
		}

		rsp := []progressRsp{}
		Expect(json.Unmarshal(get("/api/progress").Body.Bytes(), &rsp)).
			To(Succeed())
		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0].Name).To(Equal("Ticks"))
		Expect(rsp[0].Done).To(Equal(uint64(4)))
		Expect(rsp[0].LastTick).To(Equal(uint64(3)))
		Expect(rsp[0].Percent).To(BeNumerically("~", 40, 1e-9))
		Expect(rsp[0].ETASec).To(BeNumerically(">=", 0))

		m.StopTracking(p)
		Expect(get("/api/progress").Body.String()).To(Equal("[]"))
	})

	It("should not estimate the end of an unbounded run", func() {
		p := m.TrackTicks("Ticks", 0)
		p.TickDone(0)

		rsp := p.report(time.Now())
		Expect(rsp.Done).To(Equal(uint64(1)))
		Expect(rsp.Percent).To(BeZero())
		Expect(rsp.ETASec).To(BeZero())
	})

	It("should report the latency summary", func() {
		Expect(get("/api/latency").Code).To(Equal(http.StatusNotFound))

		summary := recording.NewSummaryRecorder()
		Expect(summary.Record(1, time.Second)).To(Succeed())
		m.RegisterLatencySource(summary)

		rsp := recording.Summary{}
		Expect(json.Unmarshal(get("/api/latency").Body.Bytes(), &rsp)).
			To(Succeed())
		Expect(rsp.Count).To(Equal(uint64(1)))
		Expect(rsp.MeanSec).To(Equal(1.0))
	})

	It("should report process resources", func() {
		rsp := resourceRsp{}
		rec := get("/api/resource")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should collect a CPU profile", func() {
		rec := get("/api/profile")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("Sample"))
	})

	It("should serve the web page", func() {
		rec := get("/")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})
})

var _ = Describe("Monitor server", func() {
	It("should start and stop", func() {
		m := NewMonitor()
		addr, err := m.StartServer()
		Expect(err).NotTo(HaveOccurred())
		Expect(addr).To(HavePrefix("http://localhost:"))

		rsp, err := http.Get(addr + "/api/list_components")
		Expect(err).NotTo(HaveOccurred())
		rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))

		Expect(m.StopServer(context.Background())).To(Succeed())
	})

	It("should not use a privileged port", func() {
		m := NewMonitor().WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))
	})
})
