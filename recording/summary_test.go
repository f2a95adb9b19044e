package recording

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SummaryRecorder", func() {
	It("should start empty", func() {
		s := NewSummaryRecorder().Summary()
		Expect(s.Count).To(BeZero())
		Expect(s.MeanSec).To(BeZero())
	})

	It("should summarise latencies in seconds", func() {
		r := NewSummaryRecorder()
		Expect(r.Record(1, 1*time.Second)).To(Succeed())
		Expect(r.Record(2, 3*time.Second)).To(Succeed())

		s := r.Summary()
		Expect(s.Count).To(Equal(uint64(2)))
		Expect(s.MeanSec).To(BeNumerically("~", 2.0, 1e-9))
		Expect(s.StdDevSec).To(BeNumerically("~", 1.0, 1e-9))
		Expect(s.MinSec).To(BeNumerically("~", 1.0, 1e-9))
		Expect(s.MaxSec).To(BeNumerically("~", 3.0, 1e-9))
		Expect(s.LastPacket).To(Equal(uint64(2)))
	})
})
