package tracing

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pktmux/packet"
	"github.com/sarchlab/pktmux/scheduling"
)

var _ = Describe("CSVTraceWriter", func() {
	var path string

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "trace")
	})

	It("should write a header and one line per departure", func() {
		w := NewCSVTraceWriter(path)
		Expect(w.Init()).To(Succeed())

		w.PacketServed(scheduling.Departure{
			Round: 0,
			Port:  2,
			Packet: packet.Packet{
				ID:          4,
				Priority:    6,
				Payload:     make([]byte, 10),
				ArrivalTime: time.Unix(1, 0),
			},
			DepartureTime: time.Unix(1, 500000000),
			Latency:       500 * time.Millisecond,
		})
		Expect(w.Close()).To(Succeed())
		Expect(w.Close()).To(Succeed())

		content, err := os.ReadFile(path + ".csv")
		Expect(err).NotTo(HaveOccurred())

		lines := strings.Split(strings.TrimSpace(string(content)), "\n")
		Expect(lines).To(HaveLen(2))
		Expect(lines[0]).To(HavePrefix("Round, Port, PacketID"))
		Expect(lines[1]).To(Equal(
			"0, 2, 4, 6, 10, 1.000000000, 1.500000000, 0.500000000"))
	})

	It("should report write errors from buffered departures on Close", func() {
		w := NewCSVTraceWriter(path)
		w.bufferSize = 1
		Expect(w.Init()).To(Succeed())
		Expect(w.file.Close()).To(Succeed())

		w.PacketServed(scheduling.Departure{Packet: packet.Packet{ID: 1}})
		Expect(w.errs).To(HaveLen(1))

		Expect(w.Close()).To(MatchError(os.ErrClosed))
		Expect(w.Close()).To(Succeed())
	})

	It("should refuse to overwrite an existing trace", func() {
		Expect(os.WriteFile(path+".csv", []byte("x"), 0o644)).To(Succeed())

		w := NewCSVTraceWriter(path)
		Expect(w.Init()).NotTo(Succeed())
	})
})
