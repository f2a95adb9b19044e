package recording

import (
	"database/sql"
	"math"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pktmux/datarecording"
)

var _ = Describe("SQLiteRecorder", func() {
	It("should store one row per record", func() {
		path := filepath.Join(GinkgoT().TempDir(), "latency.sqlite3")

		r, err := OpenSQLiteRecorder(datarecording.DriverPureGo, path)
		Expect(err).NotTo(HaveOccurred())

		Expect(r.Record(1, 250*time.Millisecond)).To(Succeed())
		Expect(r.Record(2, time.Second)).To(Succeed())
		Expect(r.Close()).To(Succeed())

		db, err := sql.Open(datarecording.DriverPureGo, path)
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		rows, err := db.Query(
			"SELECT PacketID, LatencySec FROM latency ORDER BY PacketID")
		Expect(err).NotTo(HaveOccurred())
		defer rows.Close()

		var got []LatencyRow
		for rows.Next() {
			var row LatencyRow
			Expect(rows.Scan(&row.PacketID, &row.LatencySec)).To(Succeed())
			got = append(got, row)
		}

		Expect(got).To(Equal([]LatencyRow{
			{PacketID: 1, LatencySec: 0.25},
			{PacketID: 2, LatencySec: 1},
		}))
	})

	It("should keep ids above the signed range", func() {
		path := filepath.Join(GinkgoT().TempDir(), "large.sqlite3")

		r, err := OpenSQLiteRecorder(datarecording.DriverPureGo, path)
		Expect(err).NotTo(HaveOccurred())

		Expect(r.Record(math.MaxUint64, time.Millisecond)).To(Succeed())
		Expect(r.Record(1<<63, time.Millisecond)).To(Succeed())
		Expect(r.Close()).To(Succeed())

		db, err := sql.Open(datarecording.DriverPureGo, path)
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		rows, err := db.Query("SELECT PacketID FROM latency")
		Expect(err).NotTo(HaveOccurred())
		defer rows.Close()

		var ids []uint64
		for rows.Next() {
			var id int64
			Expect(rows.Scan(&id)).To(Succeed())
			ids = append(ids, uint64(id))
		}

		Expect(ids).To(ConsistOf(uint64(math.MaxUint64), uint64(1<<63)))
	})

	It("should share a backend without closing it", func() {
		path := filepath.Join(GinkgoT().TempDir(), "shared.sqlite3")
		backend, err := datarecording.New(path)
		Expect(err).NotTo(HaveOccurred())
		defer backend.Close()

		r, err := NewSQLiteRecorder(backend)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Record(5, time.Second)).To(Succeed())
		Expect(r.Close()).To(Succeed())

		var count int
		Expect(backend.QueryRow("SELECT COUNT(*) FROM latency").Scan(&count)).
			To(Succeed())
		Expect(count).To(Equal(1))
	})
})
