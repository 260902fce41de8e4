package moesi

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Statistics", func() {
	var s *Statistics

	BeforeEach(func() {
		s = NewStatistics(2)
	})

	It("should count per processor", func() {
		s.RecordReadHit(0)
		s.RecordReadHit(0)
		s.RecordReadMiss(1)
		s.RecordWriteHit(1)
		s.RecordWriteMiss(1)

		snap := s.Snapshot()

		Expect(snap.CPUs[0]).To(Equal(CPUStats{ReadHits: 2}))
		Expect(snap.CPUs[1]).To(Equal(CPUStats{
			ReadMisses: 1, WriteHits: 1, WriteMisses: 1,
		}))
		Expect(snap.CPUs[1].Accesses()).To(Equal(uint64(3)))
	})

	It("should count bus waits and snoops per cache", func() {
		s.AddBusWait(1, 5)
		s.AddBusWait(1, 0)
		s.RecordSnoopHit(0)
		s.RecordInvalidation(0)
		s.RecordWriteBack(1)

		snap := s.Snapshot()

		Expect(snap.Caches[1].BusWaitCycles).To(Equal(uint64(5)))
		Expect(snap.Caches[1].BusTransactions).To(Equal(uint64(2)))
		Expect(snap.Caches[1].WriteBacks).To(Equal(uint64(1)))
		Expect(snap.Caches[0].SnoopHits).To(Equal(uint64(1)))
		Expect(snap.Caches[0].InvalidationsReceived).To(Equal(uint64(1)))
	})

	It("should split memory writes", func() {
		s.RecordMemoryRead()
		s.RecordMemoryWrite(true)
		s.RecordMemoryWrite(false)
		s.RecordMemoryWrite(false)

		Expect(s.Snapshot().Memory).To(Equal(MemoryStats{
			Reads: 1, Writes: 3, WriteBacks: 2, Drains: 1,
		}))
	})

	It("should not change a snapshot after it is taken", func() {
		snap := s.Snapshot()
		s.RecordReadHit(0)

		Expect(snap.CPUs[0].ReadHits).To(Equal(uint64(0)))
	})

	It("should panic on an unknown processor", func() {
		Expect(func() { s.RecordReadHit(2) }).To(Panic())
	})
})
