package platform

import (
	"bytes"
	"log"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/mem/moesi/cache"
	"github.com/sarchlab/moesisim/mem/moesi/memory"
	"github.com/sarchlab/moesisim/processor"
	"github.com/sarchlab/moesisim/sim"
)

func smallConfig(numCPUs int) Config {
	c := DefaultConfig()
	c.NumCPUs = numCPUs
	c.MemoryLatency = 10
	c.CycleLimit = 1_000_000

	return c
}

func build(c Config, t processor.TraceSource) *Platform {
	p, err := MakeBuilder().WithConfig(c).WithTrace(t).Build("MOESI")
	Expect(err).NotTo(HaveOccurred())

	return p
}

var _ = Describe("Platform", func() {
	It("should fail to build without a trace", func() {
		_, err := MakeBuilder().Build("MOESI")

		Expect(err).To(HaveOccurred())
	})

	It("should fail to build with an invalid configuration", func() {
		c := DefaultConfig()
		c.NumSets = 5

		_, err := MakeBuilder().
			WithConfig(c).
			WithTrace(processor.NewMemoryTrace(1)).
			Build("MOESI")

		Expect(err).To(MatchError(ContainSubstring("invalid configuration")))
	})

	It("should take the processor count from the trace", func() {
		p := build(smallConfig(1), processor.NewMemoryTrace(3))

		Expect(p.NumCPUs()).To(Equal(3))
	})

	It("should finish an empty trace", func() {
		p := build(smallConfig(2), processor.NewMemoryTrace(2))

		snapshot, err := p.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(snapshot.CPUs).To(HaveLen(2))
		Expect(p.Processor(0).Done()).To(BeTrue())
	})

	It("should read into E and then hit", func() {
		t := processor.NewMemoryTrace(1).Read(0, 0).Read(0, 0)
		p := build(smallConfig(1), t)

		snapshot, err := p.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(p.Cache(0).LineState(0)).To(Equal(moesi.Exclusive))
		Expect(snapshot.CPUs[0]).To(Equal(moesi.CPUStats{
			ReadMisses: 1,
			ReadHits:   1,
		}))
		Expect(snapshot.Memory.Reads).To(Equal(uint64(1)))
		Expect(snapshot.TotalCycles).To(BeNumerically(">", 10))
	})

	It("should measure access latencies", func() {
		t := processor.NewMemoryTrace(1).Read(0, 0).Read(0, 0)
		p := build(smallConfig(1), t)

		_, err := p.Run()
		timing := p.Timing()

		Expect(err).NotTo(HaveOccurred())
		Expect(timing.CPUs).To(HaveLen(1))
		Expect(timing.CPUs[0].Accesses).To(Equal(uint64(2)))
		Expect(timing.CPUs[0].MaxLatency).To(BeNumerically(">=", 10))
		Expect(timing.CPUs[0].AverageLatency).
			To(BeNumerically("<", float64(timing.CPUs[0].MaxLatency)))
		Expect(timing.BusBusyCycles).To(BeNumerically(">", 0))
		Expect(timing.MemoryBusyCycles).To(BeNumerically(">=", 10))
	})

	It("should serve a read of a modified line from the owner", func() {
		t := processor.NewMemoryTrace(2).
			Write(0, 32).
			Nop(1, 100).
			Read(1, 32)
		p := build(smallConfig(2), t)

		snapshot, err := p.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(p.Cache(0).LineState(32)).To(Equal(moesi.Owned))
		Expect(p.Cache(1).LineState(32)).To(Equal(moesi.Shared))
		Expect(snapshot.CPUs[0].WriteMisses).To(Equal(uint64(1)))
		Expect(snapshot.CPUs[1].ReadMisses).To(Equal(uint64(1)))
		Expect(snapshot.Caches[0].SnoopHits).To(Equal(uint64(1)))

		// Only the write allocate of cache 0 reaches memory.
		Expect(snapshot.Memory.Reads).To(Equal(uint64(1)))
		Expect(p.Memory().AccessLog()).To(Equal([]memory.AccessRecord{
			{Addr: 32, Reads: 1},
		}))
	})

	It("should leave one modified copy after two writes", func() {
		t := processor.NewMemoryTrace(2).
			Write(0, 64).
			Nop(1, 100).
			Write(1, 64)
		p := build(smallConfig(2), t)

		snapshot, err := p.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(p.Cache(0).LineState(64)).To(Equal(moesi.Invalid))
		Expect(p.Cache(1).LineState(64)).To(Equal(moesi.Modified))
		Expect(snapshot.Caches[0].InvalidationsReceived).To(Equal(uint64(1)))

		// The modified copy of cache 0 is drained before cache 1 owns it.
		Expect(snapshot.Memory.Writes).To(Equal(uint64(1)))
		Expect(snapshot.Memory.Drains).To(Equal(uint64(1)))
		Expect(snapshot.Memory.Reads).To(Equal(uint64(1)))
	})

	It("should leave one modified copy after racing writes", func() {
		t := processor.NewMemoryTrace(3).
			Write(0, 64).
			Write(1, 64).
			Write(2, 64)
		p := build(smallConfig(3), t)

		_, err := p.Run()

		Expect(err).NotTo(HaveOccurred())

		modified := 0
		for i := 0; i < 3; i++ {
			s := p.Cache(i).LineState(64)
			Expect(s).To(BeElementOf(moesi.Invalid, moesi.Modified))

			if s == moesi.Modified {
				modified++
			}
		}

		Expect(modified).To(Equal(1))
	})

	It("should upgrade a shared line on a write hit", func() {
		t := processor.NewMemoryTrace(2).
			Read(0, 0x100).
			Nop(1, 50).
			Read(1, 0x100).
			Nop(0, 100).
			Write(0, 0x100)
		p := build(smallConfig(2), t)

		snapshot, err := p.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(snapshot.CPUs[0].WriteHits).To(Equal(uint64(1)))
		Expect(p.Cache(0).LineState(0x100)).To(Equal(moesi.Modified))
		Expect(p.Cache(1).LineState(0x100)).To(Equal(moesi.Invalid))
		Expect(snapshot.Memory.Writes).To(Equal(uint64(0)))
	})

	It("should not touch the bus on repeated reads of a shared line", func() {
		run := func(repeats int) moesi.StatsSnapshot {
			t := processor.NewMemoryTrace(2).
				Read(0, 0x40).
				Nop(1, 50).
				Read(1, 0x40)
			for i := 0; i < repeats; i++ {
				t.Read(1, 0x40)
			}

			p := build(smallConfig(2), t)
			snapshot, err := p.Run()
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Cache(1).LineState(0x40)).To(Equal(moesi.Shared))

			return snapshot
		}

		once := run(1)
		many := run(5)

		Expect(many.CPUs[1].ReadHits - once.CPUs[1].ReadHits).
			To(Equal(uint64(4)))
		Expect(many.CPUs[1].ReadMisses).To(Equal(once.CPUs[1].ReadMisses))
		Expect(many.Caches).To(Equal(once.Caches))
		Expect(many.Memory).To(Equal(once.Memory))
	})

	It("should write a dirty victim back before installing", func() {
		c := smallConfig(1)
		c.NumSets = 1
		c.Associativity = 1

		t := processor.NewMemoryTrace(1).Write(0, 0).Write(0, 32)
		p := build(c, t)

		var events []string

		p.Cache(0).AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			e, ok := ctx.Item.(cache.LineEvent)
			if !ok {
				return
			}

			switch ctx.Pos {
			case cache.HookPosWriteBackIssued:
				events = append(events, "write-back")
			case cache.HookPosLineEvicted:
				events = append(events, "evict")
			case cache.HookPosLineInstalled:
				if e.Address == 32 {
					events = append(events, "install")
				}
			}
		}))
		p.Memory().AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			if ctx.Pos != memory.HookPosAccessDone {
				return
			}

			if ctx.Item.(*moesi.BusMsg).Kind == moesi.WriteBackComplete {
				events = append(events, "memory-write")
			}
		}))

		snapshot, err := p.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(Equal([]string{
			"write-back", "memory-write", "evict", "install",
		}))
		Expect(snapshot.Memory.WriteBacks).To(Equal(uint64(1)))
		Expect(snapshot.Caches[0].WriteBacks).To(Equal(uint64(1)))
		Expect(p.Cache(0).LineState(0)).To(Equal(moesi.Invalid))
		Expect(p.Cache(0).LineState(32)).To(Equal(moesi.Modified))
	})

	It("should stay consistent under a random trace", func() {
		c := smallConfig(4)
		c.NumSets = 4
		c.Associativity = 2

		r := rand.New(rand.NewSource(7))
		t := processor.NewMemoryTrace(4)

		for cpu := 0; cpu < 4; cpu++ {
			for i := 0; i < 200; i++ {
				addr := uint64(r.Intn(32)) * 16

				switch r.Intn(3) {
				case 0:
					t.Read(cpu, addr)
				case 1:
					t.Write(cpu, addr)
				default:
					t.Nop(cpu, 1)
				}
			}
		}

		p := build(c, t)

		snapshot, err := p.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(p.CheckConsistency()).To(Succeed())

		total := uint64(0)
		for _, s := range snapshot.CPUs {
			total += s.Accesses()
		}

		Expect(total + nops(t)).To(Equal(uint64(800)))
	})

	DescribeTable("consistency after every completed entry",
		func(numCPUs, assoc, memLatency int) {
			c := smallConfig(numCPUs)
			c.NumSets = 2
			c.Associativity = assoc
			c.MemoryLatency = memLatency

			r := rand.New(rand.NewSource(int64(numCPUs*100 + assoc*10 + memLatency)))
			t := processor.NewMemoryTrace(numCPUs)

			for cpu := 0; cpu < numCPUs; cpu++ {
				for i := 0; i < 60; i++ {
					addr := uint64(r.Intn(16)) * 32

					if r.Intn(2) == 0 {
						t.Read(cpu, addr)
					} else {
						t.Write(cpu, addr)
					}
				}
			}

			p := build(c, t)

			checks := 0
			var firstErr error

			for i := 0; i < p.NumCPUs(); i++ {
				p.Processor(i).AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
					if ctx.Pos != processor.HookPosOpDone {
						return
					}

					checks++
					if err := p.CheckConsistency(); err != nil && firstErr == nil {
						firstErr = err
					}
				}))
			}

			_, err := p.Run()

			Expect(err).NotTo(HaveOccurred())
			Expect(firstErr).NotTo(HaveOccurred())
			Expect(checks).To(Equal(numCPUs * 60))
		},
		Entry("1 CPU, direct mapped", 1, 1, 0),
		Entry("2 CPUs, 2 ways", 2, 2, 10),
		Entry("4 CPUs, 1 way", 4, 1, 3),
		Entry("4 CPUs, 4 ways, no memory latency", 4, 4, 0),
		Entry("8 CPUs, 2 ways", 8, 2, 10),
	)

	It("should report a malformed entry and no statistics", func() {
		t := processor.NewMemoryTrace(1).
			Read(0, 0).
			Add(0, processor.TraceEntry{Op: processor.Op(7)})
		p := build(smallConfig(1), t)

		snapshot, err := p.Run()

		Expect(err).To(MatchError(ContainSubstring("unknown operation")))
		Expect(snapshot.CPUs).To(BeNil())
	})

	It("should stop at the cycle limit", func() {
		c := smallConfig(1)
		c.CycleLimit = 5

		p := build(c, processor.NewMemoryTrace(1).Read(0, 0))

		_, err := p.Run()

		Expect(err).To(MatchError(sim.ErrCycleLimitReached))
	})

	It("should log events and messages", func() {
		buf := new(bytes.Buffer)
		p, err := MakeBuilder().
			WithConfig(smallConfig(1)).
			WithTrace(processor.NewMemoryTrace(1).Read(0, 0)).
			WithLogger(log.New(buf, "", 0)).
			Build("MOESI")
		Expect(err).NotTo(HaveOccurred())

		_, err = p.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("MOESI.Cache[0].TopPort"))
		Expect(buf.String()).To(ContainSubstring("MOESI.Bus"))
	})
})

func nops(t *processor.MemoryTrace) uint64 {
	n := uint64(0)

	t.Rewind()

	for cpu := 0; cpu < t.NumCPUs(); cpu++ {
		for {
			e, ok, _ := t.Next(cpu)
			if !ok {
				break
			}

			if e.Op == processor.OpNop {
				n++
			}
		}
	}

	return n
}
