package bus

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/sim"
)

var _ = Describe("Bus", func() {
	var (
		mockCtrl   *gomock.Controller
		engine     *MockEngine
		port       *MockPort
		sender     *MockBufferedSender
		caches     []*MockBusClient
		cachePorts []*MockPort
		memory     *MockMemoryResponder
		memoryPort *MockPort
		geometry   moesi.Geometry
		bus        *Comp
		sent       []sim.Msg
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewMockEngine(mockCtrl)
		engine.EXPECT().CurrentTime().Return(sim.VTimeInCycle(5)).AnyTimes()

		bus = MakeBuilder().WithEngine(engine).Build("Bus")

		port = NewMockPort(mockCtrl)
		port.EXPECT().AsRemote().Return(sim.RemotePort("Bus.Port")).AnyTimes()
		sender = NewMockBufferedSender(mockCtrl)
		bus.port = port
		bus.sender = sender

		sent = nil
		sender.EXPECT().Send(gomock.Any()).Do(func(msg sim.Msg) {
			sent = append(sent, msg)
		}).AnyTimes()

		caches = nil
		cachePorts = nil
		for i := 0; i < 3; i++ {
			p := NewMockPort(mockCtrl)
			p.EXPECT().AsRemote().
				Return(sim.RemotePort(fmt.Sprintf("Cache[%d].BusPort", i))).
				AnyTimes()

			c := NewMockBusClient(mockCtrl)
			c.EXPECT().CacheID().Return(i).AnyTimes()
			c.EXPECT().BusSidePort().Return(p).AnyTimes()

			bus.AttachCache(c)
			caches = append(caches, c)
			cachePorts = append(cachePorts, p)
		}

		memoryPort = NewMockPort(mockCtrl)
		memoryPort.EXPECT().AsRemote().
			Return(sim.RemotePort("Memory.Port")).AnyTimes()
		memory = NewMockMemoryResponder(mockCtrl)
		memory.EXPECT().BusSidePort().Return(memoryPort).AnyTimes()
		bus.AttachMemory(memory)

		geometry, _ = moesi.NewGeometry(32, 4, 2)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	busReq := func(kind moesi.TransKind, requester int, addr uint64) *moesi.BusMsg {
		return moesi.BusMsgBuilder{}.
			WithSrc(sim.RemotePort(fmt.Sprintf("Cache[%d].BusPort", requester))).
			WithDst("Bus.Port").
			WithKind(kind).
			WithRequester(requester).
			WithAddr(geometry.Decode(addr)).
			Build()
	}

	memoryRsp := func(
		to *moesi.BusMsg,
		kind moesi.TransKind,
		drain bool,
	) *moesi.BusMsg {
		return moesi.BusMsgBuilder{}.
			WithSrc("Memory.Port").
			WithDst("Bus.Port").
			WithKind(kind).
			WithRequester(to.Requester).
			WithAddr(to.Addr).
			WithData(make([]byte, 32)).
			WithRspTo(to.ID).
			WithDrain(drain).
			Build()
	}

	It("should reject caches attached out of order", func() {
		c := NewMockBusClient(mockCtrl)
		c.EXPECT().CacheID().Return(7).AnyTimes()

		Expect(func() { bus.AttachCache(c) }).To(Panic())
	})

	Context("parser", func() {
		deliver := func(msgs ...sim.Msg) {
			for _, m := range msgs {
				port.EXPECT().PeekIncoming().Return(m)
				port.EXPECT().RetrieveIncoming().Return(m)
			}
			port.EXPECT().PeekIncoming().Return(nil)
		}

		It("should queue arbitration requests", func() {
			deliver(
				moesi.ArbitrationMsgBuilder{}.
					WithSrc("Cache[2].BusPort").WithDst("Bus.Port").
					WithAgent(2).BuildReq(),
				moesi.ArbitrationMsgBuilder{}.
					WithSrc("Memory.Port").WithDst("Bus.Port").
					WithAgent(moesi.MemoryAgent).BuildReq(),
			)

			Expect(bus.parser.Tick()).To(BeTrue())

			Expect(bus.arbitrationQueue.Size()).To(Equal(1))
			Expect(bus.memoryWaiting).To(BeTrue())
		})

		It("should release the bus", func() {
			bus.owner = 1
			deliver(moesi.ArbitrationMsgBuilder{}.
				WithSrc("Cache[1].BusPort").WithDst("Bus.Port").
				WithAgent(1).BuildRelease())

			Expect(bus.parser.Tick()).To(BeTrue())
			Expect(bus.Owner()).To(Equal(noOwner))
		})

		It("should panic if a cache releases a bus it does not own", func() {
			bus.owner = 1
			port.EXPECT().PeekIncoming().Return(moesi.ArbitrationMsgBuilder{}.
				WithSrc("Cache[0].BusPort").WithDst("Bus.Port").
				WithAgent(0).BuildRelease())

			Expect(func() { bus.parser.Tick() }).To(Panic())
		})

		It("should accept a request from the owner", func() {
			bus.owner = 0
			deliver(busReq(moesi.Read, 0, 0x40))

			Expect(bus.parser.Tick()).To(BeTrue())
			Expect(bus.requestBuffer.Size()).To(Equal(1))
		})

		It("should panic on a request from a cache that is not the owner", func() {
			bus.owner = 0
			port.EXPECT().PeekIncoming().Return(busReq(moesi.Read, 1, 0x40))

			Expect(func() { bus.parser.Tick() }).To(Panic())
		})

		It("should take a memory response and end the memory grant", func() {
			bus.memoryHoldsGrant = true
			deliver(memoryRsp(busReq(moesi.Read, 0, 0x40),
				moesi.SnoopResponseFromMemory, false))

			Expect(bus.parser.Tick()).To(BeTrue())
			Expect(bus.memoryRspBuffer.Size()).To(Equal(1))
			Expect(bus.memoryHoldsGrant).To(BeFalse())
		})

		It("should panic if memory responds without a grant", func() {
			port.EXPECT().PeekIncoming().Return(memoryRsp(
				busReq(moesi.Read, 0, 0x40), moesi.SnoopResponseFromMemory, false))

			Expect(func() { bus.parser.Tick() }).To(Panic())
		})
	})

	Context("arbiter", func() {
		queue := func(agent int) {
			bus.arbitrationQueue.Push(moesi.ArbitrationMsgBuilder{}.
				WithSrc(sim.RemotePort(fmt.Sprintf("Cache[%d].BusPort", agent))).
				WithDst("Bus.Port").
				WithAgent(agent).
				BuildReq())
		}

		BeforeEach(func() {
			sender.EXPECT().CanSend(1).Return(true).AnyTimes()
		})

		It("should grant memory before caches", func() {
			queue(1)
			bus.memoryWaiting = true

			Expect(bus.arbiter.Tick()).To(BeTrue())

			Expect(sent).To(HaveLen(1))
			g := sent[0].(*moesi.ArbitrationGrant)
			Expect(g.Agent).To(Equal(moesi.MemoryAgent))
			Expect(g.Dst).To(Equal(sim.RemotePort("Memory.Port")))
			Expect(bus.memoryHoldsGrant).To(BeTrue())
			Expect(bus.Owner()).To(Equal(noOwner))
		})

		It("should grant memory while a cache owns the bus", func() {
			bus.owner = 0
			bus.memoryWaiting = true

			Expect(bus.arbiter.Tick()).To(BeTrue())
			Expect(sent[0].(*moesi.ArbitrationGrant).Agent).
				To(Equal(moesi.MemoryAgent))
		})

		It("should grant caches in the order they asked", func() {
			queue(2)
			queue(0)

			Expect(bus.arbiter.Tick()).To(BeTrue())
			Expect(bus.Owner()).To(Equal(2))
			Expect(sent[0].Meta().Dst).To(Equal(sim.RemotePort("Cache[2].BusPort")))

			Expect(bus.arbiter.Tick()).To(BeFalse())

			bus.owner = noOwner
			Expect(bus.arbiter.Tick()).To(BeTrue())
			Expect(bus.Owner()).To(Equal(0))
		})

		It("should do nothing if no one waits", func() {
			Expect(bus.arbiter.Tick()).To(BeFalse())
		})
	})

	Context("request stage", func() {
		BeforeEach(func() {
			sender.EXPECT().CanSend(4).Return(true).AnyTimes()
			bus.owner = 0
		})

		It("should wait while a transaction is open", func() {
			bus.current = &transaction{}
			bus.requestBuffer.Push(busReq(moesi.Read, 0, 0x40))

			Expect(bus.requestStage.Tick()).To(BeFalse())
		})

		It("should serve a read from the first cache that hits", func() {
			req := busReq(moesi.Read, 0, 0x40)
			bus.requestBuffer.Push(req)

			data := []byte{1, 2, 3}
			caches[1].EXPECT().SnoopRead(0, uint64(0x40), false).
				Return(moesi.SnoopResult{Hit: true, Supplied: true, Data: data})
			caches[2].EXPECT().SnoopRead(0, uint64(0x40), true).
				Return(moesi.SnoopResult{Hit: true})

			Expect(bus.requestStage.Tick()).To(BeTrue())

			Expect(sent).To(HaveLen(1))
			rsp := sent[0].(*moesi.BusMsg)
			Expect(rsp.Kind).To(Equal(moesi.SnoopResponseFromCache))
			Expect(rsp.Dst).To(Equal(sim.RemotePort("Cache[0].BusPort")))
			Expect(rsp.RespondTo).To(Equal(req.ID))
			Expect(rsp.Data).To(Equal(data))
			Expect(bus.current).To(BeNil())
		})

		It("should read memory if no cache hits", func() {
			bus.requestBuffer.Push(busReq(moesi.Read, 0, 0x40))
			caches[1].EXPECT().SnoopRead(0, uint64(0x40), false)
			caches[2].EXPECT().SnoopRead(0, uint64(0x40), false)

			Expect(bus.requestStage.Tick()).To(BeTrue())

			Expect(sent).To(HaveLen(1))
			memReq := sent[0].(*moesi.BusMsg)
			Expect(memReq.Kind).To(Equal(moesi.Read))
			Expect(memReq.Dst).To(Equal(sim.RemotePort("Memory.Port")))
			Expect(memReq.Requester).To(Equal(0))
			Expect(bus.current.waitingMemory).To(BeTrue())
		})

		It("should drain a dirty copy on a write allocate", func() {
			bus.requestBuffer.Push(busReq(moesi.ReadForWriteAllocate, 0, 0x40))

			gomock.InOrder(
				caches[1].EXPECT().SnoopRead(0, uint64(0x40), false).
					Return(moesi.SnoopResult{
						Hit: true, Supplied: true, WasDirty: true,
						Before: moesi.Modified, After: moesi.Owned,
					}),
				caches[1].EXPECT().SnoopInvalidate(0, uint64(0x40)).
					Return(moesi.SnoopResult{
						Hit: true, WasDirty: true, Data: []byte{9},
						Before: moesi.Owned, After: moesi.Invalid,
					}),
			)
			caches[2].EXPECT().SnoopRead(0, uint64(0x40), true)
			caches[2].EXPECT().SnoopInvalidate(0, uint64(0x40))

			Expect(bus.requestStage.Tick()).To(BeTrue())

			Expect(sent).To(HaveLen(1))
			drain := sent[0].(*moesi.BusMsg)
			Expect(drain.Kind).To(Equal(moesi.Write))
			Expect(drain.Drain).To(BeTrue())
			Expect(drain.Requester).To(Equal(1))
			Expect(drain.Data).To(Equal([]byte{9}))
			Expect(bus.current.pendingDrains).To(Equal(1))
			Expect(bus.current.waitingMemory).To(BeFalse())
		})

		It("should acknowledge an invalidation with no dirty copy", func() {
			req := busReq(moesi.Invalidate, 0, 0x40)
			bus.requestBuffer.Push(req)
			caches[1].EXPECT().SnoopInvalidate(0, uint64(0x40)).
				Return(moesi.SnoopResult{Hit: true, Before: moesi.Shared})
			caches[2].EXPECT().SnoopInvalidate(0, uint64(0x40))

			Expect(bus.requestStage.Tick()).To(BeTrue())

			Expect(sent).To(HaveLen(1))
			Expect(sent[0].(*moesi.BusMsg).Kind).To(Equal(moesi.Invalidate))
			Expect(bus.current).To(BeNil())
		})

		It("should forward a write-back to memory", func() {
			req := busReq(moesi.Write, 0, 0x40)
			req.Data = []byte{4}
			bus.requestBuffer.Push(req)

			Expect(bus.requestStage.Tick()).To(BeTrue())

			memReq := sent[0].(*moesi.BusMsg)
			Expect(memReq.Kind).To(Equal(moesi.Write))
			Expect(memReq.Drain).To(BeFalse())
			Expect(memReq.Data).To(Equal([]byte{4}))
		})

		It("should panic on a response kind used as a request", func() {
			bus.requestBuffer.Push(busReq(moesi.WriteBackComplete, 0, 0x40))

			Expect(func() { bus.requestStage.Tick() }).To(Panic())
		})
	})

	Context("response stage", func() {
		BeforeEach(func() {
			sender.EXPECT().CanSend(1).Return(true).AnyTimes()
		})

		It("should route a memory read to the requester", func() {
			req := busReq(moesi.Read, 1, 0x40)
			memReq := busReq(moesi.Read, 1, 0x40)
			bus.current = &transaction{
				req: req, memReq: memReq, waitingMemory: true,
			}
			bus.memoryRspBuffer.Push(
				memoryRsp(memReq, moesi.SnoopResponseFromMemory, false))

			Expect(bus.responseStage.Tick()).To(BeTrue())

			rsp := sent[0].(*moesi.BusMsg)
			Expect(rsp.Kind).To(Equal(moesi.SnoopResponseFromMemory))
			Expect(rsp.Dst).To(Equal(sim.RemotePort("Cache[1].BusPort")))
			Expect(rsp.RespondTo).To(Equal(req.ID))
			Expect(bus.current).To(BeNil())
		})

		It("should wait for drains and memory data", func() {
			req := busReq(moesi.ReadForWriteAllocate, 0, 0x40)
			memReq := busReq(moesi.ReadForWriteAllocate, 0, 0x40)
			bus.current = &transaction{
				req: req, memReq: memReq,
				waitingMemory: true, pendingDrains: 1,
			}

			bus.memoryRspBuffer.Push(
				memoryRsp(memReq, moesi.SnoopResponseFromMemory, false))
			Expect(bus.responseStage.Tick()).To(BeTrue())
			Expect(sent).To(BeEmpty())

			bus.memoryRspBuffer.Push(
				memoryRsp(busReq(moesi.Write, 2, 0x40), moesi.WriteBackComplete, true))
			Expect(bus.responseStage.Tick()).To(BeTrue())

			Expect(sent).To(HaveLen(1))
			Expect(sent[0].(*moesi.BusMsg).Kind).
				To(Equal(moesi.ReadForWriteAllocate))
		})

		It("should complete a write-back", func() {
			req := busReq(moesi.Write, 2, 0x40)
			memReq := busReq(moesi.Write, 2, 0x40)
			bus.current = &transaction{
				req: req, memReq: memReq, waitingMemory: true,
			}
			bus.memoryRspBuffer.Push(
				memoryRsp(memReq, moesi.WriteBackComplete, false))

			Expect(bus.responseStage.Tick()).To(BeTrue())
			Expect(sent[0].(*moesi.BusMsg).Kind).To(Equal(moesi.WriteBackComplete))
		})

		It("should panic if no transaction is open", func() {
			bus.memoryRspBuffer.Push(memoryRsp(
				busReq(moesi.Read, 0, 0x40), moesi.SnoopResponseFromMemory, false))

			Expect(func() { bus.responseStage.Tick() }).To(Panic())
		})
	})

	Context("busy", func() {
		BeforeEach(func() {
			port.EXPECT().PeekIncoming().Return(nil).AnyTimes()
			sender.EXPECT().Size().Return(0).AnyTimes()
		})

		It("should not be busy when idle", func() {
			memory.EXPECT().SystemBusy().Return(false)

			Expect(bus.SystemBusy()).To(BeFalse())
		})

		It("should be busy while a cache owns the bus", func() {
			bus.owner = 1

			Expect(bus.SystemBusy()).To(BeTrue())
		})

		It("should be busy while memory is busy", func() {
			memory.EXPECT().SystemBusy().Return(true)

			Expect(bus.SystemBusy()).To(BeTrue())
		})
	})
})
