package bus

import (
	"log"

	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/sim"
	"github.com/sarchlab/moesisim/tracing"
)

// requestStage resolves the request of the cache that owns the bus. All the
// snoops of a request happen within one tick.
type requestStage struct {
	bus *Comp
}

func (s *requestStage) Tick() bool {
	b := s.bus

	if b.current != nil {
		return false
	}

	item := b.requestBuffer.Peek()
	if item == nil {
		return false
	}

	// A response, a memory request, and one drain per other cache at most.
	if !b.sender.CanSend(len(b.caches) + 1) {
		return false
	}

	req := item.(*moesi.BusMsg)
	tracing.TraceReqReceive(req, b)

	switch req.Kind {
	case moesi.Read:
		s.read(req)
	case moesi.ReadForWriteAllocate:
		s.readForWriteAllocate(req)
	case moesi.Invalidate:
		s.invalidate(req)
	case moesi.Write:
		s.write(req)
	default:
		log.Panicf("%s: %s is not a request", b.Name(), req.Kind)
	}

	b.requestBuffer.Pop()

	return true
}

func (s *requestStage) read(req *moesi.BusMsg) {
	trans := &transaction{req: req}
	s.snoopReadAll(trans)

	if trans.suppliedByPeer {
		s.bus.respond(trans)
		return
	}

	s.readMemory(trans, moesi.Read)
}

func (s *requestStage) readForWriteAllocate(req *moesi.BusMsg) {
	trans := &transaction{req: req}
	s.snoopReadAll(trans)
	s.invalidateAll(trans)

	if !trans.suppliedByPeer {
		s.readMemory(trans, moesi.ReadForWriteAllocate)
	}

	s.finishOrWait(trans)
}

func (s *requestStage) invalidate(req *moesi.BusMsg) {
	trans := &transaction{req: req}
	s.invalidateAll(trans)
	s.finishOrWait(trans)
}

func (s *requestStage) write(req *moesi.BusMsg) {
	b := s.bus
	b.memoryMustBeAttached()

	trans := &transaction{req: req, waitingMemory: true}
	trans.memReq = moesi.BusMsgBuilder{}.
		WithSrc(b.port.AsRemote()).
		WithDst(b.memory.BusSidePort().AsRemote()).
		WithKind(moesi.Write).
		WithRequester(req.Requester).
		WithAddr(req.Addr).
		WithData(req.Data).
		Build()
	b.sender.Send(trans.memReq)

	b.current = trans
}

func (s *requestStage) finishOrWait(trans *transaction) {
	if trans.done() {
		s.bus.respond(trans)
		return
	}

	s.bus.current = trans
}

func (s *requestStage) snoopReadAll(trans *transaction) {
	b := s.bus
	req := trans.req

	for _, cache := range b.caches {
		if cache.CacheID() == req.Requester {
			continue
		}

		res := cache.SnoopRead(req.Requester, req.Addr.Raw, trans.suppliedByPeer)
		s.invokeSnoopHook(req, cache.CacheID(), res)

		if res.Supplied {
			trans.suppliedByPeer = true
			trans.data = res.Data
		}
	}
}

// invalidateAll removes every other copy. The data of dirty copies is drained
// to memory before the requester is answered.
func (s *requestStage) invalidateAll(trans *transaction) {
	b := s.bus
	req := trans.req

	for _, cache := range b.caches {
		if cache.CacheID() == req.Requester {
			continue
		}

		res := cache.SnoopInvalidate(req.Requester, req.Addr.Raw)
		s.invokeSnoopHook(req, cache.CacheID(), res)

		if res.WasDirty {
			s.drain(trans, cache.CacheID(), res.Data)
		}
	}
}

func (s *requestStage) drain(trans *transaction, holder int, data []byte) {
	b := s.bus
	b.memoryMustBeAttached()

	msg := moesi.BusMsgBuilder{}.
		WithSrc(b.port.AsRemote()).
		WithDst(b.memory.BusSidePort().AsRemote()).
		WithKind(moesi.Write).
		WithRequester(holder).
		WithAddr(trans.req.Addr).
		WithData(data).
		WithDrain(true).
		Build()
	b.sender.Send(msg)

	trans.pendingDrains++
}

func (s *requestStage) readMemory(trans *transaction, kind moesi.TransKind) {
	b := s.bus
	b.memoryMustBeAttached()

	trans.memReq = moesi.BusMsgBuilder{}.
		WithSrc(b.port.AsRemote()).
		WithDst(b.memory.BusSidePort().AsRemote()).
		WithKind(kind).
		WithRequester(trans.req.Requester).
		WithAddr(trans.req.Addr).
		Build()
	b.sender.Send(trans.memReq)

	trans.waitingMemory = true
	b.current = trans
}

func (s *requestStage) invokeSnoopHook(
	req *moesi.BusMsg,
	target int,
	res moesi.SnoopResult,
) {
	b := s.bus
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(sim.HookCtx{
		Domain: b,
		Now:    b.CurrentTime(),
		Pos:    HookPosSnoop,
		Item: SnoopEvent{
			Kind:      req.Kind,
			Requester: req.Requester,
			Target:    target,
			Address:   req.Addr.Raw,
			Result:    res,
		},
	})
}

// respond sends the answer of a finished transaction to its requester.
func (c *Comp) respond(trans *transaction) {
	req := trans.req

	rsp := moesi.BusMsgBuilder{}.
		WithSrc(c.port.AsRemote()).
		WithDst(c.cache(req.Requester).BusSidePort().AsRemote()).
		WithKind(responseKind(req, trans.suppliedByPeer)).
		WithRequester(req.Requester).
		WithAddr(req.Addr).
		WithData(trans.data).
		WithRspTo(req.ID).
		Build()
	c.sender.Send(rsp)

	tracing.TraceReqComplete(req, c)

	c.current = nil
}
