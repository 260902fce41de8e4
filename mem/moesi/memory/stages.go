package memory

import (
	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/sim"
	"github.com/sarchlab/moesisim/tracing"
)

// arbitrationStage asks for the bus on behalf of the oldest finished access.
type arbitrationStage struct {
	mem *Comp
}

func (s *arbitrationStage) Tick() bool {
	m := s.mem

	if m.pending != nil {
		return false
	}

	item := m.doneBuffer.Peek()
	if item == nil {
		return false
	}

	if !m.sender.CanSend(1) {
		return false
	}

	m.busMustBeSet()

	req := moesi.ArbitrationMsgBuilder{}.
		WithSrc(m.port.AsRemote()).
		WithDst(m.bus).
		WithAgent(moesi.MemoryAgent).
		BuildReq()
	m.sender.Send(req)

	m.pending = item.(*access)
	m.doneBuffer.Pop()

	return true
}

// respondStage sends the completion of the pending access once the bus is
// granted.
type respondStage struct {
	mem *Comp
}

func (s *respondStage) Tick() bool {
	m := s.mem

	if m.pending == nil || !m.granted {
		return false
	}

	if !m.sender.CanSend(1) {
		return false
	}

	req := m.pending.req
	rsp := s.completion(req)
	m.sender.Send(rsp)

	s.count(req)
	tracing.TraceReqComplete(req, m)

	if m.NumHooks() > 0 {
		m.InvokeHook(sim.HookCtx{
			Domain: m,
			Now:    m.CurrentTime(),
			Pos:    HookPosAccessDone,
			Item:   rsp,
		})
	}

	m.pending = nil
	m.granted = false

	return true
}

func (s *respondStage) completion(req *moesi.BusMsg) *moesi.BusMsg {
	m := s.mem

	b := moesi.BusMsgBuilder{}.
		WithSrc(m.port.AsRemote()).
		WithDst(m.bus).
		WithRequester(req.Requester).
		WithAddr(req.Addr).
		WithRspTo(req.ID).
		WithDrain(req.Drain)

	if req.Kind == moesi.Write {
		return b.WithKind(moesi.WriteBackComplete).Build()
	}

	return b.
		WithKind(moesi.SnoopResponseFromMemory).
		WithData(make([]byte, m.lineBytes)).
		Build()
}

func (s *respondStage) count(req *moesi.BusMsg) {
	m := s.mem

	if req.Kind == moesi.Write {
		m.stats.RecordMemoryWrite(req.Drain)
		m.logAccess(req.Addr, true)

		return
	}

	m.stats.RecordMemoryRead()
	m.logAccess(req.Addr, false)
}
