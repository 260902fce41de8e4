package cache

import (
	"log"

	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/tracing"
)

// busStage reacts to the grants and the responses that the bus sends to the
// cache.
type busStage struct {
	cache *Comp
}

func (s *busStage) Tick() bool {
	msg := s.cache.busPort.PeekIncoming()
	if msg == nil {
		return false
	}

	switch msg := msg.(type) {
	case *moesi.ArbitrationGrant:
		return s.handleGrant(msg)
	case *moesi.BusMsg:
		return s.handleResponse(msg)
	default:
		log.Panicf("%s: cannot handle bus message of type %T",
			s.cache.Name(), msg)
	}

	return false
}

func (s *busStage) handleGrant(grant *moesi.ArbitrationGrant) bool {
	c := s.cache
	trans := c.inFlight

	if trans == nil || trans.phase != phaseWaitGrant {
		log.Panicf("%s: received a bus grant without waiting for one",
			c.Name())
	}

	if grant.Agent != c.id {
		log.Panicf("%s: received the grant of agent %d", c.Name(), grant.Agent)
	}

	if !c.busSender.CanSend(1) {
		return false
	}

	c.stats.AddBusWait(c.id, uint64(c.CurrentTime()-trans.requestedAt))

	// Another cache may have taken the line while this one was waiting.
	if trans.kind == moesi.Invalidate {
		if _, found := c.directory.Lookup(trans.addr); !found {
			trans.kind = moesi.ReadForWriteAllocate
			tracing.AddTaskStep(
				tracing.MsgIDAtReceiver(trans.req(), c), c, "upgrade-lost")
		}
	}

	trans.busReq = moesi.BusMsgBuilder{}.
		WithSrc(c.busPort.AsRemote()).
		WithDst(c.bus).
		WithKind(trans.kind).
		WithRequester(c.id).
		WithAddr(trans.addr).
		Build()
	c.busSender.Send(trans.busReq)
	trans.phase = phaseWaitResponse

	c.busPort.RetrieveIncoming()

	return true
}

func (s *busStage) handleResponse(rsp *moesi.BusMsg) bool {
	c := s.cache
	trans := c.inFlight

	if trans == nil || trans.busReq == nil ||
		rsp.RespondTo != trans.busReq.ID {
		log.Panicf("%s: received %s for %s, which is not in flight",
			c.Name(), rsp.Kind, rsp.Addr)
	}

	var madeProgress bool

	switch trans.phase {
	case phaseWaitResponse:
		madeProgress = s.handleTransactionResponse(trans, rsp)
	case phaseWaitWriteBack:
		s.kindMustBe(rsp, moesi.WriteBackComplete)
		madeProgress = c.install(trans)
	default:
		log.Panicf("%s: received %s while not waiting for the bus",
			c.Name(), rsp.Kind)
	}

	if madeProgress {
		c.busPort.RetrieveIncoming()
	}

	return madeProgress
}

func (s *busStage) handleTransactionResponse(
	trans *transaction,
	rsp *moesi.BusMsg,
) bool {
	switch trans.kind {
	case moesi.Read:
		switch rsp.Kind {
		case moesi.SnoopResponseFromCache:
			return s.fill(trans, moesi.FillFromCache, rsp.Data)
		case moesi.SnoopResponseFromMemory:
			return s.fill(trans, moesi.FillFromMemory, rsp.Data)
		default:
			s.kindMustBe(rsp, moesi.SnoopResponseFromMemory)
		}
	case moesi.ReadForWriteAllocate:
		s.kindMustBe(rsp, moesi.ReadForWriteAllocate)
		return s.fill(trans, moesi.FillForWrite, rsp.Data)
	case moesi.Invalidate:
		s.kindMustBe(rsp, moesi.Invalidate)
		return s.cache.finishUpgrade(trans)
	default:
		log.Panicf("%s: transaction of kind %s cannot be in flight",
			s.cache.Name(), trans.kind)
	}

	return false
}

func (s *busStage) kindMustBe(rsp *moesi.BusMsg, kind moesi.TransKind) {
	if rsp.Kind != kind {
		log.Panicf("%s: expected %s for %s, but received %s",
			s.cache.Name(), kind, rsp.Addr, rsp.Kind)
	}
}

// fill picks a victim for the arriving line. A dirty victim goes to memory
// first, and the line is installed when the write-back completes.
func (s *busStage) fill(
	trans *transaction,
	event moesi.Event,
	data []byte,
) bool {
	c := s.cache

	trans.fill = event
	trans.fillData = data
	trans.victim = c.directory.Set(trans.addr.SetIndex).Victim()

	if !trans.victim.State.IsDirty() {
		return c.install(trans)
	}

	if !c.busSender.CanSend(1) {
		return false
	}

	victimData := make([]byte, len(trans.victim.Data))
	copy(victimData, trans.victim.Data)

	trans.busReq = moesi.BusMsgBuilder{}.
		WithSrc(c.busPort.AsRemote()).
		WithDst(c.bus).
		WithKind(moesi.Write).
		WithRequester(c.id).
		WithAddr(c.geometry.Decode(c.directory.LineAddress(trans.victim))).
		WithData(victimData).
		Build()
	c.busSender.Send(trans.busReq)
	trans.phase = phaseWaitWriteBack

	c.stats.RecordWriteBack(c.id)
	c.invokeLineHook(HookPosWriteBackIssued, trans.victim, trans.victim.State)
	tracing.AddTaskStep(
		tracing.MsgIDAtReceiver(trans.req(), c), c, "write-back")

	return true
}

// install evicts the victim and places the new line in its way.
func (c *Comp) install(trans *transaction) bool {
	if !c.topSender.CanSend(1) || !c.busSender.CanSend(1) {
		return false
	}

	line := trans.victim

	if line.State.IsValid() {
		before := line.State
		line.State, _ = c.protocol.Next(line.State, moesi.Evict)
		c.invokeLineHook(HookPosLineEvicted, line, before)
	}

	line.Tag = trans.addr.Tag
	line.HasTag = true
	line.Data = make([]byte, c.geometry.LineBytes)
	copy(line.Data, trans.fillData)
	line.State, _ = c.protocol.Next(moesi.Invalid, trans.fill)
	c.directory.Set(trans.addr.SetIndex).Touch(line)
	c.invokeLineHook(HookPosLineInstalled, line, moesi.Invalid)

	var data []byte
	if trans.isRead() {
		data = make([]byte, len(line.Data))
		copy(data, line.Data)
	}

	c.respond(trans, data)
	c.release()

	return true
}

func (c *Comp) finishUpgrade(trans *transaction) bool {
	if !c.topSender.CanSend(1) || !c.busSender.CanSend(1) {
		return false
	}

	line, found := c.directory.Lookup(trans.addr)
	if !found {
		log.Panicf("%s: line %s was lost while the bus was owned",
			c.Name(), trans.addr)
	}

	before := line.State
	line.State, _ = c.protocol.Next(line.State, moesi.WriteHitUpgraded)
	c.directory.Set(trans.addr.SetIndex).Touch(line)
	c.invokeLineHook(HookPosLineUpgraded, line, before)

	c.respond(trans, nil)
	c.release()

	return true
}

func (c *Comp) respond(trans *transaction, data []byte) {
	req := trans.req()

	if trans.isRead() {
		rsp := moesi.DataReadyRspBuilder{}.
			WithSrc(c.topPort.AsRemote()).
			WithDst(req.Meta().Src).
			WithRspTo(req.Meta().ID).
			WithData(data).
			Build()
		c.topSender.Send(rsp)
	} else {
		rsp := moesi.WriteDoneRspBuilder{}.
			WithSrc(c.topPort.AsRemote()).
			WithDst(req.Meta().Src).
			WithRspTo(req.Meta().ID).
			Build()
		c.topSender.Send(rsp)
	}

	tracing.TraceReqComplete(req, c)
}

func (c *Comp) release() {
	rel := moesi.ArbitrationMsgBuilder{}.
		WithSrc(c.busPort.AsRemote()).
		WithDst(c.bus).
		WithAgent(c.id).
		BuildRelease()
	c.busSender.Send(rel)

	c.inFlight = nil
}
