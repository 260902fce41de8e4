package cache

import (
	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/mem/moesi/internal/tagging"
	"github.com/sarchlab/moesisim/tracing"
)

// lookupStage classifies the requests that come out of the lookup pipeline.
// It holds the head request while a bus transaction is in flight so that
// requests complete in order.
type lookupStage struct {
	cache *Comp
}

func (s *lookupStage) Tick() bool {
	if s.cache.inFlight != nil {
		return false
	}

	item := s.cache.lookupBuffer.Peek()
	if item == nil {
		return false
	}

	trans := item.(*transaction)
	line, hit := s.cache.directory.Lookup(trans.addr)

	switch {
	case trans.isRead() && hit:
		return s.readHit(trans, line)
	case trans.isRead():
		return s.startBusTransaction(trans, moesi.Read, "read-miss")
	case hit:
		return s.startBusTransaction(trans, moesi.Invalidate, "write-hit")
	default:
		return s.startBusTransaction(
			trans, moesi.ReadForWriteAllocate, "write-miss")
	}
}

func (s *lookupStage) readHit(trans *transaction, line *tagging.Line) bool {
	c := s.cache
	if !c.topSender.CanSend(1) {
		return false
	}

	line.State, _ = c.protocol.Next(line.State, moesi.ReadHit)
	c.directory.Set(trans.addr.SetIndex).Touch(line)
	c.stats.RecordReadHit(c.id)

	data := make([]byte, len(line.Data))
	copy(data, line.Data)

	tracing.AddTaskStep(tracing.MsgIDAtReceiver(trans.read, c), c, "read-hit")
	c.respond(trans, data)
	c.lookupBuffer.Pop()

	return true
}

func (s *lookupStage) startBusTransaction(
	trans *transaction,
	kind moesi.TransKind,
	step string,
) bool {
	c := s.cache
	if !c.busSender.CanSend(1) {
		return false
	}

	switch step {
	case "read-miss":
		c.stats.RecordReadMiss(c.id)
	case "write-hit":
		c.stats.RecordWriteHit(c.id)
	default:
		c.stats.RecordWriteMiss(c.id)
	}

	trans.kind = kind
	trans.phase = phaseWaitGrant
	trans.requestedAt = c.CurrentTime()
	c.inFlight = trans

	req := moesi.ArbitrationMsgBuilder{}.
		WithSrc(c.busPort.AsRemote()).
		WithDst(c.bus).
		WithAgent(c.id).
		BuildReq()
	c.busSender.Send(req)

	tracing.AddTaskStep(tracing.MsgIDAtReceiver(trans.req(), c), c, step)
	c.lookupBuffer.Pop()

	return true
}
