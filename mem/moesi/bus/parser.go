package bus

import (
	"log"

	"github.com/sarchlab/moesisim/mem/moesi"
)

// parser sorts the incoming messages into the arbitration queue, the request
// buffer, and the memory response buffer.
type parser struct {
	bus *Comp
}

func (p *parser) Tick() bool {
	madeProgress := false

	for {
		msg := p.bus.port.PeekIncoming()
		if msg == nil {
			return madeProgress
		}

		var ok bool

		switch msg := msg.(type) {
		case *moesi.ArbitrationReq:
			ok = p.parseArbitrationReq(msg)
		case *moesi.BusRelease:
			ok = p.parseRelease(msg)
		case *moesi.BusMsg:
			ok = p.parseBusMsg(msg)
		default:
			log.Panicf("%s: cannot handle message of type %T",
				p.bus.Name(), msg)
		}

		if !ok {
			return madeProgress
		}

		p.bus.port.RetrieveIncoming()
		madeProgress = true
	}
}

func (p *parser) parseArbitrationReq(req *moesi.ArbitrationReq) bool {
	b := p.bus

	if req.Agent == moesi.MemoryAgent {
		if b.memoryWaiting || b.memoryHoldsGrant {
			log.Panicf("%s: memory asks for the bus twice", b.Name())
		}

		b.memoryWaiting = true

		return true
	}

	b.cache(req.Agent)

	if !b.arbitrationQueue.CanPush() {
		return false
	}

	b.arbitrationQueue.Push(req)

	return true
}

func (p *parser) parseRelease(rel *moesi.BusRelease) bool {
	b := p.bus

	if rel.Agent != b.owner {
		log.Panicf("%s: cache %d releases the bus owned by %d",
			b.Name(), rel.Agent, b.owner)
	}

	if b.current != nil || b.requestBuffer.Size() > 0 {
		log.Panicf("%s: cache %d releases the bus with a transaction open",
			b.Name(), rel.Agent)
	}

	b.owner = noOwner

	return true
}

func (p *parser) parseBusMsg(msg *moesi.BusMsg) bool {
	b := p.bus

	if b.isFromMemory(msg) {
		if !b.memoryHoldsGrant {
			log.Panicf("%s: memory responds without the bus", b.Name())
		}

		if !b.memoryRspBuffer.CanPush() {
			return false
		}

		b.memoryHoldsGrant = false
		b.memoryRspBuffer.Push(msg)

		return true
	}

	if msg.Requester != b.owner {
		log.Panicf("%s: cache %d sends %s for %s without owning the bus",
			b.Name(), msg.Requester, msg.Kind, msg.Addr)
	}

	if !b.requestBuffer.CanPush() {
		return false
	}

	b.requestBuffer.Push(msg)

	return true
}
