package memory

import (
	"log"

	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/tracing"
)

// parser takes bus requests into the latency pipeline and records grants.
type parser struct {
	mem *Comp
}

func (p *parser) Tick() bool {
	madeProgress := false

	for {
		msg := p.mem.port.PeekIncoming()
		if msg == nil {
			return madeProgress
		}

		switch msg := msg.(type) {
		case *moesi.ArbitrationGrant:
			p.parseGrant(msg)
		case *moesi.BusMsg:
			if !p.parseRequest(msg) {
				return madeProgress
			}
		default:
			log.Panicf("%s: cannot handle message of type %T",
				p.mem.Name(), msg)
		}

		p.mem.port.RetrieveIncoming()
		madeProgress = true
	}
}

func (p *parser) parseGrant(g *moesi.ArbitrationGrant) {
	m := p.mem

	if g.Agent != moesi.MemoryAgent {
		log.Panicf("%s: received the grant of agent %d", m.Name(), g.Agent)
	}

	if m.pending == nil || m.granted {
		log.Panicf("%s: granted the bus without asking", m.Name())
	}

	m.granted = true
}

func (p *parser) parseRequest(req *moesi.BusMsg) bool {
	m := p.mem

	switch req.Kind {
	case moesi.Read, moesi.ReadForWriteAllocate, moesi.Write:
	default:
		log.Panicf("%s: cannot serve %s", m.Name(), req.Kind)
	}

	if !m.pipeline.CanAccept() {
		return false
	}

	m.pipeline.Accept(newAccess(req))
	tracing.TraceReqReceive(req, m)

	return true
}
