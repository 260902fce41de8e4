package cache

import (
	"github.com/sarchlab/moesisim/tracing"
)

type topParser struct {
	cache *Comp
}

func (p *topParser) Tick() bool {
	req := p.cache.topPort.PeekIncoming()
	if req == nil {
		return false
	}

	if !p.cache.lookupPipeline.CanAccept() {
		return false
	}

	trans := newTransaction(req, p.cache.geometry)
	p.cache.lookupPipeline.Accept(trans)

	tracing.TraceReqReceive(req, p.cache)

	p.cache.topPort.RetrieveIncoming()

	return true
}
