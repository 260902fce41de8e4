package cache

import (
	"log"

	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/mem/moesi/internal/tagging"
	"github.com/sarchlab/moesisim/sim"
)

type phase int

const (
	phaseLookup phase = iota
	phaseWaitGrant
	phaseWaitResponse
	phaseWaitWriteBack
)

type transaction struct {
	id    string
	read  *moesi.ReadReq
	write *moesi.WriteReq
	addr  moesi.Address

	phase       phase
	kind        moesi.TransKind
	requestedAt sim.VTimeInCycle
	busReq      *moesi.BusMsg

	fill     moesi.Event
	fillData []byte
	victim   *tagging.Line
}

func newTransaction(req sim.Msg, g moesi.Geometry) *transaction {
	t := &transaction{
		id: sim.GetIDGenerator().Generate(),
	}

	switch req := req.(type) {
	case *moesi.ReadReq:
		t.read = req
		t.addr = g.Decode(req.Address)
	case *moesi.WriteReq:
		t.write = req
		t.addr = g.Decode(req.Address)
	default:
		log.Panicf("cache cannot handle request of type %T", req)
	}

	return t
}

func (t *transaction) TaskID() string {
	return "cache-trans-" + t.id
}

func (t *transaction) req() sim.Msg {
	if t.read != nil {
		return t.read
	}

	return t.write
}

func (t *transaction) isRead() bool {
	return t.read != nil
}
