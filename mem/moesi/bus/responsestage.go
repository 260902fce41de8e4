package bus

import (
	"log"

	"github.com/sarchlab/moesisim/mem/moesi"
)

// responseStage takes the completions that memory sends back and finishes
// the open transaction once it has everything it waits for.
type responseStage struct {
	bus *Comp
}

func (s *responseStage) Tick() bool {
	b := s.bus

	item := b.memoryRspBuffer.Peek()
	if item == nil {
		return false
	}

	rsp := item.(*moesi.BusMsg)
	trans := b.current

	if trans == nil {
		log.Panicf("%s: memory answers %s for %s with no transaction open",
			b.Name(), rsp.Kind, rsp.Addr)
	}

	if !b.sender.CanSend(1) {
		return false
	}

	if rsp.Drain {
		if trans.pendingDrains == 0 {
			log.Panicf("%s: unexpected drain completion for %s",
				b.Name(), rsp.Addr)
		}

		trans.pendingDrains--
	} else {
		if !trans.waitingMemory || rsp.RespondTo != trans.memReq.ID {
			log.Panicf("%s: memory answers a request that is not open",
				b.Name())
		}

		trans.waitingMemory = false
		trans.data = rsp.Data
	}

	b.memoryRspBuffer.Pop()

	if trans.done() {
		b.respond(trans)
	}

	return true
}
