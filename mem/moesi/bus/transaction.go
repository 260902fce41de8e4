package bus

import "github.com/sarchlab/moesisim/mem/moesi"

// transaction is a cache request that waits for memory.
type transaction struct {
	req    *moesi.BusMsg
	memReq *moesi.BusMsg

	waitingMemory  bool
	pendingDrains  int
	suppliedByPeer bool
	data           []byte
}

func (t *transaction) done() bool {
	return !t.waitingMemory && t.pendingDrains == 0
}

func responseKind(req *moesi.BusMsg, suppliedByPeer bool) moesi.TransKind {
	switch req.Kind {
	case moesi.Read:
		if suppliedByPeer {
			return moesi.SnoopResponseFromCache
		}

		return moesi.SnoopResponseFromMemory
	case moesi.Write:
		return moesi.WriteBackComplete
	default:
		return req.Kind
	}
}
