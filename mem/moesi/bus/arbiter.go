package bus

import (
	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/sim"
)

// arbiter grants the bus to at most one agent per cycle. Memory goes first.
// Caches are served in the order they asked.
type arbiter struct {
	bus *Comp
}

func (a *arbiter) Tick() bool {
	b := a.bus

	if !b.sender.CanSend(1) {
		return false
	}

	if b.memoryWaiting {
		b.memoryMustBeAttached()

		b.memoryWaiting = false
		b.memoryHoldsGrant = true
		a.grant(moesi.MemoryAgent, b.memory.BusSidePort().AsRemote())

		return true
	}

	if b.owner != noOwner {
		return false
	}

	item := b.arbitrationQueue.Pop()
	if item == nil {
		return false
	}

	req := item.(*moesi.ArbitrationReq)
	b.owner = req.Agent
	a.grant(req.Agent, req.Src)

	return true
}

func (a *arbiter) grant(agent int, dst sim.RemotePort) {
	b := a.bus

	g := moesi.ArbitrationMsgBuilder{}.
		WithSrc(b.port.AsRemote()).
		WithDst(dst).
		WithAgent(agent).
		BuildGrant()
	b.sender.Send(g)

	if b.NumHooks() > 0 {
		b.InvokeHook(sim.HookCtx{
			Domain: b,
			Now:    b.CurrentTime(),
			Pos:    HookPosGrant,
			Item:   g,
		})
	}
}
