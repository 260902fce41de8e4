package processor

import (
	"fmt"
	"log"

	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/monitoring"
	"github.com/sarchlab/moesisim/sim"
	"github.com/sarchlab/moesisim/tracing"
)

type status int

const (
	statusRunning status = iota
	statusDraining
	statusDone
)

// HookPosOpDone marks the completion of a trace entry. The item is the TraceEntry.
var HookPosOpDone = &sim.HookPos{Name: "Processor Op Done"}

// Comp is a processor that replays a trace.
type Comp struct {
	*sim.TickingComponent

	port  sim.Port
	cache sim.RemotePort

	id     int
	trace  TraceSource
	system moesi.BusyReporter
	bar    *monitoring.ProgressBar

	next      *TraceEntry
	pending   sim.Msg
	pendingOp TraceEntry
	status    status
	err       error

	numCompleted uint64
}

// ID returns the index of the processor.
func (p *Comp) ID() int {
	return p.id
}

// Port returns the port that connects to the cache.
func (p *Comp) Port() sim.Port {
	return p.port
}

// SetCache sets the cache port that the processor sends requests to.
func (p *Comp) SetCache(cache sim.RemotePort) {
	p.cache = cache
}

// SetProgressBar sets a bar that counts the completed entries.
func (p *Comp) SetProgressBar(bar *monitoring.ProgressBar) {
	p.bar = bar
}

// Done tells if the processor has finished its trace and seen the system
// settle.
func (p *Comp) Done() bool {
	return p.status == statusDone
}

// Err returns the error that stopped the processor, if any.
func (p *Comp) Err() error {
	return p.err
}

// NumCompleted returns the number of trace entries that have completed.
func (p *Comp) NumCompleted() uint64 {
	return p.numCompleted
}

// Tick issues the next entry of the trace.
func (p *Comp) Tick() bool {
	if p.status == statusDone {
		return false
	}

	madeProgress := p.processResponse()

	if p.pending != nil {
		return madeProgress
	}

	switch p.status {
	case statusRunning:
		madeProgress = p.issue() || madeProgress
	case statusDraining:
		madeProgress = p.drain() || madeProgress
	}

	return madeProgress
}

func (p *Comp) processResponse() bool {
	msg := p.port.PeekIncoming()
	if msg == nil {
		return false
	}

	rsp, ok := msg.(sim.Rsp)
	if !ok {
		log.Panicf("%s: cannot handle message of type %T", p.Name(), msg)
	}

	if p.pending == nil || rsp.GetRspTo() != p.pending.Meta().ID {
		log.Panicf("%s: response to a request that was not sent", p.Name())
	}

	p.port.RetrieveIncoming()
	tracing.TraceReqFinalize(p.pending, p)

	p.pending = nil
	p.complete(p.pendingOp)

	return true
}

func (p *Comp) issue() bool {
	if p.next == nil {
		e, ok, err := p.trace.Next(p.id)
		if err != nil {
			p.fail(err)
			return true
		}

		if !ok {
			p.status = statusDraining
			return true
		}

		p.next = &e
	}

	e := *p.next

	switch e.Op {
	case OpNop:
		p.next = nil
		p.complete(e)

		return true
	case OpRead, OpWrite:
		return p.send(e)
	default:
		p.fail(fmt.Errorf("%s: unknown operation %s", p.Name(), e.Op))
		return true
	}
}

func (p *Comp) send(e TraceEntry) bool {
	var req sim.Msg

	if e.Op == OpRead {
		req = moesi.ReadReqBuilder{}.
			WithSrc(p.port.AsRemote()).
			WithDst(p.cache).
			WithAddress(e.Addr).
			Build()
	} else {
		req = moesi.WriteReqBuilder{}.
			WithSrc(p.port.AsRemote()).
			WithDst(p.cache).
			WithAddress(e.Addr).
			Build()
	}

	if err := p.port.Send(req); err != nil {
		return false
	}

	tracing.TraceReqInitiate(req, p, "")

	p.next = nil
	p.pending = req
	p.pendingOp = e

	if p.bar != nil {
		p.bar.Issue()
	}

	return true
}

// drain keeps the processor ticking until the bus and memory have no work
// left.
func (p *Comp) drain() bool {
	if p.system != nil && p.system.SystemBusy() {
		return true
	}

	p.status = statusDone

	return true
}

func (p *Comp) complete(e TraceEntry) {
	p.numCompleted++

	if p.bar != nil {
		p.bar.Complete(e.Op != OpNop)
	}

	if p.NumHooks() > 0 {
		p.InvokeHook(sim.HookCtx{
			Domain: p,
			Now:    p.CurrentTime(),
			Pos:    HookPosOpDone,
			Item:   e,
		})
	}
}

func (p *Comp) fail(err error) {
	p.err = err
	p.status = statusDone
}
