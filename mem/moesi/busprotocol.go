package moesi

import "github.com/sarchlab/moesisim/sim"

// ArbitrationReq asks the bus for a grant. Agent is a cache ID or
// MemoryAgent.
type ArbitrationReq struct {
	sim.MsgMeta

	Agent int
}

// Meta returns the message meta.
func (r *ArbitrationReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the request with a new ID.
func (r *ArbitrationReq) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()

	return &c
}

// ArbitrationGrant tells an agent that it may use the bus.
type ArbitrationGrant struct {
	sim.MsgMeta

	Agent int
}

// Meta returns the message meta.
func (r *ArbitrationGrant) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the grant with a new ID.
func (r *ArbitrationGrant) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()

	return &c
}

// BusRelease gives the bus back after a cache finishes its transaction.
type BusRelease struct {
	sim.MsgMeta

	Agent int
}

// Meta returns the message meta.
func (r *BusRelease) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the release with a new ID.
func (r *BusRelease) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()

	return &c
}

// ArbitrationMsgBuilder builds ArbitrationReq, ArbitrationGrant, and
// BusRelease messages.
type ArbitrationMsgBuilder struct {
	src, dst sim.RemotePort
	agent    int
}

// WithSrc sets the source of the message to build.
func (b ArbitrationMsgBuilder) WithSrc(src sim.RemotePort) ArbitrationMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message to build.
func (b ArbitrationMsgBuilder) WithDst(dst sim.RemotePort) ArbitrationMsgBuilder {
	b.dst = dst
	return b
}

// WithAgent sets the agent that the message is about.
func (b ArbitrationMsgBuilder) WithAgent(agent int) ArbitrationMsgBuilder {
	b.agent = agent
	return b
}

func (b ArbitrationMsgBuilder) meta(class string) sim.MsgMeta {
	return sim.MsgMeta{
		ID:           sim.GetIDGenerator().Generate(),
		Src:          b.src,
		Dst:          b.dst,
		TrafficBytes: controlBytes,
		TrafficClass: class,
	}
}

// BuildReq creates a new ArbitrationReq.
func (b ArbitrationMsgBuilder) BuildReq() *ArbitrationReq {
	return &ArbitrationReq{
		MsgMeta: b.meta("moesi.ArbitrationReq"),
		Agent:   b.agent,
	}
}

// BuildGrant creates a new ArbitrationGrant.
func (b ArbitrationMsgBuilder) BuildGrant() *ArbitrationGrant {
	return &ArbitrationGrant{
		MsgMeta: b.meta("moesi.ArbitrationGrant"),
		Agent:   b.agent,
	}
}

// BuildRelease creates a new BusRelease.
func (b ArbitrationMsgBuilder) BuildRelease() *BusRelease {
	return &BusRelease{
		MsgMeta: b.meta("moesi.BusRelease"),
		Agent:   b.agent,
	}
}

// BusMsg carries a bus transaction between a cache and the bus, or between
// the bus and memory.
//
// Requests use the kinds Read, ReadForWriteAllocate, Invalidate, and Write.
// Responses reuse the kind of the request they answer, except for reads,
// which are answered with SnoopResponseFromCache or SnoopResponseFromMemory,
// and writes, which are answered with WriteBackComplete.
type BusMsg struct {
	sim.MsgMeta

	Kind      TransKind
	Requester int
	Addr      Address
	Data      []byte

	// RespondTo is the ID of the request that a response answers.
	RespondTo string

	// Drain marks writes that push the dirty data of an invalidated line to
	// memory, and their completions.
	Drain bool
}

// Meta returns the message meta.
func (m *BusMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a copy of the message with a new ID.
func (m *BusMsg) Clone() sim.Msg {
	c := *m
	c.ID = sim.GetIDGenerator().Generate()

	return &c
}

// GetRspTo returns the ID of the request that the message answers.
func (m *BusMsg) GetRspTo() string {
	return m.RespondTo
}

// IsResponse tells if the message answers a request.
func (m *BusMsg) IsResponse() bool {
	return m.RespondTo != ""
}

// BusMsgBuilder can build bus messages.
type BusMsgBuilder struct {
	src, dst  sim.RemotePort
	kind      TransKind
	requester int
	addr      Address
	data      []byte
	rspTo     string
	drain     bool
}

// WithSrc sets the source of the message to build.
func (b BusMsgBuilder) WithSrc(src sim.RemotePort) BusMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message to build.
func (b BusMsgBuilder) WithDst(dst sim.RemotePort) BusMsgBuilder {
	b.dst = dst
	return b
}

// WithKind sets the transaction kind.
func (b BusMsgBuilder) WithKind(kind TransKind) BusMsgBuilder {
	b.kind = kind
	return b
}

// WithRequester sets the cache that started the transaction.
func (b BusMsgBuilder) WithRequester(requester int) BusMsgBuilder {
	b.requester = requester
	return b
}

// WithAddr sets the decoded address.
func (b BusMsgBuilder) WithAddr(addr Address) BusMsgBuilder {
	b.addr = addr
	return b
}

// WithData sets the payload.
func (b BusMsgBuilder) WithData(data []byte) BusMsgBuilder {
	b.data = data
	return b
}

// WithRspTo marks the message as the response to the request with the ID.
func (b BusMsgBuilder) WithRspTo(id string) BusMsgBuilder {
	b.rspTo = id
	return b
}

// WithDrain marks the message as part of draining an invalidated line.
func (b BusMsgBuilder) WithDrain(drain bool) BusMsgBuilder {
	b.drain = drain
	return b
}

// Build creates a new BusMsg.
func (b BusMsgBuilder) Build() *BusMsg {
	m := &BusMsg{
		Kind:      b.kind,
		Requester: b.requester,
		Addr:      b.addr,
		Data:      b.data,
		RespondTo: b.rspTo,
		Drain:     b.drain,
	}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.TrafficBytes = controlBytes + addrBytes + len(b.data)
	m.TrafficClass = "moesi.BusMsg." + b.kind.String()

	return m
}
