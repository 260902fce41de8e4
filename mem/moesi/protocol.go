package moesi

import (
	"fmt"

	"github.com/sarchlab/moesisim/sim"
)

// MemoryAgent is the agent ID that memory uses when it arbitrates for the bus.
const MemoryAgent = -1

const (
	controlBytes = 4
	addrBytes    = 8
)

// TransKind is the kind of a bus transaction.
type TransKind int

// All the kinds of bus transactions.
const (
	Read TransKind = iota
	Write
	ReadForWriteAllocate
	Invalidate
	SnoopResponseFromCache
	SnoopResponseFromMemory
	WriteBackComplete
)

var transKindNames = [...]string{
	"Read",
	"Write",
	"ReadForWriteAllocate",
	"Invalidate",
	"SnoopResponseFromCache",
	"SnoopResponseFromMemory",
	"WriteBackComplete",
}

func (k TransKind) String() string {
	if k < 0 || int(k) >= len(transKindNames) {
		return fmt.Sprintf("TransKind(%d)", int(k))
	}

	return transKindNames[k]
}

// A ReadReq asks a cache to read an address on behalf of a processor.
type ReadReq struct {
	sim.MsgMeta

	Address uint64
}

// Meta returns the message meta.
func (r *ReadReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the request with a new ID.
func (r *ReadReq) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()

	return &c
}

// ReadReqBuilder can build read requests.
type ReadReqBuilder struct {
	src, dst sim.RemotePort
	address  uint64
}

// WithSrc sets the source of the request to build.
func (b ReadReqBuilder) WithSrc(src sim.RemotePort) ReadReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b ReadReqBuilder) WithDst(dst sim.RemotePort) ReadReqBuilder {
	b.dst = dst
	return b
}

// WithAddress sets the address to read.
func (b ReadReqBuilder) WithAddress(address uint64) ReadReqBuilder {
	b.address = address
	return b
}

// Build creates a new ReadReq.
func (b ReadReqBuilder) Build() *ReadReq {
	r := &ReadReq{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.Address = b.address
	r.TrafficBytes = controlBytes + addrBytes
	r.TrafficClass = "moesi.ReadReq"

	return r
}

// A WriteReq asks a cache to write an address on behalf of a processor.
type WriteReq struct {
	sim.MsgMeta

	Address uint64
	Data    []byte
}

// Meta returns the message meta.
func (r *WriteReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the request with a new ID.
func (r *WriteReq) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()

	return &c
}

// WriteReqBuilder can build write requests.
type WriteReqBuilder struct {
	src, dst sim.RemotePort
	address  uint64
	data     []byte
}

// WithSrc sets the source of the request to build.
func (b WriteReqBuilder) WithSrc(src sim.RemotePort) WriteReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b WriteReqBuilder) WithDst(dst sim.RemotePort) WriteReqBuilder {
	b.dst = dst
	return b
}

// WithAddress sets the address to write.
func (b WriteReqBuilder) WithAddress(address uint64) WriteReqBuilder {
	b.address = address
	return b
}

// WithData sets the data to write.
func (b WriteReqBuilder) WithData(data []byte) WriteReqBuilder {
	b.data = data
	return b
}

// Build creates a new WriteReq.
func (b WriteReqBuilder) Build() *WriteReq {
	r := &WriteReq{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.Address = b.address
	r.Data = b.data
	r.TrafficBytes = controlBytes + addrBytes + len(b.data)
	r.TrafficClass = "moesi.WriteReq"

	return r
}

// DataReadyRsp returns the data of a ReadReq to the processor.
type DataReadyRsp struct {
	sim.MsgMeta

	RespondTo string
	Data      []byte
}

// Meta returns the message meta.
func (r *DataReadyRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the response with a new ID.
func (r *DataReadyRsp) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()

	return &c
}

// GetRspTo returns the ID of the request that the response answers.
func (r *DataReadyRsp) GetRspTo() string {
	return r.RespondTo
}

// DataReadyRspBuilder can build data ready responses.
type DataReadyRspBuilder struct {
	src, dst sim.RemotePort
	rspTo    string
	data     []byte
}

// WithSrc sets the source of the response to build.
func (b DataReadyRspBuilder) WithSrc(src sim.RemotePort) DataReadyRspBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the response to build.
func (b DataReadyRspBuilder) WithDst(dst sim.RemotePort) DataReadyRspBuilder {
	b.dst = dst
	return b
}

// WithRspTo sets the ID of the request being answered.
func (b DataReadyRspBuilder) WithRspTo(id string) DataReadyRspBuilder {
	b.rspTo = id
	return b
}

// WithData sets the data being returned.
func (b DataReadyRspBuilder) WithData(data []byte) DataReadyRspBuilder {
	b.data = data
	return b
}

// Build creates a new DataReadyRsp.
func (b DataReadyRspBuilder) Build() *DataReadyRsp {
	r := &DataReadyRsp{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.RespondTo = b.rspTo
	r.Data = b.data
	r.TrafficBytes = controlBytes + len(b.data)
	r.TrafficClass = "moesi.DataReadyRsp"

	return r
}

// WriteDoneRsp tells the processor that a write has completed.
type WriteDoneRsp struct {
	sim.MsgMeta

	RespondTo string
}

// Meta returns the message meta.
func (r *WriteDoneRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the response with a new ID.
func (r *WriteDoneRsp) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()

	return &c
}

// GetRspTo returns the ID of the request that the response answers.
func (r *WriteDoneRsp) GetRspTo() string {
	return r.RespondTo
}

// WriteDoneRspBuilder can build write done responses.
type WriteDoneRspBuilder struct {
	src, dst sim.RemotePort
	rspTo    string
}

// WithSrc sets the source of the response to build.
func (b WriteDoneRspBuilder) WithSrc(src sim.RemotePort) WriteDoneRspBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the response to build.
func (b WriteDoneRspBuilder) WithDst(dst sim.RemotePort) WriteDoneRspBuilder {
	b.dst = dst
	return b
}

// WithRspTo sets the ID of the request being answered.
func (b WriteDoneRspBuilder) WithRspTo(id string) WriteDoneRspBuilder {
	b.rspTo = id
	return b
}

// Build creates a new WriteDoneRsp.
func (b WriteDoneRspBuilder) Build() *WriteDoneRsp {
	r := &WriteDoneRsp{}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.RespondTo = b.rspTo
	r.TrafficBytes = controlBytes
	r.TrafficClass = "moesi.WriteDoneRsp"

	return r
}
