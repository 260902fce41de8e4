package sim

// A Msg is a piece of information that is transferred between components.
type Msg interface {
	Meta() *MsgMeta
	Clone() Msg
}

// MsgMeta contains the meta data that is attached to every message.
type MsgMeta struct {
	ID           string
	Src, Dst     RemotePort
	SendTime     VTimeInCycle
	RecvTime     VTimeInCycle
	TrafficClass string
	TrafficBytes int
}

// Rsp is a special message that is used to indicate the completion of a
// request.
type Rsp interface {
	Msg
	GetRspTo() string
}
