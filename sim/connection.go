package sim

// SendError marks a failure send or receive
type SendError struct{}

// NewSendError creates a SendError
func NewSendError() *SendError {
	e := new(SendError)
	return e
}

// A Connection is responsible for delivering messages to its destination.
type Connection interface {
	Named
	Hookable

	PlugIn(port Port)
	Unplug(port Port)

	// NotifyAvailable is called by a port when it has space in its incoming
	// buffer again.
	NotifyAvailable(port Port)

	// NotifySend is called by a port when its outgoing buffer turns from empty
	// to non-empty.
	NotifySend()
}

// HookPosConnDeliver marks a connection delivered a message.
var HookPosConnDeliver = &HookPos{Name: "Conn Deliver"}
