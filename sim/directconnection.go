package sim

import "fmt"

// DirectConnection connects ports without latency. A message sent in one cycle
// is available at the destination in the same cycle, and the destination
// component handles it from the next cycle.
type DirectConnection struct {
	*TickingComponent

	nextPortID int
	ports      []Port
	portByName map[RemotePort]Port
}

// NewDirectConnection creates a new DirectConnection object
func NewDirectConnection(name string, engine Engine) *DirectConnection {
	c := new(DirectConnection)
	c.TickingComponent = NewSecondaryTickingComponent(name, engine, c)
	c.portByName = make(map[RemotePort]Port)

	return c
}

// PlugIn marks the port connects to this DirectConnection.
func (c *DirectConnection) PlugIn(port Port) {
	c.Lock()
	defer c.Unlock()

	if _, found := c.portByName[port.AsRemote()]; found {
		panic(fmt.Sprintf("port %s already plugged in to %s",
			port.Name(), c.Name()))
	}

	c.ports = append(c.ports, port)
	c.portByName[port.AsRemote()] = port

	port.SetConnection(c)
}

// Unplug marks the port no longer connects to this DirectConnection.
func (c *DirectConnection) Unplug(_ Port) {
	panic("not implemented")
}

// NotifyAvailable is called by a port to notify that the connection can
// deliver to the port again.
func (c *DirectConnection) NotifyAvailable(_ Port) {
	c.TickNow()
}

// NotifySend is called by a port to notify that the connection has messages
// to deliver.
func (c *DirectConnection) NotifySend() {
	c.TickNow()
}

// Tick delivers messages from the outgoing buffers of the ports to the
// incoming buffers of the destination ports. Ports are served round-robin.
func (c *DirectConnection) Tick() bool {
	madeProgress := false

	for i := 0; i < len(c.ports); i++ {
		portID := (i + c.nextPortID) % len(c.ports)
		port := c.ports[portID]
		madeProgress = c.forwardMany(port) || madeProgress
	}

	if len(c.ports) > 0 {
		c.nextPortID = (c.nextPortID + 1) % len(c.ports)
	}

	return madeProgress
}

func (c *DirectConnection) forwardMany(port Port) bool {
	madeProgress := false

	for {
		head := port.PeekOutgoing()
		if head == nil {
			break
		}

		dst := c.dstMustBeConnected(head)
		head.Meta().RecvTime = c.CurrentTime()

		err := dst.Deliver(head)
		if err != nil {
			break
		}

		c.InvokeHook(HookCtx{
			Domain: c,
			Now:    c.CurrentTime(),
			Pos:    HookPosConnDeliver,
			Item:   head,
		})

		port.RetrieveOutgoing()
		madeProgress = true
	}

	return madeProgress
}

func (c *DirectConnection) dstMustBeConnected(msg Msg) Port {
	dst, found := c.portByName[msg.Meta().Dst]
	if !found {
		panic(fmt.Sprintf("%s: dst %s of msg %s is not connected",
			c.Name(), msg.Meta().Dst, msg.Meta().ID))
	}

	return dst
}
