package sim

// DirectConnection connects components without latency. It is mostly useful
// in unit tests; links between real nodes should use a latency-accurate
// connection.
type DirectConnection struct {
	*TickingComponent

	ports     []Port
	portIndex map[RemotePort]Port
}

// NewDirectConnection creates a new DirectConnection object.
func NewDirectConnection(
	name string,
	engine Engine,
	freq Freq,
) *DirectConnection {
	c := new(DirectConnection)
	c.TickingComponent = NewSecondaryTickingComponent(name, engine, freq, c)
	c.portIndex = make(map[RemotePort]Port)
	return c
}

// PlugIn marks the port as connected to this DirectConnection.
func (c *DirectConnection) PlugIn(port Port) {
	c.Lock()
	defer c.Unlock()

	c.ports = append(c.ports, port)
	c.portIndex[port.AsRemote()] = port

	port.SetConnection(c)
}

// Unplug marks the port as no longer connected to this DirectConnection.
func (c *DirectConnection) Unplug(_ Port) {
	panic("not implemented")
}

// NotifyAvailable is called by a port to notify that the connection can
// deliver to the port again.
func (c *DirectConnection) NotifyAvailable(_ Port) {
	c.TickNow()
}

// NotifySend is called by a port to notify that the port has a message to
// send.
func (c *DirectConnection) NotifySend() {
	c.TickNow()
}

// Tick updates the states of the connection and delivers messages.
func (c *DirectConnection) Tick() bool {
	madeProgress := false

	for _, port := range c.ports {
		madeProgress = c.forwardMany(port) || madeProgress
	}

	return madeProgress
}

func (c *DirectConnection) forwardMany(port Port) bool {
	madeProgress := false

	for {
		msg := port.PeekOutgoing()
		if msg == nil {
			break
		}

		dst, found := c.portIndex[msg.Meta().Dst]
		if !found {
			panic("destination port " + string(msg.Meta().Dst) +
				" is not connected to " + c.Name())
		}

		err := dst.Deliver(msg)
		if err != nil {
			break
		}

		port.RetrieveOutgoing()
		madeProgress = true
	}

	return madeProgress
}
