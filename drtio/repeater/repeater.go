// Package repeater implements the intermediate hop of the chain. A repeater
// owns no channel: it re-emits downstream command frames and upstream reply
// frames byte for byte, in order, holding at most one frame per direction.
package repeater

import (
	"fmt"

	"github.com/synchrolab/drtsim/drtio"
	"github.com/synchrolab/drtsim/drtio/packet"
	"github.com/synchrolab/drtsim/sim"
)

// HookPosFault marks the repeater recording a protocol fault.
var HookPosFault = &sim.HookPos{Name: "Repeater Fault"}

// Comp is a repeater node. UpPort faces the master, DownPort faces the next
// hop toward the satellite.
type Comp struct {
	*sim.TickingComponent

	UpPort   sim.Port
	DownPort sim.Port

	wordWidth      int
	upstreamPort   sim.RemotePort
	downstreamPort sim.RemotePort

	// outstandingRequest tracks the one buffer space request allowed in
	// flight through this hop.
	outstandingRequest *uint8

	faults []error
}

// Faults returns the faults the repeater has recorded, oldest first.
func (c *Comp) Faults() []error {
	return c.faults
}

// Tick forwards at most one frame per direction per cycle.
func (c *Comp) Tick() bool {
	madeProgress := false

	madeProgress = c.forwardDownstream() || madeProgress
	madeProgress = c.forwardUpstream() || madeProgress

	return madeProgress
}

func (c *Comp) forwardDownstream() bool {
	msg := c.UpPort.PeekIncoming()
	if msg == nil {
		return false
	}

	if !c.DownPort.CanSend() {
		return false
	}

	frame := mustBeFrame(msg)

	t, err := packet.PeekType(frame.Frame)
	if err != nil {
		c.UpPort.RetrieveIncoming()
		c.fault(err)
		return true
	}

	if t == packet.TypeBufferSpaceRequest {
		if !c.acceptRequest(frame) {
			return true
		}
	}

	c.UpPort.RetrieveIncoming()
	c.reEmit(frame, c.DownPort, c.downstreamPort)

	return true
}

// acceptRequest enforces the no-pipelining invariant. A second request while
// one awaits its reply is rejected, not queued.
func (c *Comp) acceptRequest(frame *packet.FrameMsg) bool {
	p, err := packet.Decode(frame.Frame, c.wordWidth)
	if err != nil {
		c.UpPort.RetrieveIncoming()
		c.fault(err)
		return false
	}

	if c.outstandingRequest != nil {
		c.UpPort.RetrieveIncoming()
		c.fault(&drtio.DuplicateQueryError{Destination: p.Destination})
		return false
	}

	dest := p.Destination
	c.outstandingRequest = &dest

	return true
}

func (c *Comp) forwardUpstream() bool {
	msg := c.DownPort.PeekIncoming()
	if msg == nil {
		return false
	}

	if !c.UpPort.CanSend() {
		return false
	}

	frame := mustBeFrame(msg)

	t, err := packet.PeekType(frame.Frame)
	if err != nil {
		c.DownPort.RetrieveIncoming()
		c.fault(err)
		return true
	}

	if t == packet.TypeBufferSpaceReply {
		if c.outstandingRequest == nil {
			c.fault(&drtio.MalformedPacketError{
				Reason: "buffer space reply without a request in flight",
			})
		}
		c.outstandingRequest = nil
	}

	c.DownPort.RetrieveIncoming()
	c.reEmit(frame, c.UpPort, c.upstreamPort)

	return true
}

// reEmit sends an equivalent frame on the other side of the hop: identical
// bytes, new message identity.
func (c *Comp) reEmit(
	frame *packet.FrameMsg, port sim.Port, dst sim.RemotePort,
) {
	out := packet.FrameMsgBuilder{}.
		WithSrc(port.AsRemote()).
		WithDst(dst).
		WithFrame(frame.Frame).
		WithWordWidth(frame.WordWidth).
		Build()

	if err := port.Send(out); err != nil {
		panic("repeater emitted a frame the port could not accept")
	}
}

func (c *Comp) fault(err error) {
	c.faults = append(c.faults, err)

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosFault,
		Item:   err,
	})
}

func mustBeFrame(msg sim.Msg) *packet.FrameMsg {
	frame, ok := msg.(*packet.FrameMsg)
	if !ok {
		panic(fmt.Sprintf("repeater cannot handle message %T", msg))
	}
	return frame
}
