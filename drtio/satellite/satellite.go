// Package satellite implements the terminal node dispatcher: it decodes
// incoming frames, applies writes and reads to the channels it owns, and
// answers buffer space queries.
package satellite

import (
	"fmt"

	"github.com/synchrolab/drtsim/drtio"
	"github.com/synchrolab/drtsim/drtio/packet"
	"github.com/synchrolab/drtsim/sim"
	"github.com/synchrolab/drtsim/tracing"
)

// HookPosFault marks the dispatcher recording a protocol fault.
var HookPosFault = &sim.HookPos{Name: "Satellite Fault"}

type dispatcherState int

const (
	stateIdle dispatcherState = iota
	stateDecoding
	stateExecuting
	stateQuerying
)

// Comp is the satellite dispatcher. It advances one state per cycle:
// Idle -> Decoding -> {Executing, Querying} -> Idle.
type Comp struct {
	*sim.TickingComponent

	UpPort sim.Port

	wordWidth    int
	upstreamPort sim.RemotePort
	destinations map[uint8]*destination

	state     dispatcherState
	frame     []byte
	frameTask string
	current   packet.Packet

	// currentRequest is the one buffer space request being answered.
	// Queries are not pipelined.
	currentRequest *uint8

	faults []error
}

// Faults returns the faults the dispatcher has recorded, oldest first.
func (c *Comp) Faults() []error {
	return c.faults
}

// Channel returns a channel hosted on this satellite, or nil.
func (c *Comp) Channel(dest uint8, channel uint16) *Channel {
	d, found := c.destinations[dest]
	if !found {
		return nil
	}
	return d.channels[channel]
}

// Space returns the remaining buffer space of a destination.
func (c *Comp) Space(dest uint8) uint16 {
	d, found := c.destinations[dest]
	if !found {
		return 0
	}
	return d.space
}

// Tick advances the dispatcher state machine by one state.
func (c *Comp) Tick() bool {
	switch c.state {
	case stateIdle:
		return c.acceptFrame()
	case stateDecoding:
		return c.decodeFrame()
	case stateExecuting:
		return c.execute()
	case stateQuerying:
		return c.answerQuery()
	}

	panic(fmt.Sprintf("invalid dispatcher state %d", c.state))
}

func (c *Comp) acceptFrame() bool {
	msg := c.UpPort.PeekIncoming()
	if msg == nil {
		return false
	}

	frame, ok := msg.(*packet.FrameMsg)
	if !ok {
		panic(fmt.Sprintf("satellite cannot handle message %T", msg))
	}

	c.UpPort.RetrieveIncoming()
	c.frame = frame.Frame
	c.frameTask = frame.Meta().ID + "_" + c.Name()
	tracing.StartTask(c.frameTask, frame.Meta().ID, c,
		"frame", "dispatch", frame)
	c.state = stateDecoding

	return true
}

// finishFrame returns the dispatcher to idle once the current frame is
// fully handled.
func (c *Comp) finishFrame() {
	tracing.EndTask(c.frameTask, c)
	c.frameTask = ""
	c.state = stateIdle
}

func (c *Comp) decodeFrame() bool {
	p, err := packet.Decode(c.frame, c.wordWidth)
	c.frame = nil
	if err != nil {
		// A malformed frame faults the dispatcher but must not corrupt
		// the packets that follow it.
		c.fault(err)
		c.finishFrame()
		return true
	}

	switch p.Type {
	case packet.TypeWrite, packet.TypeRead:
		c.current = p
		c.state = stateExecuting
	case packet.TypeBufferSpaceRequest:
		if c.currentRequest != nil {
			c.fault(&drtio.DuplicateQueryError{Destination: p.Destination})
			c.finishFrame()
			return true
		}
		dest := p.Destination
		c.currentRequest = &dest
		c.state = stateQuerying
	default:
		c.fault(&drtio.MalformedPacketError{
			Reason: "unexpected " + p.Type.String() + " on downstream path",
		})
		c.finishFrame()
	}

	return true
}

func (c *Comp) execute() bool {
	p := c.current

	ch := c.Channel(drtio.Destination(p.ChanSel), drtio.Channel(p.ChanSel))
	if ch == nil {
		c.fault(&drtio.ChannelNotFoundError{ChanSel: p.ChanSel})
		c.finishFrame()
		return true
	}

	switch p.Type {
	case packet.TypeWrite:
		ch.apply(p.Address, p.Data, p.Timestamp)
		c.debit(drtio.Destination(p.ChanSel))
		c.current = packet.Packet{}
		c.finishFrame()
		return true
	case packet.TypeRead:
		return c.answerRead(p, ch)
	}

	panic("executing a packet that is neither a write nor a read")
}

func (c *Comp) answerRead(p packet.Packet, ch *Channel) bool {
	sent := c.sendFrame(packet.Packet{
		Type:      packet.TypeReadReply,
		Timestamp: p.Timestamp,
		Data:      ch.read(p.Address),
	})
	if !sent {
		return false
	}

	c.current = packet.Packet{}
	c.finishFrame()

	return true
}

func (c *Comp) answerQuery() bool {
	dest := *c.currentRequest

	d, found := c.destinations[dest]
	if !found {
		c.fault(&drtio.ChannelNotFoundError{
			ChanSel: drtio.ChanSel(dest, 0),
		})
		c.currentRequest = nil
		c.finishFrame()
		return true
	}

	sent := c.sendFrame(packet.Packet{
		Type:  packet.TypeBufferSpaceReply,
		Space: d.space,
	})
	if !sent {
		return false
	}

	c.currentRequest = nil
	c.finishFrame()

	return true
}

func (c *Comp) sendFrame(p packet.Packet) bool {
	frame, err := packet.Encode(p, c.wordWidth)
	if err != nil {
		panic(err)
	}

	msg := packet.FrameMsgBuilder{}.
		WithSrc(c.UpPort.AsRemote()).
		WithDst(c.upstreamPort).
		WithFrame(frame).
		WithWordWidth(c.wordWidth).
		Build()

	return c.UpPort.Send(msg) == nil
}

func (c *Comp) debit(dest uint8) {
	d := c.destinations[dest]
	if d.space > 0 {
		d.space--
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
