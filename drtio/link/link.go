// Package link models a point-to-point serial link between two nodes.
// Frames take a fixed propagation latency plus one cycle per transferred
// word; each direction is a strict FIFO that never reorders, merges, or
// splits frames.
package link

import (
	"fmt"

	"github.com/synchrolab/drtsim/drtio/packet"
	"github.com/synchrolab/drtsim/sim"
)

type inflightFrame struct {
	msg      sim.Msg
	arriveAt sim.VTimeInSec
}

// A direction carries frames from one plugged port to the other.
type direction struct {
	dst sim.Port

	// lineFreeAt is when the serializer finishes the last accepted frame.
	lineFreeAt sim.VTimeInSec
	inflight   []inflightFrame
}

// Comp is a two-ended serial link connection. The word width and the
// propagation latency are fixed for the lifetime of the link.
type Comp struct {
	sim.HookableBase

	name      string
	engine    sim.Engine
	freq      sim.Freq
	wordWidth int
	latency   int

	ports []sim.Port
	dirs  map[sim.RemotePort]*direction
}

// NewComp creates a serial link. The word width is validated once here, per
// the link setup contract.
func NewComp(
	name string,
	engine sim.Engine,
	freq sim.Freq,
	wordWidth int,
	latencyCycles int,
) *Comp {
	if err := packet.ValidateWordWidth(wordWidth); err != nil {
		panic(err)
	}

	return &Comp{
		name:      name,
		engine:    engine,
		freq:      freq,
		wordWidth: wordWidth,
		latency:   latencyCycles,
		dirs:      make(map[sim.RemotePort]*direction),
	}
}

// Name returns the name of the link.
func (c *Comp) Name() string {
	return c.name
}

// WordWidth returns the width of a link word in bytes.
func (c *Comp) WordWidth() int {
	return c.wordWidth
}

// PlugIn connects a port to one end of the link.
func (c *Comp) PlugIn(port sim.Port) {
	if len(c.ports) >= 2 {
		panic("a serial link connects exactly two ports")
	}

	c.ports = append(c.ports, port)
	port.SetConnection(c)

	if len(c.ports) == 2 {
		c.dirs[c.ports[0].AsRemote()] = &direction{dst: c.ports[1]}
		c.dirs[c.ports[1].AsRemote()] = &direction{dst: c.ports[0]}
	}
}

// Unplug is not supported on serial links.
func (c *Comp) Unplug(_ sim.Port) {
	panic("not implemented")
}

// NotifySend is called by a port when it has a frame to send. The link
// accepts frames immediately and schedules their arrival.
func (c *Comp) NotifySend() {
	now := c.engine.CurrentTime()

	for _, port := range c.ports {
		dir := c.dirs[port.AsRemote()]
		if dir == nil {
			panic("link " + c.name + " is not fully plugged")
		}

		for {
			msg := port.RetrieveOutgoing()
			if msg == nil {
				break
			}

			c.accept(dir, msg, now)
		}
	}
}

func (c *Comp) accept(dir *direction, msg sim.Msg, now sim.VTimeInSec) {
	frame, ok := msg.(*packet.FrameMsg)
	if !ok {
		panic(fmt.Sprintf("link %s cannot carry %T", c.name, msg))
	}

	if frame.WordWidth != c.wordWidth {
		panic(fmt.Sprintf(
			"frame encoded with word width %d on a width-%d link",
			frame.WordWidth, c.wordWidth))
	}

	serCycles := len(frame.Frame) / c.wordWidth

	departure := c.freq.ThisTick(now)
	if dir.lineFreeAt > departure {
		departure = dir.lineFreeAt
	}
	dir.lineFreeAt = c.freq.NCyclesLater(serCycles, departure)

	arrive := c.freq.NCyclesLater(serCycles+c.latency, departure)
	dir.inflight = append(dir.inflight, inflightFrame{
		msg:      msg,
		arriveAt: arrive,
	})

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    sim.HookPosConnStartTrans,
		Item:   msg,
	})

	c.engine.Schedule(newDeliverEvent(arrive, c))
}

// NotifyAvailable is called by a port when it can receive again.
func (c *Comp) NotifyAvailable(_ sim.Port) {
	c.tryDeliver(c.engine.CurrentTime())
}

// Handle delivers the frames that have arrived.
func (c *Comp) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *deliverEvent:
		c.tryDeliver(e.Time())
	default:
		panic(fmt.Sprintf("link cannot handle event %T", e))
	}

	return nil
}

func (c *Comp) tryDeliver(now sim.VTimeInSec) {
	for _, dir := range c.dirs {
		for len(dir.inflight) > 0 {
			head := dir.inflight[0]
			if head.arriveAt > now {
				break
			}

			if err := dir.dst.Deliver(head.msg); err != nil {
				// Receiver is full. Retry next cycle; later frames wait
				// behind this one to keep the FIFO order.
				c.engine.Schedule(
					newDeliverEvent(c.freq.NextTick(now), c))
				break
			}

			c.InvokeHook(sim.HookCtx{
				Domain: c,
				Pos:    sim.HookPosConnDeliver,
				Item:   head.msg,
			})

			dir.inflight = dir.inflight[1:]
		}
	}
}

type deliverEvent struct {
	*sim.EventBase
}

func newDeliverEvent(t sim.VTimeInSec, handler sim.Handler) *deliverEvent {
	return &deliverEvent{sim.NewEventBase(t, handler)}
}
