// Package master implements the master side of the control path: it drains
// the CRI surface, encodes commands into wire frames, pushes them down the
// link, and resolves pending commands when replies come back.
package master

import (
	"fmt"

	"github.com/synchrolab/drtsim/drtio"
	"github.com/synchrolab/drtsim/drtio/cri"
	"github.com/synchrolab/drtsim/drtio/flow"
	"github.com/synchrolab/drtsim/drtio/packet"
	"github.com/synchrolab/drtsim/sim"
	"github.com/synchrolab/drtsim/tracing"
)

// HookPosLinkReset marks the master resetting its link after a reply
// timeout.
var HookPosLinkReset = &sim.HookPos{Name: "Link Reset"}

// writeFootprint is the buffer space one write occupies in a channel's
// output queue.
const writeFootprint = 1

type pendingTransaction struct {
	cmd    cri.Command
	seq    uint64
	taskID string
}

// Comp is the master packet engine. It owns the CRI surface and the flow
// controller of its node.
type Comp struct {
	*sim.TickingComponent

	DownPort sim.Port

	surface        *cri.Surface
	flowCtrl       *flow.Controller
	wordWidth      int
	timeoutCycles  int
	downstreamPort sim.RemotePort

	pending *pendingTransaction
	nextSeq uint64

	faults []error
}

// Surface returns the CRI surface a kernel execution engine submits
// commands to.
func (c *Comp) Surface() *cri.Surface {
	return c.surface
}

// FlowController returns the flow controller of this node.
func (c *Comp) FlowController() *flow.Controller {
	return c.flowCtrl
}

// Faults returns the faults the master has detected on its link, oldest
// first.
func (c *Comp) Faults() []error {
	return c.faults
}

// Handle processes tick and timeout events.
func (c *Comp) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *timeoutEvent:
		c.handleTimeout(e)
		return nil
	case sim.TickEvent:
		return c.TickingComponent.Handle(e)
	default:
		panic(fmt.Sprintf("master cannot handle event %T", e))
	}
}

// Tick advances the master by one cycle.
func (c *Comp) Tick() bool {
	madeProgress := false

	madeProgress = c.processReply() || madeProgress
	madeProgress = c.issueCommand() || madeProgress

	return madeProgress
}

func (c *Comp) issueCommand() bool {
	if !c.DownPort.CanSend() {
		return false
	}

	cmd, ok := c.surface.PickUp()
	if !ok {
		return false
	}

	switch cmd.Op {
	case cri.OpWrite:
		c.issueWrite(cmd)
	case cri.OpGetBufferSpace:
		c.issueBufferSpaceQuery(cmd)
	case cri.OpRead:
		c.issueRead(cmd)
	default:
		c.surface.Complete(cri.Result{
			Err: &drtio.ProtocolMisuseError{
				Reason: "op " + cmd.Op.String() + " cannot be issued",
			},
		})
	}

	return true
}

// issueWrite sends a write frame. A write is fire and forget at the CRI
// boundary: it resolves as soon as the frame is on the link, and the flow
// controller accounts for the space it will consume.
func (c *Comp) issueWrite(cmd cri.Command) {
	taskID := sim.GetIDGenerator().Generate() + "_" + c.Name()
	tracing.StartTask(taskID, "", c, "cri_cmd", cmd.Op.String(), cmd)

	c.sendFrame(packet.Packet{
		Type:      packet.TypeWrite,
		ChanSel:   cmd.ChanSel,
		Address:   cmd.Address,
		Timestamp: cmd.Timestamp,
		Data:      cmd.Data,
	})

	c.flowCtrl.Debit(
		cmd.Destination(), drtio.Channel(cmd.ChanSel), writeFootprint)
	c.surface.Complete(cri.Result{StatusValid: true})
	tracing.EndTask(taskID, c)
}

func (c *Comp) issueBufferSpaceQuery(cmd cri.Command) {
	if err := c.flowCtrl.RequestSpace(cmd.Destination()); err != nil {
		c.surface.Complete(cri.Result{Err: err})
		return
	}

	c.sendFrame(packet.Packet{
		Type:        packet.TypeBufferSpaceRequest,
		Destination: cmd.Destination(),
	})

	c.startTransaction(cmd)
}

func (c *Comp) issueRead(cmd cri.Command) {
	c.sendFrame(packet.Packet{
		Type:      packet.TypeRead,
		ChanSel:   cmd.ChanSel,
		Address:   cmd.Address,
		Timestamp: cmd.Timestamp,
	})

	c.startTransaction(cmd)
}

func (c *Comp) startTransaction(cmd cri.Command) {
	taskID := sim.GetIDGenerator().Generate() + "_" + c.Name()
	tracing.StartTask(taskID, "", c, "cri_cmd", cmd.Op.String(), cmd)

	c.nextSeq++
	c.pending = &pendingTransaction{cmd: cmd, seq: c.nextSeq, taskID: taskID}

	if c.timeoutCycles > 0 {
		deadline := c.Freq.NCyclesLater(c.timeoutCycles, c.CurrentTime())
		c.Engine.Schedule(newTimeoutEvent(deadline, c, c.nextSeq))
	}
}

func (c *Comp) sendFrame(p packet.Packet) {
	frame, err := packet.Encode(p, c.wordWidth)
	if err != nil {
		panic(err)
	}

	msg := packet.FrameMsgBuilder{}.
		WithSrc(c.DownPort.AsRemote()).
		WithDst(c.downstream()).
		WithFrame(frame).
		WithWordWidth(c.wordWidth).
		Build()

	if err := c.DownPort.Send(msg); err != nil {
		panic("master issued a frame the port could not accept")
	}
}

func (c *Comp) processReply() bool {
	msg := c.DownPort.PeekIncoming()
	if msg == nil {
		return false
	}

	frame, ok := msg.(*packet.FrameMsg)
	if !ok {
		panic(fmt.Sprintf("master cannot handle message %T", msg))
	}

	c.DownPort.RetrieveIncoming()

	p, err := packet.Decode(frame.Frame, c.wordWidth)
	if err != nil {
		c.fault(err)
		return true
	}

	switch p.Type {
	case packet.TypeBufferSpaceReply:
		c.completeBufferSpaceQuery(p)
	case packet.TypeReadReply:
		c.completeRead(p)
	default:
		c.fault(&drtio.MalformedPacketError{
			Reason: "unexpected " + p.Type.String() + " on upstream path",
		})
	}

	return true
}

func (c *Comp) completeBufferSpaceQuery(p packet.Packet) {
	if c.pending == nil || c.pending.cmd.Op != cri.OpGetBufferSpace {
		c.fault(&drtio.MalformedPacketError{
			Reason: "buffer space reply without a pending query",
		})
		return
	}

	cmd := c.pending.cmd
	tracing.EndTask(c.pending.taskID, c)
	c.pending = nil

	c.flowCtrl.OnReply(
		cmd.Destination(), drtio.Channel(cmd.ChanSel), int(p.Space))
	c.surface.Complete(cri.Result{
		StatusValid:      true,
		BufferSpaceValid: true,
		BufferSpace:      p.Space,
	})
}

func (c *Comp) completeRead(p packet.Packet) {
	if c.pending == nil || c.pending.cmd.Op != cri.OpRead {
		c.fault(&drtio.MalformedPacketError{
			Reason: "read reply without a pending read",
		})
		return
	}

	tracing.EndTask(c.pending.taskID, c)
	c.pending = nil
	c.surface.Complete(cri.Result{
		Data:        p.Data,
		StatusValid: true,
	})
}

func (c *Comp) handleTimeout(e *timeoutEvent) {
	if c.pending == nil || c.pending.seq != e.seq {
		// The transaction completed before the deadline.
		return
	}

	cmd := c.pending.cmd
	tracing.EndTask(c.pending.taskID, c)
	c.pending = nil

	c.flowCtrl.Invalidate(cmd.Destination())
	c.surface.Complete(cri.Result{
		Err: &drtio.LinkTimeoutError{Destination: cmd.Destination()},
	})

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosLinkReset,
		Item:   cmd,
	})
}

func (c *Comp) fault(err error) {
	c.faults = append(c.faults, err)
}

// downstream returns the remote port on the other side of the link.
func (c *Comp) downstream() sim.RemotePort {
	return c.downstreamPort
}

type timeoutEvent struct {
	*sim.EventBase
	seq uint64
}

func newTimeoutEvent(
	t sim.VTimeInSec, handler sim.Handler, seq uint64,
) *timeoutEvent {
	return &timeoutEvent{sim.NewEventBase(t, handler), seq}
}
