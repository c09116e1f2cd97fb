// Package cri implements the Core Resource Interface: the local command and
// response surface between a kernel execution engine and the real-time I/O
// subsystem. At most one command is in flight on a surface at any time.
package cri

import (
	"math/big"

	"github.com/synchrolab/drtsim/drtio"
)

// Op selects the operation of a command.
type Op int

// The operations the CRI surface accepts.
const (
	OpNop Op = iota
	OpWrite
	OpRead
	OpGetBufferSpace
)

func (o Op) String() string {
	switch o {
	case OpNop:
		return "nop"
	case OpWrite:
		return "write"
	case OpRead:
		return "read"
	case OpGetBufferSpace:
		return "get_buffer_space"
	}
	return "unknown"
}

// A Command is one timestamped operation on a channel. The submitting
// execution context owns the command until its result is consumed.
type Command struct {
	ChanSel   uint32
	Timestamp uint64
	Address   uint16
	Data      *big.Int
	Op        Op
}

// Destination returns the destination node the command addresses.
func (c Command) Destination() uint8 {
	return drtio.Destination(c.ChanSel)
}

// A Result reports the completion of a command. Which fields are valid
// depends on the op of the command that produced it.
type Result struct {
	Data             *big.Int
	StatusValid      bool
	BufferSpaceValid bool
	BufferSpace      uint16
	Err              error
}

type surfaceState int

const (
	stateIdle surfaceState = iota
	stateSubmitted
	stateInFlight
	stateDone
)

// A Surface is the single-owner command/response handshake. Submit places a
// command; the backing node picks it up, and Poll reports completion.
// Consuming a completed result returns the surface to idle.
type Surface struct {
	state  surfaceState
	cmd    Command
	result Result

	// notify wakes the component that drains the surface.
	notify func()

	// notifyDone wakes the component that submitted the command.
	notifyDone func()
}

// NewSurface creates a CRI surface. The notify callback is invoked whenever
// a new command is ready to be picked up; the master packet engine uses it
// to schedule a tick.
func NewSurface(notify func()) *Surface {
	return &Surface{notify: notify}
}

// Submit places a command on the surface. Submitting while a prior command's
// result has not been consumed is caller error and is rejected with
// ProtocolMisuseError. Nop resolves immediately with no side effect.
func (s *Surface) Submit(cmd Command) error {
	if s.state != stateIdle {
		return &drtio.ProtocolMisuseError{
			Reason: "a command is already outstanding",
		}
	}

	if cmd.Op == OpNop {
		s.result = Result{StatusValid: true}
		s.state = stateDone

		if s.notifyDone != nil {
			s.notifyDone()
		}

		return nil
	}

	s.cmd = cmd
	s.state = stateSubmitted

	if s.notify != nil {
		s.notify()
	}

	return nil
}

// Poll reports whether the outstanding command has completed. When it
// returns done, the result is consumed and the surface becomes idle again.
func (s *Surface) Poll() (done bool, r Result) {
	if s.state != stateDone {
		return false, Result{}
	}

	r = s.result
	s.state = stateIdle
	s.result = Result{}

	return true, r
}

// Busy reports whether a command is outstanding or its result has not been
// consumed.
func (s *Surface) Busy() bool {
	return s.state != stateIdle
}

// PickUp hands the submitted command to the backing node. It returns false
// if there is nothing to pick up. Only the component draining the surface
// may call it.
func (s *Surface) PickUp() (Command, bool) {
	if s.state != stateSubmitted {
		return Command{}, false
	}

	s.state = stateInFlight
	return s.cmd, true
}

// Complete resolves the in-flight command with the given result. Only the
// component draining the surface may call it.
func (s *Surface) Complete(r Result) {
	if s.state != stateInFlight {
		panic("completing a command that is not in flight")
	}

	s.result = r
	s.state = stateDone

	if s.notifyDone != nil {
		s.notifyDone()
	}
}

// OnComplete registers a callback invoked whenever a command completes. The
// submitting component uses it to schedule a poll.
func (s *Surface) OnComplete(f func()) {
	s.notifyDone = f
}
