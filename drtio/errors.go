package drtio

import "fmt"

// ProtocolMisuseError reports a caller violating the single-outstanding
// command discipline of the CRI surface. It is local to the submitting node
// and never affects link state.
type ProtocolMisuseError struct {
	Reason string
}

func (e *ProtocolMisuseError) Error() string {
	return "protocol misuse: " + e.Reason
}

// MalformedPacketError reports a frame that cannot be decoded: unknown type
// tag, truncated frame, or a trailer length that does not match the declared
// extra data count. The detecting node must surface it to the link layer.
type MalformedPacketError struct {
	Reason string
}

func (e *MalformedPacketError) Error() string {
	return "malformed packet: " + e.Reason
}

// ChannelNotFoundError reports a write or read that addresses a channel the
// terminal node does not own. Losing a timestamped command is a correctness
// failure, so this is reported as a fault, never dropped.
type ChannelNotFoundError struct {
	ChanSel uint32
}

func (e *ChannelNotFoundError) Error() string {
	return fmt.Sprintf("channel 0x%x (destination %d) not found",
		Channel(e.ChanSel), Destination(e.ChanSel))
}

// DuplicateQueryError reports a second buffer space request issued for a
// destination while one is already awaiting its reply. Queries are not
// pipelined; the second request is rejected, not queued.
type DuplicateQueryError struct {
	Destination uint8
}

func (e *DuplicateQueryError) Error() string {
	return fmt.Sprintf(
		"buffer space query already in flight for destination %d",
		e.Destination)
}

// LinkTimeoutError reports that no reply arrived within the configured
// window. It escalates to a link reset and invalidates all pending flow
// control state for the destination.
type LinkTimeoutError struct {
	Destination uint8
}

func (e *LinkTimeoutError) Error() string {
	return fmt.Sprintf("no reply from destination %d within timeout",
		e.Destination)
}
