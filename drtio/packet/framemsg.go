package packet

import (
	"reflect"

	"github.com/synchrolab/drtsim/sim"
)

// A FrameMsg carries one encoded wire frame over a link. The frame bytes are
// owned by the codec for the duration of a single transfer; forwarding nodes
// re-emit the same bytes under a new message identity.
type FrameMsg struct {
	sim.MsgMeta

	Frame     []byte
	WordWidth int
}

// Meta returns the meta data of the message.
func (m *FrameMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a cloned FrameMsg with a different ID.
func (m *FrameMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// FrameMsgBuilder can build frame messages.
type FrameMsgBuilder struct {
	src, dst  sim.RemotePort
	frame     []byte
	wordWidth int
}

// WithSrc sets the source of the frame message to build.
func (b FrameMsgBuilder) WithSrc(src sim.RemotePort) FrameMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the frame message to build.
func (b FrameMsgBuilder) WithDst(dst sim.RemotePort) FrameMsgBuilder {
	b.dst = dst
	return b
}

// WithFrame sets the encoded frame that the message carries.
func (b FrameMsgBuilder) WithFrame(frame []byte) FrameMsgBuilder {
	b.frame = frame
	return b
}

// WithWordWidth sets the word width the frame was encoded with.
func (b FrameMsgBuilder) WithWordWidth(w int) FrameMsgBuilder {
	b.wordWidth = w
	return b
}

// Build creates a new FrameMsg.
func (b FrameMsgBuilder) Build() *FrameMsg {
	m := &FrameMsg{
		MsgMeta: sim.MsgMeta{
			ID:           sim.GetIDGenerator().Generate(),
			Src:          b.src,
			Dst:          b.dst,
			TrafficClass: reflect.TypeOf(FrameMsg{}).String(),
			TrafficBytes: len(b.frame),
		},
		Frame:     b.frame,
		WordWidth: b.wordWidth,
	}

	return m
}
