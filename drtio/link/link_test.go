package link

import (
	"math/big"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/synchrolab/drtsim/drtio"
	"github.com/synchrolab/drtsim/drtio/packet"
	"github.com/synchrolab/drtsim/sim"
)

// testAgent records every frame delivered to it and the time it saw the
// frame.
type testAgent struct {
	*sim.TickingComponent

	Port sim.Port

	received []*packet.FrameMsg
	recvTime []sim.VTimeInSec
}

func newTestAgent(engine sim.Engine, name string) *testAgent {
	a := &testAgent{}
	a.TickingComponent = sim.NewTickingComponent(
		name, engine, 1*sim.GHz, a)
	a.Port = sim.NewPort(a, 4, 4, name+".Port")
	a.AddPort("Port", a.Port)

	return a
}

func (a *testAgent) Tick() bool {
	msg := a.Port.PeekIncoming()
	if msg == nil {
		return false
	}

	a.Port.RetrieveIncoming()
	a.received = append(a.received, msg.(*packet.FrameMsg))
	a.recvTime = append(a.recvTime, a.CurrentTime())

	return true
}

func encodeWrite(timestamp uint64, data *big.Int, w int) []byte {
	frame, err := packet.Encode(packet.Packet{
		Type:      packet.TypeWrite,
		ChanSel:   drtio.ChanSel(0, 1),
		Timestamp: timestamp,
		Data:      data,
	}, w)
	Expect(err).To(BeNil())

	return frame
}

// oneWayDelay runs a single frame over a fresh link and returns the time
// the receiver saw it.
func oneWayDelay(latency int, data *big.Int) sim.VTimeInSec {
	engine := sim.NewSerialEngine()
	src := newTestAgent(engine, "Src")
	dst := newTestAgent(engine, "Dst")

	l := NewComp("Link", engine, 1*sim.GHz, 4, latency)
	l.PlugIn(src.Port)
	l.PlugIn(dst.Port)

	msg := packet.FrameMsgBuilder{}.
		WithSrc(src.Port.AsRemote()).
		WithDst(dst.Port.AsRemote()).
		WithFrame(encodeWrite(1, data, 4)).
		WithWordWidth(4).
		Build()

	Expect(src.Port.Send(msg)).To(BeNil())
	Expect(engine.Run()).To(Succeed())

	Expect(dst.received).To(HaveLen(1))
	return dst.recvTime[0]
}

var _ = Describe("Link", func() {
	var (
		engine *sim.SerialEngine
		a, b   *testAgent
		l      *Comp
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		a = newTestAgent(engine, "A")
		b = newTestAgent(engine, "B")

		l = NewComp("Link", engine, 1*sim.GHz, 4, 3)
		l.PlugIn(a.Port)
		l.PlugIn(b.Port)
	})

	send := func(src, dst *testAgent, frame []byte) {
		msg := packet.FrameMsgBuilder{}.
			WithSrc(src.Port.AsRemote()).
			WithDst(dst.Port.AsRemote()).
			WithFrame(frame).
			WithWordWidth(4).
			Build()
		Expect(src.Port.Send(msg)).To(BeNil())
	}

	It("should carry a frame unmodified", func() {
		frame := encodeWrite(21, big.NewInt(0x42), 4)
		send(a, b, frame)
		Expect(engine.Run()).To(Succeed())

		Expect(b.received).To(HaveLen(1))
		Expect(b.received[0].Frame).To(Equal(frame))
	})

	It("should keep frames in FIFO order", func() {
		send(a, b, encodeWrite(1, big.NewInt(1), 4))
		send(a, b, encodeWrite(2, big.NewInt(2), 4))
		send(a, b, encodeWrite(3, big.NewInt(3), 4))
		Expect(engine.Run()).To(Succeed())

		Expect(b.received).To(HaveLen(3))
		for i, frame := range b.received {
			p, err := packet.Decode(frame.Frame, 4)
			Expect(err).To(BeNil())
			Expect(p.Timestamp).To(Equal(uint64(i + 1)))
		}
	})

	It("should carry both directions independently", func() {
		send(a, b, encodeWrite(1, big.NewInt(1), 4))
		send(b, a, encodeWrite(2, big.NewInt(2), 4))
		Expect(engine.Run()).To(Succeed())

		Expect(b.received).To(HaveLen(1))
		Expect(a.received).To(HaveLen(1))
	})

	It("should add one cycle of delay per cycle of latency", func() {
		fast := oneWayDelay(3, big.NewInt(1))
		slow := oneWayDelay(13, big.NewInt(1))

		cycle := (1 * sim.GHz).Period()
		Expect(float64(slow - fast)).To(
			BeNumerically("~", float64(10*cycle), 1e-15))
	})

	It("should take longer to serialize a wider datum", func() {
		short := oneWayDelay(3, big.NewInt(1))
		// Ten trailer words on a 4 byte link.
		wide := oneWayDelay(3, new(big.Int).Lsh(big.NewInt(1), 320-8))

		Expect(wide).To(BeNumerically(">", short))
	})

	It("should reject a frame encoded for another word width", func() {
		frame := encodeWrite(1, big.NewInt(1), 2)
		msg := packet.FrameMsgBuilder{}.
			WithSrc(a.Port.AsRemote()).
			WithDst(b.Port.AsRemote()).
			WithFrame(frame).
			WithWordWidth(2).
			Build()

		Expect(func() { _ = a.Port.Send(msg) }).To(Panic())
	})

	It("should reject an unsupported word width at setup", func() {
		Expect(func() {
			NewComp("Bad", engine, 1*sim.GHz, 9, 0)
		}).To(Panic())
	})
})
