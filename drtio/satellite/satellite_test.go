package satellite

import (
	"math/big"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/synchrolab/drtsim/drtio"
	"github.com/synchrolab/drtsim/drtio/packet"
	"github.com/synchrolab/drtsim/sim"
)

// testAgent stands in for the upstream hop. It collects every frame the
// satellite sends back.
type testAgent struct {
	*sim.TickingComponent

	Port     sim.Port
	received []*packet.FrameMsg
}

func newTestAgent(engine sim.Engine) *testAgent {
	a := &testAgent{}
	a.TickingComponent = sim.NewTickingComponent(
		"Agent", engine, 1*sim.GHz, a)
	a.Port = sim.NewPort(a, 4, 4, "Agent.Port")
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

	return true
}

var _ = Describe("Satellite", func() {
	var (
		engine *sim.SerialEngine
		agent  *testAgent
		sat    *Comp
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		agent = newTestAgent(engine)

		sat = MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			WithWordWidth(4).
			WithUpstream(agent.Port.AsRemote()).
			WithDestination(0, 10).
			WithChannel(0, 1).
			WithChannel(0, 2).
			Build("Satellite")

		conn := sim.NewDirectConnection("Conn", engine, 1*sim.GHz)
		conn.PlugIn(agent.Port)
		conn.PlugIn(sat.UpPort)
	})

	send := func(p packet.Packet) {
		frame, err := packet.Encode(p, 4)
		Expect(err).To(BeNil())

		msg := packet.FrameMsgBuilder{}.
			WithSrc(agent.Port.AsRemote()).
			WithDst(sat.UpPort.AsRemote()).
			WithFrame(frame).
			WithWordWidth(4).
			Build()

		Expect(agent.Port.Send(msg)).To(BeNil())
		Expect(engine.Run()).To(Succeed())
	}

	It("should apply writes in order and debit buffer space", func() {
		send(packet.Packet{
			Type:      packet.TypeWrite,
			ChanSel:   drtio.ChanSel(0, 1),
			Address:   10,
			Timestamp: 21,
			Data:      big.NewInt(0x42),
		})
		send(packet.Packet{
			Type:      packet.TypeWrite,
			ChanSel:   drtio.ChanSel(0, 1),
			Address:   10,
			Timestamp: 34,
			Data:      big.NewInt(0x2342),
		})

		writes := sat.Channel(0, 1).Writes()
		Expect(writes).To(HaveLen(2))
		Expect(writes[0].Timestamp).To(Equal(uint64(21)))
		Expect(writes[0].Data.Int64()).To(Equal(int64(0x42)))
		Expect(writes[1].Timestamp).To(Equal(uint64(34)))

		Expect(sat.Space(0)).To(Equal(uint16(8)))
		Expect(sat.Faults()).To(BeEmpty())
	})

	It("should fault on a write to an unknown channel", func() {
		send(packet.Packet{
			Type:    packet.TypeWrite,
			ChanSel: drtio.ChanSel(0, 9),
			Data:    big.NewInt(1),
		})

		Expect(sat.Faults()).To(HaveLen(1))

		var notFound *drtio.ChannelNotFoundError
		Expect(sat.Faults()[0]).To(BeAssignableToTypeOf(notFound))
		Expect(sat.Space(0)).To(Equal(uint16(10)))
	})

	It("should fault on a write to an unknown destination", func() {
		send(packet.Packet{
			Type:    packet.TypeWrite,
			ChanSel: drtio.ChanSel(7, 1),
			Data:    big.NewInt(1),
		})

		Expect(sat.Faults()).To(HaveLen(1))
	})

	It("should answer a buffer space query", func() {
		send(packet.Packet{
			Type:        packet.TypeBufferSpaceRequest,
			Destination: 0,
		})

		Expect(agent.received).To(HaveLen(1))

		p, err := packet.Decode(agent.received[0].Frame, 4)
		Expect(err).To(BeNil())
		Expect(p.Type).To(Equal(packet.TypeBufferSpaceReply))
		Expect(p.Space).To(Equal(uint16(10)))
	})

	It("should report the space remaining after writes", func() {
		send(packet.Packet{
			Type:    packet.TypeWrite,
			ChanSel: drtio.ChanSel(0, 2),
			Data:    big.NewInt(1),
		})
		send(packet.Packet{
			Type:        packet.TypeBufferSpaceRequest,
			Destination: 0,
		})

		p, err := packet.Decode(agent.received[0].Frame, 4)
		Expect(err).To(BeNil())
		Expect(p.Space).To(Equal(uint16(9)))
	})

	It("should fault on a query for an unknown destination", func() {
		send(packet.Packet{
			Type:        packet.TypeBufferSpaceRequest,
			Destination: 7,
		})

		Expect(agent.received).To(BeEmpty())
		Expect(sat.Faults()).To(HaveLen(1))
	})

	It("should answer a read with the last written value", func() {
		send(packet.Packet{
			Type:      packet.TypeWrite,
			ChanSel:   drtio.ChanSel(0, 1),
			Address:   5,
			Timestamp: 21,
			Data:      big.NewInt(0x77),
		})
		send(packet.Packet{
			Type:      packet.TypeRead,
			ChanSel:   drtio.ChanSel(0, 1),
			Address:   5,
			Timestamp: 99,
		})

		Expect(agent.received).To(HaveLen(1))

		p, err := packet.Decode(agent.received[0].Frame, 4)
		Expect(err).To(BeNil())
		Expect(p.Type).To(Equal(packet.TypeReadReply))
		Expect(p.Timestamp).To(Equal(uint64(99)))
		Expect(p.Data.Int64()).To(Equal(int64(0x77)))
	})

	It("should survive a malformed frame and process the next one", func() {
		msg := packet.FrameMsgBuilder{}.
			WithSrc(agent.Port.AsRemote()).
			WithDst(sat.UpPort.AsRemote()).
			WithFrame([]byte{0xff, 0, 0, 0}).
			WithWordWidth(4).
			Build()
		Expect(agent.Port.Send(msg)).To(BeNil())
		Expect(engine.Run()).To(Succeed())

		Expect(sat.Faults()).To(HaveLen(1))

		send(packet.Packet{
			Type:        packet.TypeBufferSpaceRequest,
			Destination: 0,
		})

		Expect(agent.received).To(HaveLen(1))
	})

	It("should invoke the fault hook", func() {
		hook := &faultRecorder{}
		sat.AcceptHook(hook)

		send(packet.Packet{
			Type:    packet.TypeWrite,
			ChanSel: drtio.ChanSel(0, 9),
			Data:    big.NewInt(1),
		})

		Expect(hook.faults).To(HaveLen(1))
	})
})

type faultRecorder struct {
	faults []error
}

func (h *faultRecorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosFault {
		return
	}

	h.faults = append(h.faults, ctx.Item.(error))
}
