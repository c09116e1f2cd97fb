package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = Describe("DirectConnection", func() {
	var (
		mockCtrl   *gomock.Controller
		engine     *MockEngine
		port1      *MockPort
		port2      *MockPort
		connection *DirectConnection
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewMockEngine(mockCtrl)
		port1 = NewMockPort(mockCtrl)
		port2 = NewMockPort(mockCtrl)
		connection = NewDirectConnection("Conn", engine, 1)

		port1.EXPECT().AsRemote().Return(RemotePort("Port1")).AnyTimes()
		port2.EXPECT().AsRemote().Return(RemotePort("Port2")).AnyTimes()
		port1.EXPECT().SetConnection(connection)
		port2.EXPECT().SetConnection(connection)
		connection.PlugIn(port1)
		connection.PlugIn(port2)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should schedule a secondary tick when a port sends", func() {
		engine.EXPECT().CurrentTime().Return(VTimeInSec(10)).AnyTimes()
		engine.EXPECT().Schedule(gomock.Any()).Do(func(evt TickEvent) {
			Expect(evt.Time()).To(Equal(VTimeInSec(10)))
			Expect(evt.IsSecondary()).To(BeTrue())
		})

		connection.NotifySend()
	})

	It("should forward messages to the destination port", func() {
		msg := &sampleMsg{}
		msg.Src = port1.AsRemote()
		msg.Dst = port2.AsRemote()

		peekMsg := port1.EXPECT().PeekOutgoing().Return(msg)
		port1.EXPECT().PeekOutgoing().Return(nil).After(peekMsg)
		port1.EXPECT().RetrieveOutgoing().Return(msg)
		port2.EXPECT().Deliver(msg).Return(nil)
		port2.EXPECT().PeekOutgoing().Return(nil)

		madeProgress := connection.Tick()

		Expect(madeProgress).To(BeTrue())
	})

	It("should stall when the destination cannot accept", func() {
		msg := &sampleMsg{}
		msg.Src = port1.AsRemote()
		msg.Dst = port2.AsRemote()

		port1.EXPECT().PeekOutgoing().Return(msg)
		port2.EXPECT().Deliver(msg).Return(NewSendError())
		port2.EXPECT().PeekOutgoing().Return(nil)

		madeProgress := connection.Tick()

		Expect(madeProgress).To(BeFalse())
	})

	It("should panic when the destination is not plugged in", func() {
		msg := &sampleMsg{}
		msg.Src = port1.AsRemote()
		msg.Dst = RemotePort("Elsewhere")

		port1.EXPECT().PeekOutgoing().Return(msg)

		Expect(func() { connection.Tick() }).To(Panic())
	})
})
