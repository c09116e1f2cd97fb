package sim

// SendError marks a failed send or receive.
type SendError struct{}

// NewSendError creates a SendError.
func NewSendError() *SendError {
	return new(SendError)
}

// A Connection is responsible for delivering messages to their destinations.
type Connection interface {
	Named
	Hookable

	PlugIn(port Port)
	Unplug(port Port)
	NotifyAvailable(port Port)
	NotifySend()
}

// HookPosConnStartSend marks a connection accepting a message to send.
var HookPosConnStartSend = &HookPos{Name: "Conn Start Send"}

// HookPosConnStartTrans marks a connection starting to transmit a message.
var HookPosConnStartTrans = &HookPos{Name: "Conn Start Trans"}

// HookPosConnDoneTrans marks a connection completing transmitting a message.
var HookPosConnDoneTrans = &HookPos{Name: "Conn Done Trans"}

// HookPosConnDeliver marks a connection delivering a message.
var HookPosConnDeliver = &HookPos{Name: "Conn Deliver"}
