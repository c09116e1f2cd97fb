package drtio

// A channel selector combines the destination node index and the channel
// number on that node. The destination occupies the bits above 16, the
// channel number the low 16 bits.

// ChanSel builds a channel selector from a destination and a channel number.
func ChanSel(destination uint8, channel uint16) uint32 {
	return uint32(destination)<<16 | uint32(channel)
}

// Destination extracts the destination node index from a channel selector.
func Destination(chanSel uint32) uint8 {
	return uint8(chanSel >> 16)
}

// Channel extracts the channel number from a channel selector.
func Channel(chanSel uint32) uint16 {
	return uint16(chanSel)
}
