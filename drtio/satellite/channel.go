package satellite

import "math/big"

// An AppliedWrite is one write that landed on a channel, in submission
// order.
type AppliedWrite struct {
	Address   uint16
	Data      *big.Int
	Timestamp uint64
}

// A Channel is an addressable hardware I/O resource on a satellite. Writes
// land atomically, in submission order, and are visible through the applied
// write log.
type Channel struct {
	writes []AppliedWrite
	values map[uint16]*big.Int
}

func newChannel() *Channel {
	return &Channel{values: make(map[uint16]*big.Int)}
}

// apply lands a write on the channel bus. There is no partial-write state:
// the log entry and the register value update together.
func (ch *Channel) apply(address uint16, data *big.Int, timestamp uint64) {
	ch.writes = append(ch.writes, AppliedWrite{
		Address:   address,
		Data:      data,
		Timestamp: timestamp,
	})
	ch.values[address] = data
}

// read returns the last value written to an address, zero if none.
func (ch *Channel) read(address uint16) *big.Int {
	if v, found := ch.values[address]; found {
		return v
	}
	return big.NewInt(0)
}

// Writes returns the applied writes in submission order.
func (ch *Channel) Writes() []AppliedWrite {
	return ch.writes
}

// A destination groups the channels of one node and the remaining space of
// its output queue.
type destination struct {
	space    uint16
	channels map[uint16]*Channel
}
