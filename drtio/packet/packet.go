// Package packet implements the wire codec of the real-time I/O control
// path. A packet is a type tag followed by fixed header fields, packed into
// words of a link-specific width. Data values too wide for the header's
// inline short_data field spill into a trailer of full words.
package packet

import (
	"math/big"

	"github.com/synchrolab/drtsim/drtio"
)

// Type tags the kind of a packet on the wire.
type Type uint8

// The packet types of the control path.
const (
	TypeWrite Type = iota + 1
	TypeRead
	TypeReadReply
	TypeBufferSpaceRequest
	TypeBufferSpaceReply
)

func (t Type) String() string {
	switch t {
	case TypeWrite:
		return "write"
	case TypeRead:
		return "read"
	case TypeReadReply:
		return "read_reply"
	case TypeBufferSpaceRequest:
		return "buffer_space_request"
	case TypeBufferSpaceReply:
		return "buffer_space_reply"
	}
	return "unknown"
}

// A Packet is the decoded form of a wire frame. Which fields are meaningful
// depends on the Type.
type Packet struct {
	Type Type

	// Write and Read
	ChanSel   uint32
	Address   uint16
	Timestamp uint64

	// Write and ReadReply. Data is an arbitrary-width value; nil means zero.
	Data *big.Int

	// BufferSpaceRequest
	Destination uint8

	// BufferSpaceReply
	Space uint16
}

// MinWordWidth and MaxWordWidth bound the supported link word widths in
// bytes. The codec behaves identically for every width in the range.
const (
	MinWordWidth = 1
	MaxWordWidth = 8
)

// maxTrailerWords is the capacity of the extra_data_cnt field.
const maxTrailerWords = 255

// Header sizes in bytes, before padding to a word boundary. All header
// fields are byte aligned.
const (
	writeHeaderBytes     = 15 // type 1, chan_sel 3, address 2, cnt 1, timestamp 8
	readHeaderBytes      = 14 // type 1, chan_sel 3, address 2, timestamp 8
	readReplyHeaderBytes = 10 // type 1, cnt 1, timestamp 8
	bsReqHeaderBytes     = 2  // type 1, destination 1
	bsReplyHeaderBytes   = 3  // type 1, space 2
)

// ValidateWordWidth checks that a word width is in the supported range. It
// is meant to be called once at link setup.
func ValidateWordWidth(w int) error {
	if w < MinWordWidth || w > MaxWordWidth {
		return &drtio.MalformedPacketError{
			Reason: "unsupported word width",
		}
	}
	return nil
}

func paddedLen(rawBytes, w int) int {
	words := (rawBytes + w - 1) / w
	return words * w
}

// ShortDataBits returns the number of data bits that fit inline in a write
// packet's header padding for the given word width.
func ShortDataBits(w int) int {
	return (paddedLen(writeHeaderBytes, w) - writeHeaderBytes) * 8
}

// ReadReplyShortDataBits is the inline data capacity of a read reply.
func ReadReplyShortDataBits(w int) int {
	return (paddedLen(readReplyHeaderBytes, w) - readReplyHeaderBytes) * 8
}

func putUint(b []byte, v uint64) {
	for i := range b {
		b[i] = byte(v)
		v >>= 8
	}
}

func getUint(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// splitData splits a data value into inline bytes and trailer words.
func splitData(
	data *big.Int, shortBytes, w int,
) (short []byte, trailer [][]byte, err error) {
	if data == nil {
		data = big.NewInt(0)
	}
	if data.Sign() < 0 {
		return nil, nil, &drtio.MalformedPacketError{
			Reason: "data must not be negative",
		}
	}

	short = make([]byte, shortBytes)
	rest := new(big.Int).Set(data)

	fillBytesLE(rest, short)
	rest.Rsh(rest, uint(shortBytes*8))

	for rest.Sign() != 0 {
		word := make([]byte, w)
		fillBytesLE(rest, word)
		rest.Rsh(rest, uint(w*8))
		trailer = append(trailer, word)
	}

	if len(trailer) > maxTrailerWords {
		return nil, nil, &drtio.MalformedPacketError{
			Reason: "data too wide for extra_data_cnt",
		}
	}

	return short, trailer, nil
}

// fillBytesLE writes the low-order bytes of v into b, little-endian.
func fillBytesLE(v *big.Int, b []byte) {
	for i := range b {
		var w big.Int
		w.Rsh(v, uint(i*8))
		if w.Sign() == 0 {
			break
		}
		b[i] = byte(w.Uint64())
	}
}

// joinData reassembles a data value from inline bytes and trailer words:
// short_data | sum(trailer[n] << (n*w*8 + shortBits)).
func joinData(short []byte, trailer [][]byte) *big.Int {
	data := new(big.Int)
	setBytesLE(data, short)

	shift := uint(len(short) * 8)
	for _, word := range trailer {
		var w big.Int
		setBytesLE(&w, word)
		w.Lsh(&w, shift)
		data.Or(data, &w)
		shift += uint(len(word) * 8)
	}

	return data
}

func setBytesLE(v *big.Int, b []byte) {
	rev := make([]byte, len(b))
	for i, c := range b {
		rev[len(b)-1-i] = c
	}
	v.SetBytes(rev)
}
