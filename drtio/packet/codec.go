package packet

import (
	"github.com/synchrolab/drtsim/drtio"
)

// Encode serializes a packet into a wire frame of wordWidth-byte words. The
// frame length is always a multiple of the word width; the last trailer word
// is zero padded.
func Encode(p Packet, wordWidth int) ([]byte, error) {
	if err := ValidateWordWidth(wordWidth); err != nil {
		return nil, err
	}

	switch p.Type {
	case TypeWrite:
		return encodeWrite(p, wordWidth)
	case TypeRead:
		return encodeRead(p, wordWidth)
	case TypeReadReply:
		return encodeReadReply(p, wordWidth)
	case TypeBufferSpaceRequest:
		frame := make([]byte, paddedLen(bsReqHeaderBytes, wordWidth))
		frame[0] = byte(TypeBufferSpaceRequest)
		frame[1] = p.Destination
		return frame, nil
	case TypeBufferSpaceReply:
		frame := make([]byte, paddedLen(bsReplyHeaderBytes, wordWidth))
		frame[0] = byte(TypeBufferSpaceReply)
		putUint(frame[1:3], uint64(p.Space))
		return frame, nil
	}

	return nil, &drtio.MalformedPacketError{Reason: "unknown packet type"}
}

func encodeWrite(p Packet, w int) ([]byte, error) {
	headerLen := paddedLen(writeHeaderBytes, w)
	short, trailer, err := splitData(p.Data, headerLen-writeHeaderBytes, w)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, headerLen+len(trailer)*w)
	frame[0] = byte(TypeWrite)
	putUint(frame[1:4], uint64(p.ChanSel))
	putUint(frame[4:6], uint64(p.Address))
	frame[6] = byte(len(trailer))
	putUint(frame[7:15], p.Timestamp)
	copy(frame[writeHeaderBytes:headerLen], short)

	for n, word := range trailer {
		copy(frame[headerLen+n*w:], word)
	}

	return frame, nil
}

func encodeRead(p Packet, w int) ([]byte, error) {
	frame := make([]byte, paddedLen(readHeaderBytes, w))
	frame[0] = byte(TypeRead)
	putUint(frame[1:4], uint64(p.ChanSel))
	putUint(frame[4:6], uint64(p.Address))
	putUint(frame[6:14], p.Timestamp)
	return frame, nil
}

func encodeReadReply(p Packet, w int) ([]byte, error) {
	headerLen := paddedLen(readReplyHeaderBytes, w)
	short, trailer, err := splitData(p.Data, headerLen-readReplyHeaderBytes, w)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, headerLen+len(trailer)*w)
	frame[0] = byte(TypeReadReply)
	frame[1] = byte(len(trailer))
	putUint(frame[2:10], p.Timestamp)
	copy(frame[readReplyHeaderBytes:headerLen], short)

	for n, word := range trailer {
		copy(frame[headerLen+n*w:], word)
	}

	return frame, nil
}

// Decode parses a wire frame back into a packet. A frame whose length does
// not match its declared extra data count, or whose type tag is unknown, is
// rejected with MalformedPacketError and must not be applied.
func Decode(frame []byte, wordWidth int) (Packet, error) {
	if err := ValidateWordWidth(wordWidth); err != nil {
		return Packet{}, err
	}

	if len(frame) == 0 || len(frame)%wordWidth != 0 {
		return Packet{}, &drtio.MalformedPacketError{
			Reason: "frame length is not a multiple of the word width",
		}
	}

	switch Type(frame[0]) {
	case TypeWrite:
		return decodeWrite(frame, wordWidth)
	case TypeRead:
		return decodeRead(frame, wordWidth)
	case TypeReadReply:
		return decodeReadReply(frame, wordWidth)
	case TypeBufferSpaceRequest:
		if len(frame) != paddedLen(bsReqHeaderBytes, wordWidth) {
			return Packet{}, &drtio.MalformedPacketError{
				Reason: "buffer space request has wrong length",
			}
		}
		return Packet{
			Type:        TypeBufferSpaceRequest,
			Destination: frame[1],
		}, nil
	case TypeBufferSpaceReply:
		if len(frame) != paddedLen(bsReplyHeaderBytes, wordWidth) {
			return Packet{}, &drtio.MalformedPacketError{
				Reason: "buffer space reply has wrong length",
			}
		}
		return Packet{
			Type:  TypeBufferSpaceReply,
			Space: uint16(getUint(frame[1:3])),
		}, nil
	}

	return Packet{}, &drtio.MalformedPacketError{Reason: "unknown packet type"}
}

func decodeWrite(frame []byte, w int) (Packet, error) {
	headerLen := paddedLen(writeHeaderBytes, w)
	if len(frame) < headerLen {
		return Packet{}, &drtio.MalformedPacketError{
			Reason: "truncated write header",
		}
	}

	cnt := int(frame[6])
	if len(frame) != headerLen+cnt*w {
		return Packet{}, &drtio.MalformedPacketError{
			Reason: "trailer length does not match extra_data_cnt",
		}
	}

	trailer := make([][]byte, cnt)
	for n := range trailer {
		trailer[n] = frame[headerLen+n*w : headerLen+(n+1)*w]
	}

	return Packet{
		Type:      TypeWrite,
		ChanSel:   uint32(getUint(frame[1:4])),
		Address:   uint16(getUint(frame[4:6])),
		Timestamp: getUint(frame[7:15]),
		Data:      joinData(frame[writeHeaderBytes:headerLen], trailer),
	}, nil
}

func decodeRead(frame []byte, w int) (Packet, error) {
	if len(frame) != paddedLen(readHeaderBytes, w) {
		return Packet{}, &drtio.MalformedPacketError{
			Reason: "read request has wrong length",
		}
	}

	return Packet{
		Type:      TypeRead,
		ChanSel:   uint32(getUint(frame[1:4])),
		Address:   uint16(getUint(frame[4:6])),
		Timestamp: getUint(frame[6:14]),
	}, nil
}

func decodeReadReply(frame []byte, w int) (Packet, error) {
	headerLen := paddedLen(readReplyHeaderBytes, w)
	if len(frame) < headerLen {
		return Packet{}, &drtio.MalformedPacketError{
			Reason: "truncated read reply header",
		}
	}

	cnt := int(frame[1])
	if len(frame) != headerLen+cnt*w {
		return Packet{}, &drtio.MalformedPacketError{
			Reason: "trailer length does not match extra_data_cnt",
		}
	}

	trailer := make([][]byte, cnt)
	for n := range trailer {
		trailer[n] = frame[headerLen+n*w : headerLen+(n+1)*w]
	}

	return Packet{
		Type:      TypeReadReply,
		Timestamp: getUint(frame[2:10]),
		Data:      joinData(frame[readReplyHeaderBytes:headerLen], trailer),
	}, nil
}

// PeekType returns the type tag of a frame without decoding it. Repeaters
// use it to track buffer space queries while staying pass-through.
func PeekType(frame []byte) (Type, error) {
	if len(frame) == 0 {
		return 0, &drtio.MalformedPacketError{Reason: "empty frame"}
	}

	t := Type(frame[0])
	switch t {
	case TypeWrite, TypeRead, TypeReadReply,
		TypeBufferSpaceRequest, TypeBufferSpaceReply:
		return t, nil
	}

	return 0, &drtio.MalformedPacketError{Reason: "unknown packet type"}
}
