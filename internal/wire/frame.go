package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// CurrentVersion is the only protocol version this codec accepts.
const CurrentVersion byte = 1

const (
	// HeaderSize is the fixed 16-byte header: version(1) + type(1) +
	// payloadLength(2) + requestId(4) + timestamp(8).
	HeaderSize = 16

	// MaxPayloadSize is the largest payload a single frame may carry.
	MaxPayloadSize = 65535

	// MaxFrameSize is HeaderSize + MaxPayloadSize.
	MaxFrameSize = HeaderSize + MaxPayloadSize

	// MotionFloatCount is the fixed number of floats in a motion payload
	// (left/right current angle). Resolved per the specification's open
	// question; enforced here, in the validator, and by every producer.
	MotionFloatCount = 2
)

// Header is the fixed 16-byte frame header.
type Header struct {
	Version       byte
	Type          MessageType
	PayloadLength uint16
	RequestID     uint32
	Timestamp     float64
}

// EncodeHeader writes the 16-byte header to a freshly allocated slice.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = h.Version
	buf[1] = byte(h.Type)
	binary.LittleEndian.PutUint16(buf[2:4], h.PayloadLength)
	binary.LittleEndian.PutUint32(buf[4:8], h.RequestID)
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(h.Timestamp))
	return buf
}

// DecodeHeader parses the first HeaderSize bytes of data into a Header.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("wire: frame too short: %d bytes (minimum %d)", len(data), HeaderSize)
	}

	h := Header{
		Version:       data[0],
		Type:          MessageType(data[1]),
		PayloadLength: binary.LittleEndian.Uint16(data[2:4]),
		RequestID:     binary.LittleEndian.Uint32(data[4:8]),
		Timestamp:     math.Float64frombits(binary.LittleEndian.Uint64(data[8:16])),
	}

	if h.Version != CurrentVersion {
		return Header{}, fmt.Errorf("wire: unsupported protocol version 0x%02x (expected 0x%02x)", h.Version, CurrentVersion)
	}

	return h, nil
}

// EncodeFrame assembles a complete frame (header + payload), patching the
// payload-length field after the payload is known.
func EncodeFrame(h Header, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("wire: payload length %d exceeds maximum %d", len(payload), MaxPayloadSize)
	}
	h.PayloadLength = uint16(len(payload))

	frame := make([]byte, 0, HeaderSize+len(payload))
	frame = append(frame, EncodeHeader(h)...)
	frame = append(frame, payload...)
	return frame, nil
}

// PeekType reads just the message type byte from a frame, without
// validating or decoding the rest of it. Used where only the type is
// needed (e.g. load-shedding) and a full decode would be wasted work.
func PeekType(data []byte) (MessageType, bool) {
	if len(data) < 2 {
		return 0, false
	}
	return MessageType(data[1]), true
}

// DecodeFrame splits a raw frame into its header and payload, rejecting
// frames with an unsupported version, a declared payload length exceeding
// the maximum, or a total length shorter than the header.
func DecodeFrame(data []byte) (Header, []byte, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return Header{}, nil, err
	}

	if h.PayloadLength > MaxPayloadSize {
		return Header{}, nil, fmt.Errorf("wire: declared payload length %d exceeds maximum %d", h.PayloadLength, MaxPayloadSize)
	}

	want := HeaderSize + int(h.PayloadLength)
	if len(data) < want {
		return Header{}, nil, fmt.Errorf("wire: frame declares %d payload bytes but only %d available", h.PayloadLength, len(data)-HeaderSize)
	}

	payload := data[HeaderSize:want]
	return h, payload, nil
}
