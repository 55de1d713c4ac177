package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Motion is the fast-path payload for MsgMotionData: a device name
// followed by a fixed-size array of current-angle samples.
type Motion struct {
	DeviceName string
	Values     [MotionFloatCount]float32
}

// EncodeMotion serializes a Motion payload: [u16 nameLen][name bytes][float32 x N].
func EncodeMotion(m Motion) []byte {
	nameBytes := []byte(m.DeviceName)
	buf := make([]byte, 2+len(nameBytes)+4*MotionFloatCount)

	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(nameBytes)))
	copy(buf[2:2+len(nameBytes)], nameBytes)

	offset := 2 + len(nameBytes)
	for i, v := range m.Values {
		binary.LittleEndian.PutUint32(buf[offset+4*i:offset+4*i+4], math.Float32bits(v))
	}

	return buf
}

// DecodeMotion parses a fast-path motion payload. It rejects payloads
// whose float count does not equal MotionFloatCount, and the validator
// separately rejects non-finite values.
func DecodeMotion(payload []byte) (Motion, error) {
	if len(payload) < 2 {
		return Motion{}, fmt.Errorf("wire: motion payload too short for name length")
	}

	nameLen := int(binary.LittleEndian.Uint16(payload[0:2]))
	if len(payload) < 2+nameLen {
		return Motion{}, fmt.Errorf("wire: motion payload too short for declared name length %d", nameLen)
	}
	name := string(payload[2 : 2+nameLen])

	rest := payload[2+nameLen:]
	if len(rest) != 4*MotionFloatCount {
		return Motion{}, fmt.Errorf("wire: motion payload has %d float bytes, want %d (count=%d)", len(rest), 4*MotionFloatCount, MotionFloatCount)
	}

	var values [MotionFloatCount]float32
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(rest[4*i : 4*i+4]))
	}

	return Motion{DeviceName: name, Values: values}, nil
}
