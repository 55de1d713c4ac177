package wire

import (
	"encoding/json"
	"fmt"
)

// Message is the logical record carried by a frame: a type, an optional
// request-correlation id, a timestamp, and a type-specific payload.
//
// Motion carries the fast-path payload when Type == MsgMotionData. Fields
// carries the generic structured-text (JSON) fallback for every other
// type; it is nil when the payload is empty.
type Message struct {
	Type      MessageType
	RequestID uint32
	Timestamp float64
	Motion    *Motion
	Fields    map[string]interface{}
}

// Field is a convenience accessor returning (nil, false) for a missing key
// instead of panicking on a type assertion.
func (m *Message) Field(key string) (interface{}, bool) {
	if m.Fields == nil {
		return nil, false
	}
	v, ok := m.Fields[key]
	return v, ok
}

// StringField returns the named field as a string, or "" if absent or not
// a string.
func (m *Message) StringField(key string) string {
	v, ok := m.Field(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// IntField returns the named field as an int, tolerating JSON's float64
// decoding of numbers.
func (m *Message) IntField(key string) (int, bool) {
	v, ok := m.Field(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// Encode serializes a Message to a complete wire frame. The payload
// encoding is chosen purely by message type: MsgMotionData uses the fast
// binary path, everything else uses the generic JSON fallback.
func Encode(m *Message) ([]byte, error) {
	var payload []byte
	var err error

	switch m.Type {
	case MsgMotionData:
		if m.Motion == nil {
			return nil, fmt.Errorf("wire: motion message missing Motion payload")
		}
		payload = EncodeMotion(*m.Motion)
	default:
		if m.Fields != nil {
			payload, err = json.Marshal(m.Fields)
			if err != nil {
				return nil, fmt.Errorf("wire: failed to encode payload: %w", err)
			}
		}
	}

	h := Header{
		Version:   CurrentVersion,
		Type:      m.Type,
		RequestID: m.RequestID,
		Timestamp: m.Timestamp,
	}

	return EncodeFrame(h, payload)
}

// Decode parses a complete wire frame into a Message. Unknown message
// types decode successfully with their payload left as raw JSON fields (or
// nil Fields if parsing as JSON fails) — rejecting them is the router's
// responsibility, not the codec's.
func Decode(data []byte) (*Message, error) {
	h, payload, err := DecodeFrame(data)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		Type:      h.Type,
		RequestID: h.RequestID,
		Timestamp: h.Timestamp,
	}

	if h.Type == MsgMotionData {
		motion, err := DecodeMotion(payload)
		if err != nil {
			return nil, err
		}
		msg.Motion = &motion
		return msg, nil
	}

	if len(payload) == 0 {
		return msg, nil
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		// Not a decode failure at the codec layer: unknown/malformed
		// control payloads still produce a message the router can reject
		// with a well-formed error frame.
		return msg, nil
	}
	msg.Fields = fields

	return msg, nil
}
