package wire

import "testing"

func TestEncodeDecodeMessageMotionFastPath(t *testing.T) {
	msg := &Message{
		Type:      MsgMotionData,
		RequestID: 0,
		Timestamp: 1000.0,
		Motion:    &Motion{DeviceName: "right-elbow", Values: [MotionFloatCount]float32{1.1, 2.2}},
	}

	frame, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: unexpected error: %v", err)
	}

	got, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: unexpected error: %v", err)
	}
	if got.Type != MsgMotionData {
		t.Fatalf("Decode: Type = %v, want MsgMotionData", got.Type)
	}
	if got.Motion == nil || *got.Motion != *msg.Motion {
		t.Fatalf("Decode: Motion = %+v, want %+v", got.Motion, msg.Motion)
	}
}

func TestEncodeMessageMotionRequiresPayload(t *testing.T) {
	msg := &Message{Type: MsgMotionData}
	_, err := Encode(msg)
	if err == nil {
		t.Fatal("Encode: expected error for motion message with nil Motion, got nil")
	}
}

func TestEncodeDecodeMessageGenericFields(t *testing.T) {
	msg := &Message{
		Type:      MsgBLEConnectRequest,
		RequestID: 99,
		Timestamp: 42.0,
		Fields: map[string]interface{}{
			"deviceId": "AA:BB:CC:DD:EE:FF",
			"timeout":  float64(30),
		},
	}

	frame, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: unexpected error: %v", err)
	}

	got, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: unexpected error: %v", err)
	}
	if got.Type != MsgBLEConnectRequest || got.RequestID != 99 {
		t.Fatalf("Decode header mismatch: got Type=%v RequestID=%d", got.Type, got.RequestID)
	}
	if got.StringField("deviceId") != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("Decode: deviceId = %q, want AA:BB:CC:DD:EE:FF", got.StringField("deviceId"))
	}
	n, ok := got.IntField("timeout")
	if !ok || n != 30 {
		t.Fatalf("Decode: timeout = (%d, %v), want (30, true)", n, ok)
	}
}

func TestEncodeDecodeMessageEmptyPayload(t *testing.T) {
	msg := &Message{Type: MsgHeartbeat, RequestID: 1, Timestamp: 5.0}

	frame, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: unexpected error: %v", err)
	}

	got, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: unexpected error: %v", err)
	}
	if got.Fields != nil {
		t.Fatalf("Decode: Fields = %+v, want nil for empty payload", got.Fields)
	}
}

func TestDecodeMessageUnknownTypeDoesNotError(t *testing.T) {
	h := Header{Version: CurrentVersion, Type: MessageType(0xAA), RequestID: 3}
	frame, err := EncodeFrame(h, []byte(`{"x":1}`))
	if err != nil {
		t.Fatalf("EncodeFrame: unexpected error: %v", err)
	}

	got, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: expected no error for unknown message type, got %v", err)
	}
	if got.Type != MessageType(0xAA) {
		t.Fatalf("Decode: Type = %v, want 0xAA", got.Type)
	}
}

func TestDecodeMessageRejectsUnsupportedVersion(t *testing.T) {
	h := Header{Version: CurrentVersion + 1, Type: MsgHeartbeat}
	buf := EncodeHeader(h)

	_, err := Decode(buf)
	if err == nil {
		t.Fatal("Decode: expected error for unsupported version, got nil")
	}
}
