package wire

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeHeaderRoundTrip(t *testing.T) {
	h := Header{
		Version:       CurrentVersion,
		Type:          MsgHeartbeat,
		PayloadLength: 0,
		RequestID:     42,
		Timestamp:     1234567890.125,
	}

	buf := EncodeHeader(h)
	if len(buf) != HeaderSize {
		t.Fatalf("EncodeHeader: got %d bytes, want %d", len(buf), HeaderSize)
	}

	got, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: unexpected error: %v", err)
	}
	if got != h {
		t.Fatalf("DecodeHeader round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestDecodeHeaderRejectsShortData(t *testing.T) {
	_, err := DecodeHeader(make([]byte, HeaderSize-1))
	if err == nil {
		t.Fatal("DecodeHeader: expected error for short data, got nil")
	}
}

func TestDecodeHeaderRejectsUnsupportedVersion(t *testing.T) {
	h := Header{Version: CurrentVersion + 1, Type: MsgHeartbeat}
	buf := EncodeHeader(h)

	_, err := DecodeHeader(buf)
	if err == nil {
		t.Fatal("DecodeHeader: expected error for unsupported version, got nil")
	}
}

func TestEncodeFrameRejectsOversizedPayload(t *testing.T) {
	_, err := EncodeFrame(Header{Version: CurrentVersion, Type: MsgStatusResponse}, make([]byte, MaxPayloadSize+1))
	if err == nil {
		t.Fatal("EncodeFrame: expected error for oversized payload, got nil")
	}
}

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	h := Header{
		Version:   CurrentVersion,
		Type:      MsgStatusResponse,
		RequestID: 7,
		Timestamp: 1.5,
	}
	payload := []byte(`{"ok":true}`)

	frame, err := EncodeFrame(h, payload)
	if err != nil {
		t.Fatalf("EncodeFrame: unexpected error: %v", err)
	}

	gotHeader, gotPayload, err := DecodeFrame(frame)
	if err != nil {
		t.Fatalf("DecodeFrame: unexpected error: %v", err)
	}
	if gotHeader.Type != h.Type || gotHeader.RequestID != h.RequestID {
		t.Fatalf("DecodeFrame header mismatch: got %+v", gotHeader)
	}
	if int(gotHeader.PayloadLength) != len(payload) {
		t.Fatalf("DecodeFrame: PayloadLength = %d, want %d", gotHeader.PayloadLength, len(payload))
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Fatalf("DecodeFrame payload mismatch: got %q, want %q", gotPayload, payload)
	}
}

func TestDecodeFrameRejectsTruncatedPayload(t *testing.T) {
	h := Header{Version: CurrentVersion, Type: MsgStatusResponse}
	frame, err := EncodeFrame(h, []byte("hello"))
	if err != nil {
		t.Fatalf("EncodeFrame: unexpected error: %v", err)
	}

	_, _, err = DecodeFrame(frame[:len(frame)-2])
	if err == nil {
		t.Fatal("DecodeFrame: expected error for truncated payload, got nil")
	}
}
