package streamingdomain

import (
	"context"
	"testing"

	"github.com/muurk/bridge/internal/ports"
	"github.com/muurk/bridge/internal/ports/fake"
	"github.com/muurk/bridge/internal/wire"
)

func TestProcessGetDevicesStateReturnsAllDevices(t *testing.T) {
	dev := fake.NewDevice()
	dev.Seed(ports.DeviceInfo{ID: "d1", Name: "left-knee", Connected: true})
	dev.Seed(ports.DeviceInfo{ID: "d2", Name: "right-knee"})

	p := New(dev)
	resp, err := p.Process(context.Background(), &wire.Message{Type: wire.MsgGetDevicesStateRequest, RequestID: 1}, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Type != wire.MsgGetDevicesStateResponse {
		t.Fatalf("Type = %v, want MsgGetDevicesStateResponse", resp.Type)
	}
	devices, ok := resp.Fields["devices"].([]map[string]interface{})
	if !ok || len(devices) != 2 {
		t.Fatalf("devices field = %+v, want 2 entries", resp.Fields["devices"])
	}
}

func TestProcessRejectsNonStreamingMessageType(t *testing.T) {
	p := New(fake.NewDevice())
	_, err := p.Process(context.Background(), &wire.Message{Type: wire.MsgBLEScanRequest, RequestID: 2}, "s1")
	if err == nil {
		t.Fatal("expected an error for a non-streaming message type")
	}
}
