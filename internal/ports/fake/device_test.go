package fake

import (
	"context"
	"testing"

	"github.com/muurk/bridge/internal/ports"
)

func TestDeviceConnectDisconnectLifecycle(t *testing.T) {
	ctx := context.Background()
	d := NewDevice()

	res, err := d.Connect(ctx, "A1", "dev-A")
	if err != nil || !res.Success {
		t.Fatalf("Connect: got (%+v, %v)", res, err)
	}

	res, err = d.Connect(ctx, "A1", "dev-A")
	if err != nil || res.Success {
		t.Fatalf("Connect: expected failure on already-connected device, got (%+v, %v)", res, err)
	}

	res, err = d.Disconnect(ctx, "A1")
	if err != nil || !res.Success {
		t.Fatalf("Disconnect: got (%+v, %v)", res, err)
	}
}

func TestDeviceRecordStartIdempotentWhileActive(t *testing.T) {
	ctx := context.Background()
	d := NewDevice()
	if _, err := d.Connect(ctx, "A1", "dev-A"); err != nil {
		t.Fatalf("Connect: unexpected error: %v", err)
	}

	first, err := d.StartRecording(ctx, "s1", "e1", 1)
	if err != nil || !first.Success {
		t.Fatalf("StartRecording: got (%+v, %v)", first, err)
	}

	second, err := d.StartRecording(ctx, "s1", "e1", 1)
	if err != nil || !second.Success {
		t.Fatalf("StartRecording while active: expected success, got (%+v, %v)", second, err)
	}

	firstID, _ := first.Payload["recordingId"].(string)
	secondID, _ := second.Payload["recordingId"].(string)
	if firstID == "" {
		t.Fatal("StartRecording: expected a non-empty recordingId")
	}
	if firstID != secondID {
		t.Fatalf("recordingId = %q then %q, want the same id while already recording", firstID, secondID)
	}
}

func TestDeviceRecordStartFailsWithNoConnectedDevices(t *testing.T) {
	ctx := context.Background()
	d := NewDevice()

	res, err := d.StartRecording(ctx, "s1", "e1", 1)
	if err != nil {
		t.Fatalf("StartRecording: unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("StartRecording: expected failure with zero connected devices")
	}
}

func TestDeviceRecordStopFailsWithNoRecording(t *testing.T) {
	ctx := context.Background()
	d := NewDevice()

	res, err := d.StopRecording(ctx)
	if err != nil {
		t.Fatalf("StopRecording: unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("StopRecording: expected failure when no recording is active")
	}
}

func TestDeviceScanReturnsSeededDevices(t *testing.T) {
	ctx := context.Background()
	d := NewDevice()
	d.Seed(ports.DeviceInfo{ID: "A1", Name: "dev-A", BatteryLevel: 78})

	res, err := d.Scan(ctx)
	if err != nil || !res.Success {
		t.Fatalf("Scan: got (%+v, %v)", res, err)
	}
	devices, ok := res.Payload["devices"].([]map[string]interface{})
	if !ok || len(devices) != 1 {
		t.Fatalf("Scan: payload devices = %+v", res.Payload["devices"])
	}
}
