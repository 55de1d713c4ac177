package ble

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/muurk/bridge/internal/ports"
	"github.com/muurk/bridge/internal/ports/fake"
	"github.com/muurk/bridge/internal/wire"
)

func fastRetry() retryConfig {
	return retryConfig{Base: time.Millisecond, Ceiling: 5 * time.Millisecond, MaxRetries: 2}
}

func TestProcessConnectRequestSucceeds(t *testing.T) {
	dev := fake.NewDevice()
	dev.Seed(ports.DeviceInfo{ID: "d1", Name: "left-knee"})
	p := New(dev)

	resp, err := p.Process(context.Background(), &wire.Message{
		Type:      wire.MsgBLEConnectRequest,
		RequestID: 1,
		Fields:    map[string]interface{}{"deviceId": "d1", "name": "left-knee"},
	}, "s1")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Type != wire.MsgBLEConnectResponse {
		t.Fatalf("Type = %v, want MsgBLEConnectResponse", resp.Type)
	}
}

func TestProcessRecordStartWhileActiveReturnsSuccess(t *testing.T) {
	dev := fake.NewDevice()
	dev.Seed(ports.DeviceInfo{ID: "d1", Name: "left-knee", Connected: true})
	p := New(dev)

	req := &wire.Message{
		Type:      wire.MsgRecordStartRequest,
		RequestID: 2,
		Fields:    map[string]interface{}{"sessionId": "sess1", "exerciseId": "squat", "setNumber": float64(1)},
	}

	first, err := p.Process(context.Background(), req, "s1")
	if err != nil {
		t.Fatalf("first record-start: unexpected error: %v", err)
	}
	if first.Type != wire.MsgRecordStartResponse {
		t.Fatalf("first Type = %v, want MsgRecordStartResponse", first.Type)
	}

	second, err := p.Process(context.Background(), req, "s1")
	if err != nil {
		t.Fatalf("second record-start (idempotent) should succeed, got error: %v", err)
	}
	if second.Type != wire.MsgRecordStartResponse {
		t.Fatalf("second Type = %v, want MsgRecordStartResponse", second.Type)
	}
}

func TestProcessRecordStartWithZeroConnectedDevicesFailsWithoutRetrying(t *testing.T) {
	countingDev := &countingDevice{Device: fake.NewDevice()}
	p := New(countingDev)
	p.Retry = fastRetry()

	_, err := p.Process(context.Background(), &wire.Message{
		Type:      wire.MsgRecordStartRequest,
		RequestID: 3,
		Fields:    map[string]interface{}{"sessionId": "sess1", "exerciseId": "squat", "setNumber": float64(1)},
	}, "s1")

	if err == nil {
		t.Fatal("expected an error when no devices are connected")
	}
	if countingDev.startCalls != 1 {
		t.Fatalf("StartRecording called %d times, want exactly 1 (no retry past the port's response)", countingDev.startCalls)
	}
}

func TestProcessRecordStopWhileNotRecordingReturnsError(t *testing.T) {
	dev := fake.NewDevice()
	p := New(dev)

	_, err := p.Process(context.Background(), &wire.Message{Type: wire.MsgRecordStopRequest, RequestID: 4}, "s1")
	if err == nil {
		t.Fatal("expected an error when stopping with no active recording")
	}
}

func TestProcessRetriesTransientPortErrors(t *testing.T) {
	dev := &flakyDevice{Device: fake.NewDevice(), failures: 2}
	p := New(dev)
	p.Retry = fastRetry()

	resp, err := p.Process(context.Background(), &wire.Message{Type: wire.MsgBLEScanRequest, RequestID: 5}, "s1")
	if err != nil {
		t.Fatalf("expected the retry loop to recover, got error: %v", err)
	}
	if resp.Type != wire.MsgBLEScanResponse {
		t.Fatalf("Type = %v, want MsgBLEScanResponse", resp.Type)
	}
	if dev.calls != 3 {
		t.Fatalf("Scan called %d times, want 3 (2 failures + 1 success)", dev.calls)
	}
}

// countingDevice wraps fake.Device to count StartRecording invocations.
type countingDevice struct {
	*fake.Device
	startCalls int
}

func (c *countingDevice) StartRecording(ctx context.Context, sessionID, exerciseID string, setNumber int) (ports.Result, error) {
	c.startCalls++
	return c.Device.StartRecording(ctx, sessionID, exerciseID, setNumber)
}

// flakyDevice wraps fake.Device to fail Scan a fixed number of times
// before succeeding, exercising the retry loop.
type flakyDevice struct {
	*fake.Device
	failures int
	calls    int
}

func (f *flakyDevice) Scan(ctx context.Context) (ports.Result, error) {
	f.calls++
	if f.calls <= f.failures {
		return ports.Result{}, errors.New("transient BLE adapter error")
	}
	return f.Device.Scan(ctx)
}
