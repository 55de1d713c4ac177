package fake

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/muurk/bridge/internal/ports"
)

// Device is an in-memory ports.Device. It starts with no devices
// connected; call Seed to populate known devices before a scan.
type Device struct {
	mu          sync.Mutex
	devices     map[string]ports.DeviceInfo
	recording   bool
	sessionID   string
	recordingID string
}

// newRecordingID generates a recording id of the form
// rec_<epoch-ms>_<random>, the same shape session.NewID uses for session
// ids.
func newRecordingID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("rec_%d_%x", time.Now().UnixMilli(), b)
}

// NewDevice returns an empty fake device fleet.
func NewDevice() *Device {
	return &Device{devices: make(map[string]ports.DeviceInfo)}
}

// Seed registers a device as discoverable by a subsequent Scan, keeping
// info.Connected as given.
func (d *Device) Seed(info ports.DeviceInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	info.LastSeen = time.Now()
	d.devices[info.ID] = info
}

func (d *Device) Scan(ctx context.Context) (ports.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	found := make([]map[string]interface{}, 0, len(d.devices))
	for _, dev := range d.devices {
		found = append(found, map[string]interface{}{
			"id":           dev.ID,
			"name":         dev.Name,
			"batteryLevel": dev.BatteryLevel,
		})
	}
	return ports.Result{Success: true, Message: "scan complete", Payload: map[string]interface{}{"devices": found}}, nil
}

func (d *Device) Connect(ctx context.Context, id, name string) (ports.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dev, ok := d.devices[id]
	if !ok {
		dev = ports.DeviceInfo{ID: id, Name: name}
	}
	if dev.Connected {
		return ports.Result{Success: false, Message: fmt.Sprintf("device %s already connected", id)}, nil
	}
	dev.Connected = true
	dev.Name = name
	dev.LastSeen = time.Now()
	d.devices[id] = dev
	return ports.Result{Success: true, Message: "connected"}, nil
}

func (d *Device) Disconnect(ctx context.Context, id string) (ports.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dev, ok := d.devices[id]
	if !ok || !dev.Connected {
		return ports.Result{Success: false, Message: fmt.Sprintf("device %s not connected", id)}, nil
	}
	dev.Connected = false
	d.devices[id] = dev
	return ports.Result{Success: true, Message: "disconnected"}, nil
}

func (d *Device) Remove(ctx context.Context, id string) (ports.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.devices[id]; !ok {
		return ports.Result{Success: false, Message: fmt.Sprintf("device %s not found", id)}, nil
	}
	delete(d.devices, id)
	return ports.Result{Success: true, Message: "removed"}, nil
}

func (d *Device) SyncAll(ctx context.Context) (ports.Result, error) {
	return ports.Result{Success: true, Message: "sync started"}, nil
}

func (d *Device) StartLocate(ctx context.Context, id string) (ports.Result, error) {
	d.mu.Lock()
	_, ok := d.devices[id]
	d.mu.Unlock()
	if !ok {
		return ports.Result{Success: false, Message: fmt.Sprintf("device %s not found", id)}, nil
	}
	return ports.Result{Success: true, Message: "locate started"}, nil
}

func (d *Device) StopLocate(ctx context.Context, id string) (ports.Result, error) {
	return ports.Result{Success: true, Message: "locate stopped"}, nil
}

func (d *Device) EnableBurstScan(ctx context.Context, durationMs int) (ports.Result, error) {
	return ports.Result{Success: true, Message: "burst scan enabled"}, nil
}

func (d *Device) DisableBurstScan(ctx context.Context) (ports.Result, error) {
	return ports.Result{Success: true, Message: "burst scan disabled"}, nil
}

func (d *Device) StartRecording(ctx context.Context, sessionID, exerciseID string, setNumber int) (ports.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.recording {
		return ports.Result{
			Success: true,
			Message: "recording already active",
			Payload: map[string]interface{}{"recordingId": d.recordingID},
		}, nil
	}

	connected := 0
	for _, dev := range d.devices {
		if dev.Connected {
			connected++
		}
	}
	if connected == 0 {
		return ports.Result{Success: false, Message: "no connected devices"}, nil
	}

	d.recording = true
	d.sessionID = sessionID
	d.recordingID = newRecordingID()
	return ports.Result{
		Success: true,
		Message: "recording started",
		Payload: map[string]interface{}{"recordingId": d.recordingID},
	}, nil
}

func (d *Device) StopRecording(ctx context.Context) (ports.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.recording {
		return ports.Result{Success: false, Message: "no recording in progress"}, nil
	}
	d.recording = false
	return ports.Result{Success: true, Message: "recording stopped"}, nil
}

func (d *Device) IsRecording() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recording
}

func (d *Device) GetConnectedDevices(ctx context.Context) ([]ports.DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]ports.DeviceInfo, 0, len(d.devices))
	for _, dev := range d.devices {
		if dev.Connected {
			out = append(out, dev)
		}
	}
	return out, nil
}

func (d *Device) GetAllDevices(ctx context.Context) ([]ports.DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]ports.DeviceInfo, 0, len(d.devices))
	for _, dev := range d.devices {
		out = append(out, dev)
	}
	return out, nil
}
