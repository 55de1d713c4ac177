package streamingdomain

import (
	"time"

	"github.com/muurk/bridge/internal/logging"
	"github.com/muurk/bridge/internal/ports"
	"github.com/muurk/bridge/internal/streaming"
	"github.com/muurk/bridge/internal/wire"
)

// SessionListFunc returns the session ids currently eligible to receive a
// streaming broadcast.
type SessionListFunc func() []string

// Broadcaster fans motion, device-status, and battery-update pushes from a
// ports.Processing subscription out to every connected session through an
// internal/streaming.Transport. It owns no state of its own beyond the
// subscription handles needed to unwind Start.
type Broadcaster struct {
	processing ports.Processing
	transport  *streaming.Transport
	sessions   SessionListFunc

	unsubMotion ports.Unsubscribe
	unsubStatus ports.Unsubscribe
	unsubBatt   ports.Unsubscribe
}

// NewBroadcaster returns a Broadcaster wired to transport and processing.
func NewBroadcaster(processing ports.Processing, transport *streaming.Transport, sessions SessionListFunc) *Broadcaster {
	return &Broadcaster{processing: processing, transport: transport, sessions: sessions}
}

// Start subscribes to the processing port's push streams. Calling Start
// twice without an intervening Stop leaks the first subscription.
func (b *Broadcaster) Start() {
	b.unsubMotion = b.processing.SubscribeMotion(b.onMotion)
	b.unsubStatus = b.processing.SubscribeDeviceStatus(b.onDeviceStatus)
	b.unsubBatt = b.processing.SubscribeBattery(b.onBattery)
}

// Stop cancels every subscription Start registered.
func (b *Broadcaster) Stop() {
	if b.unsubMotion != nil {
		b.unsubMotion()
	}
	if b.unsubStatus != nil {
		b.unsubStatus()
	}
	if b.unsubBatt != nil {
		b.unsubBatt()
	}
}

func (b *Broadcaster) onMotion(sample ports.MotionSample) {
	b.broadcast(&wire.Message{
		Type:      wire.MsgMotionData,
		Timestamp: nowStamp(),
		Motion: &wire.Motion{
			DeviceName: sample.DeviceName,
			Values:     sample.Values,
		},
	})
}

func (b *Broadcaster) onDeviceStatus(status ports.DeviceStatus) {
	b.broadcast(&wire.Message{
		Type:      wire.MsgDeviceStatus,
		Timestamp: nowStamp(),
		Fields: map[string]interface{}{
			"id":        status.ID,
			"name":      status.Name,
			"connected": status.Connected,
			"recording": status.Recording,
			"vibrating": status.Vibrating,
		},
	})
}

func (b *Broadcaster) onBattery(level ports.BatteryLevel) {
	b.broadcast(&wire.Message{
		Type:      wire.MsgBatteryUpdate,
		Timestamp: nowStamp(),
		Fields: map[string]interface{}{
			"id":    level.ID,
			"level": level.Level,
		},
	})
}

func (b *Broadcaster) broadcast(msg *wire.Message) {
	frame, err := wire.Encode(msg)
	if err != nil {
		logging.Error("failed to encode streaming broadcast frame")
		return
	}
	b.transport.BroadcastUnreliable(b.sessions(), frame)
}

func nowStamp() float64 {
	return float64(time.Now().UnixMilli())
}
