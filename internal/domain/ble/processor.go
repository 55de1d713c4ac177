package ble

import (
	"context"
	"time"

	"github.com/muurk/bridge/internal/bridgeerr"
	"github.com/muurk/bridge/internal/ports"
	"github.com/muurk/bridge/internal/wire"
)

func nowStamp() float64 {
	return float64(time.Now().UnixMilli())
}

// Processor handles every BLE device-fleet message, delegating to a
// ports.Device under a retry loop with exponential backoff.
type Processor struct {
	Device ports.Device
	Retry  retryConfig
}

// New returns a BLE domain Processor with the specification's default
// retry policy (base 1s, ceiling 10s, max 3 retries).
func New(device ports.Device) *Processor {
	return &Processor{Device: device, Retry: defaultRetryConfig()}
}

// Domain implements router.Processor.
func (p *Processor) Domain() wire.Domain { return wire.DomainBLE }

// Process implements router.Processor.
func (p *Processor) Process(ctx context.Context, msg *wire.Message, sessionID string) (*wire.Message, error) {
	switch msg.Type {
	case wire.MsgBLEScanRequest:
		return p.call(ctx, msg, wire.MsgBLEScanResponse, func() (ports.Result, error) {
			return p.Device.Scan(ctx)
		})
	case wire.MsgBLEConnectRequest:
		id, name := msg.StringField("deviceId"), msg.StringField("name")
		return p.call(ctx, msg, wire.MsgBLEConnectResponse, func() (ports.Result, error) {
			return p.Device.Connect(ctx, id, name)
		})
	case wire.MsgBLEDisconnectRequest:
		id := msg.StringField("deviceId")
		return p.call(ctx, msg, wire.MsgBLEDisconnectResponse, func() (ports.Result, error) {
			return p.Device.Disconnect(ctx, id)
		})
	case wire.MsgBLERemoveRequest:
		id := msg.StringField("deviceId")
		return p.call(ctx, msg, wire.MsgBLERemoveResponse, func() (ports.Result, error) {
			return p.Device.Remove(ctx, id)
		})
	case wire.MsgBLESyncRequest:
		return p.call(ctx, msg, wire.MsgBLESyncResponse, func() (ports.Result, error) {
			return p.Device.SyncAll(ctx)
		})
	case wire.MsgBLELocateStartRequest:
		id := msg.StringField("deviceId")
		return p.call(ctx, msg, wire.MsgBLELocateStartResponse, func() (ports.Result, error) {
			return p.Device.StartLocate(ctx, id)
		})
	case wire.MsgBLELocateStopRequest:
		id := msg.StringField("deviceId")
		return p.call(ctx, msg, wire.MsgBLELocateStopResponse, func() (ports.Result, error) {
			return p.Device.StopLocate(ctx, id)
		})
	case wire.MsgBLEBurstStartRequest:
		durationMs, _ := msg.IntField("durationMs")
		return p.call(ctx, msg, wire.MsgAck, func() (ports.Result, error) {
			return p.Device.EnableBurstScan(ctx, durationMs)
		})
	case wire.MsgBLEBurstStopRequest:
		return p.call(ctx, msg, wire.MsgAck, func() (ports.Result, error) {
			return p.Device.DisableBurstScan(ctx)
		})
	case wire.MsgRecordStartRequest:
		sessionField := msg.StringField("sessionId")
		exerciseID := msg.StringField("exerciseId")
		setNumber, _ := msg.IntField("setNumber")
		return p.call(ctx, msg, wire.MsgRecordStartResponse, func() (ports.Result, error) {
			return p.Device.StartRecording(ctx, sessionField, exerciseID, setNumber)
		})
	case wire.MsgRecordStopRequest:
		return p.call(ctx, msg, wire.MsgRecordStopResponse, func() (ports.Result, error) {
			return p.Device.StopRecording(ctx)
		})
	default:
		return nil, bridgeerr.New(bridgeerr.CodeInvalidMessage, "ble processor cannot handle this message type")
	}
}

// call runs op under the retry policy and translates its outcome into a
// response frame or a bridgeerr. A nil-error, Success:false Result is a
// business-logic failure reported once, with no retry: the spec
// specifically calls this out for record-start with zero connected
// devices, and it generalizes cleanly to every other device operation.
func (p *Processor) call(ctx context.Context, msg *wire.Message, replyType wire.MessageType, op func() (ports.Result, error)) (*wire.Message, error) {
	var result ports.Result
	err := withRetry(ctx, p.Retry, func() error {
		var callErr error
		result, callErr = op()
		return callErr
	})
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.CodeDeviceUnavailable, "device port failed", err)
	}
	if !result.Success {
		return nil, bridgeerr.New(bridgeerr.CodeDeviceUnavailable, result.Message)
	}

	fields := map[string]interface{}{"message": result.Message}
	for k, v := range result.Payload {
		fields[k] = v
	}
	return &wire.Message{
		Type:      replyType,
		RequestID: msg.RequestID,
		Timestamp: nowStamp(),
		Fields:    fields,
	}, nil
}
