package streamingdomain

import (
	"context"

	"github.com/muurk/bridge/internal/bridgeerr"
	"github.com/muurk/bridge/internal/ports"
	"github.com/muurk/bridge/internal/wire"
)

// Processor answers the streaming domain's single request/response
// message: get-devices-state. The rest of the streaming domain's traffic
// (motion-data, device-status, battery-update) is push-driven and handled
// by Broadcaster, not the router.
type Processor struct {
	Device ports.Device
}

// New returns a streaming domain request/response Processor.
func New(device ports.Device) *Processor {
	return &Processor{Device: device}
}

// Domain implements router.Processor.
func (p *Processor) Domain() wire.Domain { return wire.DomainStreaming }

// Process implements router.Processor.
func (p *Processor) Process(ctx context.Context, msg *wire.Message, sessionID string) (*wire.Message, error) {
	if msg.Type != wire.MsgGetDevicesStateRequest {
		return nil, bridgeerr.New(bridgeerr.CodeInvalidMessage, "streaming processor cannot handle this message type")
	}

	devices, err := p.Device.GetAllDevices(ctx)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.CodeDeviceUnavailable, "failed to read device state", err)
	}

	out := make([]map[string]interface{}, 0, len(devices))
	for _, d := range devices {
		out = append(out, map[string]interface{}{
			"id":           d.ID,
			"name":         d.Name,
			"batteryLevel": d.BatteryLevel,
			"connected":    d.Connected,
		})
	}
	return &wire.Message{
		Type:      wire.MsgGetDevicesStateResponse,
		RequestID: msg.RequestID,
		Timestamp: msg.Timestamp,
		Fields:    map[string]interface{}{"devices": out},
	}, nil
}
