package system

import (
	"context"
	"time"

	"github.com/muurk/bridge/internal/bridgeerr"
	"github.com/muurk/bridge/internal/ports"
	"github.com/muurk/bridge/internal/wire"
)

// ActiveSessionsFunc reports the current session count for a status
// response. ConnectedDevicesFunc reports the current connected-device
// count. Both are optional; a nil func reports zero.
type ActiveSessionsFunc func() int
type ConnectedDevicesFunc func() int

// ErrorCountsFunc reports the bridge's per-error-class counters (spec
// §7: "maintain counters per error class and make them available via
// status"), keyed by the bridgeerr.Code string where a counter maps to a
// code and by a descriptive name (e.g. "duplicatesSuppressed") where it
// does not. Optional; a nil func omits the field from the status response.
type ErrorCountsFunc func() map[string]uint64

// Processor handles heartbeat, status, ping, and ack messages. System is
// optional: when nil, status responses fall back to the counts supplied
// by ActiveSessions/ConnectedDevices and to uptime measured from
// StartedAt. ErrorCounts
// is set after construction (it is usually wired once the router and
// transports it reports on already exist).
type Processor struct {
	System           ports.System
	StartedAt        time.Time
	ActiveSessions   ActiveSessionsFunc
	ConnectedDevices ConnectedDevicesFunc
	ErrorCounts      ErrorCountsFunc
}

// New returns a system domain Processor whose uptime is measured from now.
func New(sys ports.System, activeSessions ActiveSessionsFunc, connectedDevices ConnectedDevicesFunc) *Processor {
	return &Processor{
		System:           sys,
		StartedAt:        time.Now(),
		ActiveSessions:   activeSessions,
		ConnectedDevices: connectedDevices,
	}
}

// Domain implements router.Processor.
func (p *Processor) Domain() wire.Domain { return wire.DomainSystem }

// Process implements router.Processor. Every system message is handled
// with no retries, per the specification.
func (p *Processor) Process(ctx context.Context, msg *wire.Message, sessionID string) (*wire.Message, error) {
	switch msg.Type {
	case wire.MsgHeartbeat:
		return p.echo(msg, wire.MsgHeartbeat), nil
	case wire.MsgPing:
		return p.echo(msg, wire.MsgPong), nil
	case wire.MsgAck:
		return p.echo(msg, wire.MsgAck), nil
	case wire.MsgStatusRequest:
		return p.status(ctx, msg)
	default:
		return nil, bridgeerr.New(bridgeerr.CodeInvalidMessage, "system processor cannot handle this message type")
	}
}

func (p *Processor) echo(msg *wire.Message, replyType wire.MessageType) *wire.Message {
	return &wire.Message{
		Type:      replyType,
		RequestID: msg.RequestID,
		Timestamp: nowStamp(),
		Fields:    msg.Fields,
	}
}

func (p *Processor) status(ctx context.Context, msg *wire.Message) (*wire.Message, error) {
	status := ports.SystemStatus{
		Uptime: time.Since(p.StartedAt),
	}
	if p.ActiveSessions != nil {
		status.ActiveSessions = p.ActiveSessions()
	}
	if p.ConnectedDevices != nil {
		status.ConnectedDevices = p.ConnectedDevices()
	}

	if p.System != nil {
		fromPort, err := p.System.GetSystemStatus(ctx)
		if err != nil {
			return nil, bridgeerr.Wrap(bridgeerr.CodeDeviceUnavailable, "system status port failed", err)
		}
		status = fromPort
	}

	fields := map[string]interface{}{
		"uptimeSeconds":    status.Uptime.Seconds(),
		"activeSessions":   status.ActiveSessions,
		"connectedDevices": status.ConnectedDevices,
	}
	if p.ErrorCounts != nil {
		fields["errorCounts"] = p.ErrorCounts()
	}

	return &wire.Message{
		Type:      wire.MsgStatusResponse,
		RequestID: msg.RequestID,
		Timestamp: nowStamp(),
		Fields:    fields,
	}, nil
}

func nowStamp() float64 {
	return float64(time.Now().UnixMilli())
}
