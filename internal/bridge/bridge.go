package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/bridge/internal/bridgeerr"
	"github.com/muurk/bridge/internal/config"
	"github.com/muurk/bridge/internal/connmgr"
	"github.com/muurk/bridge/internal/domain/ble"
	"github.com/muurk/bridge/internal/domain/clientmeta"
	"github.com/muurk/bridge/internal/domain/streamingdomain"
	"github.com/muurk/bridge/internal/domain/system"
	"github.com/muurk/bridge/internal/logging"
	"github.com/muurk/bridge/internal/overload"
	"github.com/muurk/bridge/internal/ports"
	"github.com/muurk/bridge/internal/reliable"
	"github.com/muurk/bridge/internal/router"
	"github.com/muurk/bridge/internal/session"
	"github.com/muurk/bridge/internal/streaming"
	"github.com/muurk/bridge/internal/validate"
	"github.com/muurk/bridge/internal/wire"
)

// Bridge owns every long-lived component and the background loops that
// drive them. It is the single process entry point cmd/bridge-server
// constructs and runs.
type Bridge struct {
	cfg *config.Config

	manager  *connmgr.Manager
	listener *session.Listener
	router   *router.Router
	reliable *reliable.Transport
	streams  *streaming.Transport
	overload *overload.Supervisor

	broadcaster *streamingdomain.Broadcaster
	device      ports.Device

	stop chan struct{}
}

// New wires every domain processor, transport, and supervisor against
// the given ports, ready for Start. The listener's port is bound here, in
// New; it does not accept connections until Start is called.
func New(cfg *config.Config, device ports.Device, processing ports.Processing, sys ports.System) (*Bridge, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	mgr := connmgr.New()

	sendToSession := func(sessionID string, frame []byte) error {
		sess, ok := mgr.Session(sessionID)
		if !ok {
			return fmt.Errorf("bridge: session %s is no longer connected", sessionID)
		}
		return sess.Send(frame)
	}

	reliableTransport := reliable.New(reliable.Config{
		Timeout:       cfg.ReliableTimeout,
		MaxRetries:    cfg.ReliableMaxRetries,
		BackoffBase:   cfg.ReliableBackoffBase,
		BackoffCeil:   cfg.ReliableBackoffCeil,
		SweepInterval: cfg.ReliableSweepInterval,
	}, sendToSession)

	// overloadSupervisor is constructed after streamingTransport (it
	// samples the transport's own counters), but streamingTransport needs
	// a ShedFunc up front. The closure defers the nil check to call time,
	// by which point overloadSupervisor is always assigned.
	var overloadSupervisor *overload.Supervisor
	shed := func(frame []byte) bool {
		if overloadSupervisor == nil {
			return false
		}
		return overloadSupervisor.Shed(frame)
	}

	streamingTransport := streaming.New(streaming.Config{
		RateLimitEnabled:  cfg.StreamingRateLimitEnabled,
		MessagesPerSecond: cfg.StreamingMessagesPerSecond,
		QueueCap:          cfg.StreamingQueueCap,
		DropOldMessages:   cfg.StreamingDropOldMessages,
	}, sendToSession, shed)

	var lastSent uint64
	throughputFn := func() uint64 {
		sent := streamingTransport.SnapshotStats().Sent
		delta := sent - lastSent
		lastSent = sent
		return delta
	}

	overloadSupervisor = overload.New(
		overload.Config{
			SampleInterval:  time.Second,
			WindowCount:     10,
			ThroughputLimit: cfg.OverloadThreshold,
			DropFraction:    float64(cfg.OverloadDropPercent) / 100,
			Cooldown:        cfg.OverloadCooldown,
		},
		cfg.StreamingQueueCap,
		throughputFn,
		streamingTransport.QueueDepth,
		func(msg *wire.Message) {
			frame, err := wire.Encode(msg)
			if err != nil {
				logging.Error("failed to encode overload notification", zap.Error(err))
				return
			}
			mgr.Broadcast(frame)
		},
	)

	rt := router.New(cfg.ReliableTimeout)
	systemProcessor := system.New(sys, mgr.SessionCount, connectedDeviceCounter(device))
	systemProcessor.ErrorCounts = errorCountsCollector(rt, reliableTransport, streamingTransport)
	rt.Register(systemProcessor)
	rt.Register(ble.New(device))
	rt.Register(streamingdomain.New(device))
	rt.Register(clientmeta.New(mgr))

	broadcaster := streamingdomain.NewBroadcaster(processing, streamingTransport, mgr.SessionIDs)

	b := &Bridge{
		cfg:         cfg,
		manager:     mgr,
		router:      rt,
		reliable:    reliableTransport,
		streams:     streamingTransport,
		overload:    overloadSupervisor,
		broadcaster: broadcaster,
		device:      device,
		stop:        make(chan struct{}),
	}

	mgr.OnMessage(b.handleMessage)
	mgr.OnNewClientConnect(b.sendStateSnapshot)
	mgr.OnClientListChange(b.broadcastClientList)
	mgr.OnSessionClosed(reliableTransport.DropSession)

	listener, err := session.NewListener(session.ListenerConfig{
		Port:           cfg.Port,
		PortScanBase:   cfg.PortScanBase,
		PortScanSpan:   cfg.PortScanSpan,
		MaxConnections: cfg.MaxConnections,
		Session: session.Config{
			HeartbeatInterval: cfg.HeartbeatInterval,
			ConnectionTimeout: cfg.ConnectionTimeout,
		},
	}, mgr.Accept, func(remoteAddr string) {
		logging.Warn("connection refused over session limit", zap.String("remote_addr", remoteAddr))
	})
	if err != nil {
		return nil, fmt.Errorf("bridge: failed to construct listener: %w", err)
	}
	b.listener = listener
	mgr.SetListenerState("starting")

	return b, nil
}

// connectedDeviceCounter adapts ports.Device.GetConnectedDevices to the
// system domain's zero-argument ConnectedDevicesFunc, treating a failed
// lookup as zero rather than propagating the error into a status
// response that has no good place to put it.
func connectedDeviceCounter(device ports.Device) system.ConnectedDevicesFunc {
	return func() int {
		devices, err := device.GetConnectedDevices(context.Background())
		if err != nil {
			return 0
		}
		return len(devices)
	}
}

// errorCountsCollector adapts the router's, reliable-transport's, and
// streaming-transport's independent counters into the single per-error-
// class map the status response surfaces, per spec §7.
func errorCountsCollector(rt *router.Router, rel *reliable.Transport, str *streaming.Transport) system.ErrorCountsFunc {
	return func() map[string]uint64 {
		routerStats := rt.SnapshotStats()
		reliableStats := rel.SnapshotStats()
		streamingStats := str.SnapshotStats()

		return map[string]uint64{
			string(bridgeerr.CodeInvalidMessage): routerStats.TotalErrors,
			string(bridgeerr.CodeTimeout):        reliableStats.Expired,
			string(bridgeerr.CodeSessionClosed):  reliableStats.Rejected,
			"duplicatesSuppressed":               reliableStats.Duplicates,
			"streamingRateLimited":                streamingStats.RateLimited,
			"streamingDroppedStale":                streamingStats.DroppedStale,
			"streamingDroppedOverflow":             streamingStats.DroppedOverflow,
			"streamingShed":                        streamingStats.Shed,
		}
	}
}

// BoundPort returns the port the listener actually bound, valid only
// after New has returned successfully.
func (b *Bridge) BoundPort() int {
	return b.listener.BoundPort
}

// SessionCount returns the number of sessions currently registered with
// the connection manager.
func (b *Bridge) SessionCount() int {
	return b.manager.SessionCount()
}

// Start begins serving on the listener bound by New. It blocks until Shutdown
// stops it, returning nil on a clean shutdown.
func (b *Bridge) Start() error {
	b.manager.SetListenerState("listening")

	go b.reliable.RunSweepLoop(contextFromStop(b.stop))
	go b.streams.RunProcessingLoop(b.stop)
	go b.streams.RunCleanupLoop(b.stop)
	go b.overload.Run(b.stop)
	b.broadcaster.Start()

	logging.Info("bridge starting", zap.Int("port", b.listener.BoundPort))

	err := b.listener.Start()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting new connections and halts every background
// loop, waiting up to ctx's deadline for the listener to drain.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.manager.SetListenerState("stopped")
	close(b.stop)
	b.broadcaster.Stop()
	return b.listener.Shutdown(ctx)
}

// handleMessage is the connection manager's MessageHandler: it decodes,
// validates, and either resolves a pending reliable request, absorbs a
// duplicate, or routes the message to its domain processor.
func (b *Bridge) handleMessage(sessionID string, frame []byte) {
	msg, err := wire.Decode(frame)
	if err != nil {
		b.sendError(sessionID, 0, err)
		return
	}

	if b.reliable.HandleResponse(sessionID, msg) {
		return
	}

	if err := validate.Validate(msg); err != nil {
		b.sendError(sessionID, msg.RequestID, err)
		return
	}

	if b.reliable.IsDuplicate(sessionID, msg.RequestID, msg.Type) {
		return
	}

	resp := b.router.Route(context.Background(), msg, sessionID)
	if resp == nil {
		return
	}

	frameOut, err := wire.Encode(resp)
	if err != nil {
		logging.Error("failed to encode router response", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	if sess, ok := b.manager.Session(sessionID); ok {
		if err := sess.Send(frameOut); err != nil {
			logging.Debug("failed to deliver router response", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
}

func (b *Bridge) sendError(sessionID string, requestID uint32, cause error) {
	msg := &wire.Message{
		Type:      wire.MsgError,
		RequestID: requestID,
		Timestamp: float64(time.Now().UnixMilli()),
		Fields: map[string]interface{}{
			"code":    "INVALID_MESSAGE",
			"message": cause.Error(),
		},
	}
	frame, err := wire.Encode(msg)
	if err != nil {
		return
	}
	if sess, ok := b.manager.Session(sessionID); ok {
		_ = sess.Send(frame)
	}
}

// sendStateSnapshot pushes a full state.update as a newly-connected
// session's first message, so it never has to poll for the current
// device and client state.
func (b *Bridge) sendStateSnapshot(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	devices, err := b.device.GetAllDevices(ctx)
	if err != nil {
		logging.Warn("failed to gather devices for state snapshot", zap.String("session_id", sessionID), zap.Error(err))
		devices = nil
	}

	deviceFields := make([]map[string]interface{}, 0, len(devices))
	for _, d := range devices {
		deviceFields = append(deviceFields, map[string]interface{}{
			"id":           d.ID,
			"name":         d.Name,
			"batteryLevel": d.BatteryLevel,
			"connected":    d.Connected,
		})
	}

	msg := &wire.Message{
		Type:      wire.MsgStateUpdate,
		Timestamp: float64(time.Now().UnixMilli()),
		Fields: map[string]interface{}{
			"devices": deviceFields,
			"clients": clientListFields(b.manager.ClientList()),
		},
	}
	frame, err := wire.Encode(msg)
	if err != nil {
		logging.Error("failed to encode state snapshot", zap.Error(err))
		return
	}
	if sess, ok := b.manager.Session(sessionID); ok {
		_ = sess.Send(frame)
	}
}

func (b *Bridge) broadcastClientList(entries []connmgr.ClientEntry) {
	msg := &wire.Message{
		Type:      wire.MsgClientListUpdate,
		Timestamp: float64(time.Now().UnixMilli()),
		Fields: map[string]interface{}{
			"clients": clientListFields(entries),
		},
	}
	frame, err := wire.Encode(msg)
	if err != nil {
		logging.Error("failed to encode client-list update", zap.Error(err))
		return
	}
	b.manager.Broadcast(frame)
}

func clientListFields(entries []connmgr.ClientEntry) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		actions := make([]map[string]interface{}, 0, len(e.Info.Actions))
		for _, a := range e.Info.Actions {
			actions = append(actions, map[string]interface{}{"id": a.ID, "name": a.Name})
		}
		out = append(out, map[string]interface{}{
			"sessionId":    e.SessionID,
			"name":         e.Info.Name,
			"role":         string(e.Info.Role),
			"capabilities": e.Info.Capabilities,
			"actions":      actions,
		})
	}
	return out
}

func contextFromStop(stop <-chan struct{}) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-stop
		cancel()
	}()
	return ctx
}
