package connmgr

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/bridge/internal/logging"
	"github.com/muurk/bridge/internal/session"
)

// MessageHandler is invoked once per inbound frame, tagged with its
// originating session.
type MessageHandler func(sessionID string, frame []byte)

// HealthChangeHandler is invoked whenever system health is recomputed.
type HealthChangeHandler func(SystemHealth)

// ClientListChangeHandler is invoked whenever the client registry
// mutates, with the full current snapshot.
type ClientListChangeHandler func([]ClientEntry)

// NewClientHandler is invoked ~100ms after a session is accepted, giving
// the caller a chance to push a full-state snapshot as that session's
// first message.
type NewClientHandler func(sessionID string)

// SessionClosedHandler is invoked with a session's id as soon as it
// closes, before the session is removed from the registry, so that
// other owners of per-session state (the reliable-transport
// pending-request table, in particular) can reject or release their own
// bookkeeping for it first.
type SessionClosedHandler func(sessionID string)

// Manager owns the session registry and the client metadata registry,
// and derives per-session and system health from them.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	clients  map[string]ClientInfo

	onMessage              MessageHandler
	onHealthChange         HealthChangeHandler
	onClientListChange     ClientListChangeHandler
	onNewClientConnect     NewClientHandler
	onSessionClosedHandler SessionClosedHandler

	startedAt      time.Time
	listenerState  string
	throughput     *throughputMeter

	newClientDelay time.Duration
}

// New returns an empty Manager. Register handlers with the On* methods
// before wiring it to a listener.
func New() *Manager {
	return &Manager{
		sessions:       make(map[string]*session.Session),
		clients:        make(map[string]ClientInfo),
		startedAt:      time.Now(),
		listenerState:  "starting",
		throughput:     newThroughputMeter(),
		newClientDelay: 100 * time.Millisecond,
	}
}

func (m *Manager) OnMessage(h MessageHandler)                   { m.onMessage = h }
func (m *Manager) OnHealthChange(h HealthChangeHandler)         { m.onHealthChange = h }
func (m *Manager) OnClientListChange(h ClientListChangeHandler) { m.onClientListChange = h }
func (m *Manager) OnNewClientConnect(h NewClientHandler)        { m.onNewClientConnect = h }

// OnSessionClosed registers a hook invoked with a session's id before it
// is removed from the registry, so that owners of other per-session
// state (e.g. the reliable-transport pending-request table) can drop
// their own entries for it.
func (m *Manager) OnSessionClosed(h SessionClosedHandler) { m.onSessionClosedHandler = h }

// SetListenerState records the listener's coarse lifecycle state
// ("starting", "listening", "stopped") for system-health reporting.
func (m *Manager) SetListenerState(state string) {
	m.mu.Lock()
	m.listenerState = state
	m.mu.Unlock()
}

// Accept registers a newly accepted session, wiring it into the registry
// and scheduling the new-client callback. It is meant to be used as a
// session.AcceptHandler.
func (m *Manager) Accept(sess *session.Session) {
	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	sess.SetHandler(func(sessionID string, frame []byte) {
		m.throughput.recordMessage()
		if m.onMessage != nil {
			m.onMessage(sessionID, frame)
		}
	})
	sess.AddCloseHook(m.onSessionClosed)

	logging.LogSessionEvent(sess.ID, "registered with connection manager")
	m.emitHealthChange()

	go func(id string) {
		time.Sleep(m.newClientDelay)
		if m.onNewClientConnect != nil {
			m.onNewClientConnect(id)
		}
	}(sess.ID)
}

func (m *Manager) onSessionClosed(sessionID string) {
	// Reject the session's outstanding pending requests before it is
	// removed from the registry, per the session-close ordering the
	// specification requires.
	if m.onSessionClosedHandler != nil {
		m.onSessionClosedHandler(sessionID)
	}

	m.mu.Lock()
	delete(m.sessions, sessionID)
	_, hadClient := m.clients[sessionID]
	delete(m.clients, sessionID)
	m.mu.Unlock()

	m.emitHealthChange()
	if hadClient {
		m.emitClientListChange()
	}
}

// Session returns the live session for id, if any.
func (m *Manager) Session(id string) (*session.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Broadcast sends frame to every currently registered session, skipping
// (and logging) any whose send queue is full rather than blocking.
func (m *Manager) Broadcast(frame []byte) {
	m.mu.RLock()
	targets := make([]*session.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		targets = append(targets, s)
	}
	m.mu.RUnlock()

	for _, s := range targets {
		if err := s.Send(frame); err != nil {
			logging.Debug("broadcast send skipped", zap.String("session_id", s.ID), zap.Error(err))
		}
	}
}

// SessionIDs returns the ids of every currently registered session,
// independent of whether it has declared client metadata. Used to target
// streaming broadcasts, which go to every connected session rather than
// only those that registered as a named client.
func (m *Manager) SessionIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// SessionCount returns the number of currently registered sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RecordError tallies one error against the system error-rate meter.
func (m *Manager) RecordError() {
	m.throughput.recordError()
}

// SetClientInfo registers or updates a session's declared metadata and
// broadcasts the updated client list.
func (m *Manager) SetClientInfo(sessionID string, info ClientInfo) {
	m.mu.Lock()
	m.clients[sessionID] = info
	m.mu.Unlock()

	m.emitClientListChange()
}

// ClientInfo returns the declared metadata for sessionID, if registered.
func (m *Manager) ClientInfo(sessionID string) (ClientInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.clients[sessionID]
	return info, ok
}

// ClientList returns a snapshot of every registered client.
func (m *Manager) ClientList() []ClientEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ClientEntry, 0, len(m.clients))
	for id, info := range m.clients {
		out = append(out, ClientEntry{SessionID: id, Info: info})
	}
	return out
}

// SessionHealthOf returns the per-session health snapshot for id.
func (m *Manager) SessionHealthOf(id string) (SessionHealth, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return SessionHealth{}, false
	}

	stats := s.SnapshotStats()
	return SessionHealth{
		SessionID: id,
		Connected: s.State() == session.StateActive,
		LastSeen:  stats.LastSeen,
		Sent:      stats.Sent,
		Received:  stats.Received,
		Errors:    stats.Errors,
		Latency:   stats.Latency,
	}, true
}

// SystemHealthSnapshot computes the current system health observable.
func (m *Manager) SystemHealthSnapshot() SystemHealth {
	m.mu.RLock()
	state := m.listenerState
	active := len(m.sessions)
	m.mu.RUnlock()

	msgPerSec, errPerSec := m.throughput.snapshot()
	errRate := 0.0
	if msgPerSec > 0 {
		errRate = errPerSec / msgPerSec
	}

	return SystemHealth{
		ListenerState:  state,
		Uptime:         time.Since(m.startedAt),
		ActiveSessions: active,
		Throughput:     msgPerSec,
		ErrorRate:      errRate,
	}
}

func (m *Manager) emitHealthChange() {
	if m.onHealthChange != nil {
		m.onHealthChange(m.SystemHealthSnapshot())
	}
}

func (m *Manager) emitClientListChange() {
	if m.onClientListChange != nil {
		m.onClientListChange(m.ClientList())
	}
}
