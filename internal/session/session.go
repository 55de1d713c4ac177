package session

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/bridge/internal/logging"
)

// ErrSessionClosed is returned by Send when the session has already
// transitioned to draining or closed.
var ErrSessionClosed = errors.New("session: closed")

// Handler is invoked once per inbound binary frame.
type Handler func(sessionID string, frame []byte)

// CloseHandler is invoked exactly once, after the session has fully
// drained and released its resources.
type CloseHandler func(sessionID string)

// Stats is a point-in-time snapshot of a session's traffic counters.
type Stats struct {
	Sent     uint64
	Received uint64
	Errors   uint64
	LastSeen time.Time
	Latency  time.Duration
}

// Config bounds a session's I/O behavior.
type Config struct {
	HeartbeatInterval time.Duration
	ConnectionTimeout time.Duration
	SendQueueCap      int
}

// Session wraps one accepted WebSocket connection: a reader goroutine
// that reads raw binary frames and hands them to Handler, and a writer goroutine
// that serializes all outbound frames through a single queue.
type Session struct {
	ID   string
	conn *websocket.Conn
	cfg  Config

	onMessage Handler
	onClose   []CloseHandler

	send chan []byte
	done chan struct{}

	mu        sync.Mutex
	state     State
	lastSeen  time.Time
	lastPing  time.Time
	latency   time.Duration

	sent, recv, errs uint64

	closeOnce sync.Once
}

// New wraps conn as a Session in the accepting state. Call Run to start
// its reader/writer goroutines.
func New(id string, conn *websocket.Conn, cfg Config, onMessage Handler, onClose CloseHandler) *Session {
	if cfg.SendQueueCap <= 0 {
		cfg.SendQueueCap = 256
	}
	s := &Session{
		ID:        id,
		conn:      conn,
		cfg:       cfg,
		onMessage: onMessage,
		send:      make(chan []byte, cfg.SendQueueCap),
		done:      make(chan struct{}),
		state:     StateAccepting,
		lastSeen:  time.Now(),
	}
	if onClose != nil {
		s.onClose = append(s.onClose, onClose)
	}
	return s
}

// AddCloseHook registers an additional callback to run when the session
// closes. Hooks run in registration order after the built-in cleanup.
// Must be called before Run (typically from the listener's AcceptHandler).
func (s *Session) AddCloseHook(fn CloseHandler) {
	s.onClose = append(s.onClose, fn)
}

// Run transitions the session to active and blocks until it closes,
// running the reader loop, writer loop, and heartbeat ticker
// concurrently. Run returns once all three have stopped.
func (s *Session) Run() {
	s.transition(StateActive)
	logging.LogSessionEvent(s.ID, "active")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.readLoop()
	}()
	go func() {
		defer wg.Done()
		s.writeLoop()
	}()

	s.heartbeatLoop()
	wg.Wait()
}

func (s *Session) readLoop() {
	defer s.Close("read loop exited")

	s.conn.SetReadLimit(int64(maxReadLimit))
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ConnectionTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.mu.Lock()
		s.lastSeen = time.Now()
		if !s.lastPing.IsZero() {
			s.latency = time.Since(s.lastPing)
		}
		s.mu.Unlock()
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ConnectionTimeout))
		return nil
	})

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.LogSessionEvent(s.ID, "read error: "+err.Error())
			}
			return
		}

		s.mu.Lock()
		s.lastSeen = time.Now()
		s.recv++
		s.mu.Unlock()
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ConnectionTimeout))

		if msgType != websocket.BinaryMessage {
			continue
		}

		logging.LogWebSocketMessage(s.ID, "received", msgType, data)
		if s.onMessage != nil {
			s.onMessage(s.ID, data)
		}
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case frame, ok := <-s.send:
			if !ok {
				_ = s.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				s.mu.Lock()
				s.errs++
				s.mu.Unlock()
				return
			}
			s.mu.Lock()
			s.sent++
			s.mu.Unlock()
			logging.LogWebSocketMessage(s.ID, "sent", websocket.BinaryMessage, frame)

		case <-s.done:
			return
		}
	}
}

func (s *Session) heartbeatLoop() {
	interval := s.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.State() != StateActive {
				return
			}
			if time.Since(s.LastSeen()) > s.cfg.ConnectionTimeout {
				logging.LogSessionEvent(s.ID, "heartbeat timeout")
				s.Close("heartbeat timeout")
				return
			}
			s.mu.Lock()
			s.lastPing = time.Now()
			s.mu.Unlock()
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.Close("ping write failed")
				return
			}
		case <-s.done:
			return
		}
	}
}

// SetHandler replaces the session's inbound-frame handler. It must be
// called before Run, typically from the listener's AcceptHandler.
func (s *Session) SetHandler(h Handler) {
	s.onMessage = h
}

// Send enqueues frame for delivery. It returns ErrSessionClosed if the
// session is draining or closed, and drops the frame (returning an error)
// if the outbound queue is full rather than blocking the caller.
func (s *Session) Send(frame []byte) error {
	if s.State() != StateActive {
		return ErrSessionClosed
	}
	select {
	case s.send <- frame:
		return nil
	default:
		return errors.New("session: send queue full")
	}
}

// Close transitions the session to draining then closed, releasing the
// underlying connection. It is safe to call multiple times and from
// multiple goroutines; only the first call has effect.
func (s *Session) Close(reason string) {
	s.closeOnce.Do(func() {
		s.transition(StateDraining)
		logging.LogSessionEvent(s.ID, "draining: "+reason)

		close(s.done)
		_ = s.conn.Close()

		s.transition(StateClosed)
		logging.LogSessionEvent(s.ID, "closed")

		for _, hook := range s.onClose {
			hook(s.ID)
		}
	})
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if canTransition(s.state, to) {
		s.state = to
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastSeen returns the last time any traffic (data or pong) was observed.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SnapshotStats returns a copy of the session's current counters.
func (s *Session) SnapshotStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Sent:     s.sent,
		Received: s.recv,
		Errors:   s.errs,
		LastSeen: s.lastSeen,
		Latency:  s.latency,
	}
}

const (
	writeWait     = 10 * time.Second
	maxReadLimit  = 1 << 20
)
