package session

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/bridge/internal/logging"
	"github.com/muurk/bridge/internal/portscan"
)

// AcceptHandler is invoked once per accepted session, before Run is
// called on it. It is the caller's chance to register the session with
// the connection manager.
type AcceptHandler func(*Session)

// RefuseHandler is invoked when a connection is refused for being over
// the session limit.
type RefuseHandler func(remoteAddr string)

// ListenerConfig bounds the listener's accept behavior.
type ListenerConfig struct {
	Host           string
	Port           int
	PortScanBase   int
	PortScanSpan   int
	MaxConnections int
	Session        Config
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Listener binds a port (explicit or scanned) and accepts WebSocket
// sessions on it, refusing connections once MaxConnections is reached.
type Listener struct {
	cfg ListenerConfig

	onAccept AcceptHandler
	onRefuse RefuseHandler

	httpServer *http.Server
	netListener net.Listener
	BoundPort  int

	mu        sync.Mutex
	liveCount int
}

// NewListener resolves a port per cfg and wraps it in an http.Server ready
// to serve WebSocket upgrade requests. It does not start accepting until
// Start is called.
func NewListener(cfg ListenerConfig, onAccept AcceptHandler, onRefuse RefuseHandler) (*Listener, error) {
	ln, port, err := portscan.Bind(cfg.Host, cfg.Port, cfg.PortScanBase, cfg.PortScanSpan)
	if err != nil {
		return nil, fmt.Errorf("session: failed to bind listener: %w", err)
	}

	l := &Listener{
		cfg:         cfg,
		onAccept:    onAccept,
		onRefuse:    onRefuse,
		netListener: ln,
		BoundPort:   port,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handleUpgrade)
	l.httpServer = &http.Server{Handler: mux}

	return l, nil
}

// Start begins serving. It blocks until the listener is closed, returning
// http.ErrServerClosed on a clean shutdown.
func (l *Listener) Start() error {
	logging.Info("bridge listener accepting connections", zap.Int("port", l.BoundPort))
	return l.httpServer.Serve(l.netListener)
}

// Shutdown stops accepting new connections, waiting up to the given
// context's deadline for in-flight upgrades to finish.
func (l *Listener) Shutdown(ctx context.Context) error {
	return l.httpServer.Shutdown(ctx)
}

func (l *Listener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr

	l.mu.Lock()
	if l.cfg.MaxConnections > 0 && l.liveCount >= l.cfg.MaxConnections {
		l.mu.Unlock()
		logging.Warn("refusing connection over session limit", zap.String("remote_addr", remoteAddr))
		if l.onRefuse != nil {
			l.onRefuse(remoteAddr)
		}
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	l.liveCount++
	l.mu.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.mu.Lock()
		l.liveCount--
		l.mu.Unlock()
		logging.Error("websocket upgrade failed", zap.String("remote_addr", remoteAddr), zap.Error(err))
		return
	}

	id := NewID()
	sess := New(id, conn, l.cfg.Session, nil, func(sessionID string) {
		l.mu.Lock()
		l.liveCount--
		l.mu.Unlock()
	})

	logging.LogSessionEvent(id, "accepted from "+remoteAddr)
	if l.onAccept != nil {
		l.onAccept(sess)
	}

	go sess.Run()
}

// LiveCount reports the number of sessions currently tracked by the
// listener (accepted but not yet fully closed).
func (l *Listener) LiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.liveCount
}
