package connmgr

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/bridge/internal/session"
)

func newRegisteredSession(t *testing.T, mgr *Manager) (*httptest.Server, *websocket.Conn) {
	t.Helper()

	upgr := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgr.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		cfg := session.Config{HeartbeatInterval: time.Hour, ConnectionTimeout: time.Hour, SendQueueCap: 8}
		s := session.New(session.NewID(), conn, cfg, nil, nil)
		mgr.Accept(s)
		s.Run()
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: unexpected error: %v", err)
	}
	t.Cleanup(func() { clientConn.Close() })

	return srv, clientConn
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestManagerAcceptRegistersSession(t *testing.T) {
	mgr := New()
	_, conn := newRegisteredSession(t, mgr)
	defer conn.Close()

	waitUntil(t, time.Second, func() bool { return mgr.SessionCount() == 1 })
}

func TestManagerOnMessageReceivesFrame(t *testing.T) {
	mgr := New()
	received := make(chan string, 1)
	mgr.OnMessage(func(sessionID string, frame []byte) {
		received <- string(frame)
	})

	_, conn := newRegisteredSession(t, mgr)
	defer conn.Close()

	waitUntil(t, time.Second, func() bool { return mgr.SessionCount() == 1 })

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte("ping")); err != nil {
		t.Fatalf("WriteMessage: unexpected error: %v", err)
	}

	select {
	case got := <-received:
		if got != "ping" {
			t.Fatalf("got %q, want %q", got, "ping")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onMessage was not invoked within timeout")
	}
}

func TestManagerNewClientConnectFiresAfterDelay(t *testing.T) {
	mgr := New()
	mgr.newClientDelay = 10 * time.Millisecond

	fired := make(chan string, 1)
	mgr.OnNewClientConnect(func(sessionID string) { fired <- sessionID })

	_, conn := newRegisteredSession(t, mgr)
	defer conn.Close()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("onNewClientConnect was not invoked within timeout")
	}
}

func TestManagerSessionClosedRemovesFromRegistry(t *testing.T) {
	mgr := New()
	_, conn := newRegisteredSession(t, mgr)

	waitUntil(t, time.Second, func() bool { return mgr.SessionCount() == 1 })

	conn.Close()

	waitUntil(t, 2*time.Second, func() bool { return mgr.SessionCount() == 0 })
}

func TestManagerSessionClosedHookFiresBeforeRemoval(t *testing.T) {
	mgr := New()
	_, conn := newRegisteredSession(t, mgr)

	waitUntil(t, time.Second, func() bool { return mgr.SessionCount() == 1 })

	var sessionID string
	for id := range mgr.sessions {
		sessionID = id
	}

	closed := make(chan string, 1)
	var countAtHook int
	mgr.OnSessionClosed(func(id string) {
		countAtHook = mgr.SessionCount()
		closed <- id
	})

	conn.Close()

	select {
	case id := <-closed:
		if id != sessionID {
			t.Fatalf("OnSessionClosed fired with id %q, want %q", id, sessionID)
		}
		if countAtHook != 1 {
			t.Fatalf("SessionCount at hook time = %d, want 1 (session still registered)", countAtHook)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnSessionClosed was not invoked within timeout")
	}

	waitUntil(t, 2*time.Second, func() bool { return mgr.SessionCount() == 0 })
}

func TestManagerSetClientInfoBroadcastsClientList(t *testing.T) {
	mgr := New()
	updates := make(chan []ClientEntry, 4)
	mgr.OnClientListChange(func(entries []ClientEntry) { updates <- entries })

	_, conn := newRegisteredSession(t, mgr)
	defer conn.Close()

	waitUntil(t, time.Second, func() bool { return mgr.SessionCount() == 1 })

	var sessionID string
	for id := range mgr.sessions {
		sessionID = id
	}

	mgr.SetClientInfo(sessionID, ClientInfo{Name: "dashboard", Role: RoleMonitor})

	select {
	case entries := <-updates:
		if len(entries) != 1 || entries[0].Info.Name != "dashboard" {
			t.Fatalf("got %+v, want one entry named dashboard", entries)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onClientListChange was not invoked within timeout")
	}
}

func TestManagerSystemHealthSnapshotReflectsActiveSessions(t *testing.T) {
	mgr := New()
	_, conn := newRegisteredSession(t, mgr)
	defer conn.Close()

	waitUntil(t, time.Second, func() bool { return mgr.SessionCount() == 1 })

	health := mgr.SystemHealthSnapshot()
	if health.ActiveSessions != 1 {
		t.Fatalf("ActiveSessions = %d, want 1", health.ActiveSessions)
	}
}
