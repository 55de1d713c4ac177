package reliable

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muurk/bridge/internal/bridgeerr"
	"github.com/muurk/bridge/internal/wire"
)

func testConfig() Config {
	return Config{
		Timeout:       50 * time.Millisecond,
		MaxRetries:    2,
		BackoffBase:   5 * time.Millisecond,
		BackoffCeil:   20 * time.Millisecond,
		SweepInterval: 20 * time.Millisecond,
	}
}

func TestNextRequestIDIsMonotonePerSession(t *testing.T) {
	tr := New(testConfig(), func(string, []byte) error { return nil })

	a1 := tr.NextRequestID("s1")
	a2 := tr.NextRequestID("s1")
	b1 := tr.NextRequestID("s2")

	if a2 != a1+1 {
		t.Fatalf("expected monotone increment, got %d then %d", a1, a2)
	}
	if b1 != 1 {
		t.Fatalf("expected session s2 to start at 1, got %d", b1)
	}
}

func TestSendReliableResolvesOnMatchingResponse(t *testing.T) {
	var sent []byte
	var mu sync.Mutex
	tr := New(testConfig(), func(sessionID string, frame []byte) error {
		mu.Lock()
		sent = frame
		mu.Unlock()
		return nil
	})

	go func() {
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		frame := sent
		mu.Unlock()
		if frame == nil {
			return
		}
		req, err := wire.Decode(frame)
		if err != nil {
			return
		}
		resp := &wire.Message{Type: wire.MsgBLEConnectResponse, RequestID: req.RequestID, Timestamp: 1}
		tr.HandleResponse("s1", resp)
	}()

	msg := &wire.Message{Type: wire.MsgBLEConnectRequest, Timestamp: 1}
	resp, err := tr.SendReliable(context.Background(), "s1", msg)
	if err != nil {
		t.Fatalf("SendReliable: unexpected error: %v", err)
	}
	if resp.Type != wire.MsgBLEConnectResponse {
		t.Fatalf("resp.Type = %v, want MsgBLEConnectResponse", resp.Type)
	}
}

func TestSendReliableRetriesOnTimeout(t *testing.T) {
	var attempts int32
	tr := New(testConfig(), func(sessionID string, frame []byte) error {
		atomic.AddInt32(&attempts, 1)
		return nil
	})

	msg := &wire.Message{Type: wire.MsgBLEConnectRequest, Timestamp: 1}
	_, err := tr.SendReliable(context.Background(), "s1", msg)
	if err == nil {
		t.Fatal("SendReliable: expected error when no response ever arrives")
	}

	code, ok := bridgeerr.CodeOf(err)
	if !ok || code != bridgeerr.CodeTimeout {
		t.Fatalf("expected CodeTimeout, got code=%v ok=%v", code, ok)
	}

	got := atomic.LoadInt32(&attempts)
	if got != int32(testConfig().MaxRetries+1) {
		t.Fatalf("attempts = %d, want %d (maxRetries+1)", got, testConfig().MaxRetries+1)
	}
}

func TestSendReliableFailsFastOnSendError(t *testing.T) {
	tr := New(testConfig(), func(sessionID string, frame []byte) error {
		return errors.New("boom")
	})

	msg := &wire.Message{Type: wire.MsgBLEConnectRequest, Timestamp: 1}
	_, err := tr.SendReliable(context.Background(), "s1", msg)
	if err == nil {
		t.Fatal("SendReliable: expected error when send fails")
	}
}

func TestDropSessionRejectsPendingEntries(t *testing.T) {
	tr := New(testConfig(), func(string, []byte) error { return nil })

	resultCh := make(chan error, 1)
	go func() {
		msg := &wire.Message{Type: wire.MsgBLEConnectRequest, Timestamp: 1}
		_, err := tr.SendReliable(context.Background(), "s1", msg)
		resultCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	tr.DropSession("s1")

	select {
	case err := <-resultCh:
		if err == nil {
			t.Fatal("expected error after DropSession, got nil")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SendReliable did not return after DropSession")
	}
}

func TestIsDuplicateDetectsRepeatedRequest(t *testing.T) {
	tr := New(testConfig(), func(string, []byte) error { return nil })

	if tr.IsDuplicate("s1", 5, wire.MsgRecordStartRequest) {
		t.Fatal("IsDuplicate: expected false on first observation")
	}
	if !tr.IsDuplicate("s1", 5, wire.MsgRecordStartRequest) {
		t.Fatal("IsDuplicate: expected true on repeated observation")
	}

	stats := tr.SnapshotStats()
	if stats.Duplicates != 1 {
		t.Fatalf("stats.Duplicates = %d, want 1", stats.Duplicates)
	}
}

func TestSweepExpiresStaleEntries(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 5 * time.Millisecond
	cfg.MaxRetries = 0
	tr := New(cfg, func(string, []byte) error { return nil })

	// Manually register a pending entry far enough in the past to be
	// swept, bypassing SendReliable's own blocking wait.
	key := pendingKey{sessionID: "s1", requestID: 1}
	tr.pending[key] = &pendingEntry{
		createdAt:  time.Now().Add(-time.Hour),
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		resultCh:   make(chan *wire.Message, 1),
	}

	tr.Sweep()

	if _, ok := tr.pending[key]; ok {
		t.Fatal("Sweep: expected stale entry to be removed")
	}
	if tr.SnapshotStats().Expired != 1 {
		t.Fatalf("Expired = %d, want 1", tr.SnapshotStats().Expired)
	}
}
