package streaming

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		RateLimitEnabled:  true,
		MessagesPerSecond: 5,
		QueueCap:          4,
		DropOldMessages:   true,
		DropTTL:           100 * time.Millisecond,
		RequeueFreshness:  50 * time.Millisecond,
		BatchSize:         10,
		BatchInterval:     5 * time.Millisecond,
		CleanupInterval:   20 * time.Millisecond,
		IdleLimiterTTL:    50 * time.Millisecond,
	}
}

func TestSendUnreliableDeliversWhenUnderLimit(t *testing.T) {
	var delivered int32
	tr := New(testConfig(), func(sessionID string, frame []byte) error {
		atomic.AddInt32(&delivered, 1)
		return nil
	}, nil)

	tr.SendUnreliable("s1", []byte("x"))

	if atomic.LoadInt32(&delivered) != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}
	if tr.SnapshotStats().Sent != 1 {
		t.Fatalf("Sent = %d, want 1", tr.SnapshotStats().Sent)
	}
}

func TestSendUnreliableRateLimitsBurst(t *testing.T) {
	var delivered int32
	tr := New(testConfig(), func(sessionID string, frame []byte) error {
		atomic.AddInt32(&delivered, 1)
		return nil
	}, nil)

	for i := 0; i < 20; i++ {
		tr.SendUnreliable("s1", []byte("x"))
	}

	stats := tr.SnapshotStats()
	if stats.RateLimited == 0 {
		t.Fatal("expected at least one rate-limited drop for a burst of 20 over a limit of 5")
	}
}

func TestSendUnreliableShedsWhenShedFuncReturnsTrue(t *testing.T) {
	var delivered int32
	tr := New(testConfig(), func(sessionID string, frame []byte) error {
		atomic.AddInt32(&delivered, 1)
		return nil
	}, func(frame []byte) bool { return true })

	tr.SendUnreliable("s1", []byte("x"))

	if atomic.LoadInt32(&delivered) != 0 {
		t.Fatal("expected shed frame to never reach send")
	}
	if tr.SnapshotStats().Shed != 1 {
		t.Fatalf("Shed = %d, want 1", tr.SnapshotStats().Shed)
	}
}

func TestSendUnreliableQueuesOnWriteFailureAndProcessingLoopRetries(t *testing.T) {
	var mu sync.Mutex
	fail := true
	var delivered int

	tr := New(testConfig(), func(sessionID string, frame []byte) error {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return errors.New("write failed")
		}
		delivered++
		return nil
	}, nil)

	tr.SendUnreliable("s1", []byte("x"))
	if tr.QueueDepth() != 1 {
		t.Fatalf("QueueDepth after failed send = %d, want 1", tr.QueueDepth())
	}

	mu.Lock()
	fail = false
	mu.Unlock()

	stop := make(chan struct{})
	go tr.RunProcessingLoop(stop)
	defer close(stop)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		d := delivered
		mu.Unlock()
		if d > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("processing loop never delivered the queued message")
}

func TestBroadcastUnreliableSendsToAllSessions(t *testing.T) {
	var mu sync.Mutex
	delivered := make(map[string]bool)

	tr := New(testConfig(), func(sessionID string, frame []byte) error {
		mu.Lock()
		delivered[sessionID] = true
		mu.Unlock()
		return nil
	}, nil)

	tr.BroadcastUnreliable([]string{"s1", "s2", "s3"}, []byte("x"))

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 3 {
		t.Fatalf("delivered to %d sessions, want 3", len(delivered))
	}
}
