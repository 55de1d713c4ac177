package overload

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muurk/bridge/internal/wire"
)

func TestSampleTransitionsToOverloadedAboveThreshold(t *testing.T) {
	var throughput uint64 = 5000
	var notified int32

	s := New(Config{ThroughputLimit: 1000, DropFraction: 0.5, Cooldown: time.Hour},
		0,
		func() uint64 { return throughput },
		func() int { return 0 },
		func(msg *wire.Message) { atomic.AddInt32(&notified, 1) },
	)

	s.sample()

	if s.State() != StateOverloaded {
		t.Fatalf("State() = %v, want overloaded", s.State())
	}
	if atomic.LoadInt32(&notified) != 1 {
		t.Fatalf("notified %d times on entry, want exactly 1", notified)
	}
}

func TestSampleStaysNormalBelowThreshold(t *testing.T) {
	s := New(Config{ThroughputLimit: 1000}, 0, func() uint64 { return 10 }, func() int { return 0 }, nil)

	s.sample()

	if s.State() != StateNormal {
		t.Fatalf("State() = %v, want normal", s.State())
	}
	if s.DropRatio() != 0 {
		t.Fatalf("DropRatio() = %v, want 0 while normal", s.DropRatio())
	}
}

func TestNotifyRespectsCooldown(t *testing.T) {
	var throughput uint64 = 5000
	var mu sync.Mutex
	var count int

	s := New(Config{ThroughputLimit: 1000, Cooldown: time.Hour}, 0,
		func() uint64 { return throughput }, func() int { return 0 },
		func(msg *wire.Message) {
			mu.Lock()
			count++
			mu.Unlock()
		})

	s.sample()
	s.sample()
	s.sample()

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("notified %d times across 3 samples within the cooldown, want exactly 1", count)
	}
}

func TestQueueDepthAboveHalfCapTriggersOverload(t *testing.T) {
	s := New(Config{ThroughputLimit: 1000000}, 100, func() uint64 { return 0 }, func() int { return 60 }, nil)

	s.sample()

	if s.State() != StateOverloaded {
		t.Fatalf("State() = %v, want overloaded when queue depth exceeds half the cap", s.State())
	}
}

func TestShedNeverDropsCriticalMessagesWhileOverloaded(t *testing.T) {
	s := New(Config{ThroughputLimit: 1, DropFraction: 1.0}, 0, func() uint64 { return 1000 }, func() int { return 0 }, nil)
	s.sample()

	frame, err := wire.Encode(&wire.Message{Type: wire.MsgDeviceStatus, Timestamp: 1, Fields: map[string]interface{}{}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if s.Shed(frame) {
		t.Fatal("Shed dropped a critical device-status message")
	}
}

func TestShedDropsNonCriticalMessagesAtFullDropRatio(t *testing.T) {
	s := New(Config{ThroughputLimit: 1, DropFraction: 1.0}, 0, func() uint64 { return 1000 }, func() int { return 0 }, nil)
	s.sample()

	frame, err := wire.Encode(&wire.Message{
		Type:      wire.MsgMotionData,
		Timestamp: 1,
		Motion:    &wire.Motion{DeviceName: "x", Values: [wire.MotionFloatCount]float32{0, 0}},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if !s.Shed(frame) {
		t.Fatal("Shed did not drop a non-critical message at drop ratio 1.0")
	}
}

func TestShedNeverDropsWhileNormal(t *testing.T) {
	s := New(Config{ThroughputLimit: 1000000}, 0, func() uint64 { return 0 }, func() int { return 0 }, nil)
	s.sample()

	frame, err := wire.Encode(&wire.Message{
		Type:      wire.MsgMotionData,
		Timestamp: 1,
		Motion:    &wire.Motion{DeviceName: "x", Values: [wire.MotionFloatCount]float32{0, 0}},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if s.Shed(frame) {
		t.Fatal("Shed dropped a message while in the normal state")
	}
}
