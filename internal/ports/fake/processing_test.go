package fake

import (
	"testing"

	"github.com/muurk/bridge/internal/ports"
)

func TestProcessingPushMotionNotifiesSubscribers(t *testing.T) {
	p := NewProcessing()

	received := make(chan ports.MotionSample, 1)
	unsub := p.SubscribeMotion(func(s ports.MotionSample) {
		received <- s
	})
	defer unsub()

	sample := ports.MotionSample{DeviceName: "left-knee", Values: [2]float32{1, 2}}
	p.PushMotion(sample)

	select {
	case got := <-received:
		if got != sample {
			t.Fatalf("got %+v, want %+v", got, sample)
		}
	default:
		t.Fatal("subscriber was not notified")
	}
}

func TestProcessingUnsubscribeStopsNotifications(t *testing.T) {
	p := NewProcessing()

	calls := 0
	unsub := p.SubscribeMotion(func(ports.MotionSample) { calls++ })
	unsub()

	p.PushMotion(ports.MotionSample{DeviceName: "x"})
	if calls != 0 {
		t.Fatalf("expected 0 calls after unsubscribe, got %d", calls)
	}
}

func TestProcessingGetCurrentMotionReturnsPushedSamples(t *testing.T) {
	p := NewProcessing()
	p.PushMotion(ports.MotionSample{DeviceName: "a"})
	p.PushMotion(ports.MotionSample{DeviceName: "b"})

	got, err := p.GetCurrentMotion(nil)
	if err != nil {
		t.Fatalf("GetCurrentMotion: unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetCurrentMotion: got %d samples, want 2", len(got))
	}
}
