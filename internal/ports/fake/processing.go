package fake

import (
	"context"
	"sync"

	"github.com/muurk/bridge/internal/ports"
)

// Processing is an in-memory ports.Processing. Push methods (PushMotion,
// PushDeviceStatus, PushBattery) let tests drive subscriber callbacks
// directly instead of simulating real sensor timing.
type Processing struct {
	mu sync.Mutex

	motion   []ports.MotionSample
	status   []ports.DeviceStatus
	battery  []ports.BatteryLevel

	motionSubs []ports.MotionSubscriber
	statusSubs []ports.DeviceStatusSubscriber
	batterySubs []ports.BatterySubscriber
}

// NewProcessing returns a Processing with no cached readings.
func NewProcessing() *Processing {
	return &Processing{}
}

func (p *Processing) GetCurrentMotion(ctx context.Context) ([]ports.MotionSample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ports.MotionSample, len(p.motion))
	copy(out, p.motion)
	return out, nil
}

func (p *Processing) GetDeviceStatus(ctx context.Context) ([]ports.DeviceStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ports.DeviceStatus, len(p.status))
	copy(out, p.status)
	return out, nil
}

func (p *Processing) GetBatteryLevels(ctx context.Context) ([]ports.BatteryLevel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ports.BatteryLevel, len(p.battery))
	copy(out, p.battery)
	return out, nil
}

func (p *Processing) SubscribeMotion(cb ports.MotionSubscriber) ports.Unsubscribe {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := len(p.motionSubs)
	p.motionSubs = append(p.motionSubs, cb)
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.motionSubs[idx] = nil
	}
}

func (p *Processing) SubscribeDeviceStatus(cb ports.DeviceStatusSubscriber) ports.Unsubscribe {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := len(p.statusSubs)
	p.statusSubs = append(p.statusSubs, cb)
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.statusSubs[idx] = nil
	}
}

func (p *Processing) SubscribeBattery(cb ports.BatterySubscriber) ports.Unsubscribe {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := len(p.batterySubs)
	p.batterySubs = append(p.batterySubs, cb)
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.batterySubs[idx] = nil
	}
}

// PushMotion records a motion sample and notifies subscribers.
func (p *Processing) PushMotion(sample ports.MotionSample) {
	p.mu.Lock()
	p.motion = append(p.motion, sample)
	subs := append([]ports.MotionSubscriber(nil), p.motionSubs...)
	p.mu.Unlock()

	for _, cb := range subs {
		if cb != nil {
			cb(sample)
		}
	}
}

// PushDeviceStatus records a device status and notifies subscribers.
func (p *Processing) PushDeviceStatus(status ports.DeviceStatus) {
	p.mu.Lock()
	p.status = append(p.status, status)
	subs := append([]ports.DeviceStatusSubscriber(nil), p.statusSubs...)
	p.mu.Unlock()

	for _, cb := range subs {
		if cb != nil {
			cb(status)
		}
	}
}

// PushBattery records a battery reading and notifies subscribers.
func (p *Processing) PushBattery(level ports.BatteryLevel) {
	p.mu.Lock()
	p.battery = append(p.battery, level)
	subs := append([]ports.BatterySubscriber(nil), p.batterySubs...)
	p.mu.Unlock()

	for _, cb := range subs {
		if cb != nil {
			cb(level)
		}
	}
}
