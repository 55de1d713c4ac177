package overload

import (
	"math/rand"
	"sync"
	"time"

	"github.com/muurk/bridge/internal/bridgeerr"
	"github.com/muurk/bridge/internal/logging"
	"github.com/muurk/bridge/internal/wire"
)

// State is the streaming-load state machine's current classification.
type State int

const (
	StateNormal State = iota
	StateOverloaded
)

func (s State) String() string {
	if s == StateOverloaded {
		return "overloaded"
	}
	return "normal"
}

// NotifyFunc broadcasts a STREAMING_OVERLOAD system error frame. It is
// called at most once per cooldown window.
type NotifyFunc func(msg *wire.Message)

// Config bounds the supervisor's sampling and shedding behavior.
type Config struct {
	SampleInterval  time.Duration
	WindowCount     int
	ThroughputLimit float64
	DropFraction    float64
	Cooldown        time.Duration
}

// DefaultConfig returns the specification's defaults: 1s sampling, a
// 10-window rolling average, a 1,000 msg/s threshold, a 50% drop fraction
// under overload, and a 5s notification cooldown.
func DefaultConfig() Config {
	return Config{
		SampleInterval:  time.Second,
		WindowCount:     10,
		ThroughputLimit: 1000,
		DropFraction:    0.5,
		Cooldown:        5 * time.Second,
	}
}

// ThroughputFunc reports current messages-processed-per-window; QueueDepthFunc
// reports the current total queued message count across sessions.
type ThroughputFunc func() uint64
type QueueDepthFunc func() int

// Supervisor samples throughput and queue depth on a fixed interval,
// classifies the system as normal or overloaded, and exposes Shed for
// wiring into internal/streaming.Transport's load-shedding hook.
type Supervisor struct {
	cfg          Config
	throughputFn ThroughputFunc
	queueDepthFn QueueDepthFunc
	queueCap     int
	notify       NotifyFunc

	mu           sync.Mutex
	windows      []float64
	state        State
	lastNotified time.Time
	dropRatio    float64
}

// New returns a Supervisor sampling throughputFn and queueDepthFn.
// queueCap is the configured per-session queue bound (internal/streaming's
// Config.QueueCap); the supervisor treats half of it as the overload
// queue-depth threshold.
func New(cfg Config, queueCap int, throughputFn ThroughputFunc, queueDepthFn QueueDepthFunc, notify NotifyFunc) *Supervisor {
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = time.Second
	}
	if cfg.WindowCount <= 0 {
		cfg.WindowCount = 10
	}
	if cfg.ThroughputLimit <= 0 {
		cfg.ThroughputLimit = 1000
	}
	if cfg.DropFraction <= 0 {
		cfg.DropFraction = 0.5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Second
	}
	return &Supervisor{
		cfg:          cfg,
		throughputFn: throughputFn,
		queueDepthFn: queueDepthFn,
		queueCap:     queueCap,
		notify:       notify,
	}
}

// Run samples on cfg.SampleInterval until stop is closed.
func (s *Supervisor) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sample()
		case <-stop:
			return
		}
	}
}

func (s *Supervisor) sample() {
	current := float64(s.throughputFn())
	queueDepth := 0
	if s.queueDepthFn != nil {
		queueDepth = s.queueDepthFn()
	}

	s.mu.Lock()
	s.windows = append(s.windows, current)
	if len(s.windows) > s.cfg.WindowCount {
		s.windows = s.windows[len(s.windows)-s.cfg.WindowCount:]
	}

	overloaded := current > s.cfg.ThroughputLimit || (s.queueCap > 0 && queueDepth > s.queueCap/2)

	var avg float64
	for _, w := range s.windows {
		avg += w
	}
	avg /= float64(len(s.windows))

	prev := s.state
	if overloaded {
		s.state = StateOverloaded
		s.dropRatio = s.cfg.DropFraction
	} else {
		s.state = StateNormal
		s.dropRatio = 0
	}

	var toNotify *wire.Message
	if s.state == StateOverloaded && (s.lastNotified.IsZero() || time.Since(s.lastNotified) >= s.cfg.Cooldown) {
		s.lastNotified = time.Now()
		toNotify = &wire.Message{
			Type:      wire.MsgError,
			Timestamp: float64(time.Now().UnixMilli()),
			Fields: map[string]interface{}{
				"code":       string(bridgeerr.CodeStreamingOverload),
				"message":    "streaming throughput exceeded the configured threshold",
				"throughput": avg,
				"queueDepth": queueDepth,
				"dropRatio":  s.dropRatio,
			},
		}
	}
	s.mu.Unlock()

	if prev != s.state {
		logging.LogOverload(avg, queueDepth, s.DropRatio())
	}
	if toNotify != nil && s.notify != nil {
		s.notify(toNotify)
	}
}

// State returns the supervisor's current classification.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DropRatio returns the probability with which Shed currently drops a
// non-critical message.
func (s *Supervisor) DropRatio() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropRatio
}

// Shed implements internal/streaming.ShedFunc: it decodes frame just far
// enough to check criticality, and drops non-critical messages
// probabilistically at the current drop ratio while overloaded. Critical
// messages (device-status, battery-update) are never shed.
func (s *Supervisor) Shed(frame []byte) bool {
	s.mu.Lock()
	ratio := s.dropRatio
	s.mu.Unlock()
	if ratio <= 0 {
		return false
	}

	msgType, ok := wire.PeekType(frame)
	if !ok {
		return false
	}
	if wire.IsCritical(msgType) {
		return false
	}
	return rand.Float64() < ratio
}
