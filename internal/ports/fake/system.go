package fake

import (
	"context"
	"runtime"
	"time"

	"github.com/muurk/bridge/internal/ports"
)

// System is an in-memory ports.System reporting process-local metrics.
type System struct {
	startedAt        time.Time
	activeSessions   func() int
	connectedDevices func() int
}

// NewSystem returns a System that reports uptime from construction time
// and delegates live counts to the supplied callbacks.
func NewSystem(activeSessions, connectedDevices func() int) *System {
	return &System{
		startedAt:        time.Now(),
		activeSessions:   activeSessions,
		connectedDevices: connectedDevices,
	}
}

func (s *System) GetSystemStatus(ctx context.Context) (ports.SystemStatus, error) {
	return ports.SystemStatus{
		Uptime:           time.Since(s.startedAt),
		ActiveSessions:   s.activeSessions(),
		ConnectedDevices: s.connectedDevices(),
	}, nil
}

func (s *System) GetPerformanceMetrics(ctx context.Context) (ports.PerformanceMetrics, error) {
	return ports.PerformanceMetrics{
		CPUPercent:     0,
		MemoryPercent:  0,
		GoroutineCount: runtime.NumGoroutine(),
	}, nil
}

func (s *System) PerformCleanup(ctx context.Context) error {
	return nil
}

func (s *System) RestartServices(ctx context.Context) error {
	return nil
}
