package connmgr

import "time"

// Role is a client's self-declared function, drawn from a closed set.
type Role string

const (
	RoleMain      Role = "main"
	RoleRecording Role = "recording"
	RoleMonitor   Role = "monitor"
	RoleCustom    Role = "custom"
)

// ActionDescriptor is one action a client exposes for other clients to
// invoke through the bridge.
type ActionDescriptor struct {
	ID   string
	Name string
}

// ClientInfo is the metadata a session may self-declare.
type ClientInfo struct {
	Name         string
	Role         Role
	Capabilities []string
	Actions      []ActionDescriptor
}

// SessionHealth is a point-in-time view of one session.
type SessionHealth struct {
	SessionID string
	Connected bool
	LastSeen  time.Time
	Sent      uint64
	Received  uint64
	Errors    uint64
	Latency   time.Duration
}

// SystemHealth is a point-in-time view of the whole bridge.
type SystemHealth struct {
	ListenerState  string
	Uptime         time.Duration
	ActiveSessions int
	Throughput     float64
	ErrorRate      float64
}

// ClientEntry pairs a session id with its declared metadata, for the
// broadcast client-list snapshot.
type ClientEntry struct {
	SessionID string
	Info      ClientInfo
}
