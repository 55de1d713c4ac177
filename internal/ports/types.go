package ports

import "time"

// DeviceInfo describes one BLE device known to the device port.
type DeviceInfo struct {
	ID            string
	Name          string
	BatteryLevel  int
	Connected     bool
	LastSeen      time.Time
}

// DeviceStatus is a point-in-time snapshot of a connected device.
type DeviceStatus struct {
	ID        string
	Name      string
	Connected bool
	Recording bool
	Vibrating bool
}

// BatteryLevel reports a single device's battery percentage.
type BatteryLevel struct {
	ID    string
	Level int
}

// MotionSample is one current-angle reading pair for a device.
type MotionSample struct {
	DeviceName string
	Values     [2]float32
}

// Result is the generic outcome of a device-port operation: success flag,
// a human-readable message, and an optional structured payload.
type Result struct {
	Success bool
	Message string
	Payload map[string]interface{}
}

// SystemStatus is a coarse host-level health snapshot.
type SystemStatus struct {
	Uptime          time.Duration
	ActiveSessions  int
	ConnectedDevices int
}

// PerformanceMetrics is a coarse resource-usage snapshot.
type PerformanceMetrics struct {
	CPUPercent    float64
	MemoryPercent float64
	GoroutineCount int
}
