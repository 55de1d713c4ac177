package wire

// MessageType is the 8-bit message-type space, partitioned into fixed
// ranges that determine routing domain (see ClassifyDomain).
type MessageType byte

// System range: 0x01-0x0F
const (
	MsgHeartbeat      MessageType = 0x01
	MsgStatusRequest  MessageType = 0x02
	MsgStatusResponse MessageType = 0x03
	MsgError          MessageType = 0x04
)

// Device-control range: 0x10-0x1F
const (
	MsgBLEScanRequest         MessageType = 0x10
	MsgBLEScanResponse        MessageType = 0x11
	MsgBLEConnectRequest      MessageType = 0x12
	MsgBLEConnectResponse     MessageType = 0x13
	MsgBLEDisconnectRequest   MessageType = 0x14
	MsgBLEDisconnectResponse  MessageType = 0x15
	MsgBLESyncRequest         MessageType = 0x16
	MsgBLESyncResponse        MessageType = 0x17
	MsgBLELocateStartRequest  MessageType = 0x18
	MsgBLELocateStartResponse MessageType = 0x19
	MsgBLELocateStopRequest   MessageType = 0x1A
	MsgBLELocateStopResponse  MessageType = 0x1B
	MsgBLEBurstStartRequest   MessageType = 0x1C
	MsgBLEBurstStopRequest    MessageType = 0x1D
	MsgBLERemoveRequest       MessageType = 0x1E
	MsgBLERemoveResponse      MessageType = 0x1F
)

// Recording range: 0x20-0x2F
const (
	MsgRecordStartRequest  MessageType = 0x20
	MsgRecordStartResponse MessageType = 0x21
	MsgRecordStopRequest   MessageType = 0x22
	MsgRecordStopResponse  MessageType = 0x23
)

// Streaming broadcast range: 0x30-0x3F
const (
	MsgMotionData      MessageType = 0x30
	MsgDeviceStatus    MessageType = 0x31
	MsgBatteryUpdate   MessageType = 0x32
	MsgSyncStarted     MessageType = 0x33
	MsgSyncProgress    MessageType = 0x34
	MsgSyncComplete    MessageType = 0x35
	MsgDeviceVibrating MessageType = 0x36
)

// Full-state snapshot: 0x40. Resolved per the specification's open
// question in favor of the broadcast snapshot meaning, not scan-trigger.
const MsgStateUpdate MessageType = 0x40

// State-query range: 0x50-0x5F
const (
	MsgGetDevicesStateRequest  MessageType = 0x50
	MsgGetDevicesStateResponse MessageType = 0x51
)

// Client-metadata range: 0x60-0x6F (the extended range, per the
// specification's open question)
const (
	MsgClientRegister       MessageType = 0x60
	MsgClientMetadataUpdate MessageType = 0x61
	MsgClientActionRegister MessageType = 0x62
	MsgClientActionTrigger  MessageType = 0x63
	MsgClientActionResult   MessageType = 0x64
	MsgClientListUpdate     MessageType = 0x65
)

// Internal range: 0xF0-0xFF
const (
	MsgAck  MessageType = 0xF0
	MsgPing MessageType = 0xF1
	MsgPong MessageType = 0xF2
)

// Domain is one of the four functional domains a message type routes to.
type Domain string

const (
	DomainSystem         Domain = "system"
	DomainBLE            Domain = "ble"
	DomainStreaming      Domain = "streaming"
	DomainClientMetadata Domain = "client-metadata"
)

// ClassifyDomain maps a message type to its routing domain by range
// membership. The second return value is false for bytes outside every
// recognized range.
func ClassifyDomain(t MessageType) (Domain, bool) {
	switch {
	case t >= 0x01 && t <= 0x0F:
		return DomainSystem, true
	case t >= 0x10 && t <= 0x2F:
		// device-control (0x10-0x1F) and recording (0x20-0x2F) are both
		// handled by the device/BLE domain processor.
		return DomainBLE, true
	case t >= 0x30 && t <= 0x3F:
		return DomainStreaming, true
	case t == MsgStateUpdate:
		return DomainStreaming, true
	case t >= 0x50 && t <= 0x5F:
		return DomainStreaming, true
	case t >= 0x60 && t <= 0x6F:
		return DomainClientMetadata, true
	case t >= 0xF0 && t <= 0xFF:
		return DomainSystem, true
	default:
		return "", false
	}
}

// IsCritical reports whether a streaming message type must be preferred
// over others (motion-data) under overload load-shedding (spec §4.8).
func IsCritical(t MessageType) bool {
	switch t {
	case MsgDeviceStatus, MsgBatteryUpdate:
		return true
	default:
		return false
	}
}
