package validate

import (
	"fmt"
	"math"

	"github.com/muurk/bridge/internal/bridgeerr"
	"github.com/muurk/bridge/internal/wire"
)

// Validate runs the common checks plus any type-specific checks registered
// for msg.Type. A non-nil error is always a *bridgeerr.Error with
// Code == bridgeerr.CodeInvalidMessage.
func Validate(msg *wire.Message) error {
	if msg == nil {
		return invalid(0, "nil message")
	}

	if msg.Timestamp <= 0 {
		return invalid(msg.RequestID, "timestamp must be greater than zero")
	}

	if fn, ok := typeChecks[msg.Type]; ok {
		if err := fn(msg); err != nil {
			return err
		}
	}

	return nil
}

func invalid(requestID uint32, reason string) error {
	return bridgeerr.New(bridgeerr.CodeInvalidMessage, fmt.Sprintf("requestId=%d: %s", requestID, reason))
}

type checkFunc func(*wire.Message) error

var typeChecks = map[wire.MessageType]checkFunc{
	wire.MsgBLEConnectRequest:     checkBLEConnectRequest,
	wire.MsgBLEDisconnectRequest:  checkNonEmptyDeviceID,
	wire.MsgBLESyncRequest:        checkNonEmptyDeviceID,
	wire.MsgBLELocateStartRequest: checkNonEmptyDeviceID,
	wire.MsgBLELocateStopRequest:  checkNonEmptyDeviceID,
	wire.MsgBLERemoveRequest:      checkNonEmptyDeviceID,
	wire.MsgRecordStartRequest:    checkRecordStartRequest,
	wire.MsgRecordStopRequest:     checkNonEmptySessionID,
	wire.MsgMotionData:            checkMotion,
	wire.MsgError:                 checkErrorMessage,
	wire.MsgClientActionTrigger:   checkClientActionTrigger,
}

func checkBLEConnectRequest(msg *wire.Message) error {
	if msg.StringField("deviceId") == "" {
		return invalid(msg.RequestID, "connect-request requires a non-empty deviceId")
	}
	if msg.StringField("name") == "" {
		return invalid(msg.RequestID, "connect-request requires a non-empty name")
	}
	return nil
}

func checkNonEmptyDeviceID(msg *wire.Message) error {
	if msg.StringField("deviceId") == "" {
		return invalid(msg.RequestID, "request requires a non-empty deviceId")
	}
	return nil
}

func checkNonEmptySessionID(msg *wire.Message) error {
	if msg.StringField("sessionId") == "" {
		return invalid(msg.RequestID, "request requires a non-empty sessionId")
	}
	return nil
}

func checkRecordStartRequest(msg *wire.Message) error {
	if msg.StringField("sessionId") == "" {
		return invalid(msg.RequestID, "record-start-request requires a non-empty sessionId")
	}
	if msg.StringField("exerciseId") == "" {
		return invalid(msg.RequestID, "record-start-request requires a non-empty exerciseId")
	}
	setNumber, ok := msg.IntField("setNumber")
	if !ok || setNumber < 1 {
		return invalid(msg.RequestID, "record-start-request requires setNumber >= 1")
	}
	return nil
}

func checkMotion(msg *wire.Message) error {
	if msg.Motion == nil {
		return invalid(msg.RequestID, "motion message missing payload")
	}
	if len(msg.Motion.Values) != wire.MotionFloatCount {
		return invalid(msg.RequestID, fmt.Sprintf("motion payload has %d values, want %d", len(msg.Motion.Values), wire.MotionFloatCount))
	}
	for i, v := range msg.Motion.Values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return invalid(msg.RequestID, fmt.Sprintf("motion value %d is not finite", i))
		}
	}
	return nil
}

var recognizedErrorCodes = map[string]bool{
	string(bridgeerr.CodeInvalidMessage):    true,
	string(bridgeerr.CodeTimeout):           true,
	string(bridgeerr.CodeDeviceUnavailable): true,
	string(bridgeerr.CodeDeviceNotFound):    true,
	string(bridgeerr.CodeConnectionFailed):  true,
	string(bridgeerr.CodeAlreadyConnected):  true,
	string(bridgeerr.CodeNotConnected):      true,
	string(bridgeerr.CodeRecordingActive):   true,
	string(bridgeerr.CodeNoRecording):       true,
	string(bridgeerr.CodeStreamingOverload): true,
	string(bridgeerr.CodeSessionClosed):     true,
	string(bridgeerr.CodeExpired):           true,
	string(bridgeerr.CodeActionNotFound):    true,
	string(bridgeerr.CodeTargetNotFound):    true,
}

func checkErrorMessage(msg *wire.Message) error {
	code := msg.StringField("code")
	if !recognizedErrorCodes[code] {
		return invalid(msg.RequestID, fmt.Sprintf("unrecognized error code %q", code))
	}
	if msg.StringField("message") == "" {
		return invalid(msg.RequestID, "error message requires a non-empty message string")
	}
	return nil
}

func checkClientActionTrigger(msg *wire.Message) error {
	if msg.StringField("actionId") == "" {
		return invalid(msg.RequestID, "client-action-trigger requires a non-empty actionId")
	}
	return nil
}
