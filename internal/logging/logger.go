package logging

import (
	"encoding/hex"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "BRIDGE_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks the BRIDGE_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	// If no level provided, check environment variable
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	// If still no level, use silent mode (nop logger)
	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		// Unknown level - use info as default when explicitly set to something
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	// Customize encoder for better readability
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// InitializeFromEnv initializes the logger from the BRIDGE_LOG_LEVEL
// environment variable. This is the recommended way to initialize logging
// for CLI commands that want silent mode by default.
func InitializeFromEnv() error {
	return Initialize("")
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Fallback to silent logger if not initialized
		// This ensures no unexpected log output in CLI commands
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogSessionEvent logs a session lifecycle transition (accepted, closed,
// heartbeat-timeout, ...).
func LogSessionEvent(sessionID string, event string) {
	Info("session event",
		zap.String("session_id", sessionID),
		zap.String("event", event),
	)
}

// LogDispatch logs a router dispatch outcome for a decoded message.
func LogDispatch(sessionID string, domain string, msgType byte, err error) {
	if err != nil {
		Error("dispatch failed",
			zap.String("session_id", sessionID),
			zap.String("domain", domain),
			zap.Uint8("type", msgType),
			zap.Error(err),
		)
		return
	}
	Debug("dispatched",
		zap.String("session_id", sessionID),
		zap.String("domain", domain),
		zap.Uint8("type", msgType),
	)
}

// LogRetry logs a reliable-transport retry attempt.
func LogRetry(sessionID string, requestID uint32, attempt int, backoff string) {
	Warn("reliable send retry",
		zap.String("session_id", sessionID),
		zap.Uint32("request_id", requestID),
		zap.Int("attempt", attempt),
		zap.String("backoff", backoff),
	)
}

// LogOverload logs an overload-supervisor state transition.
func LogOverload(throughput float64, queueDepth int, dropRatio float64) {
	Warn("streaming overload",
		zap.Float64("throughput", throughput),
		zap.Int("queue_depth", queueDepth),
		zap.Float64("drop_ratio", dropRatio),
	)
}

// LogWebSocketMessage logs a raw WebSocket message exchanged with a session.
func LogWebSocketMessage(sessionID string, direction string, messageType int, data []byte) {
	fields := []zap.Field{
		zap.String("session_id", sessionID),
		zap.String("direction", direction),
		zap.String("message_type", wsMessageTypeName(messageType)),
		zap.Int("length", len(data)),
	}

	if messageType == 2 || GetLogger().Core().Enabled(zapcore.DebugLevel) {
		fields = append(fields, zap.String("hex_dump", hexDump(data)))
	}

	Debug("websocket frame", fields...)
}

// Helper functions

func wsMessageTypeName(msgType int) string {
	switch msgType {
	case 1:
		return "text"
	case 2:
		return "binary"
	case 8:
		return "close"
	case 9:
		return "ping"
	case 10:
		return "pong"
	default:
		return fmt.Sprintf("unknown(%d)", msgType)
	}
}

func hexDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	// Limit to first 256 bytes for logging
	if len(data) > 256 {
		return hex.EncodeToString(data[:256]) + "..."
	}
	return hex.EncodeToString(data)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
