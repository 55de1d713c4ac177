// Package config loads and persists bridge configuration.
//
// The bridge reads a single Config value (§6 of the specification) that
// governs the listener port, session limits, heartbeat/connection timeouts,
// reliable-transport retry policy, streaming rate limits and queue caps,
// and overload-supervisor thresholds. Configuration can come from a YAML
// file on disk, with CLI flags (wired in cmd/bridge-server) overriding
// individual fields.
//
// # Configuration File Location
//
// The file follows platform conventions, same as the teacher project this
// package is adapted from:
//   - Linux: $XDG_CONFIG_HOME/bridge/config.yaml or $HOME/.config/bridge/config.yaml
//   - macOS: $HOME/.config/bridge/config.yaml
//   - Windows: %LOCALAPPDATA%\bridge\config.yaml
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	br, err := bridge.New(cfg, device, processing, sys)
//
// # Thread Safety
//
// File writes are serialized by a package-level mutex and performed via a
// temp-file-then-rename to avoid partial writes on crash.
package config
