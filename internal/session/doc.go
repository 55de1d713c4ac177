// Package session owns the listener and per-connection state machine: a
// bound WebSocket listener, one Session per accepted client with
// cooperative reader/writer goroutines, and the heartbeat that detects
// dead peers.
//
// Writes from any goroutine go through a session's outbound queue so two
// encoded frames never interleave on the wire, matching the single-writer
// discipline the reference server used for its raw TCP connections.
package session
