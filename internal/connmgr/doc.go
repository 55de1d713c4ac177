// Package connmgr owns the session registry and derives the three
// observables the rest of the bridge depends on: per-session health,
// system health, and the client metadata registry.
//
// Callers register handlers (OnMessage, OnHealthChange, OnClientListChange,
// OnNewClientConnect) before wiring the Manager to a listener; the new-client handler fires shortly
// (~100ms) after accept so the caller can push a full-state snapshot as the
// new session's first message, which is what makes page-refresh /
// reconnect semantics work.
package connmgr
