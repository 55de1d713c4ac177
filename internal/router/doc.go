// Package router classifies decoded messages into a functional domain by
// message-type range, dispatches to the registered domain processor under
// a per-type soft timeout, and turns processor failures into well-formed
// error frames rather than ever tearing down the session.
package router
