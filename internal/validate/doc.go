// Package validate applies structural and semantic checks to decoded
// messages before they reach the router.
//
// Validate is keyed purely on message type: a common timestamp check
// applies to everything (the version byte is already enforced by the
// codec); type-specific checks apply on top. A failed check never terminates the session — the caller
// is expected to turn a non-nil error into an error frame addressed back
// to the sender, carrying the original request id when one was present.
package validate
