// Package reliable implements request/response delivery over sessions:
// per-session monotone request ids, a pending-request table keyed by
// (session, requestId), exponential-backoff retries, duplicate
// suppression for re-delivered requests, and a periodic cleanup sweep
// that expires entries nobody ever resolved.
//
// Retries and backoff use github.com/cenkalti/backoff, the same
// exponential-backoff library the teacher project carried but never
// wired up for a retrying caller.
package reliable
