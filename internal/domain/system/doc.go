// Package system implements the router's system domain processor: heartbeat,
// status, ping/pong, and ack, each handled by an immediate echo or a snapshot
// assembled from an injected ports.System (when none is injected, status is
// assembled from the processor's own uptime and count funcs, not an error).
package system
