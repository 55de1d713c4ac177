// Package ble implements the router's BLE domain processor: scan, connect,
// disconnect, remove, sync, locate, burst-scan, record-start/stop, and
// get-devices-state, each delegating to a ports.Device and retried with
// cenkalti/backoff's exponential policy (base 1s, ceiling 10s, max 3
// retries), mirroring internal/reliable's retry shape.
package ble
