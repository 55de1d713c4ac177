// Package fake provides in-memory implementations of the ports
// interfaces, for bridge tests and for running bridge-server without
// real BLE hardware attached.
package fake
