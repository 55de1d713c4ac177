// Package ports declares the typed service boundaries the bridge depends
// on but does not implement: the BLE device fleet, the sensor-processing
// pipeline, and (optionally) host system introspection.
//
// Domain processors (internal/domain/...) are adapters between wire
// messages and these interfaces; nothing outside this package and its
// adapters knows about devices, batteries, or recordings directly. A
// fake implementation for tests and local demos lives in
// internal/ports/fake.
package ports
