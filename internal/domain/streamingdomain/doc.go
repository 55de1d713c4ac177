// Package streamingdomain implements the router's streaming domain
// processor. It answers get-devices-state requests directly from a
// ports.Device, and separately fans motion, device-status, and
// battery-update pushes from a ports.Processing subscription out to every
// connected session via internal/streaming, preferring device-status and
// battery-update over motion-data under load (see internal/overload).
package streamingdomain
