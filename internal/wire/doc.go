// Package wire implements the bridge's binary message protocol.
//
// Every message travels as a fixed 16-byte header followed by a payload of
// at most 65,535 bytes:
//
//	byte 0        protocol version (currently 1)
//	byte 1        message type
//	bytes 2-3     payload length, little-endian
//	bytes 4-7     request-correlation id, little-endian (0 = none)
//	bytes 8-15    timestamp, little-endian IEEE-754 double (ms since epoch)
//	bytes 16...   payload
//
// Motion payloads (the high-rate streaming type) use a dedicated fast path
// — a length-prefixed device name followed by a fixed-size float32 array —
// so the hot path never pays for structured-text parsing. Every other
// message type is encoded generically as JSON, matching the teacher
// project's split between a binary fast path and a structured-text
// fallback for infrequent control messages.
//
// Unknown message types decode successfully; rejecting them is the
// router's job (§4.7 of the specification), not the codec's, so that a
// well-formed error frame can still be built and sent back to the sender.
package wire
