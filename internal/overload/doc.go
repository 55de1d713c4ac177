// Package overload implements the streaming-load supervisor: a 1s sampling
// loop that tracks a 10-window rolling average of throughput, samples queue
// depth each tick, classifies the system as normal or overloaded, and emits a
// cooldown-gated STREAMING_OVERLOAD notification. Its Shed method is wired
// into internal/streaming.Transport as a ShedFunc, shedding non-critical
// messages probabilistically once overloaded.
package overload
