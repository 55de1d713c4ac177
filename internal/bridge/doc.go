// Package bridge wires every independently-tested layer — session
// listener, connection manager, reliable and streaming transports,
// router and domain processors, and the overload supervisor — into one
// running process. It owns nothing domain-specific itself: all policy
// lives in the packages it assembles, and Bridge's only job is
// constructing them in the right order and starting/stopping their
// background loops together.
package bridge
