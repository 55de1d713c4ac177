// Package portscan finds a bindable TCP port for the bridge listener.
//
// A caller that asks for an explicit port gets it or a failure — no
// silent fallback. A caller that asks for a scan gets the first free
// port in a base..base+span range, matching the reference behavior of
// binding upward from 8080 through a fixed span of 50 ports.
package portscan
