package portscan

import (
	"fmt"
	"net"
)

// Bind resolves the port the bridge listener should use. If port is
// non-zero it is used as-is and Bind fails fast if it cannot be bound. If
// port is zero, Bind scans [base, base+span) and returns the first port
// it can successfully bind.
//
// The returned net.Listener is already bound; the caller owns closing it.
func Bind(host string, port, base, span int) (net.Listener, int, error) {
	if port != 0 {
		ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
		if err != nil {
			return nil, 0, fmt.Errorf("portscan: explicit port %d unavailable: %w", port, err)
		}
		return ln, port, nil
	}

	var lastErr error
	for candidate := base; candidate < base+span; candidate++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, candidate))
		if err != nil {
			lastErr = err
			continue
		}
		return ln, candidate, nil
	}

	return nil, 0, fmt.Errorf("portscan: no free port in range [%d, %d): %w", base, base+span, lastErr)
}
