// Package ports picks listening ports for the diagnostic dashboard.
package ports

import (
	"fmt"
	"net"
)

// DefaultDashboard is tried first so repeated local runs land on a
// predictable address.
const DefaultDashboard = 5000

// Free returns DefaultDashboard if it is available, otherwise an
// ephemeral port from the OS. There is a window between probing and
// binding where another process can take the port; this is a local
// convenience tool, not a 24x7 service, so the race is accepted.
func Free() (int, error) {
	if available(DefaultDashboard) {
		return DefaultDashboard, nil
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("probe free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func available(port int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	l.Close()
	return true
}
