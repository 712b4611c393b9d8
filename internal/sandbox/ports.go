package sandbox

// ABOUTME: Host port allocation for preview containers.

import (
	"net"
	"strconv"
)

// portFree reports whether the port can still be bound on the host.
// Registry records lag reality (externally stopped containers, other
// processes), so allocation double-checks with a live bind.
func portFree(host string, port int) bool {
	l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	l.Close()
	return true
}

// AllocatePort returns the lowest port in the configured range that no
// active record holds and that the host will actually bind. Returns
// ErrPortExhausted when the range is used up.
func (r *Registry) AllocatePort() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	held := make(map[int]bool)
	for _, rec := range r.records {
		if rec.Status.Active() {
			held[rec.Port] = true
		}
	}

	for port := r.cfg.PortRangeStart; port < r.cfg.PortRangeEnd; port++ {
		if held[port] {
			continue
		}
		if !portFree(r.cfg.ProbeHost, port) {
			continue
		}
		return port, nil
	}
	return 0, ErrPortExhausted
}
