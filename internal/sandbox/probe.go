package sandbox

// ABOUTME: TCP reachability probing for preview servers.

import (
	"context"
	"net"
	"strconv"
	"time"
)

const (
	quickProbeTimeout = 1 * time.Second
	probeInterval     = 2 * time.Second

	// MaxStartupWait caps how long callers should poll for readiness.
	// npm installs for front-end apps can run minutes; anything past
	// this is reported as still starting rather than waited on.
	MaxStartupWait = 60 * time.Second
)

// Probe checks whether a preview server accepts TCP connections on its
// published port. A connect says the server bound the port; it says
// nothing about HTTP health, which is all the preview contract promises.
type Probe struct {
	host string
}

// NewProbe returns a probe against the given host, defaulting to
// localhost.
func NewProbe(host string) *Probe {
	if host == "" {
		host = "localhost"
	}
	return &Probe{host: host}
}

// Quick reports whether the port accepts a connection right now.
func (p *Probe) Quick(port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(p.host, strconv.Itoa(port)), quickProbeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// WaitReady polls the port until it responds, the timeout elapses, or
// ctx is cancelled.
func (p *Probe) WaitReady(ctx context.Context, port int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if p.Quick(port) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(probeInterval):
		}
	}
}
