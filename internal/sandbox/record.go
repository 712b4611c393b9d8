package sandbox

// ABOUTME: Preview container records and their TTL arithmetic.

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a preview container record.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopped  Status = "stopped"
	StatusExpired  Status = "expired"
	StatusError    Status = "error"
)

// Active reports whether the record's container should be occupying
// its port.
func (s Status) Active() bool {
	return s == StatusStarting || s == StatusRunning
}

// Terminal reports whether the record can never become active again.
func (s Status) Terminal() bool {
	return s == StatusStopped || s == StatusExpired || s == StatusError
}

// PreviewInstance is one hosted preview container. Records are
// persisted in the registry file so previews survive process restarts.
type PreviewInstance struct {
	ContainerID   string    `json:"containerId"`
	ContainerName string    `json:"containerName"`
	Port          int       `json:"port"`
	InternalPort  int       `json:"internalPort"`
	StartTime     time.Time `json:"startTime"`
	TTLMinutes    int       `json:"ttlMinutes"`
	SessionID     string    `json:"sessionId"`
	Language      Language  `json:"language"`
	Framework     Framework `json:"framework,omitempty"`
	URL           string    `json:"url"`
	Status        Status    `json:"status"`
}

// ExpiresAt returns the instant the record's TTL lapses.
func (p *PreviewInstance) ExpiresAt() time.Time {
	return p.StartTime.Add(time.Duration(p.TTLMinutes) * time.Minute)
}

// Expired reports whether the TTL has elapsed.
func (p *PreviewInstance) Expired() bool {
	return time.Now().After(p.ExpiresAt())
}

// Remaining returns the time left before expiry, clamped at zero.
func (p *PreviewInstance) Remaining() time.Duration {
	rem := time.Until(p.ExpiresAt())
	if rem < 0 {
		return 0
	}
	return rem
}

// FormatRemaining renders the remaining TTL the way status surfaces
// display it, "14m 57s".
func (p *PreviewInstance) FormatRemaining() string {
	secs := int(p.Remaining().Seconds())
	return fmt.Sprintf("%dm %ds", secs/60, secs%60)
}
