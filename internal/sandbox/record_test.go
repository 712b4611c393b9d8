package sandbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusClassification(t *testing.T) {
	assert.True(t, StatusStarting.Active())
	assert.True(t, StatusRunning.Active())
	assert.False(t, StatusStopped.Active())

	assert.True(t, StatusStopped.Terminal())
	assert.True(t, StatusExpired.Terminal())
	assert.True(t, StatusError.Terminal())
	assert.False(t, StatusStarting.Terminal())
	assert.False(t, StatusRunning.Terminal())
}

func TestPreviewInstance_Expiry(t *testing.T) {
	fresh := &PreviewInstance{StartTime: time.Now(), TTLMinutes: 15}
	assert.False(t, fresh.Expired())
	assert.Greater(t, fresh.Remaining(), 14*time.Minute)

	old := &PreviewInstance{StartTime: time.Now().Add(-20 * time.Minute), TTLMinutes: 15}
	assert.True(t, old.Expired())
	assert.Equal(t, time.Duration(0), old.Remaining())
	assert.Equal(t, "0m 0s", old.FormatRemaining())

	// Zero TTL expires immediately.
	zero := &PreviewInstance{StartTime: time.Now().Add(-time.Second), TTLMinutes: 0}
	assert.True(t, zero.Expired())
}

func TestPreviewInstance_FormatRemaining(t *testing.T) {
	p := &PreviewInstance{StartTime: time.Now().Add(-30 * time.Second), TTLMinutes: 15}
	got := p.FormatRemaining()
	// A little clock drift is fine; the shape is what matters.
	assert.Regexp(t, `^14m (2[5-9]|30)s$`, got)
}
