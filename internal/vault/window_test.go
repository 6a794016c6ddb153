package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowOpen(t *testing.T) {
	now := int64(1_700_000_000)

	// Never opened.
	assert.False(t, WindowOpen(0, now))
	// Open while now < expiry.
	assert.True(t, WindowOpen(now+1, now))
	// Closed at and after expiry.
	assert.False(t, WindowOpen(now, now))
	assert.False(t, WindowOpen(now-1, now))
}

// Reads are idempotent: same inputs, same answer.
func TestWindowOpen_Idempotent(t *testing.T) {
	now := int64(1_700_000_000)
	first := WindowOpen(now+600, now)
	second := WindowOpen(now+600, now)
	assert.Equal(t, first, second)
}

func TestCanReactivate(t *testing.T) {
	now := int64(1_700_000_000)

	// Never opened: only a deposit opens the first window.
	assert.False(t, CanReactivate(0, now))
	// Expired but idle for less than a day.
	assert.False(t, CanReactivate(now-SecondsPerDay+1, now))
	// Idle exactly one day.
	assert.True(t, CanReactivate(now-SecondsPerDay, now))
	// Still open.
	assert.False(t, CanReactivate(now+600, now))
}

func TestReactivationExpiry_FlooredAtOneDay(t *testing.T) {
	now := int64(1_700_000_000)
	assert.Equal(t, now+SecondsPerDay, ReactivationExpiry(now, 3600))
	assert.Equal(t, now+2*SecondsPerDay, ReactivationExpiry(now, 2*SecondsPerDay))
}
