package alerter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlidingWindowAdmitsUpToLimit(t *testing.T) {
	w := NewSlidingWindow(5*time.Minute, 3)
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	assert.True(t, w.Admit(now))
	assert.True(t, w.Admit(now.Add(time.Minute)))
	assert.True(t, w.Admit(now.Add(2*time.Minute)))
	assert.False(t, w.Admit(now.Add(3*time.Minute)))
	assert.Equal(t, 3, w.Size(now.Add(3*time.Minute)))
}

func TestSlidingWindowEvictsExpiredEntries(t *testing.T) {
	w := NewSlidingWindow(5*time.Minute, 3)
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	w.Admit(now)
	w.Admit(now)
	w.Admit(now)
	assert.False(t, w.Admit(now.Add(4*time.Minute)))

	// The first three fall out of the trailing window.
	assert.True(t, w.Admit(now.Add(5*time.Minute+time.Second)))
	assert.Equal(t, 1, w.Size(now.Add(5*time.Minute+time.Second)))
}

func TestSlidingWindowReset(t *testing.T) {
	w := NewSlidingWindow(5*time.Minute, 1)
	now := time.Now()

	assert.True(t, w.Admit(now))
	assert.False(t, w.Admit(now))
	w.Reset()
	assert.True(t, w.Admit(now))
}
