package clocksync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRemainingSeconds(t *testing.T) {
	anchor := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		limitSec int
		now      time.Time
		want     int
	}{
		{"at anchor", 300, anchor, 300},
		{"mid round", 300, anchor.Add(100 * time.Second), 200},
		{"partial second rounds up", 300, anchor.Add(100*time.Second + 300*time.Millisecond), 200},
		{"just before deadline", 300, anchor.Add(299*time.Second + 999*time.Millisecond), 1},
		{"exactly at deadline", 300, anchor.Add(300 * time.Second), 0},
		{"past deadline never negative", 300, anchor.Add(301 * time.Second), 0},
		{"far past deadline", 300, anchor.Add(time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemainingSeconds(anchor, tt.limitSec, tt.now))
		})
	}
}

func TestRemainingSecondsImmuneToAbsoluteClock(t *testing.T) {
	// Same offsets, wildly different absolute clocks: result only depends on
	// the diff between anchor and now.
	a1 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a2 := time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t,
		RemainingSeconds(a1, 120, a1.Add(45*time.Second)),
		RemainingSeconds(a2, 120, a2.Add(45*time.Second)),
	)
}

func TestElapsedSeconds(t *testing.T) {
	anchor := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, ElapsedSeconds(anchor, anchor))
	assert.Equal(t, 90, ElapsedSeconds(anchor, anchor.Add(90*time.Second)))
	// Floors fractional seconds.
	assert.Equal(t, 90, ElapsedSeconds(anchor, anchor.Add(90*time.Second+900*time.Millisecond)))
	// A now before the anchor (skewed echo) floors at zero.
	assert.Equal(t, 0, ElapsedSeconds(anchor, anchor.Add(-5*time.Second)))
}

func TestDeadline(t *testing.T) {
	anchor := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, anchor.Add(5*time.Minute), Deadline(anchor, 300))
}
