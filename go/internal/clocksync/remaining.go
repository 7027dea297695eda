package clocksync

import "time"

// Remaining-time math shared by every screen. Each client only ever diffs two
// timestamps (a server-recorded anchor and its own notion of now), so local
// clock drift cancels out up to transmission delay. Callers must re-evaluate
// on every tick rather than cache the result.

// RemainingSeconds returns how many whole seconds are left on a countdown
// anchored at anchor with a limit of limitSec seconds. The value is the
// ceiling of the exact remainder and never goes below zero.
func RemainingSeconds(anchor time.Time, limitSec int, now time.Time) int {
	deadline := anchor.Add(time.Duration(limitSec) * time.Second)
	ms := deadline.Sub(now).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return int((ms + 999) / 1000)
}

// ElapsedSeconds returns whole seconds elapsed since anchor, floored at zero.
func ElapsedSeconds(anchor time.Time, now time.Time) int {
	s := int(now.Sub(anchor).Seconds())
	if s < 0 {
		return 0
	}
	return s
}

// Deadline returns the instant the countdown expires.
func Deadline(anchor time.Time, limitSec int) time.Time {
	return anchor.Add(time.Duration(limitSec) * time.Second)
}
