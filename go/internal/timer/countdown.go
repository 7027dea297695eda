package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mvcampos/gelateria/go/internal/clocksync"
	"github.com/rs/zerolog/log"
)

// State describes where a countdown is in its lifecycle.
type State string

const (
	StateIdle     State = "idle"
	StateCounting State = "counting"
	StateExpired  State = "expired"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// Listener receives countdown notifications. Callbacks run on the
// countdown's own goroutine and must not block.
type Listener interface {
	OnTick(remainingSec int)
	OnWarning(thresholdSec int)
	OnTimeout()
}

// Countdown drives a once-per-second countdown against a shared anchor
// timestamp. Each warning threshold fires at most once per arming, the
// timeout fires at most once, and Cancel guarantees no callback runs
// after it returns.
type Countdown struct {
	clock      Clock
	listener   Listener
	thresholds []int

	mu       sync.Mutex
	state    State
	anchor   time.Time
	limitSec int
	fired    map[int]bool
	gen      int
	stop     chan struct{}
	done     chan struct{}
}

// NewCountdown creates a countdown that warns at the given thresholds
// (seconds remaining). The countdown starts idle; call Arm to begin.
func NewCountdown(clock Clock, listener Listener, thresholds []int) *Countdown {
	return &Countdown{
		clock:      clock,
		listener:   listener,
		thresholds: thresholds,
		state:      StateIdle,
	}
}

// Arm starts (or restarts) the countdown against the given anchor and
// limit. Any previous countdown is cancelled first, and all warning
// thresholds are re-armed from scratch.
func (c *Countdown) Arm(anchor time.Time, limitSec int) {
	c.Cancel()

	c.mu.Lock()
	c.state = StateCounting
	c.anchor = anchor
	c.limitSec = limitSec
	c.fired = make(map[int]bool)
	c.gen++
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	gen := c.gen
	stop, done := c.stop, c.done
	c.mu.Unlock()

	go c.run(gen, stop, done)
}

// Cancel stops the countdown and returns it to idle. When Cancel
// returns, no further callbacks will fire until the next Arm.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	c.state = StateIdle
	if c.stop == nil {
		c.mu.Unlock()
		return
	}
	c.gen++
	close(c.stop)
	c.stop = nil
	done := c.done
	c.done = nil
	c.mu.Unlock()

	<-done
}

// State reports the current lifecycle state.
func (c *Countdown) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Remaining computes the seconds left on the armed countdown. It
// returns 0 when the countdown is idle or expired.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCounting {
		return 0
	}
	return clocksync.RemainingSeconds(c.anchor, c.limitSec, c.clock.Now())
}

func (c *Countdown) run(gen int, stop, done chan struct{}) {
	defer close(done)

	t := c.clock.NewTimer(time.Second)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.Chan():
		}

		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			return
		}

		remaining := clocksync.RemainingSeconds(c.anchor, c.limitSec, c.clock.Now())
		var warnings []int
		for _, th := range c.thresholds {
			if remaining > 0 && remaining <= th && !c.fired[th] {
				c.fired[th] = true
				warnings = append(warnings, th)
			}
		}
		expired := remaining <= 0
		if expired {
			c.state = StateExpired
			c.stop = nil
			c.done = nil
		}

		// Callbacks run under the lock so a concurrent Cancel cannot
		// return while one is still in flight.
		c.listener.OnTick(remaining)
		for _, th := range warnings {
			log.Debug().Int("threshold_sec", th).Msg("countdown warning threshold crossed")
			c.listener.OnWarning(th)
		}
		if expired {
			c.listener.OnTimeout()
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		t.Reset(time.Second)
	}
}
