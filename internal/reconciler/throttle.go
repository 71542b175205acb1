package reconciler

import "time"

const DefaultReadingInterval = 2 * time.Second

// Throttle admits at most one update per interval. Rejected updates are
// dropped, not deferred. It is not safe for concurrent use.
type Throttle struct {
	interval time.Duration
	now      func() time.Time
	last     time.Time
	accepted bool
}

func NewThrottle(interval time.Duration, now func() time.Time) *Throttle {
	if now == nil {
		now = time.Now
	}
	return &Throttle{interval: interval, now: now}
}

// Allow reports whether an update arriving now may be applied, and if so
// moves the checkpoint to now.
func (t *Throttle) Allow() bool {
	now := t.now()
	if t.accepted && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	t.accepted = true
	return true
}

// SetInterval changes the window. The last checkpoint is kept.
func (t *Throttle) SetInterval(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.interval = d
}

func (t *Throttle) Interval() time.Duration { return t.interval }
