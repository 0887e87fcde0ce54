package datagrid

import (
	"time"

	"golang.org/x/time/rate"
)

// throttle lets at most one call through per interval. A call that is held
// back is remembered, so the caller can still deliver it on the next tick or
// on flush; intermediate calls collapse into that one.
type throttle struct {
	limiter *rate.Limiter
	now     func() time.Time
	pending bool
}

// newThrottle returns a throttle with the given interval; zero or negative
// lets every call through.
func newThrottle(interval time.Duration) *throttle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &throttle{limiter: rate.NewLimiter(limit, 1), now: time.Now}
}

// allow reports whether a call may run now, recording it as pending if not.
func (t *throttle) allow() bool {
	if t.limiter.AllowN(t.now(), 1) {
		t.pending = false
		return true
	}
	t.pending = true
	return false
}

// flush reports and clears a held back call.
func (t *throttle) flush() bool {
	p := t.pending
	t.pending = false
	return p
}
