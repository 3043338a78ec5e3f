package search

import (
	"context"
	"sync/atomic"
	"time"
)

// StopReason records why a time-boxed strategy terminated. Budget
// exhaustion is normal termination, not a failure: every strategy still
// returns a usable result.
type StopReason int

const (
	StopNone      StopReason = 0
	StopInterrupt StopReason = 1 << iota // SetStop(true) or context cancellation
	StopMovetime                         // time budget exhausted
	StopDepth                            // depth limit reached
)

func (sr StopReason) String() string {
	if sr == StopNone {
		return "None"
	}
	reasons := []struct {
		flag StopReason
		name string
	}{
		{StopInterrupt, "Interrupt"},
		{StopMovetime, "Movetime"},
		{StopDepth, "Depth"},
	}
	var result string
	for _, r := range reasons {
		if sr&r.flag == r.flag {
			if result != "" {
				result += "|"
			}
			result += r.name
		}
	}
	return result
}

const (
	// DefaultDepthLimit leaves depth effectively unbounded.
	DefaultDepthLimit int = 1 << 30
	// DefaultMovetimeLimit means no wall-clock budget.
	DefaultMovetimeLimit int = -1
)

// Limits configures a time-boxed strategy.
type Limits struct {
	Depth    int
	Movetime int // milliseconds
	Infinite bool
}

func DefaultLimits() *Limits {
	return &Limits{
		Depth:    DefaultDepthLimit,
		Movetime: DefaultMovetimeLimit,
		Infinite: true,
	}
}

func (l *Limits) SetDepth(depth int) *Limits {
	l.Depth = depth
	l.Infinite = false
	return l
}

// SetMovetime sets the wall-clock budget in milliseconds.
func (l *Limits) SetMovetime(movetime int) *Limits {
	l.Movetime = movetime
	l.Infinite = false
	return l
}

type timer struct {
	start    time.Time
	duration time.Duration
}

func newTimer() *timer {
	return &timer{time.Now(), -1}
}

func (t *timer) IsEnd() bool {
	return t.duration > 0 && time.Since(t.start) >= t.duration
}

func (t *timer) IsSet() bool {
	return t.duration != -1
}

func (t *timer) Reset() {
	t.start = time.Now()
}

func (t *timer) Deltatime() int {
	return max(int(time.Since(t.start).Milliseconds()), 1)
}

// Movetime arms the timer, in milliseconds; negative disarms. A zero
// budget expires immediately rather than never.
func (t *timer) Movetime(movetime int) {
	switch {
	case movetime < 0:
		t.duration = -1
	case movetime == 0:
		t.duration = 1
	default:
		t.duration = time.Duration(movetime) * time.Millisecond
	}
}

// Limiter is polled at node boundaries by the time-boxed strategies.
// Cancellation is cooperative: the current node completes to a consistent
// undo-stack depth before the strategy returns.
type Limiter struct {
	limits *Limits
	Timer  *timer
	stop   atomic.Bool
	reason StopReason
	ctx    context.Context
}

func NewLimiter(limits *Limits) *Limiter {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &Limiter{
		limits: limits,
		Timer:  newTimer(),
		ctx:    context.Background(),
	}
}

func (l *Limiter) SetContext(ctx context.Context) {
	l.ctx = ctx
}

func (l *Limiter) Limits() *Limits {
	return l.limits
}

// Reset arms the timer and clears the flags; called on search setup.
func (l *Limiter) Reset() {
	l.Timer.Movetime(l.limits.Movetime)
	l.Timer.Reset()
	l.stop.Store(false)
	l.reason = StopNone
}

func (l *Limiter) SetStop(v bool) {
	l.stop.Store(v)
}

func (l *Limiter) Stop() bool {
	select {
	case <-l.ctx.Done():
		l.stop.Store(true)
	default:
	}
	return l.stop.Load()
}

// Elapsed milliseconds since the last Reset.
func (l *Limiter) Elapsed() int {
	return l.Timer.Deltatime()
}

// Ok reports whether the search may continue at the given depth.
func (l *Limiter) Ok(depth int) bool {
	if l.Stop() {
		return false
	}
	if l.limits.Infinite {
		return true
	}
	if l.Timer.IsEnd() {
		return false
	}
	return depth <= l.limits.Depth
}

// EvaluateStopReason records why the search ended; valid afterwards via
// StopReason.
func (l *Limiter) EvaluateStopReason(depth int) {
	reason := StopNone
	if l.stop.Load() {
		reason |= StopInterrupt
	}
	if l.Timer.IsEnd() {
		reason |= StopMovetime
	}
	if !l.limits.Infinite && depth > l.limits.Depth {
		reason |= StopDepth
	}
	l.reason = reason
}

func (l *Limiter) StopReason() StopReason {
	return l.reason
}
