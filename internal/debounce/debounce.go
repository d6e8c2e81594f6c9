// Package debounce implements a per-tag sliding-window rate limiter.
package debounce

import (
	"time"

	"github.com/fakeyudi/aurasync/internal/heartbeat"
)

// DefaultInterval is the minimum spacing between two allowed signals of
// the same tag.
const DefaultInterval = 2 * time.Second

// Engine remembers, per tag, when a signal was last allowed through.
// It is owned by a single ingestion goroutine and is not safe for
// concurrent use.
type Engine struct {
	interval    time.Duration
	lastAllowed map[heartbeat.Tag]time.Time
}

// New returns an Engine with the given default interval. A non-positive
// interval selects DefaultInterval.
func New(interval time.Duration) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Engine{
		interval:    interval,
		lastAllowed: make(map[heartbeat.Tag]time.Time),
	}
}

// ShouldEmit reports whether a signal for tag at now may pass. override,
// when positive, replaces the default interval for this call. A suppressed
// call leaves the state untouched; an allowed call records now.
func (e *Engine) ShouldEmit(tag heartbeat.Tag, now time.Time, override time.Duration) bool {
	interval := e.interval
	if override > 0 {
		interval = override
	}
	if last, ok := e.lastAllowed[tag]; ok && now.Sub(last) < interval {
		return false
	}
	e.lastAllowed[tag] = now
	return true
}

// LastAllowed returns the time of the most recent allowed signal for tag.
func (e *Engine) LastAllowed(tag heartbeat.Tag) (time.Time, bool) {
	t, ok := e.lastAllowed[tag]
	return t, ok
}

// Interval returns the default interval.
func (e *Engine) Interval() time.Duration { return e.interval }

// Reset forgets every recorded tag.
func (e *Engine) Reset() {
	clear(e.lastAllowed)
}
