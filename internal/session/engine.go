package session

import (
	"sync"
	"time"

	"github.com/fakeyudi/aurasync/internal/clock"
	"github.com/fakeyudi/aurasync/internal/heartbeat"
)

// Defaults for Options.
const (
	DefaultPollInterval        = 120 * time.Second
	DefaultInactivityThreshold = 300 * time.Second
	DefaultContextRefresh      = 300 * time.Second
)

// EndEntity is the entity reported on session_end.
const EndEntity = "Session End"

// State is the lifecycle position of an Engine.
type State int

const (
	StateUninitialized State = iota
	StateStarted
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateEnded:
		return "ended"
	default:
		return "uninitialized"
	}
}

// Env supplies the context the engine caches between refreshes.
type Env interface {
	Branch() string
	ProductName() string
}

// EmitFunc receives the synthetic events produced by the engine.
type EmitFunc func(tag heartbeat.Tag, entity, detail string)

// Options tunes the engine's timers. Zero fields take the defaults.
type Options struct {
	PollInterval        time.Duration
	InactivityThreshold time.Duration
	ContextRefresh      time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.InactivityThreshold <= 0 {
		o.InactivityThreshold = DefaultInactivityThreshold
	}
	if o.ContextRefresh <= 0 {
		o.ContextRefresh = DefaultContextRefresh
	}
	return o
}

// Engine is the session state machine. It emits session_start once,
// idle-gated session_ping on ticks and session_end once.
//
// Active and idle are never stored; they are recomputed from the time of
// the last real activity whenever they are needed.
type Engine struct {
	clock clock.Clock
	env   Env
	emit  EmitFunc
	opts  Options

	mu                sync.Mutex
	state             State
	lastRealActivity  time.Time
	nextPeriodicCheck time.Time
	lastBranchCheck   time.Time
	branch            string
	refreshing        bool
	lastFocus         string
}

// NewEngine returns an engine in the uninitialized state. Nothing is
// emitted until Start.
func NewEngine(c clock.Clock, env Env, emit EmitFunc, opts Options) *Engine {
	if c == nil {
		c = clock.Real{}
	}
	if emit == nil {
		emit = func(heartbeat.Tag, string, string) {}
	}
	return &Engine{clock: c, env: env, emit: emit, opts: opts.withDefaults()}
}

// Start emits session_start and arms the periodic check. It reports
// whether this call performed the transition; later calls are no-ops.
func (e *Engine) Start() bool {
	e.mu.Lock()
	if e.state != StateUninitialized {
		e.mu.Unlock()
		return false
	}
	now := e.clock.Now()
	e.state = StateStarted
	e.lastRealActivity = now
	e.nextPeriodicCheck = now.Add(e.opts.PollInterval)
	e.lastBranchCheck = now
	e.branch = e.envBranch()
	product := e.productName()
	e.mu.Unlock()

	e.emit(heartbeat.TagSessionStart, product, "")
	return true
}

// Tick runs the periodic work: an idle-gated ping once per poll interval
// and a context refresh once per refresh interval. It reports whether a
// ping was emitted. The branch lookup runs on its own goroutine and only
// the cached value is swapped here, so Tick never waits on the
// environment.
func (e *Engine) Tick() bool {
	e.mu.Lock()
	if e.state != StateStarted {
		e.mu.Unlock()
		return false
	}
	now := e.clock.Now()

	if now.Sub(e.lastBranchCheck) >= e.opts.ContextRefresh && !e.refreshing {
		e.lastBranchCheck = now
		e.refreshing = true
		go e.refreshBranch()
	}

	ping := false
	if !now.Before(e.nextPeriodicCheck) {
		e.nextPeriodicCheck = now.Add(e.opts.PollInterval)
		ping = now.Sub(e.lastRealActivity) < e.opts.InactivityThreshold
	}
	product := e.productName()
	e.mu.Unlock()

	if ping {
		e.emit(heartbeat.TagSessionPing, product, "")
	}
	return ping
}

// MarkActivity records real developer activity at now. Older timestamps
// are ignored.
func (e *Engine) MarkActivity(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if now.After(e.lastRealActivity) {
		e.lastRealActivity = now
	}
}

// ObserveFocus records the focused window and reports whether it changed
// to a non-empty identity since the last observation.
func (e *Engine) ObserveFocus(window string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if window == e.lastFocus {
		return false
	}
	e.lastFocus = window
	return window != ""
}

// End emits session_end and makes the engine terminal. Only a started
// engine emits; ending an engine that never started just closes it.
func (e *Engine) End() bool {
	e.mu.Lock()
	prev := e.state
	e.state = StateEnded
	e.mu.Unlock()

	if prev != StateStarted {
		return false
	}
	e.emit(heartbeat.TagSessionEnd, EndEntity, "")
	return true
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Active reports whether the developer counts as active at now.
func (e *Engine) Active(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == StateStarted && now.Sub(e.lastRealActivity) < e.opts.InactivityThreshold
}

// Branch returns the cached branch name.
func (e *Engine) Branch() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.branch
}

// LastActivity returns the time of the last real activity.
func (e *Engine) LastActivity() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRealActivity
}

func (e *Engine) refreshBranch() {
	b := e.envBranch()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshing = false
	if b != "" {
		e.branch = b
	}
}

// Refreshing reports whether a branch lookup is in flight.
func (e *Engine) Refreshing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refreshing
}

func (e *Engine) envBranch() string {
	if e.env == nil {
		return ""
	}
	return e.env.Branch()
}

func (e *Engine) productName() string {
	if e.env == nil {
		return ""
	}
	return e.env.ProductName()
}
