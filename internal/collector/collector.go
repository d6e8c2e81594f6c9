// Package collector turns raw host signals into heartbeats. It owns the
// debounce engine, the session state machine and the assembler, and hands
// every heartbeat to the delivery queue.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fakeyudi/aurasync/internal/assembler"
	"github.com/fakeyudi/aurasync/internal/classifier"
	"github.com/fakeyudi/aurasync/internal/clock"
	"github.com/fakeyudi/aurasync/internal/debounce"
	"github.com/fakeyudi/aurasync/internal/heartbeat"
	"github.com/fakeyudi/aurasync/internal/logging"
	"github.com/fakeyudi/aurasync/internal/session"
	"github.com/fakeyudi/aurasync/internal/signal"
)

const (
	// DefaultTickInterval is how often Run drives the session tick.
	DefaultTickInterval = time.Second

	signalBuffer = 256
)

// Enqueuer accepts assembled heartbeats. *delivery.Queue satisfies it.
type Enqueuer interface {
	Enqueue(h heartbeat.Heartbeat)
}

// Options tunes the collector. Zero fields take the package defaults.
type Options struct {
	Debounce        time.Duration
	ProjectDebounce time.Duration
	TickInterval    time.Duration
	Session         session.Options
}

// Deps are the collaborators of a Collector.
type Deps struct {
	Clock   clock.Clock
	Env     Environment
	Queue   Enqueuer
	Sources []signal.Source
	Logger  *slog.Logger
	Options Options
}

// Stats are running counters. They are safe to read from any goroutine.
type Stats struct {
	Received       int64 `json:"received"`
	Emitted        int64 `json:"emitted"`
	Suppressed     int64 `json:"suppressed"`
	Failed         int64 `json:"failed"`
	SignalsDropped int64 `json:"signals_dropped"`

	// Tags counts emitted heartbeats by wire tag.
	Tags map[string]int64 `json:"tags,omitempty"`
}

// Collector orchestrates one session. Ingestion is serialised: signals from
// sources are funnelled into Run's goroutine, and direct callers of
// HandleSignal and Tick share the same lock.
type Collector struct {
	clock     clock.Clock
	env       Environment
	queue     Enqueuer
	sources   []signal.Source
	logger    *slog.Logger
	opts      Options
	debounce  *debounce.Engine
	session   *session.Engine
	assembler *assembler.Assembler

	mu          sync.Mutex // serialises ingestion
	initialized bool
	shutdown    bool
	cancel      context.CancelFunc
	started     []signal.Source
	signals     chan signal.RawSignal

	lmu       sync.RWMutex
	listeners []func(heartbeat.Heartbeat)

	tmu       sync.Mutex
	tagCounts map[heartbeat.Tag]int64

	received       atomic.Int64
	emitted        atomic.Int64
	suppressed     atomic.Int64
	failed         atomic.Int64
	signalsDropped atomic.Int64
}

type nopQueue struct{}

func (nopQueue) Enqueue(heartbeat.Heartbeat) {}

// New wires a Collector. Nothing is emitted until Initialize.
func New(d Deps) *Collector {
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Env == nil {
		d.Env = &HostEnv{}
	}
	if d.Queue == nil {
		d.Queue = nopQueue{}
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Options.TickInterval <= 0 {
		d.Options.TickInterval = DefaultTickInterval
	}
	c := &Collector{
		clock:     d.Clock,
		env:       d.Env,
		queue:     d.Queue,
		sources:   d.Sources,
		logger:    d.Logger,
		opts:      d.Options,
		debounce:  debounce.New(d.Options.Debounce),
		assembler: assembler.New(d.Clock),
		signals:   make(chan signal.RawSignal, signalBuffer),
		tagCounts: make(map[heartbeat.Tag]int64),
	}
	c.session = session.NewEngine(d.Clock, d.Env, func(tag heartbeat.Tag, entity, detail string) {
		c.emit(tag, entity, false, detail)
	}, d.Options.Session)
	return c
}

// Initialize starts the sources and emits session_start. Sources that fail
// to start are logged and skipped. Calling it again is a no-op.
func (c *Collector) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}
	if c.shutdown {
		return fmt.Errorf("collector already shut down")
	}
	c.initialized = true

	srcCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	for _, src := range c.sources {
		if err := src.Start(srcCtx, c.push); err != nil {
			c.logger.Warn("signal source failed to start", "source", src.Name(), "error", err)
			continue
		}
		c.started = append(c.started, src)
		c.logger.Debug("signal source started", "source", src.Name())
	}

	c.session.Start()
	return nil
}

// push is the EmitFunc handed to sources. It never blocks; when the
// buffer is full the signal is dropped.
func (c *Collector) push(sig signal.RawSignal) {
	select {
	case c.signals <- sig:
	default:
		c.signalsDropped.Add(1)
		c.logger.Debug("signal buffer full, dropping", "kind", sig.Kind)
	}
}

// Run drives the collector until ctx ends: it initializes if needed,
// handles source signals one at a time and ticks the session. Signals
// already buffered when ctx ends are still handled. On return the
// collector has been shut down.
func (c *Collector) Run(ctx context.Context) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}
	defer c.Shutdown()

	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.drainSignals()
			return nil
		case sig := <-c.signals:
			c.HandleSignal(sig)
		case <-ticker.C:
			c.Tick()
		}
	}
}

func (c *Collector) drainSignals() {
	for {
		select {
		case sig := <-c.signals:
			c.HandleSignal(sig)
		default:
			return
		}
	}
}

// HandleSignal runs one raw signal through the pipeline: mark activity,
// debounce on the kind's base tag, classify, assemble, enqueue. It reports
// whether a heartbeat was produced. Signals before Initialize are dropped
// and counted; panics are contained here.
func (c *Collector) HandleSignal(sig signal.RawSignal) (ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.recoverSignal(sig, &ok)

	if !c.initialized {
		c.signalsDropped.Add(1)
		c.logger.Debug("signal before initialize, dropping", "kind", sig.Kind)
		return false
	}
	if c.shutdown {
		return false
	}
	return c.handle(sig)
}

func (c *Collector) handle(sig signal.RawSignal) bool {
	c.received.Add(1)
	now := c.clock.Now()
	c.session.MarkActivity(now)

	if p := classifier.PolicyFor(sig.Kind); p.Debounced {
		interval := p.Interval
		if sig.Kind == signal.ProjectChanged && c.opts.ProjectDebounce > 0 {
			interval = c.opts.ProjectDebounce
		}
		if !c.debounce.ShouldEmit(classifier.BaseTag(sig.Kind), now, interval) {
			c.suppressed.Add(1)
			return false
		}
	}

	res := classifier.Classify(sig)
	entity := classifier.NormalizeEntity(sig.Kind, sig.Entity)
	if entity == "" {
		entity = c.env.CurrentEntity()
	}
	c.emit(res.Tag, entity, sig.IsWrite, sig.Detail)
	return true
}

func (c *Collector) recoverSignal(sig signal.RawSignal, ok *bool) {
	if r := recover(); r != nil {
		c.failed.Add(1)
		c.logger.Warn("signal handler panicked", "kind", sig.Kind, "panic", r)
		*ok = false
	}
}

// Tick advances the session timers and polls the focused window. A focus
// change is routed as a window_focus_changed signal.
func (c *Collector) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized || c.shutdown {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.failed.Add(1)
			c.logger.Warn("session tick panicked", "panic", r)
		}
	}()

	c.session.Tick()
	if w := c.env.FocusedWindow(); c.session.ObserveFocus(w) {
		c.handle(signal.RawSignal{
			Kind:   signal.WindowFocusChanged,
			Entity: c.env.CurrentEntity(),
			Detail: w,
		})
	}
}

// Shutdown stops the sources and emits session_end. It does not wait for
// the queue to drain. Calling it again is a no-op.
func (c *Collector) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown {
		return
	}
	c.shutdown = true

	if c.cancel != nil {
		c.cancel()
	}
	for _, src := range c.started {
		src.Stop()
	}
	c.started = nil
	c.session.End()
}

// Observe registers fn to receive every heartbeat after it is enqueued.
func (c *Collector) Observe(fn func(heartbeat.Heartbeat)) {
	c.lmu.Lock()
	c.listeners = append(c.listeners, fn)
	c.lmu.Unlock()
}

// Session exposes the session state machine for status reporting.
func (c *Collector) Session() *session.Engine { return c.session }

// Stats returns a snapshot of the counters.
func (c *Collector) Stats() Stats {
	s := Stats{
		Received:       c.received.Load(),
		Emitted:        c.emitted.Load(),
		Suppressed:     c.suppressed.Load(),
		Failed:         c.failed.Load(),
		SignalsDropped: c.signalsDropped.Load(),
	}
	c.tmu.Lock()
	defer c.tmu.Unlock()
	if len(c.tagCounts) > 0 {
		s.Tags = make(map[string]int64, len(c.tagCounts))
		for t, n := range c.tagCounts {
			s.Tags[t.String()] = n
		}
	}
	return s
}

func (c *Collector) emit(tag heartbeat.Tag, entity string, isWrite bool, detail string) {
	snap := assembler.Snapshot{
		Branch:      c.session.Branch(),
		Scene:       c.env.SceneName(),
		Window:      c.env.FocusedWindow(),
		HostVersion: c.env.HostVersion(),
		Platform:    c.env.Platform(),
	}
	h := c.assembler.Assemble(tag, entity, isWrite, detail, snap)
	c.queue.Enqueue(h)
	c.emitted.Add(1)
	c.tmu.Lock()
	c.tagCounts[h.Tag]++
	c.tmu.Unlock()
	c.logger.Debug("heartbeat", "tag", h.Tag, "entity", h.Entity, "detail", h.Detail)
	c.notify(h)
}

func (c *Collector) notify(h heartbeat.Heartbeat) {
	c.lmu.RLock()
	listeners := c.listeners
	c.lmu.RUnlock()
	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Warn("heartbeat listener panicked", "panic", r)
				}
			}()
			fn(h)
		}()
	}
}
