// Package delivery buffers assembled heartbeats and ships them to the
// collector endpoint from a single background drain loop.
package delivery

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fakeyudi/aurasync/internal/clock"
	"github.com/fakeyudi/aurasync/internal/heartbeat"
	"github.com/fakeyudi/aurasync/internal/logging"
)

// DefaultPace is the pause between two consecutive sends.
const DefaultPace = 100 * time.Millisecond

// Sender transmits one heartbeat and classifies the result. Implementations
// enforce their own per-request timeout.
type Sender interface {
	Send(ctx context.Context, h heartbeat.Heartbeat) Outcome
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, h heartbeat.Heartbeat) Outcome

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, h heartbeat.Heartbeat) Outcome { return f(ctx, h) }

// Options tunes a Queue.
type Options struct {
	// Pace is the delay between sends. Zero selects DefaultPace; a negative
	// value disables pacing.
	Pace time.Duration
	// Clock waits out the pace. Nil means the wall clock.
	Clock clock.Clock
}

// Stats is a point-in-time view of queue activity.
type Stats struct {
	Enqueued    int64
	Pending     int
	Draining    bool
	DrainStarts int64
	Outcomes    map[Outcome]int64
}

// Queue is an unbounded FIFO of heartbeats with at most one drain loop
// running at any time. Enqueue never blocks and never fails.
//
// A failed send is logged and dropped; nothing is retried.
type Queue struct {
	sender Sender
	pace   time.Duration
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	items    []heartbeat.Heartbeat
	draining atomic.Bool

	enqueued    atomic.Int64
	drainStarts atomic.Int64
	outcomes    [outcomeCount]atomic.Int64
}

// NewQueue returns an idle queue delivering through sender.
func NewQueue(sender Sender, opts Options, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = logging.Discard()
	}
	pace := opts.Pace
	switch {
	case pace == 0:
		pace = DefaultPace
	case pace < 0:
		pace = 0
	}
	c := opts.Clock
	if c == nil {
		c = clock.Real{}
	}
	return &Queue{sender: sender, pace: pace, clock: c, logger: logger}
}

// Enqueue appends h and starts a drain loop unless one is already running.
func (q *Queue) Enqueue(h heartbeat.Heartbeat) {
	q.mu.Lock()
	q.items = append(q.items, h)
	start := q.draining.CompareAndSwap(false, true)
	q.mu.Unlock()

	q.enqueued.Add(1)
	if start {
		q.drainStarts.Add(1)
		go q.drain()
	}
}

// pop removes the oldest item. When the queue is empty it clears the
// draining flag under the same lock Enqueue appends under, so an item can
// never be left behind with no loop running.
func (q *Queue) pop() (heartbeat.Heartbeat, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		q.draining.Store(false)
		return heartbeat.Heartbeat{}, false
	}
	h := q.items[0]
	q.items[0] = heartbeat.Heartbeat{}
	q.items = q.items[1:]
	return h, true
}

func (q *Queue) drain() {
	first := true
	for {
		h, ok := q.pop()
		if !ok {
			return
		}
		if !first && q.pace > 0 {
			q.clock.Sleep(q.pace)
		}
		first = false
		q.send(h)
	}
}

func (q *Queue) send(h heartbeat.Heartbeat) {
	outcome := OutcomeNetworkError
	defer func() {
		if r := recover(); r != nil {
			q.logger.Warn("heartbeat sender panicked", "tag", h.Tag.String(), "panic", r)
			outcome = OutcomeNetworkError
		}
		q.outcomes[outcome].Add(1)
		if outcome != OutcomeSuccess {
			q.logger.Debug("heartbeat dropped", "tag", h.Tag.String(), "outcome", outcome.String())
		}
	}()
	outcome = q.sender.Send(context.Background(), h)
	if outcome < 0 || outcome >= outcomeCount {
		outcome = OutcomeNetworkError
	}
}

// Len returns the number of heartbeats waiting to be sent.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Idle reports whether the queue is empty and no drain loop is running.
func (q *Queue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0 && !q.draining.Load()
}

// Flush waits until the queue is idle or ctx is done. It does not stop
// new items from being enqueued.
func (q *Queue) Flush(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for !q.Idle() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Stats returns current counters.
func (q *Queue) Stats() Stats {
	s := Stats{
		Enqueued:    q.enqueued.Load(),
		Pending:     q.Len(),
		Draining:    q.draining.Load(),
		DrainStarts: q.drainStarts.Load(),
		Outcomes:    make(map[Outcome]int64, outcomeCount),
	}
	for o := Outcome(0); o < outcomeCount; o++ {
		s.Outcomes[o] = q.outcomes[o].Load()
	}
	return s
}
