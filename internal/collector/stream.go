package collector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fakeyudi/aurasync/internal/logging"
	"github.com/fakeyudi/aurasync/internal/signal"
)

const maxLineSize = 1 << 20

// ContextSink receives host context updates carried on the stream.
type ContextSink interface {
	SetScene(path string)
	SetWindow(window string)
}

// StreamSource reads newline-delimited JSON from a host plugin. Each line
// is either a signal,
//
//	{"kind":"scene_saved","entity":"Assets/Scenes/Main.unity","is_write":true}
//
// or a context update,
//
//	{"scene":"Assets/Scenes/Main.unity","window":"SceneView"}
//
// A line may carry both. Malformed lines are logged and skipped.
type StreamSource struct {
	Reader  io.Reader
	Context ContextSink // optional
	Logger  *slog.Logger

	mu      sync.Mutex
	started bool
	done    chan struct{}
	lines   int64
	bad     int64
}

// streamLine is the union of both line shapes.
type streamLine struct {
	Kind    string  `json:"kind"`
	Entity  string  `json:"entity"`
	IsWrite bool    `json:"is_write"`
	Detail  string  `json:"detail"`
	Scene   *string `json:"scene"`
	Window  *string `json:"window"`
}

// Name implements signal.Source.
func (s *StreamSource) Name() string { return "stream" }

// Start implements signal.Source. Reading stops at EOF, on a read error or
// when ctx is cancelled and the next line arrives.
func (s *StreamSource) Start(ctx context.Context, emit signal.EmitFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Reader == nil {
		return fmt.Errorf("stream source has no reader")
	}
	if s.started {
		return fmt.Errorf("stream source already started")
	}
	if s.Logger == nil {
		s.Logger = logging.Discard()
	}
	s.started = true
	s.done = make(chan struct{})
	go s.read(ctx, emit)
	return nil
}

// Stop implements signal.Source. A blocked read cannot be interrupted, so
// Stop does not wait for the reader goroutine.
func (s *StreamSource) Stop() {
	if c, ok := s.Reader.(io.Closer); ok {
		c.Close()
	}
}

// Done is closed when the reader goroutine exits.
func (s *StreamSource) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *StreamSource) read(ctx context.Context, emit signal.EmitFunc) {
	defer close(s.done)

	scanner := bufio.NewScanner(s.Reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		s.handleLine(line, emit)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.Logger.Warn("reading signal stream", "error", err)
	}
}

func (s *StreamSource) handleLine(line []byte, emit signal.EmitFunc) {
	s.mu.Lock()
	s.lines++
	s.mu.Unlock()

	var l streamLine
	if err := json.Unmarshal(line, &l); err != nil {
		s.mu.Lock()
		s.bad++
		s.mu.Unlock()
		s.Logger.Debug("skipping malformed stream line", "error", err)
		return
	}

	if s.Context != nil {
		if l.Scene != nil {
			s.Context.SetScene(*l.Scene)
		}
		if l.Window != nil {
			s.Context.SetWindow(*l.Window)
		}
	}
	if l.Kind == "" {
		return
	}
	sig := signal.RawSignal{
		Kind:    signal.ParseKind(l.Kind),
		Entity:  l.Entity,
		IsWrite: l.IsWrite,
		Detail:  l.Detail,
	}
	// Keep the unrecognised name visible downstream.
	if sig.Kind == signal.Unknown && sig.Detail == "" {
		sig.Detail = l.Kind
	}
	emit(sig)
}

// Counts returns the number of lines read and how many were malformed.
func (s *StreamSource) Counts() (lines, malformed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines, s.bad
}
