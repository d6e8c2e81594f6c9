package cmd

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/aurasync/internal/session"
)

// TestStatusNoSession verifies the message shown before any session ran.
func TestStatusNoSession(t *testing.T) {
	dir := isolate(t)
	out, err := executeCommand(rootCmd, "status", "-C", dir)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "no active session") {
		t.Errorf("unexpected output: %q", out)
	}
}

// TestStatusCountsAccuracy verifies that the counters in the status file
// are printed as stored.
func TestStatusCountsAccuracy(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		emitted := rapid.Int64Range(0, 10_000).Draw(rt, "emitted")
		suppressed := rapid.Int64Range(0, 10_000).Draw(rt, "suppressed")
		pending := rapid.IntRange(0, 100).Draw(rt, "pending")

		dir := isolate(t)
		store, err := session.NewStore(session.StoreOptions{})
		if err != nil {
			rt.Fatalf("NewStore: %v", err)
		}

		start := time.Now().Add(-time.Hour)
		stop := start.Add(30 * time.Minute)
		s := session.NewStatus(dir, start)
		s.StopTime = &stop
		s.Project = "Demo"
		s.Emitted = emitted
		s.Suppressed = suppressed
		s.Pending = pending
		s.Outcomes = map[string]int64{"success": emitted}
		if err := store.Save(s); err != nil {
			rt.Fatalf("Save: %v", err)
		}

		out, err := executeCommand(rootCmd, "status", "-C", dir)
		if err != nil {
			rt.Fatalf("status command error: %v", err)
		}

		wantCounts := fmt.Sprintf("Heartbeats: %d emitted, %d suppressed", emitted, suppressed)
		if !strings.Contains(out, wantCounts) {
			rt.Errorf("output missing %q:\n%s", wantCounts, out)
		}
		wantQueue := fmt.Sprintf("%d pending", pending)
		if !strings.Contains(out, wantQueue) {
			rt.Errorf("output missing %q:\n%s", wantQueue, out)
		}
		if !strings.Contains(out, "State: stopped") {
			rt.Errorf("stopped session not reported as stopped:\n%s", out)
		}
		if !strings.Contains(out, "Duration: 30m0s") {
			rt.Errorf("duration should run to the stop time:\n%s", out)
		}
	})
}

// TestStatusRunningSession verifies that a live session reports its state.
func TestStatusRunningSession(t *testing.T) {
	dir := isolate(t)
	store, err := session.NewStore(session.StoreOptions{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s := session.NewStatus(dir, time.Now())
	s.State = session.StateStarted.String()
	s.Branch = "main"
	if err := store.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if s.PID != os.Getpid() {
		t.Fatalf("status should record the current pid")
	}

	out, err := executeCommand(rootCmd, "status", "-C", dir)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"State: started", "Branch: main", "Delivery: none sent"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// TestStatusFormats verifies the markdown and json renderings and the
// rejection of unknown formats.
func TestStatusFormats(t *testing.T) {
	dir := isolate(t)
	store, err := session.NewStore(session.StoreOptions{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s := session.NewStatus(dir, time.Now())
	s.Project = "Demo"
	s.Tags = map[string]int64{"scene_save": 2}
	if err := store.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	md, err := executeCommand(rootCmd, "status", "--format", "markdown", "-C", dir)
	if err != nil {
		t.Fatalf("status markdown: %v", err)
	}
	if !strings.Contains(md, "| `scene_save` |") {
		t.Errorf("markdown missing tag row:\n%s", md)
	}

	js, err := executeCommand(rootCmd, "status", "--format", "json", "-C", dir)
	if err != nil {
		t.Fatalf("status json: %v", err)
	}
	if !strings.Contains(js, `"project": "Demo"`) {
		t.Errorf("json missing project:\n%s", js)
	}

	if _, err := executeCommand(rootCmd, "status", "--format", "xml", "-C", dir); err == nil {
		t.Error("unknown format should fail")
	}
}

// TestStatusClear verifies that a finished session record can be removed
// and a live one cannot.
func TestStatusClear(t *testing.T) {
	dir := isolate(t)
	store, err := session.NewStore(session.StoreOptions{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	live := session.NewStatus(dir, time.Now())
	live.PID = os.Getppid()
	if err := store.Save(live); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := executeCommand(rootCmd, "status", "--clear", "-C", dir); err == nil {
		t.Fatal("clearing a live session should fail")
	}

	stop := time.Now()
	live.StopTime = &stop
	if err := store.Save(live); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := executeCommand(rootCmd, "status", "--clear", "-C", dir)
	if err != nil {
		t.Fatalf("status --clear: %v", err)
	}
	if !strings.Contains(out, "cleared") {
		t.Errorf("unexpected output: %q", out)
	}
	if _, err := store.Load(); err == nil {
		t.Error("session record should be gone")
	}
}
