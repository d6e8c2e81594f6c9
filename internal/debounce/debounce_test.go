package debounce

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/aurasync/internal/heartbeat"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFirstOccurrenceAllowed(t *testing.T) {
	e := New(0)
	if e.Interval() != DefaultInterval {
		t.Fatalf("Interval() = %v, want %v", e.Interval(), DefaultInterval)
	}
	if !e.ShouldEmit(heartbeat.TagHierarchyChange, epoch, 0) {
		t.Fatal("first occurrence suppressed")
	}
	last, ok := e.LastAllowed(heartbeat.TagHierarchyChange)
	if !ok || !last.Equal(epoch) {
		t.Errorf("LastAllowed = %v, %v; want %v", last, ok, epoch)
	}
}

// TestPairWithinAndBeyondInterval checks that two signals closer than the
// interval yield exactly one emission, and two at least an interval apart
// yield two, with the recorded time tracking the allowed call.
func TestPairWithinAndBeyondInterval(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := time.Duration(rapid.IntRange(1, 10_000).Draw(t, "interval_ms")) * time.Millisecond
		gap := time.Duration(rapid.IntRange(0, 20_000).Draw(t, "gap_ms")) * time.Millisecond

		e := New(d)
		t0 := epoch
		t1 := t0.Add(gap)

		first := e.ShouldEmit(heartbeat.TagSelectionChange, t0, 0)
		second := e.ShouldEmit(heartbeat.TagSelectionChange, t1, 0)
		if !first {
			t.Fatalf("first signal suppressed")
		}

		last, _ := e.LastAllowed(heartbeat.TagSelectionChange)
		if gap < d {
			if second {
				t.Fatalf("gap %v < interval %v but both allowed", gap, d)
			}
			if !last.Equal(t0) {
				t.Fatalf("suppressed call mutated state: last = %v, want %v", last, t0)
			}
		} else {
			if !second {
				t.Fatalf("gap %v >= interval %v but second suppressed", gap, d)
			}
			if !last.Equal(t1) {
				t.Fatalf("last = %v, want %v", last, t1)
			}
		}
	})
}

// TestTagsIndependent checks that saturating one tag never affects another.
func TestTagsIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := heartbeat.Tag(rapid.IntRange(0, len(heartbeat.AllTags())-1).Draw(t, "a"))
		b := heartbeat.Tag(rapid.IntRange(0, len(heartbeat.AllTags())-1).Draw(t, "b"))
		if a == b {
			t.Skip("same tag")
		}
		n := rapid.IntRange(1, 50).Draw(t, "bursts")

		e := New(DefaultInterval)
		for i := 0; i < n; i++ {
			e.ShouldEmit(a, epoch.Add(time.Duration(i)*time.Millisecond), 0)
		}
		if !e.ShouldEmit(b, epoch, 0) {
			t.Fatalf("tag %v suppressed after bursts of %v", b, a)
		}
	})
}

func TestOverrideInterval(t *testing.T) {
	e := New(DefaultInterval)
	tag := heartbeat.TagAssetModify
	if !e.ShouldEmit(tag, epoch, 5*time.Second) {
		t.Fatal("first suppressed")
	}
	if e.ShouldEmit(tag, epoch.Add(3*time.Second), 5*time.Second) {
		t.Error("allowed inside override window")
	}
	if !e.ShouldEmit(tag, epoch.Add(5*time.Second), 5*time.Second) {
		t.Error("suppressed at override boundary")
	}
}

func TestReset(t *testing.T) {
	e := New(DefaultInterval)
	e.ShouldEmit(heartbeat.TagWindowFocus, epoch, 0)
	e.Reset()
	if _, ok := e.LastAllowed(heartbeat.TagWindowFocus); ok {
		t.Error("Reset kept state")
	}
}
