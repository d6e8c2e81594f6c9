// Package session holds the session state machine and the on-disk status
// record that lets other processes inspect a running collector.
package session

import (
	"os"
	"time"

	"github.com/google/uuid"
)

// Status is the snapshot of a running (or finished) collector session
// written to disk for the status command.
type Status struct {
	ID        string     `json:"id"`
	PID       int        `json:"pid"`
	StartTime time.Time  `json:"start_time"`
	UpdatedAt time.Time  `json:"updated_at"`
	StopTime  *time.Time `json:"stop_time,omitempty"`
	WorkDir   string     `json:"work_dir"`
	User      string     `json:"user"`
	Project   string     `json:"project"`
	Branch    string     `json:"branch,omitempty"`
	State     string     `json:"state"`
	Active    bool       `json:"active"`

	LastActivity time.Time `json:"last_activity"`
	Emitted      int64     `json:"emitted"`
	Suppressed   int64     `json:"suppressed"`
	Enqueued     int64     `json:"enqueued"`
	Pending      int       `json:"pending"`
	// Outcomes counts delivery results by outcome name.
	Outcomes map[string]int64 `json:"outcomes,omitempty"`
	Tags     map[string]int64 `json:"tags,omitempty"`
}

// NewStatus returns a Status with a fresh session id.
func NewStatus(workDir string, start time.Time) *Status {
	return &Status{
		ID:        uuid.NewString(),
		PID:       os.Getpid(),
		StartTime: start,
		UpdatedAt: start,
		WorkDir:   workDir,
		State:     StateUninitialized.String(),
	}
}

// Running reports whether the session has not been stopped.
func (s *Status) Running() bool {
	return s.StopTime == nil
}
