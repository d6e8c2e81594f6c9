package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/fakeyudi/aurasync/internal/clock"
)

// statusFile is the name of the status record inside the data directory.
const statusFile = "session.json"

var (
	// ErrNoSession is returned when no status record exists.
	ErrNoSession = errors.New("no session recorded")
	// ErrSessionLive is returned when the recorded session is still owned by
	// a running process.
	ErrSessionLive = errors.New("session already in progress")
)

// StoreOptions tunes a Store.
type StoreOptions struct {
	// Clock stamps UpdatedAt and StopTime. Nil means the wall clock.
	Clock clock.Clock
	// Alive reports whether a pid names a running process. Nil means
	// ProcessAlive.
	Alive func(pid int) bool
}

// Store keeps the status record of the most recent session. There is one
// record per data directory; a new session overwrites a finished or stale
// one.
type Store struct {
	path  string
	clock clock.Clock
	alive func(pid int) bool
}

// NewStore returns a Store in $XDG_DATA_HOME/aurasync, falling back to
// ~/.local/share/aurasync.
func NewStore(opts StoreOptions) (*Store, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	return NewStoreAt(dir, opts)
}

// NewStoreAt returns a Store that keeps its record in dir.
func NewStoreAt(dir string, opts StoreOptions) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	st := &Store{path: filepath.Join(dir, statusFile), clock: opts.Clock, alive: opts.Alive}
	if st.clock == nil {
		st.clock = clock.Real{}
	}
	if st.alive == nil {
		st.alive = ProcessAlive
	}
	return st, nil
}

func dataDir() (string, error) {
	if base := os.Getenv("XDG_DATA_HOME"); base != "" {
		return filepath.Join(base, "aurasync"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "aurasync"), nil
}

// Path returns the location of the status record.
func (st *Store) Path() string { return st.path }

// Save stamps s.UpdatedAt with the store's clock and writes the record.
func (st *Store) Save(s *Status) error {
	s.UpdatedAt = st.clock.Now()
	return st.write(s)
}

// Finish marks s stopped at the current time, unless it already carries a
// stop time, and writes the final record.
func (st *Store) Finish(s *Status) error {
	now := st.clock.Now()
	if s.StopTime == nil {
		s.StopTime = &now
	}
	s.UpdatedAt = now
	return st.write(s)
}

// Load reads the record. It returns ErrNoSession if there is none.
func (st *Store) Load() (*Status, error) {
	data, err := os.ReadFile(st.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", st.path, err)
	}
	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", st.path, err)
	}
	if s.ID == "" {
		return nil, fmt.Errorf("parsing %s: record has no session id", st.path)
	}
	return &s, nil
}

// Alive reports whether the process that wrote s is still running.
func (st *Store) Alive(s *Status) bool { return st.alive(s.PID) }

// Live reports whether s is unstopped and its process is still running.
func (st *Store) Live(s *Status) bool { return s.Running() && st.alive(s.PID) }

// Claim checks that process pid may start a session. It fails with
// ErrSessionLive when the record belongs to another live process. Any
// other error means the record could not be read.
func (st *Store) Claim(pid int) error {
	s, err := st.Load()
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	if s.PID != pid && st.Live(s) {
		return fmt.Errorf("%w (pid %d)", ErrSessionLive, s.PID)
	}
	return nil
}

// Clear removes the record unless its session is still live. Clearing
// when there is no record is not an error.
func (st *Store) Clear() error {
	s, err := st.Load()
	switch {
	case errors.Is(err, ErrNoSession):
		return nil
	case err == nil && st.Live(s):
		return fmt.Errorf("%w: %s (pid %d)", ErrSessionLive, s.ID, s.PID)
	}
	// An unreadable record is removed too.
	if err := os.Remove(st.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", st.path, err)
	}
	return nil
}

// write replaces the record through a temp file in the same directory so
// readers never see a partial file.
func (st *Store) write(s *Status) (err error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", s.ID, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(st.path), statusFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing %s: %w", st.path, err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()
	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), st.path)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", st.path, err)
	}
	return nil
}

// ProcessAlive reports whether pid names a running process.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
