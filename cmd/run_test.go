package cmd

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/aurasync/internal/session"
)

// TestRunFlagValidation verifies that contradictory flags are rejected
// before anything starts.
func TestRunFlagValidation(t *testing.T) {
	dir := isolate(t)
	_, err := executeCommand(rootCmd, "run", "--tui", "--stdin", "-C", dir)
	assert.ErrorContains(t, err, "--tui cannot be combined with --stdin")

	dir = isolate(t)
	_, err = executeCommand(rootCmd, "run", "--no-watch", "-C", dir)
	assert.ErrorContains(t, err, "--no-watch needs --stdin")
}

// TestRunRefusesConcurrentSession verifies that a live session owned by
// another process blocks a second run.
func TestRunRefusesConcurrentSession(t *testing.T) {
	dir := isolate(t)
	store, err := session.NewStore(session.StoreOptions{})
	require.NoError(t, err)
	s := session.NewStatus(dir, time.Now())
	s.PID = os.Getppid()
	require.NoError(t, store.Save(s))

	_, err = executeCommand(rootCmd, "run", "--stdin", "--no-watch", "-C", dir)
	assert.ErrorContains(t, err, "session already in progress")
}

// TestRunStdinSession feeds a plugin stream through run and checks what
// was delivered and what the status file records once the stream closes.
func TestRunStdinSession(t *testing.T) {
	dir := isolate(t)
	cs := newCollectorServer(t)
	writeProjectConfig(t, dir, configFor(cs))

	input := strings.Join([]string{
		`{"scene":"Assets/Scenes/Main.unity","window":"SceneView"}`,
		`{"kind":"scene_saved","entity":"Assets/Scenes/Main.unity","is_write":true}`,
		`not json`,
		`{"kind":"play_mode_entered"}`,
		`{"kind":"package_import_completed","entity":"com.unity.textmeshpro"}`,
	}, "\n") + "\n"
	rootCmd.SetIn(strings.NewReader(input))
	defer rootCmd.SetIn(os.Stdin)

	// Heartbeat lines and log lines come from different goroutines.
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"run", "--stdin", "--no-watch", "-C", dir})
	_, err := rootCmd.ExecuteC()
	require.NoError(t, err, stderr.String())
	out := stdout.String()

	tags := cs.eventTags()
	require.NotEmpty(t, tags)
	assert.Equal(t, "session_start", tags[0])
	assert.Equal(t, "session_end", tags[len(tags)-1])
	assert.Contains(t, tags, "scene_save")
	assert.Contains(t, tags, "play_start")
	assert.Contains(t, tags, "package_import")
	assert.Contains(t, out, "Assets/Scenes/Main.unity")

	cs.mu.Lock()
	for _, p := range cs.payloads {
		if p.Heartbeat.EventTag == "package_import" {
			assert.Equal(t, "Package: com.unity.textmeshpro", p.Heartbeat.Entity)
		}
		if p.Heartbeat.EventTag == "play_start" {
			assert.Equal(t, "Main", p.Heartbeat.Scene)
			assert.Equal(t, "Assets/Scenes/Main.unity", p.Heartbeat.Entity)
		}
	}
	cs.mu.Unlock()

	store, err := session.NewStore(session.StoreOptions{})
	require.NoError(t, err)
	s, err := store.Load()
	require.NoError(t, err)
	assert.False(t, s.Running(), "status should be marked stopped")
	assert.Equal(t, session.StateEnded.String(), s.State)
	assert.Equal(t, "dev@example.com", s.User)
	assert.Equal(t, int64(len(tags)), s.Outcomes["success"])
	assert.Zero(t, s.Pending)
}
