package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/aurasync/internal/heartbeat"
)

// collectorServer records every payload posted to it.
type collectorServer struct {
	*httptest.Server
	mu       sync.Mutex
	payloads []heartbeat.Payload
	keys     []string
}

func newCollectorServer(t *testing.T) *collectorServer {
	t.Helper()
	cs := &collectorServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p heartbeat.Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cs.mu.Lock()
		cs.payloads = append(cs.payloads, p)
		cs.keys = append(cs.keys, r.Header.Get("api_key"))
		cs.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *collectorServer) eventTags() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	tags := make([]string, len(cs.payloads))
	for i, p := range cs.payloads {
		tags[i] = p.Heartbeat.EventTag
	}
	return tags
}

func configFor(cs *collectorServer) string {
	return "project_name: Demo\n" +
		"endpoint: " + cs.URL + "\n" +
		"api_key: test-key\n" +
		"send_pace: 1ms\n"
}

// TestEmitSendsOneShotSession verifies that emit delivers start, the
// signal and end, in order, with the identity wrapper.
func TestEmitSendsOneShotSession(t *testing.T) {
	dir := isolate(t)
	cs := newCollectorServer(t)
	writeProjectConfig(t, dir, configFor(cs))

	out, err := executeCommand(rootCmd, "emit", "scene_saved", "Assets/Scenes/Main.unity", "--write", "-C", dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"session_start", "scene_save", "session_end"}, cs.eventTags())
	assert.Contains(t, out, "3 heartbeats, success=3")

	cs.mu.Lock()
	defer cs.mu.Unlock()
	save := cs.payloads[1]
	assert.Equal(t, "dev@example.com", save.User)
	assert.Equal(t, "Demo", save.Project)
	assert.Equal(t, "Assets/Scenes/Main.unity", save.Heartbeat.Entity)
	assert.Equal(t, "scene_editing", save.Heartbeat.Category)
	assert.Equal(t, "scene", save.Heartbeat.EntityType)
	assert.True(t, save.Heartbeat.IsWrite)
	assert.NotEmpty(t, save.SessionID)
	assert.Equal(t, save.SessionID, cs.payloads[0].SessionID)
	for _, k := range cs.keys {
		assert.Equal(t, "test-key", k)
	}
}

// TestEmitUnknownKindRecordsOther verifies that an unrecognised kind is
// still delivered, as other.
func TestEmitUnknownKindRecordsOther(t *testing.T) {
	dir := isolate(t)
	cs := newCollectorServer(t)
	writeProjectConfig(t, dir, configFor(cs))

	out, err := executeCommand(rootCmd, "emit", "terrain_painted", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `unknown kind "terrain_painted"`)
	assert.Equal(t, []string{"session_start", "other", "session_end"}, cs.eventTags())
}

// TestEmitWithoutEndpoint verifies that nothing is sent and the command
// still succeeds when no endpoint is configured.
func TestEmitWithoutEndpoint(t *testing.T) {
	dir := isolate(t)
	out, err := executeCommand(rootCmd, "emit", "play_mode_entered", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "config_missing=3")
	assert.True(t, strings.Contains(out, "Play Mode"), "emitted heartbeat should be printed:\n%s", out)
}

// TestEmitRequiresKind verifies argument validation.
func TestEmitRequiresKind(t *testing.T) {
	dir := isolate(t)
	_, err := executeCommand(rootCmd, "emit", "-C", dir)
	assert.Error(t, err)
}
