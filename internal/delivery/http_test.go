package delivery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/aurasync/internal/heartbeat"
)

func sceneSave() heartbeat.Heartbeat {
	return heartbeat.Heartbeat{
		Tag:                heartbeat.TagSceneSave,
		Category:           heartbeat.CategorySceneEditing,
		EntityType:         heartbeat.EntityScene,
		Entity:             "Assets/Scenes/Main.unity",
		EntityRelativePath: "Assets/Scenes/Main.unity",
		FileExtension:      "unity",
		IsWrite:            true,
		Timestamp:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestHTTPSenderPostsPayload(t *testing.T) {
	var got heartbeat.Payload
	var header http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewHTTPSender(HTTPConfig{
		Endpoint:  srv.URL,
		APIKey:    "k-123",
		User:      "dev@example.com",
		Project:   "Demo",
		SessionID: "sess-1",
	}, srv.Client(), nil)

	outcome := s.Send(context.Background(), sceneSave())
	require.Equal(t, OutcomeSuccess, outcome)

	assert.Equal(t, "k-123", header.Get("api_key"))
	assert.Equal(t, "application/json", header.Get("Content-Type"))
	assert.Equal(t, "dev@example.com", got.User)
	assert.Equal(t, "Demo", got.Project)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, "scene_save", got.Heartbeat.EventTag)
	assert.Equal(t, "2024-01-02T03:04:05.000Z", got.Heartbeat.Timestamp)
	require.NotNil(t, got.Heartbeat.FileExt)
	assert.Equal(t, "unity", *got.Heartbeat.FileExt)
}

func TestHTTPSenderMissingConfigIsNoop(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	for _, cfg := range []HTTPConfig{
		{Endpoint: srv.URL},
		{APIKey: "key"},
		{},
	} {
		s := NewHTTPSender(cfg, srv.Client(), nil)
		assert.False(t, s.Configured())
		assert.Equal(t, OutcomeConfigMissing, s.Send(context.Background(), sceneSave()))
	}
	assert.Zero(t, hits.Load())
}

func TestHTTPSenderNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewHTTPSender(HTTPConfig{Endpoint: srv.URL, APIKey: "bad"}, srv.Client(), nil)
	assert.Equal(t, OutcomeNetworkError, s.Send(context.Background(), sceneSave()))
}

func TestHTTPSenderTimeout(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-done:
		}
	}))
	defer srv.Close()
	defer close(done)

	s := NewHTTPSender(HTTPConfig{Endpoint: srv.URL, APIKey: "k", Timeout: 50 * time.Millisecond}, srv.Client(), nil)
	start := time.Now()
	assert.Equal(t, OutcomeTimeout, s.Send(context.Background(), sceneSave()))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHTTPSenderConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	s := NewHTTPSender(HTTPConfig{Endpoint: url, APIKey: "k"}, nil, nil)
	assert.Equal(t, OutcomeNetworkError, s.Send(context.Background(), sceneSave()))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "config_missing", OutcomeConfigMissing.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
