package collector

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/aurasync/internal/signal"
)

type sink struct {
	mu     sync.Mutex
	scene  string
	window string
}

func (s *sink) SetScene(p string)  { s.mu.Lock(); s.scene = p; s.mu.Unlock() }
func (s *sink) SetWindow(w string) { s.mu.Lock(); s.window = w; s.mu.Unlock() }

func runStream(t *testing.T, input string, ctxSink ContextSink) []signal.RawSignal {
	t.Helper()
	var mu sync.Mutex
	var got []signal.RawSignal
	src := &StreamSource{Reader: strings.NewReader(input), Context: ctxSink}
	require.NoError(t, src.Start(context.Background(), func(s signal.RawSignal) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	}))
	select {
	case <-src.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream reader did not finish")
	}
	mu.Lock()
	defer mu.Unlock()
	return got
}

func TestStreamSourceParsesSignals(t *testing.T) {
	input := strings.Join([]string{
		`{"kind":"scene_saved","entity":"Assets/Scenes/Main.unity","is_write":true}`,
		``,
		`not json`,
		`{"kind":"compilation_started","detail":"Assembly-CSharp"}`,
		`{"kind":"teleported"}`,
	}, "\n")

	got := runStream(t, input, nil)
	require.Len(t, got, 3)

	assert.Equal(t, signal.SceneSaved, got[0].Kind)
	assert.Equal(t, "Assets/Scenes/Main.unity", got[0].Entity)
	assert.True(t, got[0].IsWrite)

	assert.Equal(t, signal.CompilationStarted, got[1].Kind)
	assert.Equal(t, "Assembly-CSharp", got[1].Detail)

	assert.Equal(t, signal.Unknown, got[2].Kind)
	assert.Equal(t, "teleported", got[2].Detail)
}

func TestStreamSourceContextLines(t *testing.T) {
	s := &sink{}
	input := `{"scene":"Assets/Scenes/Level1.unity","window":"SceneView"}
{"window":"InspectorWindow","kind":"inspector_edited","entity":"GameObject: Player"}
{"scene":""}
`
	got := runStream(t, input, s)

	require.Len(t, got, 1, "context-only lines must not emit")
	assert.Equal(t, signal.InspectorEdited, got[0].Kind)
	assert.Equal(t, "", s.scene, "explicit empty scene clears it")
	assert.Equal(t, "InspectorWindow", s.window)
}

func TestStreamSourceCounts(t *testing.T) {
	src := &StreamSource{Reader: strings.NewReader("{\"kind\":\"code_edited\"}\n{oops\n")}
	require.NoError(t, src.Start(context.Background(), func(signal.RawSignal) {}))
	<-src.Done()
	lines, bad := src.Counts()
	assert.Equal(t, int64(2), lines)
	assert.Equal(t, int64(1), bad)
}

func TestStreamSourceRequiresReader(t *testing.T) {
	src := &StreamSource{}
	assert.Error(t, src.Start(context.Background(), func(signal.RawSignal) {}))
}

func TestStreamSourceStartTwice(t *testing.T) {
	src := &StreamSource{Reader: strings.NewReader("")}
	require.NoError(t, src.Start(context.Background(), func(signal.RawSignal) {}))
	assert.Error(t, src.Start(context.Background(), func(signal.RawSignal) {}))
}
