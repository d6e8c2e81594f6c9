package assembler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/aurasync/internal/classifier"
	"github.com/fakeyudi/aurasync/internal/clock"
	"github.com/fakeyudi/aurasync/internal/heartbeat"
	"github.com/fakeyudi/aurasync/internal/signal"
)

func TestAssembleSceneSave(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 30, 0, 250_000_000, time.FixedZone("BRT", -3*3600))
	a := New(clock.NewFake(now))

	sig := signal.RawSignal{Kind: signal.SceneSaved, Entity: "Assets/Scenes/Main.unity", IsWrite: true, Detail: "Main"}
	r := classifier.Classify(sig)
	h := a.Assemble(r.Tag, sig.Entity, sig.IsWrite, sig.Detail, Snapshot{Branch: "main", Scene: "Main", Window: "SceneView"})

	assert.Equal(t, heartbeat.TagSceneSave, h.Tag)
	assert.Equal(t, heartbeat.EntityScene, h.EntityType)
	assert.Equal(t, heartbeat.CategorySceneEditing, h.Category)
	assert.Equal(t, "unity", h.FileExtension)
	assert.True(t, h.IsWrite)
	assert.Equal(t, "Assets/Scenes/Main.unity", h.EntityRelativePath)
	assert.Equal(t, "main", h.BranchName)
	assert.Equal(t, time.UTC, h.Timestamp.Location())
	assert.Equal(t, "2024-06-01T12:30:00.250Z", h.Data().Timestamp)
	assert.Empty(t, h.HostVersion)
}

func TestAssembleSessionStartCarriesHostContext(t *testing.T) {
	a := New(nil)
	snap := Snapshot{HostVersion: "2022.3.10f1", Platform: "darwin/arm64"}

	start := a.Assemble(heartbeat.TagSessionStart, "Demo", false, "", snap)
	require.Equal(t, "2022.3.10f1", start.HostVersion)
	require.Equal(t, "darwin/arm64", start.Platform)

	ping := a.Assemble(heartbeat.TagSessionPing, "Demo", false, "", snap)
	assert.Empty(t, ping.HostVersion)
	assert.Empty(t, ping.Platform)
}

func TestRelativePath(t *testing.T) {
	cases := map[string]string{
		"/home/dev/game/Assets/Scripts/Player.cs": "Assets/Scripts/Player.cs",
		"Assets/Scenes/Main.unity":                "Assets/Scenes/Main.unity",
		"GameObject: Player":                      "GameObject: Player",
		"":                                        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, RelativePath(in), "RelativePath(%q)", in)
	}
}

func TestFileExtension(t *testing.T) {
	cases := map[string]string{
		"Assets/Scripts/Player.CS":     "cs",
		`C:\game\Assets\Main.unity`:    "unity",
		"GameObject: Player.cs":        "",
		"Package: com.unity.ugui":      "",
		"MyGame":                       "",
		"Assets/Textures/grass.v2.png": "png",
	}
	for in, want := range cases {
		assert.Equal(t, want, FileExtension(in), "FileExtension(%q)", in)
	}
}
