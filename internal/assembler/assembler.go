// Package assembler builds heartbeat records from a classified event and a
// snapshot of the surrounding session context.
package assembler

import (
	"path"
	"strings"

	"github.com/fakeyudi/aurasync/internal/classifier"
	"github.com/fakeyudi/aurasync/internal/clock"
	"github.com/fakeyudi/aurasync/internal/heartbeat"
)

// RootMarker is where project-relative paths begin.
const RootMarker = "Assets/"

// Snapshot is the context captured at assembly time.
type Snapshot struct {
	Branch      string
	Scene       string
	Window      string
	HostVersion string
	Platform    string
}

// Assembler stamps and assembles heartbeats.
type Assembler struct {
	clock clock.Clock
}

// New returns an Assembler using c for timestamps. A nil clock means the
// real clock.
func New(c clock.Clock) *Assembler {
	if c == nil {
		c = clock.Real{}
	}
	return &Assembler{clock: c}
}

// Assemble combines an event with the context snapshot. It never fails.
func (a *Assembler) Assemble(tag heartbeat.Tag, entity string, isWrite bool, detail string, snap Snapshot) heartbeat.Heartbeat {
	h := heartbeat.Heartbeat{
		Tag:                tag,
		Category:           classifier.CategoryOf(tag),
		EntityType:         classifier.EntityTypeOf(entity),
		Entity:             entity,
		EntityRelativePath: RelativePath(entity),
		FileExtension:      FileExtension(entity),
		Timestamp:          a.clock.Now().UTC(),
		IsWrite:            isWrite,
		BranchName:         snap.Branch,
		SceneName:          snap.Scene,
		ActiveWindow:       snap.Window,
		Detail:             detail,
	}
	if tag == heartbeat.TagSessionStart {
		h.HostVersion = snap.HostVersion
		h.Platform = snap.Platform
	}
	return h
}

// RelativePath slices entity from the first RootMarker. Entities without
// the marker are returned unchanged.
func RelativePath(entity string) string {
	if i := strings.Index(entity, RootMarker); i >= 0 {
		return entity[i:]
	}
	return entity
}

// FileExtension returns the lower-case extension of a path-like entity,
// without the dot. Synthetic entities have none.
func FileExtension(entity string) string {
	if entity == "" || classifier.IsSynthetic(entity) {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(strings.ReplaceAll(entity, `\`, "/")), "."))
}
