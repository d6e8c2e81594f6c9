// Package signal defines the raw activity notifications a host delivers
// and the Source abstraction the collector subscribes to.
package signal

import "context"

// Kind identifies the host notification that produced a RawSignal.
type Kind string

const (
	PlayModeEntered        Kind = "play_mode_entered"
	PlayModeExiting        Kind = "play_mode_exiting"
	HierarchyChanged       Kind = "hierarchy_changed"
	ProjectChanged         Kind = "project_changed"
	SelectionChanged       Kind = "selection_changed"
	SceneSaved             Kind = "scene_saved"
	SceneOpened            Kind = "scene_opened"
	SceneClosing           Kind = "scene_closing"
	SceneCreated           Kind = "scene_created"
	PackageImportCompleted Kind = "package_import_completed"
	PackageImportFailed    Kind = "package_import_failed"
	CompilationStarted     Kind = "compilation_started"
	CompilationFinished    Kind = "compilation_finished"
	WindowFocusChanged     Kind = "window_focus_changed"
	CodeEdited             Kind = "code_edited"
	CodeSaved              Kind = "code_saved"
	AssetImported          Kind = "asset_imported"
	InspectorEdited        Kind = "inspector_edited"
	ProjectBrowsed         Kind = "project_browsed"

	// Unknown is any kind outside the closed set above.
	Unknown Kind = "unknown"
)

// Kinds lists every known kind in declaration order.
var Kinds = []Kind{
	PlayModeEntered, PlayModeExiting, HierarchyChanged, ProjectChanged,
	SelectionChanged, SceneSaved, SceneOpened, SceneClosing, SceneCreated,
	PackageImportCompleted, PackageImportFailed, CompilationStarted,
	CompilationFinished, WindowFocusChanged, CodeEdited, CodeSaved,
	AssetImported, InspectorEdited, ProjectBrowsed,
}

var known = func() map[Kind]bool {
	m := make(map[Kind]bool, len(Kinds))
	for _, k := range Kinds {
		m[k] = true
	}
	return m
}()

// ParseKind maps a wire string to a Kind, returning Unknown for anything
// outside the closed set.
func ParseKind(s string) Kind {
	k := Kind(s)
	if known[k] {
		return k
	}
	return Unknown
}

// Known reports whether k belongs to the closed set.
func (k Kind) Known() bool { return known[k] }

// RawSignal is one activity notification from the host. It is transient:
// produced by a Source, consumed once by the collector.
type RawSignal struct {
	Kind    Kind   `json:"kind"`
	Entity  string `json:"entity,omitempty"`   // opaque reference to the affected item
	IsWrite bool   `json:"is_write,omitempty"` // true for modifying operations
	Detail  string `json:"detail,omitempty"`
}

// EmitFunc receives signals from a Source. Implementations must not block.
type EmitFunc func(RawSignal)

// Source is a host binding that produces raw signals.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// Start subscribes to the host and begins delivering signals to emit.
	// It returns once the subscription is established; delivery continues
	// in the background until ctx is cancelled or Stop is called.
	Start(ctx context.Context, emit EmitFunc) error
	// Stop releases the subscription. It is safe to call more than once.
	Stop()
}
