// Package classifier maps raw host signals to canonical heartbeat tags,
// categories and entity types. Every function here is pure.
package classifier

import (
	"strings"
	"time"

	"github.com/fakeyudi/aurasync/internal/heartbeat"
	"github.com/fakeyudi/aurasync/internal/signal"
)

// Entity markers and file suffixes recognised by EntityTypeOf.
const (
	GameObjectMarker = "GameObject:"
	PackageMarker    = "Package:"

	SceneExt  = ".unity"
	PrefabExt = ".prefab"
	CodeExt   = ".cs"
	DataExt   = ".asset"
)

// Result is the classification of one signal.
type Result struct {
	Tag        heartbeat.Tag
	Category   heartbeat.Category
	EntityType heartbeat.EntityType
}

// Policy is the throttling rule for a signal kind. A zero Interval means the
// engine default.
type Policy struct {
	Debounced bool
	Interval  time.Duration
}

// ProjectChangedInterval throttles bulk project-changed notifications.
const ProjectChangedInterval = 5 * time.Second

var baseTags = map[signal.Kind]heartbeat.Tag{
	signal.PlayModeEntered:        heartbeat.TagPlayStart,
	signal.PlayModeExiting:        heartbeat.TagPlayStop,
	signal.HierarchyChanged:       heartbeat.TagHierarchyChange,
	signal.ProjectChanged:         heartbeat.TagAssetModify,
	signal.SelectionChanged:       heartbeat.TagSelectionChange,
	signal.SceneSaved:             heartbeat.TagSceneSave,
	signal.SceneOpened:            heartbeat.TagSceneOpen,
	signal.SceneClosing:           heartbeat.TagSceneClose,
	signal.SceneCreated:           heartbeat.TagSceneCreate,
	signal.PackageImportCompleted: heartbeat.TagPackageImport,
	signal.PackageImportFailed:    heartbeat.TagPackageFailed,
	signal.CompilationStarted:     heartbeat.TagCompileStart,
	signal.CompilationFinished:    heartbeat.TagCompileEnd,
	signal.WindowFocusChanged:     heartbeat.TagWindowFocus,
	signal.CodeEdited:             heartbeat.TagCodeEdit,
	signal.CodeSaved:              heartbeat.TagCodeSave,
	signal.AssetImported:          heartbeat.TagAssetImport,
	signal.InspectorEdited:        heartbeat.TagInspectorEdit,
	signal.ProjectBrowsed:         heartbeat.TagProjectBrowse,
}

var policies = map[signal.Kind]Policy{
	signal.HierarchyChanged:   {Debounced: true},
	signal.ProjectChanged:     {Debounced: true, Interval: ProjectChangedInterval},
	signal.SelectionChanged:   {Debounced: true},
	signal.WindowFocusChanged: {Debounced: true},
	signal.CodeEdited:         {Debounced: true},
	signal.CodeSaved:          {Debounced: true},
	signal.AssetImported:      {Debounced: true},
	signal.InspectorEdited:    {Debounced: true},
	signal.ProjectBrowsed:     {Debounced: true},
}

// BaseTag returns the tag a kind maps to before any entity-based
// refinement. It is also the debounce key for the kind.
func BaseTag(k signal.Kind) heartbeat.Tag {
	if t, ok := baseTags[k]; ok {
		return t
	}
	return heartbeat.TagOther
}

// PolicyFor returns the throttling rule for k. Discrete lifecycle signals
// (play, scene, package, compile) are never debounced.
func PolicyFor(k signal.Kind) Policy {
	return policies[k]
}

// Classify maps a signal to its (tag, category, entity type) triple. It is
// total: unknown kinds classify as other.
func Classify(sig signal.RawSignal) Result {
	tag := BaseTag(sig.Kind)
	if sig.Kind == signal.SelectionChanged {
		tag = refineSelection(sig.Entity)
	}
	return Result{
		Tag:        tag,
		Category:   CategoryOf(tag),
		EntityType: EntityTypeOf(NormalizeEntity(sig.Kind, sig.Entity)),
	}
}

// refineSelection picks a more specific tag from what was selected.
func refineSelection(entity string) heartbeat.Tag {
	switch {
	case hasMarker(entity, GameObjectMarker):
		return heartbeat.TagHierarchyChange
	case hasSuffix(entity, CodeExt):
		return heartbeat.TagCodeEdit
	case hasSuffix(entity, SceneExt):
		return heartbeat.TagSceneOpen
	}
	return heartbeat.TagSelectionChange
}

// CategoryOf maps a tag to its analytics category.
func CategoryOf(tag heartbeat.Tag) heartbeat.Category {
	switch tag {
	case heartbeat.TagCodeEdit, heartbeat.TagCodeSave:
		return heartbeat.CategoryCoding
	case heartbeat.TagCompileStart, heartbeat.TagCompileEnd:
		return heartbeat.CategoryCompiling
	case heartbeat.TagSceneOpen, heartbeat.TagSceneSave, heartbeat.TagSceneCreate,
		heartbeat.TagSceneClose, heartbeat.TagHierarchyChange:
		return heartbeat.CategorySceneEditing
	case heartbeat.TagPlayStart, heartbeat.TagPlayStop:
		return heartbeat.CategoryDebugging
	case heartbeat.TagAssetImport, heartbeat.TagAssetModify,
		heartbeat.TagPackageImport, heartbeat.TagPackageFailed:
		return heartbeat.CategoryAssetManagement
	case heartbeat.TagInspectorEdit:
		return heartbeat.CategoryInspectorEditing
	case heartbeat.TagProjectBrowse, heartbeat.TagSelectionChange:
		return heartbeat.CategoryProjectBrowse
	case heartbeat.TagSessionStart, heartbeat.TagSessionEnd,
		heartbeat.TagSessionPing, heartbeat.TagWindowFocus:
		return heartbeat.CategoryEditorSession
	}
	return heartbeat.CategoryOther
}

// EntityTypeOf infers the entity type from the shape of ref. Rules are
// ordered; the first match wins.
func EntityTypeOf(ref string) heartbeat.EntityType {
	switch {
	case ref == "":
		return heartbeat.EntityOther
	case hasMarker(ref, GameObjectMarker):
		return heartbeat.EntityGameObject
	case hasMarker(ref, PackageMarker):
		return heartbeat.EntityPackage
	case hasSuffix(ref, SceneExt):
		return heartbeat.EntityScene
	case hasSuffix(ref, PrefabExt):
		return heartbeat.EntityPrefab
	case hasSuffix(ref, CodeExt):
		return heartbeat.EntityFile
	case hasSuffix(ref, DataExt):
		return heartbeat.EntityScriptableObject
	}
	return heartbeat.EntityAsset
}

// NormalizeEntity adds the package marker to package signals whose entity
// is a bare package name.
func NormalizeEntity(k signal.Kind, ref string) string {
	if k != signal.PackageImportCompleted && k != signal.PackageImportFailed {
		return ref
	}
	if ref == "" || hasMarker(ref, PackageMarker) {
		return ref
	}
	return PackageMarker + " " + ref
}

// IsSynthetic reports whether ref is a marker entity rather than a path.
func IsSynthetic(ref string) bool {
	return hasMarker(ref, GameObjectMarker) || hasMarker(ref, PackageMarker)
}

func hasMarker(ref, marker string) bool {
	return len(ref) >= len(marker) && strings.EqualFold(ref[:len(marker)], marker)
}

func hasSuffix(ref, ext string) bool {
	return strings.HasSuffix(strings.ToLower(ref), ext)
}
