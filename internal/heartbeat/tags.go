package heartbeat

// Tag is the canonical event tag attached to every heartbeat.
type Tag int

const (
	TagOther Tag = iota
	TagCodeEdit
	TagCodeSave
	TagCompileStart
	TagCompileEnd
	TagSceneOpen
	TagSceneSave
	TagSceneCreate
	TagSceneClose
	TagHierarchyChange
	TagAssetImport
	TagAssetModify
	TagPackageImport
	TagPackageFailed
	TagPlayStart
	TagPlayStop
	TagWindowFocus
	TagSelectionChange
	TagInspectorEdit
	TagProjectBrowse
	TagSessionStart
	TagSessionEnd
	TagSessionPing
	tagCount
)

// TagInfo is the static metadata for a tag. Code is the wire value; Label,
// Icon and Color are display hints for dashboards and the CLI.
type TagInfo struct {
	Code  string
	Label string
	Icon  string
	Color string
}

var tagTable = [tagCount]TagInfo{
	TagOther:           {"other", "Activity", "📝", "#6B7280"},
	TagCodeEdit:        {"code_edit", "Code Edit", "💻", "#3B82F6"},
	TagCodeSave:        {"code_save", "Code Save", "💾", "#10B981"},
	TagCompileStart:    {"compile_start", "Compiling", "⚙️", "#F59E0B"},
	TagCompileEnd:      {"compile_end", "Compiled", "✅", "#10B981"},
	TagSceneOpen:       {"scene_open", "Scene Open", "📂", "#8B5CF6"},
	TagSceneSave:       {"scene_save", "Scene Save", "💾", "#10B981"},
	TagSceneCreate:     {"scene_create", "New Scene", "✨", "#EC4899"},
	TagSceneClose:      {"scene_close", "Scene Close", "📁", "#6B7280"},
	TagHierarchyChange: {"hierarchy_change", "Hierarchy", "🔀", "#F97316"},
	TagAssetImport:     {"asset_import", "Import", "📦", "#06B6D4"},
	TagAssetModify:     {"asset_modify", "Asset Edit", "✏️", "#F59E0B"},
	TagPackageImport:   {"package_import", "Package", "📦", "#8B5CF6"},
	TagPackageFailed:   {"package_failed", "Import Failed", "❌", "#EF4444"},
	TagPlayStart:       {"play_start", "Play Mode", "▶️", "#10B981"},
	TagPlayStop:        {"play_stop", "Stop Play", "⏹️", "#6B7280"},
	TagWindowFocus:     {"window_focus", "Focus", "🪟", "#6B7280"},
	TagSelectionChange: {"selection_change", "Selection", "👆", "#8B5CF6"},
	TagInspectorEdit:   {"inspector_edit", "Inspector", "🔧", "#F59E0B"},
	TagProjectBrowse:   {"project_browse", "Browse", "📁", "#6B7280"},
	TagSessionStart:    {"session_start", "Session Start", "🚀", "#10B981"},
	TagSessionEnd:      {"session_end", "Session End", "👋", "#6B7280"},
	TagSessionPing:     {"session_ping", "Active", "💓", "#3B82F6"},
}

var tagsByCode = func() map[string]Tag {
	m := make(map[string]Tag, tagCount)
	for t := Tag(0); t < tagCount; t++ {
		m[tagTable[t].Code] = t
	}
	return m
}()

// Info returns the metadata for t. Out-of-range values report TagOther's.
func (t Tag) Info() TagInfo {
	if t < 0 || t >= tagCount {
		return tagTable[TagOther]
	}
	return tagTable[t]
}

// String returns the wire code.
func (t Tag) String() string { return t.Info().Code }

// ParseTag looks a tag up by its wire code.
func ParseTag(code string) (Tag, bool) {
	t, ok := tagsByCode[code]
	return t, ok
}

// AllTags returns every tag in declaration order.
func AllTags() []Tag {
	tags := make([]Tag, 0, tagCount)
	for t := Tag(0); t < tagCount; t++ {
		tags = append(tags, t)
	}
	return tags
}

// Category is a coarse grouping of tags used for analytics.
type Category string

const (
	CategoryCoding           Category = "coding"
	CategoryDebugging        Category = "debugging"
	CategoryDesigning        Category = "designing"
	CategoryBuilding         Category = "building"
	CategoryTesting          Category = "testing"
	CategoryOther            Category = "other"
	CategoryEditorSession    Category = "editor_session"
	CategoryAssetManagement  Category = "asset_management"
	CategoryCompiling        Category = "compiling"
	CategorySceneEditing     Category = "scene_editing"
	CategoryInspectorEditing Category = "inspector_editing"
	CategoryProjectBrowse    Category = "project_browse"
	CategoryVersionControl   Category = "version_control"
)

// EntityType describes what kind of item a heartbeat is about.
type EntityType string

const (
	EntityFile             EntityType = "file"
	EntityScene            EntityType = "scene"
	EntityAsset            EntityType = "asset"
	EntityPrefab           EntityType = "prefab"
	EntityScriptableObject EntityType = "scriptable_object"
	EntityGameObject       EntityType = "game_object"
	EntityFolder           EntityType = "folder"
	EntityPackage          EntityType = "package"
	EntityOther            EntityType = "other"
)
