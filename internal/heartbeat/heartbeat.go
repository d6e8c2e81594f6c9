// Package heartbeat holds the heartbeat record and its wire encoding.
package heartbeat

import (
	"encoding/json"
	"time"
)

// TimestampLayout is ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Heartbeat is one classified activity event. It is built once by the
// assembler and passed by value afterwards; nothing mutates it.
type Heartbeat struct {
	Tag                Tag
	Category           Category
	EntityType         EntityType
	Entity             string
	EntityRelativePath string
	FileExtension      string // empty for non-path entities
	Timestamp          time.Time
	IsWrite            bool
	BranchName         string
	SceneName          string
	ActiveWindow       string
	Detail             string

	// Only populated on session_start.
	HostVersion string
	Platform    string
}

// Data is the JSON shape of a heartbeat inside the request body.
type Data struct {
	Entity     string  `json:"entity"`
	Timestamp  string  `json:"timestamp"`
	IsWrite    bool    `json:"is_write"`
	BranchName string  `json:"branch_name"`
	EventTag   string  `json:"event_tag"`
	Category   string  `json:"category"`
	EntityType string  `json:"entity_type"`
	FileExt    *string `json:"file_ext"`
	Scene      string  `json:"scene"`
	Window     string  `json:"window"`
	Details    string  `json:"details"`
	HostVer    string  `json:"unity_ver,omitempty"`
	OS         string  `json:"os,omitempty"`
}

// Data converts h to its wire form. The entity is sent as the relative path.
func (h Heartbeat) Data() Data {
	entity := h.EntityRelativePath
	if entity == "" {
		entity = h.Entity
	}
	d := Data{
		Entity:     entity,
		Timestamp:  h.Timestamp.UTC().Format(TimestampLayout),
		IsWrite:    h.IsWrite,
		BranchName: h.BranchName,
		EventTag:   h.Tag.String(),
		Category:   string(h.Category),
		EntityType: string(h.EntityType),
		Scene:      h.SceneName,
		Window:     h.ActiveWindow,
		Details:    h.Detail,
	}
	if h.FileExtension != "" {
		ext := h.FileExtension
		d.FileExt = &ext
	}
	if h.Tag == TagSessionStart {
		d.HostVer = h.HostVersion
		d.OS = h.Platform
	}
	return d
}

// Payload is the full request body for one heartbeat.
type Payload struct {
	User      string `json:"user"`
	TaskID    string `json:"TaskId"`
	Project   string `json:"Project"`
	SessionID string `json:"session_id,omitempty"`
	Heartbeat Data   `json:"heartbeat_data"`
}

// Marshal encodes the payload as JSON.
func (p Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}
