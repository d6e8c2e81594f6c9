// Package report renders a session status as text, Markdown or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fakeyudi/aurasync/internal/heartbeat"
	"github.com/fakeyudi/aurasync/internal/session"
)

// Formats lists the accepted format names.
var Formats = []string{"text", "markdown", "json"}

// Renderer serializes a session report to bytes.
type Renderer interface {
	Render(r *Report) ([]byte, error)
}

// Report is a session status plus the values derived from it at render
// time.
type Report struct {
	session.Status
	Condition string        `json:"condition"`
	Duration  time.Duration `json:"duration_ns"`
}

// New derives a report from s. alive says whether the owning process is
// still running; now is used for the duration of a running session.
func New(s *session.Status, alive bool, now time.Time) *Report {
	r := &Report{Status: *s, Condition: s.State}
	end := now
	switch {
	case !s.Running():
		r.Condition = "stopped"
		end = *s.StopTime
	case !alive:
		r.Condition = "stale (process exited)"
		end = s.UpdatedAt
	}
	r.Duration = end.Sub(s.StartTime).Round(time.Second)
	return r
}

// ForFormat returns the renderer for name.
func ForFormat(name string) (Renderer, error) {
	switch strings.ToLower(name) {
	case "", "text":
		return &TextRenderer{}, nil
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown format %q (want one of %s)", name, strings.Join(Formats, ", "))
}

// JSONRenderer renders a report as indented JSON.
type JSONRenderer struct{}

func (JSONRenderer) Render(r *Report) ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append(b, '\n'), nil
}

// TextRenderer renders one "Label: value" line per field.
type TextRenderer struct{}

func (TextRenderer) Render(r *Report) ([]byte, error) {
	var sb strings.Builder
	line := func(label, format string, args ...any) {
		fmt.Fprintf(&sb, "%s: "+format+"\n", append([]any{label}, args...)...)
	}
	line("Session", "%s", r.ID)
	line("State", "%s", r.Condition)
	line("Project", "%s", r.Project)
	if r.Branch != "" {
		line("Branch", "%s", r.Branch)
	}
	line("User", "%s", r.User)
	line("Started", "%s", r.StartTime.Format(time.RFC3339))
	line("Duration", "%s", r.Duration)
	if !r.LastActivity.IsZero() {
		line("Last activity", "%s", r.LastActivity.Format(time.RFC3339))
	}
	line("Heartbeats", "%d emitted, %d suppressed", r.Emitted, r.Suppressed)
	line("Queue", "%d enqueued, %d pending", r.Enqueued, r.Pending)
	line("Delivery", "%s", Counts(r.Outcomes))
	if len(r.Tags) > 0 {
		line("Tags", "%s", Counts(r.Tags))
	}
	return []byte(sb.String()), nil
}

// MarkdownRenderer renders a report as a Markdown document.
type MarkdownRenderer struct{}

func (MarkdownRenderer) Render(r *Report) ([]byte, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# aurasync · %s · %s\n\n", r.Project, r.StartTime.Format("2006-01-02 15:04:05 MST"))

	// ## Summary
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- Session: `%s`\n", r.ID)
	fmt.Fprintf(&sb, "- State: %s\n", r.Condition)
	fmt.Fprintf(&sb, "- Duration: %s\n", r.Duration)
	if r.User != "" {
		fmt.Fprintf(&sb, "- User: %s\n", r.User)
	}
	if r.Branch != "" {
		fmt.Fprintf(&sb, "- Branch: %s\n", r.Branch)
	}
	fmt.Fprintf(&sb, "- Directory: %s\n", r.WorkDir)
	sb.WriteString("\n")

	// ## Heartbeats
	sb.WriteString("## Heartbeats\n\n")
	fmt.Fprintf(&sb, "- Emitted: %d\n", r.Emitted)
	fmt.Fprintf(&sb, "- Suppressed: %d\n\n", r.Suppressed)
	if len(r.Tags) == 0 {
		sb.WriteString("_No heartbeats recorded._\n")
	} else {
		sb.WriteString("| Tag | Label | Count |\n")
		sb.WriteString("|-----|-------|-------|\n")
		for _, code := range sortedByCount(r.Tags) {
			label := code
			if t, ok := heartbeat.ParseTag(code); ok {
				label = t.Info().Icon + " " + t.Info().Label
			}
			fmt.Fprintf(&sb, "| `%s` | %s | %d |\n", code, label, r.Tags[code])
		}
	}
	sb.WriteString("\n")

	// ## Delivery
	sb.WriteString("## Delivery\n\n")
	fmt.Fprintf(&sb, "- Enqueued: %d\n", r.Enqueued)
	fmt.Fprintf(&sb, "- Pending: %d\n", r.Pending)
	if len(r.Outcomes) == 0 {
		sb.WriteString("\n_Nothing sent._\n")
	} else {
		for _, name := range sortedByCount(r.Outcomes) {
			fmt.Fprintf(&sb, "- %s: %d\n", name, r.Outcomes[name])
		}
	}
	return []byte(sb.String()), nil
}

// Counts formats a name → count map as "a=1 b=2", sorted by name.
func Counts(m map[string]int64) string {
	if len(m) == 0 {
		return "none sent"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, " ")
}

func sortedByCount(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
