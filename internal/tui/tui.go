// Package tui provides a Bubble Tea live view of the heartbeats a running
// collector emits.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/aurasync/internal/heartbeat"
)

// MaxFeed bounds the number of heartbeats kept on screen.
const MaxFeed = 500

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	writeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
)

// TagStyle returns the badge style for a tag, coloured from its metadata.
func TagStyle(t heartbeat.Tag) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(t.Info().Color))
}

// ── Tabs ─────────────────

type tabID int

const (
	tabFeed tabID = iota
	tabSummary
	tabCount
)

var tabNames = [tabCount]string{"Feed", "Summary"}

// ── Inputs ───────────────

// Stats is the collector and queue state shown on the summary tab.
type Stats struct {
	State      string
	Active     bool
	Branch     string
	Received   int64
	Emitted    int64
	Suppressed int64
	Enqueued   int64
	Pending    int
	Outcomes   map[string]int64
}

// Feed is what the view consumes: a stream of heartbeats and a way to poll
// counters.
type Feed struct {
	Title      string
	Heartbeats <-chan heartbeat.Heartbeat
	Stats      func() Stats
	// Refresh is the stats polling interval. Zero means one second.
	Refresh time.Duration
}

type heartbeatMsg heartbeat.Heartbeat

type feedClosedMsg struct{}

type statsMsg Stats

// ── Model ────────────────────

// Model is the root Bubble Tea model for the live view.
type Model struct {
	feed      Feed
	entries   []heartbeat.Heartbeat
	counts    map[heartbeat.Tag]int
	stats     Stats
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
	hidePings bool
	follow    bool
	closed    bool
}

// New creates a live view model for feed.
func New(feed Feed) Model {
	if feed.Refresh <= 0 {
		feed.Refresh = time.Second
	}
	return Model{
		feed:   feed,
		counts: make(map[heartbeat.Tag]int),
		follow: true,
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForHeartbeat(), m.pollStats())
}

func (m Model) waitForHeartbeat() tea.Cmd {
	ch := m.feed.Heartbeats
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		h, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return heartbeatMsg(h)
	}
}

func (m Model) pollStats() tea.Cmd {
	if m.feed.Stats == nil {
		return nil
	}
	stats := m.feed.Stats
	return tea.Tick(m.feed.Refresh, func(time.Time) tea.Msg {
		return statsMsg(stats())
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2":
			m.activeTab = tabID(msg.String()[0] - '1')
		case "p":
			m.hidePings = !m.hidePings
			m.refresh()
			return m, nil
		case "f":
			m.follow = !m.follow
			if m.follow && m.ready {
				m.viewports[tabFeed].GotoBottom()
			}
			return m, nil
		case "c":
			m.entries = nil
			m.refresh()
			return m, nil
		}
		if !m.ready {
			return m, nil
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case heartbeatMsg:
		m.add(heartbeat.Heartbeat(msg))
		m.refresh()
		return m, m.waitForHeartbeat()

	case feedClosedMsg:
		m.closed = true
		m.refresh()
		return m, nil

	case statsMsg:
		m.stats = Stats(msg)
		m.refresh()
		return m, m.pollStats()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  aurasync  " + m.feed.Title)

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ tab  ↑/↓ scroll  p pings  f follow  c clear  q quit"
	state := "live"
	if m.closed {
		state = "ended"
	} else if !m.follow {
		state = "paused"
	}
	right := fmt.Sprintf("%s · %d shown", state, len(m.visible()))
	pad := m.width - lipgloss.Width(hint) - lipgloss.Width(right) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(hint + strings.Repeat(" ", pad) + right)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

// ── State ─────────────────

func (m *Model) add(h heartbeat.Heartbeat) {
	m.counts[h.Tag]++
	m.entries = append(m.entries, h)
	if over := len(m.entries) - MaxFeed; over > 0 {
		m.entries = append([]heartbeat.Heartbeat(nil), m.entries[over:]...)
	}
}

func (m *Model) visible() []heartbeat.Heartbeat {
	if !m.hidePings {
		return m.entries
	}
	out := make([]heartbeat.Heartbeat, 0, len(m.entries))
	for _, h := range m.entries {
		if h.Tag != heartbeat.TagSessionPing {
			out = append(out, h)
		}
	}
	return out
}

// ── Viewport management ───────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		m.viewports[i] = viewport.New(m.width, vpHeight)
	}
	m.refresh()
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewports[tabFeed].SetContent(m.renderFeed())
	if m.follow {
		m.viewports[tabFeed].GotoBottom()
	}
	m.viewports[tabSummary].SetContent(m.renderSummary())
}

// ── Renderers ───────────────

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func (m *Model) renderFeed() string {
	entries := m.visible()
	if len(entries) == 0 {
		return heading("Heartbeats") + dimStyle.Render("  (waiting for activity)") + "\n"
	}
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Heartbeats (%d)", len(entries))))
	for _, h := range entries {
		sb.WriteString(FormatLine(h) + "\n")
	}
	return sb.String()
}

// FormatLine renders one heartbeat as a single styled line.
func FormatLine(h heartbeat.Heartbeat) string {
	info := h.Tag.Info()
	ts := timeStyle.Render(h.Timestamp.Local().Format("15:04:05"))
	badge := TagStyle(h.Tag).Render(fmt.Sprintf("%-16s", info.Label))
	w := " "
	if h.IsWrite {
		w = writeStyle.Render("✎")
	}
	text := h.EntityRelativePath
	if text == "" {
		text = h.Entity
	}
	line := fmt.Sprintf("  %s  %s %s %s", ts, info.Icon, badge, w)
	line += " " + text
	if h.Detail != "" {
		line += dimStyle.Render("  " + h.Detail)
	}
	return line
}

func (m *Model) renderSummary() string {
	var sb strings.Builder
	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-14s", label)) + "  " + value + "\n")
	}

	s := m.stats
	sb.WriteString(heading("Session"))
	row("State:", orDash(s.State))
	activity := "idle"
	if s.Active {
		activity = "active"
	}
	row("Activity:", activity)
	row("Branch:", orDash(s.Branch))

	sb.WriteString(heading("Pipeline"))
	row("Signals:", fmt.Sprintf("%d", s.Received))
	row("Suppressed:", fmt.Sprintf("%d", s.Suppressed))
	row("Emitted:", fmt.Sprintf("%d", s.Emitted))
	row("Enqueued:", fmt.Sprintf("%d", s.Enqueued))
	row("Pending:", fmt.Sprintf("%d", s.Pending))
	for _, name := range sortedKeys(s.Outcomes) {
		row(name+":", fmt.Sprintf("%d", s.Outcomes[name]))
	}

	sb.WriteString(heading("By tag"))
	if len(m.counts) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	tags := make([]heartbeat.Tag, 0, len(m.counts))
	for t := range m.counts {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if m.counts[tags[i]] != m.counts[tags[j]] {
			return m.counts[tags[i]] > m.counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	for _, t := range tags {
		info := t.Info()
		sb.WriteString(fmt.Sprintf("  %s %s %5d\n", info.Icon, TagStyle(t).Render(fmt.Sprintf("%-16s", info.Label)), m.counts[t]))
	}
	return sb.String()
}

// ── Helpers ───────────────────

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Run starts the live view and blocks until the user quits or ctx ends.
func Run(ctx context.Context, feed Feed) error {
	p := tea.NewProgram(New(feed), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
