// Package board is the terminal incident board driven by a reconciler.
//
// The model runs inside the bubbletea event loop; it reads the replica on
// every change notification and never touches it from other goroutines.
package board

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"alarmhub/internal/catalog"
	"alarmhub/internal/incidents"
	"alarmhub/internal/reconciler"
)

const intervalStep = 500 * time.Millisecond

// Source is the reconciler surface the board needs.
type Source interface {
	Changes() <-chan struct{}
	Board(incidents.Filter) incidents.Board
	Catalog() catalog.Catalog
	Status() reconciler.Status
	Advisory() string
	ReadingInterval() time.Duration
	SetReadingInterval(time.Duration) error
	UpdateIncident(incidents.Incident) error
}

type changedMsg struct{}

type Model struct {
	src      Source
	assignee string

	filter incidents.Filter
	board  incidents.Board
	cat    catalog.Catalog
	sel    Selection
	width  int
	notice string
}

// New builds a board. assignee owns incidents moved into owned columns
// without one.
func New(src Source, assignee string) Model {
	m := Model{src: src, assignee: assignee}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return waitForChange(m.src.Changes())
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case changedMsg:
		m.refresh()
		return m, waitForChange(m.src.Changes())
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "left", "h":
		m.sel.Column = (m.sel.Column + len(incidents.Buckets) - 1) % len(incidents.Buckets)
	case "right", "l":
		m.sel.Column = (m.sel.Column + 1) % len(incidents.Buckets)
	case "up", "k":
		m.sel.Row--
	case "down", "j":
		m.sel.Row++
	case "n":
		m.move(incidents.BucketNew)
	case "a":
		m.move(incidents.BucketActive)
	case "o":
		m.move(incidents.BucketObserved)
	case "c":
		m.move(incidents.BucketCompleted)
	case "+":
		m.setInterval(m.src.ReadingInterval() + intervalStep)
	case "-":
		m.setInterval(max(m.src.ReadingInterval()-intervalStep, 0))
	case "e":
		m.filter.EscalationLevelID = nextID(m.filter.EscalationLevelID, escalationIDs(m.cat))
	case "t":
		cur := ""
		if len(m.filter.Tags) > 0 {
			cur = m.filter.Tags[0]
		}
		m.filter.Tags = nil
		if next := nextID(cur, skillIDs(m.cat)); next != "" {
			m.filter.Tags = []string{next}
		}
	}
	m.refresh()
	return m, nil
}

// Selected returns the focused incident, if the column is not empty.
func (m Model) Selected() (incidents.Incident, bool) {
	list := m.board.Bucket(incidents.Buckets[m.sel.Column])
	if m.sel.Row < 0 || m.sel.Row >= len(list) {
		return incidents.Incident{}, false
	}
	return list[m.sel.Row], true
}

func (m *Model) move(target incidents.Bucket) {
	inc, ok := m.Selected()
	if !ok {
		return
	}
	if err := m.src.UpdateIncident(incidents.MoveTo(inc, target, m.assignee)); err != nil {
		m.notice = err.Error()
	}
}

func (m *Model) setInterval(d time.Duration) {
	if err := m.src.SetReadingInterval(d); err != nil {
		m.notice = err.Error()
	}
}

func (m *Model) refresh() {
	m.cat = m.src.Catalog()
	m.board = m.src.Board(m.filter)
	n := len(m.board.Bucket(incidents.Buckets[m.sel.Column]))
	m.sel.Row = min(m.sel.Row, n-1)
	m.sel.Row = max(m.sel.Row, 0)
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(Render(m.board, m.cat, m.sel, m.width))
	sb.WriteString("\n")
	sb.WriteString(StatusLine(
		string(m.src.Status()),
		m.src.ReadingInterval().String(),
		m.filterLabel(),
		m.src.Advisory(),
	))
	if m.notice != "" {
		sb.WriteString("\n" + warnStyle.Render(m.notice))
	}
	sb.WriteString("\n" + dimStyle.Render("←/→ column  ↑/↓ card  n/a/o/c move  +/- interval  e/t filter  q quit"))
	return sb.String()
}

func (m Model) filterLabel() string {
	var parts []string
	if id := m.filter.EscalationLevelID; id != "" {
		parts = append(parts, m.cat.EscalationName(id))
	}
	for _, t := range m.filter.Tags {
		parts = append(parts, m.cat.SkillName(t))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " + ")
}

// nextID cycles cur through ids and back to "".
func nextID(cur string, ids []string) string {
	if cur == "" {
		if len(ids) == 0 {
			return ""
		}
		return ids[0]
	}
	for i, id := range ids {
		if id == cur && i+1 < len(ids) {
			return ids[i+1]
		}
	}
	return ""
}

func escalationIDs(c catalog.Catalog) []string {
	out := make([]string, len(c.EscalationLevels))
	for i, l := range c.EscalationLevels {
		out[i] = l.ID
	}
	return out
}

func skillIDs(c catalog.Catalog) []string {
	out := make([]string, len(c.Skills))
	for i, s := range c.Skills {
		out[i] = s.ID
	}
	return out
}

// Run starts the board full screen and blocks until the user quits.
func Run(src Source, assignee string) error {
	if _, err := tea.NewProgram(New(src, assignee), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("board: %w", err)
	}
	return nil
}
