package board

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"alarmhub/internal/catalog"
	"alarmhub/internal/incidents"
)

var (
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	focusedColumnStyle = columnStyle.BorderForeground(lipgloss.Color("63"))
	headerStyle        = lipgloss.NewStyle().Bold(true)
	cardStyle          = lipgloss.NewStyle().MarginBottom(1)
	selectedCardStyle  = cardStyle.Foreground(lipgloss.Color("212")).Bold(true)
	dimStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	warnStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	risingStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	fallingStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

var columnTitles = map[incidents.Bucket]string{
	incidents.BucketNew:       "New",
	incidents.BucketActive:    "Active",
	incidents.BucketObserved:  "Observed",
	incidents.BucketCompleted: "Completed",
}

// Selection is the focused column and row.
type Selection struct {
	Column int
	Row    int
}

// Render draws the four columns side by side. width is the total terminal
// width; zero picks a fixed column width.
func Render(b incidents.Board, cat catalog.Catalog, sel Selection, width int) string {
	colWidth := 28
	if width > 0 {
		colWidth = max(width/len(incidents.Buckets)-4, 16)
	}

	cols := make([]string, 0, len(incidents.Buckets))
	for i, bucket := range incidents.Buckets {
		list := b.Bucket(bucket)
		var sb strings.Builder
		sb.WriteString(headerStyle.Render(fmt.Sprintf("%s (%d)", columnTitles[bucket], len(list))))
		sb.WriteString("\n\n")
		if len(list) == 0 {
			sb.WriteString(dimStyle.Render("nothing here"))
		}
		for j, inc := range list {
			style := cardStyle
			if i == sel.Column && j == sel.Row {
				style = selectedCardStyle
			}
			sb.WriteString(style.Render(card(inc, cat)))
			sb.WriteString("\n")
		}

		cs := columnStyle
		if i == sel.Column {
			cs = focusedColumnStyle
		}
		cols = append(cols, cs.Width(colWidth).Render(strings.TrimRight(sb.String(), "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func card(inc incidents.Incident, cat catalog.Catalog) string {
	trend := incidents.TrendOf(inc.Readings)
	trendText := trend.Symbol() + " " + trend.Label
	switch trend.Direction {
	case incidents.TrendRising:
		trendText = risingStyle.Render(trendText)
	case incidents.TrendFalling:
		trendText = fallingStyle.Render(trendText)
	}

	owner := "unassigned"
	if inc.Assigned() {
		owner = "@" + inc.AssignedTo
	}
	return strings.Join([]string{
		fmt.Sprintf("%s  P%d  x%d", inc.IncidentID, inc.Priority, inc.Occurrences),
		cat.SiteName(inc.SiteID),
		cat.AssetName(inc.AssetID),
		cat.AlarmCode(inc.AlarmID) + "  " + trendText,
		dimStyle.Render(cat.EscalationName(inc.EscalationLevelID) + "  " + owner),
	}, "\n")
}

// StatusLine is the footer: connection state, throttle window, filter and
// any protocol advisory.
func StatusLine(status, interval, filter, advisory string) string {
	parts := []string{
		"status: " + status,
		"interval: " + interval,
		"filter: " + filter,
	}
	line := dimStyle.Render(strings.Join(parts, "  |  "))
	if advisory != "" {
		line += "\n" + warnStyle.Render(advisory)
	}
	return line
}
