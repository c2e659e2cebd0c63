package watch

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

func newDeliveryTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ST", Width: 2},
			{Title: "Received", Width: 8},
			{Title: "Event", Width: 26},
			{Title: "Status", Width: 9},
			{Title: "Outcome", Width: 48},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

func deliveryRows(deliveries []deliveryRow, theme Theme) []table.Row {
	rows := make([]table.Row, 0, len(deliveries))
	for _, d := range deliveries {
		rows = append(rows, table.Row{
			statusSymbol(d.Status, theme),
			d.ReceivedAt.Local().Format("15:04:05"),
			d.EventType,
			d.Status,
			truncate(d.Message, 48),
		})
	}
	return rows
}

func statusSymbol(status string, theme Theme) string {
	switch status {
	case "handled":
		return theme.StatusOK.Render("●")
	case "received":
		return theme.StatusPending.Render("◉")
	case "no_action":
		return theme.StatusMuted.Render("○")
	case "rejected":
		return theme.StatusFailed.Render("∅")
	case "failed":
		return theme.StatusFailed.Render("✗")
	}
	return "○"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// age renders how long ago t was, compactly.
func age(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return formatDuration(time.Since(t).Round(time.Second))
}
