package watch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/palisade/internal/events"
)

func renderEventStream(eventLog []events.Event, theme Theme, width int) string {
	innerWidth := width - 4

	if len(eventLog) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Title.Render("EVENT STREAM"),
			theme.Dim.Render("  Waiting for events..."),
		)
		return theme.Border.Width(innerWidth).Render(content)
	}

	var lines []string
	for i, e := range eventLog {
		if i >= 10 {
			break
		}
		lines = append(lines, formatEvent(e, theme))
	}

	eventsText := lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("EVENT STREAM"),
		eventsText,
	)

	return theme.Border.Width(innerWidth).Render(content)
}

func formatEvent(e events.Event, theme Theme) string {
	ts := theme.Dim.Render(e.At.Format("15:04:05"))

	// Color the event type based on outcome
	var typeStyle lipgloss.Style
	switch {
	case strings.HasSuffix(e.Type, ".handled"):
		typeStyle = theme.StatusOK
	case strings.HasSuffix(e.Type, ".rejected"), strings.HasSuffix(e.Type, ".failed"):
		typeStyle = theme.StatusFailed
	case strings.HasSuffix(e.Type, ".received"):
		typeStyle = theme.StatusPending
	case strings.HasSuffix(e.Type, ".no_action"):
		typeStyle = theme.StatusMuted
	default:
		typeStyle = theme.Dim
	}

	typeName := typeStyle.Render(fmt.Sprintf("%-20s", e.Type))

	// Extract brief description from data
	desc := extractEventDesc(e)

	return fmt.Sprintf("%s %s %s", ts, typeName, desc)
}

func extractEventDesc(e events.Event) string {
	data := make(map[string]any)
	_ = json.Unmarshal(e.Data, &data)

	var parts []string

	if msgID, ok := data["message_id"].(string); ok && msgID != "" {
		if len(msgID) > 12 {
			msgID = msgID[:12]
		}
		parts = append(parts, fmt.Sprintf("[%s]", msgID))
	}

	if eventType, ok := data["event_type"].(string); ok && eventType != "" {
		parts = append(parts, eventType)
	}

	if msg, ok := data["message"].(string); ok && msg != "" {
		parts = append(parts, msg)
	}
	if reason, ok := data["reason"].(string); ok && reason != "" {
		parts = append(parts, reason)
	}
	if errText, ok := data["error"].(string); ok && errText != "" {
		parts = append(parts, errText)
	}

	if len(parts) == 0 {
		raw := string(e.Data)
		if len(raw) > 60 {
			raw = raw[:60] + "..."
		}
		return raw
	}

	return truncate(strings.Join(parts, " "), 90)
}
