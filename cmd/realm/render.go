package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aiwuxian/realm-chronicle/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Bold(true)

	narrativeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			Italic(true)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2)
)

func renderState(state *models.WorldState) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("王国") + "\n")
	fmt.Fprintf(&b, "%s %d/100  %s %s\n",
		labelStyle.Render("张力"), state.World.Tension,
		labelStyle.Render("阶段"), state.World.StoryPhase)

	here := fmt.Sprintf("地点 %d", state.Player.LocationID)
	if loc, ok := state.LocationByID(state.Player.LocationID); ok {
		here = loc.Name
	}
	fmt.Fprintf(&b, "%s %s  %s %d\n\n",
		labelStyle.Render("骑士位于"), here,
		labelStyle.Render("声望"), state.Player.Reputation)

	var locs []string
	for _, l := range state.Locations {
		locs = append(locs, fmt.Sprintf("[%d] %-12s 繁荣 %3d  安全 %3d", l.ID, l.Name, l.Prosperity, l.Safety))
	}
	b.WriteString(titleStyle.Render("地点") + "\n")
	b.WriteString(sectionStyle.Render(strings.Join(locs, "\n")) + "\n\n")

	var factions []string
	for _, f := range state.Factions {
		factions = append(factions, fmt.Sprintf("[%d] %-12s 力量 %3d  %s", f.ID, f.Name, f.Power, f.Relation))
	}
	b.WriteString(titleStyle.Render("势力") + "\n")
	b.WriteString(sectionStyle.Render(strings.Join(factions, "\n")))

	if len(state.NPCs) > 0 {
		var npcs []string
		for _, n := range state.NPCs {
			npcs = append(npcs, fmt.Sprintf("%s, %s (%s)", n.Name, n.Role, n.Status))
		}
		b.WriteString("\n\n" + titleStyle.Render("人物") + "\n")
		b.WriteString(sectionStyle.Render(strings.Join(npcs, "\n")))
	}

	return b.String()
}

func renderEventResponse(resp *models.EventResponse) string {
	var b strings.Builder
	for _, ev := range resp.Events {
		b.WriteString(eventStyle.Render("• "+ev) + "\n")
	}
	b.WriteString(narrativeStyle.Render(resp.Narrative))
	return b.String()
}

func renderEvents(events []models.EventLogEntry) string {
	if len(events) == 0 {
		return "暂无事件"
	}

	lines := make([]string, len(events))
	for i, ev := range events {
		lines[i] = fmt.Sprintf("%s %s %s",
			labelStyle.Render(ev.Timestamp.Local().Format("2006-01-02 15:04:05")),
			labelStyle.Render("["+ev.CausedBy+"]"),
			ev.Description)
	}
	return strings.Join(lines, "\n")
}
