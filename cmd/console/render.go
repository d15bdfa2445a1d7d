package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/engine"
	"github.com/jwebster45206/easton-heights/pkg/state"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	selectedHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	traceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	aliveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	deadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // red
			Strikethrough(true)

	injuredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// roundHeader labels a round, e.g. "3rd round · combat".
func roundHeader(r *engine.Round) string {
	h := humanize.Ordinal(r.Turn) + " round"
	if r.Category != "" {
		h += " · " + r.Category
	}
	return h
}

// renderFeed draws every round oldest first with the round under the cursor
// highlighted. It returns the content and the line the highlighted round
// starts on.
func renderFeed(feed []*engine.Round, cursor, width int) (string, int) {
	if width < 10 {
		width = 10
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("EASTON HEIGHTS") + "\n\n")
	if len(feed) == 0 {
		b.WriteString(wordwrap.String("Press Enter to play the first round, Tab to autoplay, or type /help.", width) + "\n")
		return b.String(), 0
	}

	selectedLine := 0
	for i, r := range feed {
		if i == cursor {
			selectedLine = strings.Count(b.String(), "\n")
			b.WriteString(selectedHeaderStyle.Render("▶ "+roundHeader(r)) + "\n")
		} else {
			b.WriteString(headerStyle.Render("  "+roundHeader(r)) + "\n")
		}
		b.WriteString(wordwrap.String(r.Text, width) + "\n")
		if len(r.Trace) > 0 {
			b.WriteString(traceStyle.Render(wordwrap.String("· "+strings.Join(r.Trace, "  · "), width)) + "\n")
		}
		b.WriteString("\n")
	}
	return b.String(), selectedLine
}

func characterLine(c *actor.Character) string {
	name := c.Name
	switch {
	case !c.Alive:
		return deadStyle.Render(name)
	case c.Injured():
		name = injuredStyle.Render(name)
	default:
		name = aliveStyle.Render(name)
	}

	var notes []string
	if flags := c.Flags.Sorted(); len(flags) > 0 {
		notes = append(notes, strings.Join(flags, ","))
	}
	if c.Stealth == actor.StealthOn {
		notes = append(notes, "hidden")
	}
	if c.Zone != "" {
		notes = append(notes, "@"+c.Zone)
	}
	if len(notes) > 0 {
		name += traceStyle.Render(" (" + strings.Join(notes, "; ") + ")")
	}
	return name
}

// renderMeta draws the world panel: scene, roster and bookkeeping.
func renderMeta(ws *state.WorldState, pos, total int, autoplay bool, templates int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("WORLD") + "\n\n")

	fmt.Fprintf(&b, "Location:\n%s", ws.Scene.Location)
	if ws.Scene.Zone != "" {
		fmt.Fprintf(&b, " / %s", ws.Scene.Zone)
	}
	fmt.Fprintf(&b, "\nRange: %s\n", ws.Scene.Range)
	if flags := ws.EnvFlags.Sorted(); len(flags) > 0 {
		fmt.Fprintf(&b, "Env: %s\n", strings.Join(flags, ", "))
	}

	fmt.Fprintf(&b, "\nRoster (%d/%d alive):\n", ws.AliveCount(), len(ws.Players))
	for _, c := range ws.Players {
		b.WriteString("• " + characterLine(c) + "\n")
	}

	if len(ws.Cooldowns) > 0 {
		b.WriteString("\nCooldowns:\n")
		for _, tag := range slices.Sorted(maps.Keys(ws.Cooldowns)) {
			fmt.Fprintf(&b, "• %s: %d\n", tag, ws.Cooldowns[tag])
		}
	}

	b.WriteString("\n")
	if total > 0 {
		fmt.Fprintf(&b, "Viewing %s of %d rounds\n", humanize.Ordinal(pos), total)
	}
	fmt.Fprintf(&b, "Templates: %s\n", humanize.Comma(int64(templates)))
	if autoplay {
		b.WriteString(aliveStyle.Render("Autoplay ON") + "\n")
	}
	if ws.Terminated() {
		b.WriteString("\n" + titleStyle.Render(gameOverLine(ws)) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(separatorStyle.Render("Keys:") + "\n")
	b.WriteString("• Enter: Next round\n")
	b.WriteString("• Tab: Autoplay\n")
	b.WriteString("• Ctrl+P/N: Back/Forward\n")
	b.WriteString("• Ctrl+Y: Copy round\n")
	b.WriteString("• Ctrl+C: Quit\n")
	return b.String()
}

// gameOverLine names the survivor, if any.
func gameOverLine(ws *state.WorldState) string {
	alive := ws.Players.Alive()
	if len(alive) == 0 {
		return "Nobody made it out."
	}
	return alive[0].Name + " is the last one standing."
}
