package handlers

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/mordor/internal/content"
	"github.com/cory-johannsen/mordor/internal/frontend/telnet"
	"github.com/cory-johannsen/mordor/internal/session"
)

const banner = `
  __  __              _
 |  \/  | ___  _ __ __| | ___  _ __
 | |\/| |/ _ \| '__/ _` + "`" + ` |/ _ \| '__|
 | |  | | (_) | | | (_| | (_) | |
 |_|  |_|\___/|_|  \__,_|\___/|_|
`

// TierColor maps a health tier to its display color.
func TierColor(t session.HealthTier) string {
	switch t {
	case session.HealthCritical:
		return telnet.BrightRed
	case session.HealthWarning:
		return telnet.BrightYellow
	default:
		return telnet.BrightGreen
	}
}

// RenderBanner returns the title shown on the setup screen.
func RenderBanner() string {
	var b strings.Builder
	for _, line := range strings.Split(strings.Trim(banner, "\n"), "\n") {
		b.WriteString(telnet.Colorize(telnet.BrightYellow, line))
		b.WriteString("\r\n")
	}
	b.WriteString(telnet.Colorize(telnet.Dim, "        The Lands of Mordor await."))
	b.WriteString("\r\n")
	return b.String()
}

// RenderRaceMenu lists the selectable races.
func RenderRaceMenu(races []*content.Race) string {
	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.BrightWhite, "Choose your race:"))
	b.WriteString("\r\n")
	for i, r := range races {
		b.WriteString(fmt.Sprintf("  %s%d%s. %-6s %s%s%s\r\n",
			telnet.Green, i+1, telnet.Reset,
			r.Name,
			telnet.Dim, r.Description, telnet.Reset))
	}
	b.WriteString(fmt.Sprintf("  %squit%s. Disconnect\r\n", telnet.Green, telnet.Reset))
	return b.String()
}

// RenderStatus formats the player's name, race and tier-colored health.
func RenderStatus(p session.Player, races []*content.Race) string {
	who := p.Name
	if race := raceName(races, p.Race); race != "" {
		who = fmt.Sprintf("%s the %s", p.Name, race)
	}
	hp := telnet.Colorf(TierColor(p.Tier()), "HP %d/%d", p.Health, p.MaxHealth)
	return fmt.Sprintf("%s[%s%s%s | %s%s]%s",
		telnet.BrightCyan, telnet.BrightWhite, who, telnet.BrightCyan,
		hp, telnet.BrightCyan, telnet.Reset)
}

// RenderInventory lists carried items, or notes there are none.
func RenderInventory(items []string) string {
	if len(items) == 0 {
		return telnet.Colorize(telnet.Dim, "You carry nothing.")
	}
	return telnet.Colorf(telnet.Cyan, "Carrying: %s", strings.Join(items, ", "))
}

func raceName(races []*content.Race, id string) string {
	if id == "" {
		return ""
	}
	for _, r := range races {
		if strings.EqualFold(r.ID, id) || strings.EqualFold(r.Name, id) {
			return r.Name
		}
	}
	return id
}

// Screens renders the end-of-game screens with ANSI styling.
type Screens struct{}

// GameOver returns the death screen.
func (Screens) GameOver(p session.Player) string {
	name := p.Name
	if name == "" {
		name = "The adventurer"
	}
	return "\n" +
		telnet.Colorize(telnet.Bold+telnet.BrightRed, "          G A M E   O V E R") + "\n\n" +
		telnet.Colorf(telnet.Red, "  %s has fallen in the Lands of Mordor.", name) + "\n\n" +
		telnet.Colorize(telnet.Dim, "  Reconnect to begin a new adventure.") + "\n"
}

// Quit returns the farewell screen.
func (Screens) Quit(p session.Player) string {
	name := p.Name
	if name == "" {
		name = "traveler"
	}
	return "\n" +
		telnet.Colorf(telnet.BrightCyan, "  Farewell, %s!", name) + "\n\n" +
		telnet.Colorize(telnet.White, "  You leave the Lands of Mordor behind.") + "\n"
}
