package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/mordor/internal/content"
	"github.com/cory-johannsen/mordor/internal/frontend/telnet"
	"github.com/cory-johannsen/mordor/internal/session"
)

func TestTierColor(t *testing.T) {
	assert.Equal(t, telnet.BrightRed, TierColor(session.HealthCritical))
	assert.Equal(t, telnet.BrightYellow, TierColor(session.HealthWarning))
	assert.Equal(t, telnet.BrightGreen, TierColor(session.HealthHealthy))
}

func TestRenderStatus(t *testing.T) {
	races := content.DefaultRaces()
	tests := []struct {
		name   string
		player session.Player
		want   string
		color  string
	}{
		{"healthy orc", session.Player{Name: "Grom", Race: "orc", Health: 50, MaxHealth: 100}, "[Grom the Orc | HP 50/100]", telnet.BrightGreen},
		{"warning", session.Player{Name: "Lia", Race: "elf", Health: 49, MaxHealth: 100}, "[Lia the Elf | HP 49/100]", telnet.BrightYellow},
		{"critical", session.Player{Name: "Bo", Race: "human", Health: 24, MaxHealth: 100}, "[Bo the Human | HP 24/100]", telnet.BrightRed},
		{"unknown race kept", session.Player{Name: "Zed", Race: "dwarf", Health: 5, MaxHealth: 5}, "[Zed the dwarf | HP 5/5]", telnet.BrightGreen},
		{"no race", session.Player{Name: "Zed", Health: 0, MaxHealth: 0}, "[Zed | HP 0/0]", telnet.BrightRed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderStatus(tt.player, races)
			assert.Equal(t, tt.want, telnet.StripANSI(got))
			assert.Contains(t, got, tt.color+"HP ")
		})
	}
}

func TestRenderRaceMenu(t *testing.T) {
	menu := telnet.StripANSI(RenderRaceMenu(content.DefaultRaces()))
	assert.Contains(t, menu, "1. Human")
	assert.Contains(t, menu, "2. Orc")
	assert.Contains(t, menu, "3. Elf")
	assert.Contains(t, menu, "quit. Disconnect")
}

func TestRenderInventory(t *testing.T) {
	assert.Equal(t, "You carry nothing.", telnet.StripANSI(RenderInventory(nil)))
	assert.Equal(t, "Carrying: rope, torch", telnet.StripANSI(RenderInventory([]string{"rope", "torch"})))
}

func TestScreens(t *testing.T) {
	over := telnet.StripANSI(Screens{}.GameOver(session.Player{Name: "Grom"}))
	assert.Contains(t, over, "G A M E   O V E R")
	assert.Contains(t, over, "Grom has fallen")
	assert.Contains(t, telnet.StripANSI(Screens{}.GameOver(session.Player{})), "The adventurer has fallen")

	quit := telnet.StripANSI(Screens{}.Quit(session.Player{Name: "Grom"}))
	assert.Contains(t, quit, "Farewell, Grom!")
	assert.NotContains(t, quit, "\r\n", "screens use LF; the sink adds CR")
}

func TestBannerLinesEndWithCRLF(t *testing.T) {
	b := RenderBanner()
	assert.True(t, strings.HasSuffix(b, "\r\n"))
	assert.Equal(t, strings.Count(b, "\n"), strings.Count(b, "\r\n"))
}

type recordingTerminal struct {
	writes []string
}

func (r *recordingTerminal) ReadLine() (string, error) { return "", nil }
func (r *recordingTerminal) Write(data []byte) error {
	r.writes = append(r.writes, string(data))
	return nil
}
func (r *recordingTerminal) WriteLine(text string) error     { return r.Write([]byte(text + "\r\n")) }
func (r *recordingTerminal) WritePrompt(prompt string) error { return r.Write([]byte(prompt)) }

// Property: the sink never emits a bare LF.
func TestPropertyTermSinkTranslatesNewlines(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-z \n]{0,40}`).Draw(t, "text")
		term := &recordingTerminal{}
		_ = termSink{term: term}.Write([]byte(text))
		out := strings.Join(term.writes, "")
		if strings.Count(out, "\n") != strings.Count(out, "\r\n") {
			t.Fatalf("bare LF in %q", out)
		}
		if strings.ReplaceAll(out, "\r\n", "\n") != text {
			t.Fatalf("content changed: %q -> %q", text, out)
		}
	})
}
