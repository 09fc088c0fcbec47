package session

import "fmt"

// PlainScreens renders terminal screens without styling.
type PlainScreens struct{}

// GameOver returns the death screen text.
func (PlainScreens) GameOver(p Player) string {
	return fmt.Sprintf("GAME OVER\n\n%s has fallen in the Lands of Mordor.\n\nReconnect to start a new game.\n", displayName(p))
}

// Quit returns the farewell screen text.
func (PlainScreens) Quit(p Player) string {
	return fmt.Sprintf("Goodbye, traveler!\n\n%s leaves the Lands of Mordor.\n", displayName(p))
}

func displayName(p Player) string {
	if p.Name == "" {
		return "The adventurer"
	}
	return p.Name
}
