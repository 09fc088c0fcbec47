package session

import (
	"github.com/cory-johannsen/mordor/internal/gameapi"
)

// State is the screen a session is showing.
type State int

const (
	// StateSetup collects the player name and race.
	StateSetup State = iota
	// StatePlaying accepts commands.
	StatePlaying
	// StateGameOver is terminal: the character died or the server ended the game.
	StateGameOver
	// StateQuit is terminal: the player left the game.
	StateQuit
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateSetup:
		return "setup"
	case StatePlaying:
		return "playing"
	case StateGameOver:
		return "game_over"
	case StateQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further commands are accepted in s.
func (s State) Terminal() bool {
	return s == StateGameOver || s == StateQuit
}

// HealthTier buckets a health ratio for display.
type HealthTier int

const (
	// HealthCritical is below 25% of max health.
	HealthCritical HealthTier = iota
	// HealthWarning is at least 25% and below 50%.
	HealthWarning
	// HealthHealthy is 50% or more.
	HealthHealthy
)

// String returns the lowercase tier name.
func (t HealthTier) String() string {
	switch t {
	case HealthCritical:
		return "critical"
	case HealthWarning:
		return "warning"
	default:
		return "healthy"
	}
}

// TierFor classifies health against maxHealth.
//
// Postcondition: maxHealth <= 0 yields HealthCritical.
func TierFor(health, maxHealth int) HealthTier {
	if maxHealth <= 0 {
		return HealthCritical
	}
	// Integer cross-multiplication keeps the 25/50 boundaries exact.
	h, m := int64(health), int64(maxHealth)
	switch {
	case h*4 < m:
		return HealthCritical
	case h*2 < m:
		return HealthWarning
	default:
		return HealthHealthy
	}
}

// Player is the server-reported player view-state. It is never computed locally.
type Player struct {
	Name      string
	Race      string
	Health    int
	MaxHealth int
	Inventory []string
}

// Tier returns the player's health tier.
func (p Player) Tier() HealthTier {
	return TierFor(p.Health, p.MaxHealth)
}

// Dead reports whether health has reached zero.
func (p Player) Dead() bool {
	return p.Health <= 0
}

func playerFrom(p gameapi.Player, race string) Player {
	if p.Race != "" {
		race = p.Race
	}
	return Player{
		Name:      p.Name,
		Race:      race,
		Health:    p.Health,
		MaxHealth: p.MaxHealth,
		Inventory: p.Inventory,
	}
}
