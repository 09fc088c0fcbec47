// Package gameapi is the HTTP/JSON client for the remote Mordor game server.
package gameapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// GameID is the server-issued session identifier. The server may encode it
// as a JSON string or number; it is sent back in the same form it arrived in.
// The zero value means no session.
type GameID struct {
	text    string
	numeric bool
}

// StringID returns a GameID that encodes as a JSON string.
func StringID(s string) GameID {
	return GameID{text: s}
}

// NumericID returns a GameID that encodes as the JSON number n.
func NumericID(n int64) GameID {
	return GameID{text: strconv.FormatInt(n, 10), numeric: true}
}

// String returns the identifier's text, without JSON quoting.
func (g GameID) String() string {
	return g.text
}

// IsZero reports whether g holds no identifier.
func (g GameID) IsZero() bool {
	return g.text == ""
}

// MarshalJSON encodes g as it was received.
func (g GameID) MarshalJSON() ([]byte, error) {
	if g.numeric {
		return []byte(g.text), nil
	}
	return json.Marshal(g.text)
}

// UnmarshalJSON accepts a JSON string or number.
func (g *GameID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*g = GameID{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*g = StringID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("game_id must be a string or number: %w", err)
	}
	*g = GameID{text: n.String(), numeric: true}
	return nil
}

// Player is the server-reported view of the player character.
type Player struct {
	Name      string   `json:"name"`
	Race      string   `json:"race,omitempty"`
	Health    int      `json:"health"`
	MaxHealth int      `json:"max_health"`
	Inventory []string `json:"inventory,omitempty"`
}

// NewGameRequest is the body of POST /new_game.
type NewGameRequest struct {
	Name string `json:"name"`
	Race string `json:"race"`
}

// NewGameResponse is the body returned by POST /new_game.
type NewGameResponse struct {
	GameID   GameID   `json:"game_id"`
	Player   Player   `json:"player"`
	Messages []string `json:"messages"`
}

// CommandRequest is the body of POST /command.
type CommandRequest struct {
	GameID  GameID `json:"game_id"`
	Command string `json:"command"`
}

// CommandResponse is the body returned by POST /command.
type CommandResponse struct {
	Player   Player   `json:"player"`
	Messages []string `json:"messages"`
	GameOver bool     `json:"game_over,omitempty"`
	Quit     bool     `json:"quit,omitempty"`
	InCombat bool     `json:"in_combat,omitempty"`
}

// wire shapes keep player optional so a missing object is detectable.
type newGameWire struct {
	GameID   GameID   `json:"game_id"`
	Player   *Player  `json:"player"`
	Messages []string `json:"messages"`
}

type commandWire struct {
	Player   *Player  `json:"player"`
	Messages []string `json:"messages"`
	GameOver *bool    `json:"game_over"`
	Quit     *bool    `json:"quit"`
	InCombat *bool    `json:"in_combat"`
}

func deref(b *bool) bool {
	return b != nil && *b
}
