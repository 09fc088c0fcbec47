// Package session implements the per-player game session controller: it
// starts a game on the remote server, forwards commands, mirrors the reported
// player state, and decides when the session has ended.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mordor/internal/gameapi"
)

// ErrorLine is shown in the transcript when a server call fails.
const ErrorLine = "Error connecting to game server. Please try again."

// Controller errors.
var (
	// ErrNoSession rejects a command sent before a game was started.
	ErrNoSession = errors.New("no active game session")
	// ErrSessionEnded rejects a command sent after game over or quit.
	ErrSessionEnded = errors.New("game session has ended")
	// ErrSessionActive rejects Start while a game is already running.
	ErrSessionActive = errors.New("game session already started")
)

// API is the subset of the game server client the controller needs.
type API interface {
	NewGame(ctx context.Context, req gameapi.NewGameRequest) (gameapi.NewGameResponse, error)
	Command(ctx context.Context, req gameapi.CommandRequest) (gameapi.CommandResponse, error)
}

// Output is the player's transcript.
type Output interface {
	Append(text string)
	Reveal(text string)
	Replace(text string)
}

// View is notified of state and player changes so it can redraw status.
// Calls happen on the goroutine that caused the change.
type View interface {
	PlayerChanged(p Player)
	StateChanged(s State)
}

// Screens renders the full-screen text shown on terminal states.
type Screens interface {
	GameOver(p Player) string
	Quit(p Player) string
}

// Options configures a Controller.
type Options struct {
	// DefaultName replaces a blank player name.
	DefaultName string
	// RecheckDelay is the wait before the post-combat death check.
	RecheckDelay time.Duration
	// Scheduler runs the deferred check. Nil uses RealScheduler.
	Scheduler Scheduler
	// Screens renders terminal screens. Nil uses PlainScreens.
	Screens Screens
}

// Controller drives one game session through Setup → Playing → {GameOver | Quit}.
//
// Start, Submit and Reset are serialized: one server round trip is in flight
// at a time. Controller is safe for concurrent use.
type Controller struct {
	api    API
	out    Output
	view   View
	opts   Options
	logger *zap.Logger

	// turn serializes operations that talk to the server.
	turn sync.Mutex

	mu      sync.Mutex
	state   State
	gameID  gameapi.GameID
	player  Player
	recheck *deferredCheck
	closed  bool
}

// New creates a Controller in StateSetup.
//
// Precondition: api, out and logger must be non-nil; opts.DefaultName non-blank; opts.RecheckDelay > 0.
func New(api API, out Output, view View, opts Options, logger *zap.Logger) *Controller {
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler
	}
	if opts.Screens == nil {
		opts.Screens = PlainScreens{}
	}
	if view == nil {
		view = nopView{}
	}
	return &Controller{
		api:    api,
		out:    out,
		view:   view,
		opts:   opts,
		logger: logger,
		state:  StateSetup,
	}
}

// State returns the current screen state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Player returns the last server-reported player view-state.
func (c *Controller) Player() Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player
}

// GameID returns the session identifier, or "" before Start succeeds.
func (c *Controller) GameID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameID.String()
}

// Start opens a game session for name and race.
//
// Precondition: State() == StateSetup, otherwise ErrSessionActive.
// Postcondition: On success State() == StatePlaying and the welcome text is queued.
// On a server failure the error line is appended and the state stays StateSetup.
func (c *Controller) Start(ctx context.Context, name, race string) error {
	c.turn.Lock()
	defer c.turn.Unlock()

	if s := c.State(); s != StateSetup {
		return fmt.Errorf("%w (state %s)", ErrSessionActive, s)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = c.opts.DefaultName
	}
	race = strings.TrimSpace(race)

	start := time.Now()
	resp, err := c.api.NewGame(ctx, gameapi.NewGameRequest{Name: name, Race: race})
	if err != nil {
		c.logger.Warn("starting game",
			zap.String("name", name),
			zap.String("race", race),
			zap.Error(err),
		)
		c.out.Append(ErrorLine)
		return fmt.Errorf("starting game: %w", err)
	}

	player := playerFrom(resp.Player, race)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSessionEnded
	}
	c.gameID = resp.GameID
	c.player = player
	c.state = StatePlaying
	c.mu.Unlock()

	c.logger.Info("game started",
		zap.Stringer("game_id", resp.GameID),
		zap.String("name", player.Name),
		zap.String("race", player.Race),
		zap.Duration("elapsed", time.Since(start)),
	)

	c.view.PlayerChanged(player)
	c.view.StateChanged(StatePlaying)
	c.out.Reveal(strings.Join(resp.Messages, "\n"))
	return nil
}

// Submit sends one command to the server and applies the result.
//
// Blank commands are ignored without contacting the server.
// Postcondition: ErrNoSession before Start, ErrSessionEnded after a terminal
// state, a wrapped gameapi error on server failure (with the error line
// appended and state untouched), nil otherwise.
func (c *Controller) Submit(ctx context.Context, command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil
	}

	c.turn.Lock()
	defer c.turn.Unlock()

	c.mu.Lock()
	state, gameID := c.state, c.gameID
	c.mu.Unlock()

	switch {
	case state == StateSetup:
		return ErrNoSession
	case state.Terminal():
		return fmt.Errorf("%w (state %s)", ErrSessionEnded, state)
	}

	start := time.Now()
	resp, err := c.api.Command(ctx, gameapi.CommandRequest{GameID: gameID, Command: command})
	if err != nil {
		c.logger.Warn("submitting command",
			zap.Stringer("game_id", gameID),
			zap.String("command", command),
			zap.Error(err),
		)
		c.out.Append("\n" + ErrorLine)
		return fmt.Errorf("submitting command: %w", err)
	}

	c.mu.Lock()
	if c.state != StatePlaying {
		// Reset or a deferred check ended the session while the request was in flight.
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrSessionEnded, state)
	}
	player := playerFrom(resp.Player, c.player.Race)
	c.player = player
	c.mu.Unlock()

	c.logger.Debug("command applied",
		zap.Stringer("game_id", gameID),
		zap.String("command", command),
		zap.Int("health", player.Health),
		zap.Int("max_health", player.MaxHealth),
		zap.Bool("game_over", resp.GameOver),
		zap.Bool("quit", resp.Quit),
		zap.Bool("in_combat", resp.InCombat),
		zap.Duration("elapsed", time.Since(start)),
	)

	c.view.PlayerChanged(player)
	if len(resp.Messages) > 0 {
		c.out.Reveal("\n" + strings.Join(resp.Messages, "\n"))
	}

	switch {
	case player.Dead() || resp.GameOver:
		c.end(StateGameOver)
	case resp.Quit:
		c.end(StateQuit)
	case resp.InCombat:
		c.scheduleRecheck()
	}
	return nil
}

// Reset discards the session and returns to StateSetup, as a fresh page would.
func (c *Controller) Reset() {
	c.turn.Lock()
	defer c.turn.Unlock()

	c.mu.Lock()
	c.recheck.Stop()
	c.recheck = nil
	prev := c.gameID
	c.state = StateSetup
	c.gameID = gameapi.GameID{}
	c.player = Player{}
	c.mu.Unlock()

	c.logger.Info("session reset", zap.Stringer("game_id", prev))
	c.out.Replace("")
	c.view.StateChanged(StateSetup)
}

// Close cancels any pending deferred check. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.recheck.Stop()
	c.recheck = nil
}

func (c *Controller) scheduleRecheck() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.recheck.Stop()
	gameID := c.gameID
	c.recheck = scheduleCheck(c.opts.Scheduler, c.opts.RecheckDelay, func() {
		c.checkDeath(gameID)
	})
}

// checkDeath catches a death reported after the in-combat response was handled.
func (c *Controller) checkDeath(gameID gameapi.GameID) {
	c.mu.Lock()
	stale := c.closed || c.state != StatePlaying || c.gameID != gameID
	dead := c.player.Dead()
	c.mu.Unlock()

	if stale || !dead {
		return
	}
	c.logger.Info("delayed death detected", zap.Stringer("game_id", gameID))
	c.end(StateGameOver)
}

// end moves to a terminal state once; later calls are ignored.
func (c *Controller) end(s State) {
	c.mu.Lock()
	if c.state != StatePlaying {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.recheck.Stop()
	c.recheck = nil
	player := c.player
	gameID := c.gameID
	c.mu.Unlock()

	c.logger.Info("game ended",
		zap.Stringer("game_id", gameID),
		zap.String("state", s.String()),
		zap.Int("health", player.Health),
	)

	switch s {
	case StateGameOver:
		c.out.Replace(c.opts.Screens.GameOver(player))
	case StateQuit:
		c.out.Replace(c.opts.Screens.Quit(player))
	}
	c.view.StateChanged(s)
}

type nopView struct{}

func (nopView) PlayerChanged(Player) {}
func (nopView) StateChanged(State)   {}
