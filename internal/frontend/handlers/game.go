// Package handlers runs player sessions on a Terminal: the setup screen,
// the command loop and the end-of-game screens.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/mordor/internal/config"
	"github.com/cory-johannsen/mordor/internal/content"
	"github.com/cory-johannsen/mordor/internal/frontend/telnet"
	"github.com/cory-johannsen/mordor/internal/session"
	"github.com/cory-johannsen/mordor/internal/transcript"
)

// errLeft marks a player choosing to disconnect.
var errLeft = errors.New("player left")

// GameHandler hosts one game session per terminal.
type GameHandler struct {
	api      session.API
	races    []*content.Race
	reveal   config.RevealConfig
	sessions config.SessionConfig
	logger   *zap.Logger

	// source and scheduler override randomness and timers in tests.
	source    transcript.Source
	scheduler session.Scheduler
}

// NewGameHandler creates a GameHandler.
//
// Precondition: api and logger must be non-nil; races must be non-empty.
func NewGameHandler(api session.API, races []*content.Race, reveal config.RevealConfig, sessions config.SessionConfig, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		api:      api,
		races:    races,
		reveal:   reveal,
		sessions: sessions,
		logger:   logger,
	}
}

// HandleSession implements telnet.SessionHandler.
func (h *GameHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	return h.Run(ctx, conn, conn.RemoteAddr().String())
}

// Run plays on term until the player leaves, the game ends, input fails or
// ctx is cancelled. peer identifies the terminal in logs.
//
// Postcondition: Returns nil when the player left or the game ended.
func (h *GameHandler) Run(ctx context.Context, term Terminal, peer string) error {
	logger := h.logger.With(
		zap.String("session_id", uuid.NewString()),
		zap.String("peer", peer),
	)
	logger.Info("session opened")
	defer logger.Info("session closed")

	tr := transcript.New(termSink{term: term}, transcript.Options{
		BaseDelay:     h.reveal.BaseDelay,
		MaxJitter:     h.reveal.MaxJitter,
		Source:        h.source,
		ClearSequence: telnet.ClearScreen,
	}, logger)
	defer tr.Close()

	watch := &endWatcher{ended: make(chan session.State, 1)}
	ctrl := session.New(h.api, tr, watch, session.Options{
		DefaultName:  h.sessions.DefaultName,
		RecheckDelay: h.sessions.CombatRecheckDelay,
		Scheduler:    h.scheduler,
		Screens:      Screens{},
	}, logger)
	defer ctrl.Close()

	lines := readLines(term)
	defer lines.stop()

	p := &play{
		h:      h,
		term:   term,
		tr:     tr,
		ctrl:   ctrl,
		watch:  watch,
		lines:  lines,
		logger: logger,
	}
	err := p.run(ctx)
	if errors.Is(err, errLeft) {
		return nil
	}
	return err
}

// play is the state of one terminal's session loop.
type play struct {
	h      *GameHandler
	term   Terminal
	tr     *transcript.Transcript
	ctrl   *session.Controller
	watch  *endWatcher
	lines  *lineReader
	logger *zap.Logger

	shownInventory []string
}

func (p *play) run(ctx context.Context) error {
	for {
		if err := p.setup(ctx); err != nil {
			return err
		}
		end, err := p.commands(ctx)
		if err != nil {
			return err
		}
		if end == session.StateGameOver {
			_ = p.term.WriteLine("")
			return nil
		}

		// Quit: offer a fresh game, as reloading the page would.
		_ = p.term.WriteLine("")
		_ = p.term.WritePrompt(telnet.Colorize(telnet.BrightWhite,
			"Press Enter to begin a new adventure, or type quit to disconnect: "))
		line, err := p.readLine(ctx)
		if err != nil {
			return err
		}
		if isLeave(line) {
			_ = p.term.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye."))
			return nil
		}
		p.ctrl.Reset()
		p.shownInventory = nil
	}
}

// setup shows the title, collects name and race and starts a game. It
// repeats until Start succeeds.
func (p *play) setup(ctx context.Context) error {
	if err := p.flush(ctx); err != nil {
		return err
	}
	_ = p.term.Write([]byte(RenderBanner()))

	for {
		_ = p.term.WriteLine("")
		_ = p.term.WritePrompt(telnet.Colorf(telnet.BrightWhite,
			"What is your name, traveler? [%s]: ", p.h.sessions.DefaultName))
		name, err := p.readLine(ctx)
		if err != nil {
			return err
		}

		race, err := p.chooseRace(ctx)
		if err != nil {
			return err
		}

		_ = p.term.WriteLine(telnet.Colorize(telnet.Dim, "Entering the Lands of Mordor..."))
		if err := p.ctrl.Start(ctx, name, race.ID); err != nil {
			p.logger.Debug("start failed", zap.Error(err))
			if err := p.flush(ctx); err != nil {
				return err
			}
			_ = p.term.WriteLine("")
			continue
		}
		return nil
	}
}

func (p *play) chooseRace(ctx context.Context) (*content.Race, error) {
	races := p.h.races
	for {
		_ = p.term.Write([]byte(RenderRaceMenu(races)))
		_ = p.term.WritePrompt(telnet.Colorf(telnet.BrightWhite,
			"Select [1-%d, Enter for %s]: ", len(races), races[0].Name))
		line, err := p.readLine(ctx)
		if err != nil {
			return nil, err
		}
		if isLeave(line) {
			_ = p.term.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye."))
			return nil, errLeft
		}
		if race, ok := content.Resolve(races, line); ok {
			return race, nil
		}
		_ = p.term.WriteLine(telnet.Colorize(telnet.Red, "Invalid selection."))
	}
}

// commands runs the command loop until the session reaches a terminal state.
func (p *play) commands(ctx context.Context) (session.State, error) {
	for {
		if err := p.flush(ctx); err != nil {
			return 0, err
		}
		if st := p.ctrl.State(); st.Terminal() {
			return st, nil
		}
		p.prompt()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-p.watch.ended:
			// The loop head reads the authoritative state.
		case in := <-p.lines.lines:
			if in.err != nil {
				return 0, fmt.Errorf("reading input: %w", in.err)
			}
			err := p.ctrl.Submit(ctx, in.text)
			if err != nil && !errors.Is(err, session.ErrSessionEnded) {
				p.logger.Debug("command failed", zap.String("command", in.text), zap.Error(err))
			}
		}
	}
}

// prompt draws the status line and, when it changed, the inventory.
func (p *play) prompt() {
	player := p.ctrl.Player()
	if !slices.Equal(player.Inventory, p.shownInventory) {
		p.shownInventory = slices.Clone(player.Inventory)
		_ = p.term.WriteLine("")
		_ = p.term.WritePrompt(RenderInventory(player.Inventory))
	}
	_ = p.term.WriteLine("")
	_ = p.term.WritePrompt(RenderStatus(player, p.h.races) + "> ")
}

func (p *play) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case in := <-p.lines.lines:
		if in.err != nil {
			return "", fmt.Errorf("reading input: %w", in.err)
		}
		return strings.TrimSpace(in.text), nil
	}
}

// flush waits for queued transcript output to reach the terminal.
func (p *play) flush(ctx context.Context) error {
	if err := p.tr.Flush(ctx); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	return nil
}

func isLeave(line string) bool {
	l := strings.ToLower(strings.TrimSpace(line))
	return l == "quit" || l == "exit"
}

// endWatcher signals terminal state changes, including those made by the
// deferred death check while the loop waits for input. A return to setup
// discards a signal the previous game left behind.
type endWatcher struct {
	ended chan session.State
}

func (w *endWatcher) PlayerChanged(session.Player) {}

func (w *endWatcher) StateChanged(s session.State) {
	if !s.Terminal() {
		select {
		case <-w.ended:
		default:
		}
		return
	}
	select {
	case w.ended <- s:
	default:
	}
}
