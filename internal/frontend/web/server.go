// Package web serves player sessions over WebSocket, one session per
// connection, for browser terminals.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/mordor/internal/config"
	"github.com/cory-johannsen/mordor/internal/frontend/handlers"
)

// readLimit bounds a single inbound message.
const readLimit = 4096

// Runner plays one session on a terminal.
type Runner interface {
	Run(ctx context.Context, term handlers.Terminal, peer string) error
}

// Server accepts WebSocket connections on /ws and reports liveness on /healthz.
type Server struct {
	cfg      config.WebConfig
	runner   Runner
	logger   *zap.Logger
	upgrader websocket.Upgrader

	// slots limits concurrent sessions; nil when unlimited.
	slots chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	http     *http.Server
	listener net.Listener
	stopped  bool
}

// NewServer creates a Server.
//
// Precondition: cfg must be valid; runner and logger must be non-nil.
func NewServer(cfg config.WebConfig, runner Runner, logger *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:    cfg,
		runner: runner,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	if cfg.MaxSessions > 0 {
		s.slots = make(chan struct{}, cfg.MaxSessions)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.serveWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// ListenAndServe serves until Stop is called.
//
// Postcondition: Returns nil after Stop, or the listen/serve error.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.http = srv
	s.mu.Unlock()

	s.logger.Info("websocket listener started",
		zap.String("addr", listener.Addr().String()),
		zap.Int("max_sessions", s.cfg.MaxSessions),
	)

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving websocket: %w", err)
	}
	return nil
}

// Stop ends every session and shuts the listener down.
func (s *Server) Stop() {
	s.cancel()

	s.mu.Lock()
	s.stopped = true
	srv := s.http
	s.mu.Unlock()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Warn("websocket shutdown", zap.Error(err))
		}
	}
	// Hijacked connections are not tracked by Shutdown.
	s.wg.Wait()
	s.logger.Info("websocket listener stopped")
}

// Addr returns the listening address, or "" before ListenAndServe binds.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, r.Header.Get("Origin"))
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	if !s.acquire() {
		s.wg.Done()
		s.logger.Warn("session limit reached",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("max_sessions", s.cfg.MaxSessions),
		)
		http.Error(w, "The realm is full. Please try again later.", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.release()
		s.wg.Done()
		// Upgrade has already written the HTTP error.
		s.logger.Debug("websocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	go s.session(conn, r.RemoteAddr)
}

func (s *Server) session(conn *websocket.Conn, addr string) {
	defer s.wg.Done()
	defer s.release()
	start := time.Now()

	term := newTerminal(conn, s.cfg.ReadTimeout, s.cfg.WriteTimeout)
	defer term.Close()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	// On shutdown, unblock the pending read.
	go func() {
		<-ctx.Done()
		term.Close()
	}()

	s.logger.Info("websocket client connected", zap.String("remote_addr", addr))
	err := s.runner.Run(ctx, term, addr)
	if err != nil {
		s.logger.Debug("session ended",
			zap.String("remote_addr", addr),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return
	}
	term.Goodbye()
	s.logger.Info("session ended cleanly",
		zap.String("remote_addr", addr),
		zap.Duration("duration", time.Since(start)),
	)
}

func (s *Server) acquire() bool {
	if s.slots == nil {
		return true
	}
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Server) release() {
	if s.slots != nil {
		<-s.slots
	}
}
