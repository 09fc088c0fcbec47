package gameapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Error classes. Every error returned by Client wraps exactly one of them.
var (
	// ErrTransport reports that the request never produced an HTTP response.
	ErrTransport = errors.New("game server unreachable")
	// ErrMalformedResponse reports a response that is not the expected JSON shape.
	ErrMalformedResponse = errors.New("malformed game server response")
)

const (
	pathNewGame = "/new_game"
	pathCommand = "/command"

	// maxBodyBytes bounds how much of a response body is read.
	maxBodyBytes = 1 << 20
)

// Client talks to the game server's two JSON endpoints.
//
// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a Client rooted at baseURL, e.g. "http://localhost:5000/api".
//
// Precondition: baseURL must be an absolute http(s) URL; logger must be non-nil.
// Postcondition: Returns a Client whose requests time out after timeout (0 disables).
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: timeout}, logger)
}

// NewClientWithHTTP is NewClient with a caller-supplied http.Client.
func NewClientWithHTTP(baseURL string, hc *http.Client, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		logger:  logger,
	}
}

// NewGame starts a game session.
//
// Postcondition: On success the response carries a non-empty GameID.
func (c *Client) NewGame(ctx context.Context, req NewGameRequest) (NewGameResponse, error) {
	var wire newGameWire
	if err := c.post(ctx, pathNewGame, req, &wire); err != nil {
		return NewGameResponse{}, err
	}
	if wire.GameID.IsZero() {
		return NewGameResponse{}, fmt.Errorf("%w: missing game_id", ErrMalformedResponse)
	}
	if wire.Player == nil {
		return NewGameResponse{}, fmt.Errorf("%w: missing player", ErrMalformedResponse)
	}
	return NewGameResponse{
		GameID:   wire.GameID,
		Player:   *wire.Player,
		Messages: nonNil(wire.Messages),
	}, nil
}

// Command submits one player command to an existing session.
func (c *Client) Command(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	var wire commandWire
	if err := c.post(ctx, pathCommand, req, &wire); err != nil {
		return CommandResponse{}, err
	}
	if wire.Player == nil {
		return CommandResponse{}, fmt.Errorf("%w: missing player", ErrMalformedResponse)
	}
	return CommandResponse{
		Player:   *wire.Player,
		Messages: nonNil(wire.Messages),
		GameOver: deref(wire.GameOver),
		Quit:     deref(wire.Quit),
		InCombat: deref(wire.InCombat),
	}, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	start := time.Now()
	requestID := uuid.NewString()

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: building %s request: %v", ErrTransport, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("game server request failed",
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)),
		)
		return fmt.Errorf("%w: POST %s: %v", ErrTransport, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: reading %s response: %v", ErrTransport, path, err)
	}

	c.logger.Debug("game server request",
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: POST %s returned status %d: %s",
			ErrMalformedResponse, path, resp.StatusCode, serverError(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", ErrMalformedResponse, path, err)
	}
	return nil
}

// serverError extracts the "error" field the server sets on failures,
// falling back to a truncated body.
func serverError(data []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return e.Error
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
