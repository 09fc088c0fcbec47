package web

import (
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// terminal adapts a WebSocket connection to handlers.Terminal. Each inbound
// message is one line; each write is one text message.
type terminal struct {
	conn         *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration

	mu        sync.Mutex
	closeOnce sync.Once
}

func newTerminal(conn *websocket.Conn, readTimeout, writeTimeout time.Duration) *terminal {
	conn.SetReadLimit(readLimit)
	return &terminal{conn: conn, readTimeout: readTimeout, writeTimeout: writeTimeout}
}

func (t *terminal) ReadLine() (string, error) {
	if t.readTimeout > 0 {
		_ = t.conn.SetReadDeadline(time.Now().Add(t.readTimeout))
	}
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (t *terminal) Write(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *terminal) WriteLine(text string) error {
	return t.Write([]byte(text + "\r\n"))
}

func (t *terminal) WritePrompt(prompt string) error {
	return t.Write([]byte(prompt))
}

// Goodbye sends a normal-closure frame.
func (t *terminal) Goodbye() {
	t.mu.Lock()
	defer t.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended")
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func (t *terminal) Close() {
	t.closeOnce.Do(func() { _ = t.conn.Close() })
}
