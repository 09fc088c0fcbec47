// Package testutil provides a Telnet test client for integration tests.
package testutil

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/cory-johannsen/mordor/internal/frontend/telnet"
)

// TelnetClient is a line-oriented Telnet client that fails the test on error.
type TelnetClient struct {
	conn net.Conn
	t    *testing.T
}

// NewTelnetClient dials addr. The connection is closed when the test ends.
func NewTelnetClient(t *testing.T, addr string) *TelnetClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v", addr, err)
	}
	t.Cleanup(func() { conn.Close() })
	return &TelnetClient{conn: conn, t: t}
}

// ReadUntil reads until substr appears in the output with Telnet commands
// and ANSI styling removed. It returns that cleaned output.
func (c *TelnetClient) ReadUntil(substr string, timeout time.Duration) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	var raw []byte
	tmp := make([]byte, 1024)
	for {
		n, err := c.conn.Read(tmp)
		raw = append(raw, tmp[:n]...)
		text := Clean(raw)
		if strings.Contains(text, substr) {
			return text
		}
		if err != nil {
			c.t.Fatalf("reading until %q: got %q, error: %v", substr, text, err)
		}
	}
}

// ReadToEOF reads until the server closes the connection and returns the
// cleaned remainder.
func (c *TelnetClient) ReadToEOF(timeout time.Duration) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	raw, err := io.ReadAll(c.conn)
	if err != nil && !errors.Is(err, io.EOF) {
		c.t.Fatalf("reading to EOF: got %q, error: %v", Clean(raw), err)
	}
	return Clean(raw)
}

// Send writes text followed by CRLF.
func (c *TelnetClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", text); err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Close closes the connection.
func (c *TelnetClient) Close() {
	c.conn.Close()
}

// Clean removes Telnet commands and ANSI sequences from raw output.
func Clean(raw []byte) string {
	return telnet.StripANSI(string(FilterIAC(raw)))
}

// FilterIAC strips Telnet command sequences from server output, keeping
// escaped IAC IAC pairs as a single 0xFF byte.
func FilterIAC(input []byte) []byte {
	out := make([]byte, 0, len(input))
	for i := 0; i < len(input); i++ {
		if input[i] != telnet.IAC || i+1 >= len(input) {
			out = append(out, input[i])
			continue
		}
		switch input[i+1] {
		case telnet.IAC:
			out = append(out, telnet.IAC)
			i++
		case telnet.WILL, telnet.WONT, telnet.DO, telnet.DONT:
			i += 2
		case telnet.SB:
			j := i + 2
			for j+1 < len(input) && !(input[j] == telnet.IAC && input[j+1] == telnet.SE) {
				j++
			}
			i = j + 1
		default:
			i++
		}
	}
	return out
}
