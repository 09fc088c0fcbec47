package telnet

import (
	"bufio"
	"bytes"
	"net"
	"sync"
	"time"
	"unicode/utf8"
)

// Telnet command and option bytes (RFC 854, RFC 858).
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	GA   byte = 249
	NOP  byte = 241
	SE   byte = 240

	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
	OptLinemode        byte = 34
)

// maxLineLength bounds a single input line; longer input is truncated.
const maxLineLength = 1024

// Conn is one player's Telnet connection. Writes are serialized so the
// transcript worker and the input loop can share it.
type Conn struct {
	raw    net.Conn
	reader *bufio.Reader

	readTimeout  time.Duration
	writeTimeout time.Duration

	mu sync.Mutex
}

// NewConn wraps raw. Zero timeouts disable the corresponding deadline.
func NewConn(raw net.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, 4096),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// Negotiate offers to suppress go-ahead so line-mode clients behave.
func (c *Conn) Negotiate() error {
	return c.Write([]byte{IAC, WILL, OptSuppressGoAhead})
}

// ReadLine returns the next line of input without its terminator.
// Telnet commands and control characters other than tab are dropped; an
// escaped IAC IAC pair is kept as one 0xFF byte. Backspace erases a whole
// rune and an overlong line is cut at a rune boundary.
//
// Postcondition: On error the partial line read so far is returned with it.
func (c *Conn) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	var line bytes.Buffer
	truncated := false
	result := func() string {
		if truncated {
			return wholeRunes(line.Bytes())
		}
		return line.String()
	}
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			return result(), err
		}
		switch {
		case b == IAC:
			literal, err := c.readCommand()
			if err != nil {
				return result(), err
			}
			if literal {
				if line.Len() < maxLineLength {
					line.WriteByte(IAC)
				} else {
					truncated = true
				}
			}
		case b == '\n':
			return result(), nil
		case b == '\r':
			if next, err := c.reader.Peek(1); err == nil && (next[0] == '\n' || next[0] == 0) {
				_, _ = c.reader.ReadByte()
			}
			return result(), nil
		case b == '\b' || b == 127:
			if line.Len() > 0 {
				_, size := utf8.DecodeLastRune(line.Bytes())
				line.Truncate(line.Len() - size)
			}
		case b < 32 && b != '\t':
		default:
			if line.Len() < maxLineLength {
				line.WriteByte(b)
			} else {
				truncated = true
			}
		}
	}
}

// wholeRunes drops the incomplete UTF-8 sequence a cut left at the end of b.
func wholeRunes(b []byte) string {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				b = b[:i]
			}
			break
		}
	}
	return string(b)
}

// readCommand consumes the remainder of a command whose IAC byte was read.
// It reports literal when the command was an escaped 0xFF data byte.
func (c *Conn) readCommand() (literal bool, err error) {
	cmd, err := c.reader.ReadByte()
	if err != nil {
		return false, err
	}
	switch cmd {
	case IAC:
		return true, nil
	case WILL, WONT, DO, DONT:
		_, err = c.reader.ReadByte()
		return false, err
	case SB:
		var prev byte
		for {
			b, err := c.reader.ReadByte()
			if err != nil {
				return false, err
			}
			if prev == IAC && b == SE {
				return false, nil
			}
			// IAC IAC inside a subnegotiation is a literal 0xFF.
			if prev == IAC && b == IAC {
				b = 0
			}
			prev = b
		}
	}
	return false, nil
}

// Write sends data as-is.
func (c *Conn) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.raw.Write(data)
	return err
}

// WriteLine sends text followed by CRLF.
func (c *Conn) WriteLine(text string) error {
	return c.Write([]byte(text + "\r\n"))
}

// WritePrompt sends text with no line terminator.
func (c *Conn) WritePrompt(prompt string) error {
	return c.Write([]byte(prompt))
}

// Close closes the underlying connection. Blocked reads return an error.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RemoteAddr returns the client's network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}
