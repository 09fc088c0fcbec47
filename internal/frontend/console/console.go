// Package console runs a player session on the local terminal.
package console

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/cory-johannsen/mordor/internal/frontend/telnet"
)

// Terminal reads lines from an input stream and writes to an output stream.
// Writes are serialized.
type Terminal struct {
	in    *bufio.Reader
	out   io.Writer
	plain bool
	mu    sync.Mutex
}

// New creates a Terminal over in and out, typically os.Stdin and os.Stdout.
func New(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// NewPlain is New with ANSI escape sequences removed from all output, for
// output that is not a terminal.
func NewPlain(in io.Reader, out io.Writer) *Terminal {
	t := New(in, out)
	t.plain = true
	return t
}

// ReadLine returns the next input line without its terminator.
// A final unterminated line is returned with a nil error; io.EOF follows.
func (t *Terminal) ReadLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	return strings.TrimRight(line, "\r\n"), err
}

// Write sends data as-is.
func (t *Terminal) Write(data []byte) error {
	if t.plain {
		data = []byte(telnet.StripANSI(string(data)))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.out.Write(data)
	return err
}

// WriteLine sends text followed by CRLF.
func (t *Terminal) WriteLine(text string) error {
	return t.Write([]byte(text + "\r\n"))
}

// WritePrompt sends text with no line terminator.
func (t *Terminal) WritePrompt(prompt string) error {
	return t.Write([]byte(prompt))
}
