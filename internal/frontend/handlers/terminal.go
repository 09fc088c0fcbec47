package handlers

import "bytes"

// Terminal is a player's line-oriented text display. *telnet.Conn and
// *console.Terminal implement it.
type Terminal interface {
	ReadLine() (string, error)
	Write(data []byte) error
	WriteLine(text string) error
	WritePrompt(prompt string) error
}

// termSink feeds a Terminal from the transcript, translating LF to CRLF.
type termSink struct {
	term Terminal
}

func (s termSink) Write(data []byte) error {
	return s.term.Write(bytes.ReplaceAll(data, []byte("\n"), []byte("\r\n")))
}

type input struct {
	text string
	err  error
}

// lineReader pumps Terminal input onto a channel so the session loop can
// also wait on session end and cancellation.
type lineReader struct {
	lines chan input
	done  chan struct{}
}

func readLines(term Terminal) *lineReader {
	r := &lineReader{
		lines: make(chan input),
		done:  make(chan struct{}),
	}
	go func() {
		for {
			text, err := term.ReadLine()
			select {
			case r.lines <- input{text: text, err: err}:
			case <-r.done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return r
}

// stop releases the pump. A ReadLine already in progress returns when the
// terminal is closed.
func (r *lineReader) stop() {
	close(r.done)
}
