// Package telnet provides the Telnet listener and connection handling that
// carries player sessions, with ANSI styling helpers.
package telnet

import "fmt"

// ANSI escape sequences for terminal styling.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
	Magenta = "\033[35m"

	BrightRed    = "\033[91m"
	BrightGreen  = "\033[92m"
	BrightYellow = "\033[93m"
	BrightCyan   = "\033[96m"
	BrightWhite  = "\033[97m"

	// ClearScreen erases the display and homes the cursor.
	ClearScreen = "\033[2J\033[H"
)

// Colorize wraps text with the given ANSI color code and a reset suffix.
func Colorize(color, text string) string {
	return color + text + Reset
}

// Colorf wraps a formatted string with the given ANSI color code.
func Colorf(color, format string, args ...interface{}) string {
	return color + fmt.Sprintf(format, args...) + Reset
}

// StripANSI removes every CSI escape sequence (ESC '[' ... final byte) from s.
// Useful for measuring printable width and asserting on rendered text.
func StripANSI(s string) string {
	result := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\033' || i+1 >= len(s) || s[i+1] != '[' {
			result = append(result, s[i])
			continue
		}
		j := i + 2
		// Parameter and intermediate bytes are 0x20-0x3F; the final byte is 0x40-0x7E.
		for j < len(s) && s[j] >= 0x20 && s[j] <= 0x3F {
			j++
		}
		if j >= len(s) {
			result = append(result, s[i:]...)
			break
		}
		i = j
	}
	return string(result)
}
