// Package color wraps report text in ANSI escape sequences.
//
//nolint:revive // package name conflicts with standard library
package color

// ANSI color codes
const (
	resetCode  = "\033[0m"
	boldCode   = "\033[1m"
	grayCode   = "\033[90m"
	greenCode  = "\033[32m"
	yellowCode = "\033[33m"
	redCode    = "\033[31m"
	cyanCode   = "\033[36m"
)

// Color wraps text with an escape sequence.
type Color func(text string) string

// NewColor returns a Color for ansiCode.
func NewColor(ansiCode string) Color {
	return func(text string) string {
		if text == "" {
			return text
		}
		return ansiCode + text + resetCode
	}
}

// Plain returns text unchanged.
func Plain(text string) string {
	return text
}

// Predefined colors
var (
	Bold   = NewColor(boldCode)
	Gray   = NewColor(grayCode)
	Green  = NewColor(greenCode)
	Yellow = NewColor(yellowCode)
	Red    = NewColor(redCode)
	Cyan   = NewColor(cyanCode)
)

// Palette assigns a Color to each kind of report element.
type Palette struct {
	Heading Color
	Address Color
	Name    Color
	Muted   Color
	Warning Color
	Error   Color
	OK      Color
}

// NewPalette returns the report palette, or a plain one when enabled is false.
func NewPalette(enabled bool) Palette {
	if !enabled {
		return Palette{Heading: Plain, Address: Plain, Name: Plain, Muted: Plain, Warning: Plain, Error: Plain, OK: Plain}
	}
	return Palette{Heading: Bold, Address: Cyan, Name: Green, Muted: Gray, Warning: Yellow, Error: Red, OK: Green}
}
