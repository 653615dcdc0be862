package terminal

import (
	"errors"
	"fmt"
	"os"
)

// ErrInvalidColorMode is returned by ParseColorMode for unknown modes.
var ErrInvalidColorMode = errors.New("invalid color mode")

// ColorMode is the user's color choice.
type ColorMode string

// Color modes
const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates s. The empty string means ColorAuto.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(s); m {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (want auto, always or never)", ErrInvalidColorMode, s)
	}
}

// Options configures NewCapabilities.
type Options struct {
	Color    ColorMode
	Detector DetectorOptions
}

// Capabilities reports what the output terminal can do.
type Capabilities interface {
	IsInteractive() bool
	SupportsColor() bool
}

type capabilities struct {
	interactive bool
	color       bool
}

// NewCapabilities evaluates the environment once. Color priority, highest first:
//  1. an explicit ColorAlways or ColorNever
//  2. CLICOLOR_FORCE set to a true value
//  3. NO_COLOR set to anything
//  4. interactive output on a color terminal, unless CLICOLOR is false
func NewCapabilities(opts Options) Capabilities {
	c := &capabilities{interactive: opts.Detector.IsInteractive()}
	c.color = c.resolveColor(opts.Color)
	return c
}

func (c *capabilities) resolveColor(mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if isTruthy(os.Getenv("CLICOLOR_FORCE")) {
		return true
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if !c.interactive || !TermSupportsColor() {
		return false
	}
	if v := os.Getenv("CLICOLOR"); v != "" {
		return isTruthy(v)
	}
	return true
}

func (c *capabilities) IsInteractive() bool {
	return c.interactive
}

func (c *capabilities) SupportsColor() bool {
	return c.color
}
