// Package terminal decides whether output goes to an interactive terminal
// and whether it may carry ANSI color.
package terminal

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ciEnvVars contains common CI environment variables
var ciEnvVars = []string{
	"CI",
	"CONTINUOUS_INTEGRATION",
	"GITHUB_ACTIONS",
	"TRAVIS",
	"CIRCLECI",
	"JENKINS_URL",
	"BUILD_NUMBER",
	"GITLAB_CI",
	"APPVEYOR",
	"BUILDKITE",
	"DRONE",
	"TF_BUILD",
}

// colorTerminals lists TERM values, or prefixes before a '-', known to handle ANSI colors.
var colorTerminals = []string{
	"xterm", "screen", "tmux", "rxvt", "vt100", "vt220", "ansi", "linux", "cygwin", "putty",
}

// DetectorOptions overrides environment detection.
type DetectorOptions struct {
	ForceInteractive    bool
	ForceNonInteractive bool

	// Output is the stream whose terminal status matters. Nil means os.Stdout.
	Output *os.File
}

// IsInteractive reports whether output should be treated as interactive:
// forced options first, then CI detection, then a TTY check on the output.
func (o DetectorOptions) IsInteractive() bool {
	switch {
	case o.ForceInteractive:
		return true
	case o.ForceNonInteractive:
		return false
	case IsCIEnvironment():
		return false
	}
	out := o.Output
	if out == nil {
		out = os.Stdout
	}
	return term.IsTerminal(int(out.Fd()))
}

// IsCIEnvironment reports whether a CI system is detected. CI=false, CI=0
// and CI=no do not count.
func IsCIEnvironment() bool {
	for _, envVar := range ciEnvVars {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		if envVar == "CI" {
			return !isFalsy(value)
		}
		return true
	}
	return false
}

// TermSupportsColor checks TERM against the known color terminals. Unknown
// terminals get no color.
func TermSupportsColor() bool {
	t := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	if t == "" || t == "dumb" {
		return false
	}
	for _, colorTerm := range colorTerminals {
		if t == colorTerm || strings.HasPrefix(t, colorTerm+"-") {
			return true
		}
	}
	return false
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func isFalsy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "0", "false", "no":
		return true
	default:
		return false
	}
}
