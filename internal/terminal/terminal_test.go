//go:build test

package terminal

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCleanEnv clears every variable the package reads and sets only envVars.
func setupCleanEnv(t *testing.T, envVars map[string]string) {
	t.Helper()

	vars := append([]string{"TERM", "CLICOLOR", "CLICOLOR_FORCE", "NO_COLOR"}, ciEnvVars...)
	for _, v := range vars {
		t.Setenv(v, "")
		require.NoError(t, os.Unsetenv(v))
	}
	for k, v := range envVars {
		t.Setenv(k, v)
	}
}

func TestParseColorMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ColorMode
		wantErr bool
	}{
		{in: "", want: ColorAuto},
		{in: "auto", want: ColorAuto},
		{in: "always", want: ColorAlways},
		{in: "never", want: ColorNever},
		{in: "sometimes", wantErr: true},
		{in: "ALWAYS", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColorMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidColorMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsCIEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		want    bool
	}{
		{name: "nothing set", want: false},
		{name: "CI=true", envVars: map[string]string{"CI": "true"}, want: true},
		{name: "CI=1", envVars: map[string]string{"CI": "1"}, want: true},
		{name: "CI=false", envVars: map[string]string{"CI": "false"}, want: false},
		{name: "CI=0", envVars: map[string]string{"CI": "0"}, want: false},
		{name: "GitHub Actions", envVars: map[string]string{"GITHUB_ACTIONS": "true"}, want: true},
		{name: "Jenkins", envVars: map[string]string{"JENKINS_URL": "http://ci.example"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupCleanEnv(t, tt.envVars)
			assert.Equal(t, tt.want, IsCIEnvironment())
		})
	}
}

func TestTermSupportsColor(t *testing.T) {
	tests := []struct {
		term string
		want bool
	}{
		{term: "", want: false},
		{term: "dumb", want: false},
		{term: "xterm", want: true},
		{term: "xterm-256color", want: true},
		{term: "screen-256color", want: true},
		{term: "tmux-256color", want: true},
		{term: "xtermish", want: false},
		{term: "unknown", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			setupCleanEnv(t, map[string]string{"TERM": tt.term})
			assert.Equal(t, tt.want, TermSupportsColor())
		})
	}
}

func TestCapabilities(t *testing.T) {
	tests := []struct {
		name            string
		envVars         map[string]string
		options         Options
		wantInteractive bool
		wantColor       bool
	}{
		{
			name:            "always overrides everything",
			envVars:         map[string]string{"NO_COLOR": "1", "CI": "true"},
			options:         Options{Color: ColorAlways},
			wantInteractive: false,
			wantColor:       true,
		},
		{
			name:            "never overrides an interactive color terminal",
			envVars:         map[string]string{"TERM": "xterm"},
			options:         Options{Color: ColorNever, Detector: DetectorOptions{ForceInteractive: true}},
			wantInteractive: true,
			wantColor:       false,
		},
		{
			name:            "CLICOLOR_FORCE enables color in CI",
			envVars:         map[string]string{"CLICOLOR_FORCE": "1", "CI": "true"},
			wantInteractive: false,
			wantColor:       true,
		},
		{
			name:            "NO_COLOR disables color on an interactive terminal",
			envVars:         map[string]string{"NO_COLOR": "", "TERM": "xterm"},
			options:         Options{Detector: DetectorOptions{ForceInteractive: true}},
			wantInteractive: true,
			wantColor:       false,
		},
		{
			name:            "interactive color terminal",
			envVars:         map[string]string{"TERM": "xterm-256color"},
			options:         Options{Detector: DetectorOptions{ForceInteractive: true}},
			wantInteractive: true,
			wantColor:       true,
		},
		{
			name:            "CLICOLOR=0 on an interactive terminal",
			envVars:         map[string]string{"TERM": "xterm", "CLICOLOR": "0"},
			options:         Options{Detector: DetectorOptions{ForceInteractive: true}},
			wantInteractive: true,
			wantColor:       false,
		},
		{
			name:            "dumb terminal",
			envVars:         map[string]string{"TERM": "dumb"},
			options:         Options{Detector: DetectorOptions{ForceInteractive: true}},
			wantInteractive: true,
			wantColor:       false,
		},
		{
			name:            "CI without preferences",
			envVars:         map[string]string{"CI": "true", "TERM": "xterm"},
			wantInteractive: false,
			wantColor:       false,
		},
		{
			name:            "forced non-interactive",
			envVars:         map[string]string{"TERM": "xterm"},
			options:         Options{Detector: DetectorOptions{ForceNonInteractive: true}},
			wantInteractive: false,
			wantColor:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupCleanEnv(t, tt.envVars)
			c := NewCapabilities(tt.options)
			assert.Equal(t, tt.wantInteractive, c.IsInteractive())
			assert.Equal(t, tt.wantColor, c.SupportsColor())
		})
	}
}

func TestDetectorOptions_PipeIsNotInteractive(t *testing.T) {
	setupCleanEnv(t, nil)
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	assert.False(t, DetectorOptions{Output: w}.IsInteractive())
}
