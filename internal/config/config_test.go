//go:build test

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/isseis/go-lazyelf/internal/safefileio"
	"github.com/isseis/go-lazyelf/internal/terminal"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *Config
		wantErr error
	}{
		{
			name:    "empty file",
			content: "",
			want:    Default(),
		},
		{
			name: "all keys",
			content: `
[input]
mode = "stream"
max_file_size = 4096

[output]
color = "never"
demangle = true
demangle_cache_size = 16
digest = true
max_relocations = 100

[log]
level = "debug"
dir = "/var/log/elfinspect"
`,
			want: &Config{
				Input:  InputConfig{Mode: ModeStream, MaxFileSize: 4096},
				Output: OutputConfig{Color: "never", Demangle: true, DemangleCacheSize: 16, Digest: true, MaxRelocations: 100},
				Log:    LogConfig{Level: "debug", Dir: "/var/log/elfinspect"},
			},
		},
		{
			name:    "partial tables keep defaults",
			content: "[output]\ndemangle = true\n",
			want: &Config{
				Input:  InputConfig{Mode: DefaultMode, MaxFileSize: DefaultMaxFileSize},
				Output: OutputConfig{Color: DefaultColor, Demangle: true, DemangleCacheSize: DefaultCacheSize, MaxRelocations: DefaultMaxRelocations},
				Log:    LogConfig{Level: DefaultLogLevel},
			},
		},
		{name: "bad mode", content: "[input]\nmode = \"ftp\"\n", wantErr: ErrInvalidMode},
		{name: "negative max size", content: "[input]\nmax_file_size = -1\n", wantErr: ErrInvalidMaxFileSize},
		{name: "bad color", content: "[output]\ncolor = \"sometimes\"\n", wantErr: ErrInvalidColorMode},
		{name: "bad cache size", content: "[output]\ndemangle_cache_size = -5\n", wantErr: ErrInvalidCacheSize},
		{name: "bad max relocations", content: "[output]\nmax_relocations = -1\n", wantErr: ErrInvalidMaxRelocations},
		{name: "bad level", content: "[log]\nlevel = \"loud\"\n", wantErr: ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.content))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("[input]\nmod = \"mmap\"\n"))
	var strict *toml.StrictMissingError
	assert.ErrorAs(t, err, &strict)
	assert.Contains(t, err.Error(), "mod")
}

func TestParse_Syntax(t *testing.T) {
	_, err := Parse([]byte("[input\n"))
	var decodeErr *toml.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestLoad(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	path := filepath.Join(dir, "elfinspect.toml")
	require.NoError(t, os.WriteFile(path, []byte("[output]\ncolor = \"always\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, terminal.ColorAlways, cfg.ColorMode())
	assert.Equal(t, ModeMmap, cfg.Input.Mode)

	link := filepath.Join(dir, "link.toml")
	require.NoError(t, os.Symlink(path, link))
	_, err = Load(link)
	assert.ErrorIs(t, err, safefileio.ErrIsSymlink)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, terminal.ColorAuto, cfg.ColorMode())
	assert.False(t, cfg.Output.Demangle)
}
