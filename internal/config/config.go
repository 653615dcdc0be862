// Package config loads the elfinspect configuration file. The file is TOML;
// unknown keys are rejected so that a misspelled option is reported rather
// than silently ignored.
package config

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/isseis/go-lazyelf/internal/logging"
	"github.com/isseis/go-lazyelf/internal/safefileio"
	"github.com/isseis/go-lazyelf/internal/terminal"
	"github.com/pelletier/go-toml/v2"
)

// Mode selects how input files are brought into memory.
type Mode string

// Input modes
const (
	// ModeMmap maps the file read-only and parses it zero copy.
	ModeMmap Mode = "mmap"
	// ModeStream parses through a seekable reader, reading only what is touched.
	ModeStream Mode = "stream"
	// ModeRead reads the whole file into memory, up to MaxFileSize bytes.
	ModeRead Mode = "read"
)

// Default values for configuration fields
const (
	DefaultMode              = ModeMmap
	DefaultMaxFileSize int64 = 1 << 30
	DefaultCacheSize         = 4096
	DefaultMaxRelocations    = 1 << 20
	DefaultColor             = "auto"
	DefaultLogLevel          = "info"

	// maxConfigFileSize bounds the configuration file itself.
	maxConfigFileSize = 1 << 20
)

// Config is the complete configuration.
type Config struct {
	Input  InputConfig  `toml:"input"`
	Output OutputConfig `toml:"output"`
	Log    LogConfig    `toml:"log"`
}

// InputConfig is the [input] table.
type InputConfig struct {
	Mode        Mode  `toml:"mode"`
	MaxFileSize int64 `toml:"max_file_size"`
}

// OutputConfig is the [output] table.
type OutputConfig struct {
	Color             string `toml:"color"`
	Demangle          bool   `toml:"demangle"`
	DemangleCacheSize int    `toml:"demangle_cache_size"`
	Digest            bool   `toml:"digest"`
	MaxRelocations    int    `toml:"max_relocations"`
}

// LogConfig is the [log] table.
type LogConfig struct {
	Level string `toml:"level"`
	Dir   string `toml:"dir"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Input.Mode == "" {
		cfg.Input.Mode = DefaultMode
	}
	if cfg.Input.MaxFileSize == 0 {
		cfg.Input.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Output.Color == "" {
		cfg.Output.Color = DefaultColor
	}
	if cfg.Output.DemangleCacheSize == 0 {
		cfg.Output.DemangleCacheSize = DefaultCacheSize
	}
	if cfg.Output.MaxRelocations == 0 {
		cfg.Output.MaxRelocations = DefaultMaxRelocations
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	content, err := safefileio.ReadFile(path, maxConfigFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates TOML content, applying defaults to missing keys.
func Parse(content []byte) (*Config, error) {
	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(content)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			// Error() does not name the keys; String() shows each one in context.
			return nil, fmt.Errorf("failed to parse config: %w\n%s", err, strict.String())
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	switch c.Input.Mode {
	case ModeMmap, ModeStream, ModeRead:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Input.Mode)
	}
	if c.Input.MaxFileSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxFileSize, c.Input.MaxFileSize)
	}
	if _, err := terminal.ParseColorMode(c.Output.Color); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidColorMode, c.Output.Color)
	}
	if c.Output.DemangleCacheSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCacheSize, c.Output.DemangleCacheSize)
	}
	if c.Output.MaxRelocations <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxRelocations, c.Output.MaxRelocations)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	return nil
}

// ColorMode returns the parsed output.color value.
func (c *Config) ColorMode() terminal.ColorMode {
	mode, err := terminal.ParseColorMode(c.Output.Color)
	if err != nil {
		return terminal.ColorAuto
	}
	return mode
}
