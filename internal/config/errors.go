package config

import "errors"

// Configuration validation errors
var (
	// ErrInvalidMode is returned when input.mode is not mmap, stream or read
	ErrInvalidMode = errors.New("invalid input mode")

	// ErrInvalidMaxFileSize is returned when input.max_file_size is not positive
	ErrInvalidMaxFileSize = errors.New("invalid max file size")

	// ErrInvalidLogLevel is returned when log.level is not a known level
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidColorMode is returned when output.color is not auto, always or never
	ErrInvalidColorMode = errors.New("invalid color mode")

	// ErrInvalidCacheSize is returned when output.demangle_cache_size is not positive
	ErrInvalidCacheSize = errors.New("invalid demangle cache size")

	// ErrInvalidMaxRelocations is returned when output.max_relocations is not positive
	ErrInvalidMaxRelocations = errors.New("invalid max relocations")
)
