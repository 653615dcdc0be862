package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/isseis/go-lazyelf/internal/safefileio"
	"github.com/isseis/go-lazyelf/internal/terminal"
	"github.com/oklog/ulid/v2"
)

// Errors
var (
	ErrInvalidLogLevel   = errors.New("invalid log level")
	ErrEmptyLogDirectory = errors.New("log directory cannot be empty")
)

const (
	logDirPerm  os.FileMode = 0o750
	logFilePerm os.FileMode = 0o600

	// schemaVersion is attached to every JSON log record.
	schemaVersion = 1
)

// ParseLevel parses debug, info, warn or error. The empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
	}
}

// NewRunID returns a new lexically time-ordered run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// LoggerConfig configures Setup.
type LoggerConfig struct {
	Level slog.Level

	// LogDir, if set, receives one JSON log file per run.
	LogDir string

	// ConsoleWriter receives console output. Nil means os.Stderr.
	ConsoleWriter io.Writer

	// Capabilities of the console. Nil means detection on os.Stderr.
	Capabilities terminal.Capabilities
}

// Session is an installed logger. Close releases the log file, if any.
type Session struct {
	Logger  *slog.Logger
	RunID   string
	LogPath string

	logFile *os.File
}

// Close closes the JSON log file.
func (s *Session) Close() error {
	if s.logFile == nil {
		return nil
	}
	err := s.logFile.Close()
	s.logFile = nil
	return err
}

// Setup builds the handler chain and installs it as the slog default:
// console output for terminals, text output otherwise, and an optional
// JSON file named <hostname>_<timestamp>_<run_id>.json.
func Setup(cfg LoggerConfig) (*Session, error) {
	console := cfg.ConsoleWriter
	if console == nil {
		console = os.Stderr
	}
	caps := cfg.Capabilities
	if caps == nil {
		caps = terminal.NewCapabilities(terminal.Options{Detector: terminal.DetectorOptions{Output: os.Stderr}})
	}

	consoleHandler, err := NewConsoleHandler(ConsoleHandlerOptions{Level: cfg.Level, Writer: console, Capabilities: caps})
	if err != nil {
		return nil, fmt.Errorf("failed to create console handler: %w", err)
	}
	textHandler, err := NewConditionalTextHandler(ConditionalTextHandlerOptions{
		Capabilities:       caps,
		TextHandlerOptions: &slog.HandlerOptions{Level: cfg.Level},
		Writer:             console,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create text handler: %w", err)
	}
	handlers := []slog.Handler{consoleHandler, textHandler}

	session := &Session{RunID: NewRunID()}
	if cfg.LogDir != "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		f, path, err := openLogFile(cfg.LogDir, hostname, session.RunID, time.Now())
		if err != nil {
			return nil, err
		}
		session.logFile, session.LogPath = f, path
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: cfg.Level}).WithAttrs([]slog.Attr{
			slog.String("hostname", hostname),
			slog.Int("pid", os.Getpid()),
			slog.Int("schema_version", schemaVersion),
			slog.String("run_id", session.RunID),
		}))
	}

	multi, err := NewMultiHandler(handlers...)
	if err != nil {
		_ = session.Close()
		return nil, err
	}
	session.Logger = slog.New(multi)
	slog.SetDefault(session.Logger)
	return session, nil
}

// openLogFile creates a fresh log file under dir.
func openLogFile(dir, hostname, runID string, now time.Time) (*os.File, string, error) {
	if dir == "" {
		return nil, "", ErrEmptyLogDirectory
	}
	if err := os.MkdirAll(dir, logDirPerm); err != nil {
		return nil, "", fmt.Errorf("cannot create log directory %s: %w", dir, err)
	}
	name := fmt.Sprintf("%s_%s_%s.json", hostname, now.UTC().Format("20060102T150405Z"), runID)
	path := filepath.Join(dir, name)
	f, err := safefileio.CreateFile(path, logFilePerm)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open log file: %w", err)
	}
	return f, path, nil
}
