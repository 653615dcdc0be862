// Package main provides elfinspect, a readelf style viewer built on the
// lazy ELF parser. Every named file is inspected even when an earlier one
// fails; failures are summarized on stderr and the exit status is 1.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/isseis/go-lazyelf/internal/color"
	"github.com/isseis/go-lazyelf/internal/config"
	"github.com/isseis/go-lazyelf/internal/elfmmap"
	"github.com/isseis/go-lazyelf/internal/elfparse"
	"github.com/isseis/go-lazyelf/internal/inspect"
	"github.com/isseis/go-lazyelf/internal/logging"
	"github.com/isseis/go-lazyelf/internal/safefileio"
	"github.com/isseis/go-lazyelf/internal/terminal"
)

var (
	errNoFilesProvided   = errors.New("at least one file path must be provided")
	errNoReportSelected  = errors.New("no report selected (use -a or one of -h, -S, -l, -s, -dyn-syms, -d, -n, -r, -V, -lookup, -x, -disasm)")
	errNegativeDisasmLen = errors.New("-disasm must not be negative")
)

// reportOptions are the command line switches that pick reports.
type reportOptions struct {
	fileHeader bool
	sections   bool
	segments   bool
	symbols    bool
	dynSyms    bool
	dynamic    bool
	notes      bool
	relocs     bool
	versions   bool
	all        bool
	lookup     string
	hexDump    string
	disasm     int
}

func (o *reportOptions) any() bool {
	return o.fileHeader || o.sections || o.segments || o.symbols || o.dynSyms || o.dynamic ||
		o.notes || o.relocs || o.versions || o.all || o.lookup != "" || o.hexDump != "" || o.disasm > 0
}

// inspectConfig is the parsed command line merged over the configuration file.
type inspectConfig struct {
	files   []string
	reports reportOptions
	cfg     *config.Config
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ic, fs, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		printUsage(fs, stderr)
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	level, err := logging.ParseLevel(ic.cfg.Log.Level)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	session, err := logging.Setup(logging.LoggerConfig{
		Level:         level,
		LogDir:        ic.cfg.Log.Dir,
		ConsoleWriter: stderr,
		Capabilities:  capabilitiesFor(stderr, ic.cfg.ColorMode()),
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error setting up logging: %v\n", err)
		return 1
	}
	defer func() {
		if err := session.Close(); err != nil {
			_, _ = fmt.Fprintf(stderr, "Warning: failed to close log file: %v\n", err)
		}
	}()

	opts := inspect.Options{
		Palette:        color.NewPalette(capabilitiesFor(stdout, ic.cfg.ColorMode()).SupportsColor()),
		Digest:         ic.cfg.Output.Digest,
		MaxRelocations: ic.cfg.Output.MaxRelocations,
	}
	if ic.cfg.Output.Demangle {
		if opts.Demangler, err = inspect.NewDemangler(ic.cfg.Output.DemangleCacheSize); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	var result *multierror.Error
	for _, path := range ic.files {
		if len(ic.files) > 1 {
			_, _ = fmt.Fprintf(stdout, "\nFile: %s\n", path)
		}
		if err := inspectFile(path, ic, opts, stdout); err != nil {
			slog.Error("Inspection failed", slog.String("file", path), slog.Any("error", err))
			result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// capabilitiesFor evaluates w as a terminal. Writers that are not files are
// never interactive.
func capabilitiesFor(w io.Writer, mode terminal.ColorMode) terminal.Capabilities {
	detector := terminal.DetectorOptions{ForceNonInteractive: true}
	if f, ok := w.(*os.File); ok {
		detector = terminal.DetectorOptions{Output: f}
	}
	return terminal.NewCapabilities(terminal.Options{Color: mode, Detector: detector})
}

func parseArgs(args []string, stderr io.Writer) (*inspectConfig, *flag.FlagSet, error) {
	var (
		reports    reportOptions
		configPath string
		mode       string
		colorMode  string
		logLevel   string
		logDir     string
		demangle   bool
		digest     bool
	)

	fs := flag.NewFlagSet("elfinspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(fs, stderr) }
	fs.BoolVar(&reports.fileHeader, "file-header", false, "Display the ELF file header")
	fs.BoolVar(&reports.fileHeader, "h", false, "Short alias for -file-header")
	fs.BoolVar(&reports.sections, "S", false, "Display the section headers")
	fs.BoolVar(&reports.segments, "l", false, "Display the program headers")
	fs.BoolVar(&reports.symbols, "s", false, "Display the symbol table")
	fs.BoolVar(&reports.dynSyms, "dyn-syms", false, "Display the dynamic symbol table")
	fs.BoolVar(&reports.dynamic, "d", false, "Display the dynamic section")
	fs.BoolVar(&reports.notes, "n", false, "Display the notes")
	fs.BoolVar(&reports.relocs, "r", false, "Display the relocations")
	fs.BoolVar(&reports.versions, "V", false, "Display the symbol versioning sections")
	fs.BoolVar(&reports.all, "a", false, "Equivalent to -h -S -l -s -dyn-syms -d -n -r -V")
	fs.StringVar(&reports.lookup, "lookup", "", "Look up a dynamic symbol through the hash tables")
	fs.StringVar(&reports.hexDump, "x", "", "Hex dump the named section, decompressing it if needed")
	fs.IntVar(&reports.disasm, "disasm", 0, "Disassemble `N` instructions at the entry point")
	fs.BoolVar(&demangle, "C", false, "Demangle symbol names")
	fs.BoolVar(&digest, "digest", false, "Show an xxhash64 digest of each section")
	fs.StringVar(&mode, "mode", "", "Input mode: mmap, stream or read (default from config, else mmap)")
	fs.StringVar(&configPath, "config", "", "Path to a TOML configuration file")
	fs.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	fs.StringVar(&logDir, "log-dir", "", "Directory for per-run JSON log files")
	fs.StringVar(&colorMode, "color", "", "Color output: auto, always or never")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	if len(fs.Args()) == 0 {
		return nil, fs, errNoFilesProvided
	}
	if reports.disasm < 0 {
		return nil, fs, errNegativeDisasmLen
	}
	if !reports.any() {
		return nil, fs, errNoReportSelected
	}

	cfg := config.Default()
	if configPath != "" {
		resolved, err := filepath.EvalSymlinks(configPath)
		if err != nil {
			return nil, fs, fmt.Errorf("failed to resolve config path: %w", err)
		}
		if cfg, err = config.Load(resolved); err != nil {
			return nil, fs, err
		}
	}

	// Flags given on the command line override the configuration file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Input.Mode = config.Mode(mode)
		case "color":
			cfg.Output.Color = colorMode
		case "log-level":
			cfg.Log.Level = logLevel
		case "log-dir":
			cfg.Log.Dir = logDir
		case "C":
			cfg.Output.Demangle = demangle
		case "digest":
			cfg.Output.Digest = digest
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, fs, err
	}

	return &inspectConfig{files: fs.Args(), reports: reports, cfg: cfg}, fs, nil
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	if fs == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "Usage: %s [flags] <file> [<file>...]\n", filepath.Base(os.Args[0]))
	fs.PrintDefaults()
}

// openInput opens path in the configured mode. The returned close function
// releases the mapping or descriptor.
func openInput(path string, cfg *config.Config) (*elfparse.File, func() error, error) {
	switch cfg.Input.Mode {
	case config.ModeStream:
		file, _, err := safefileio.OpenForRead(path)
		if err != nil {
			return nil, nil, err
		}
		f, err := elfparse.OpenStream(file)
		if err != nil {
			_ = file.Close()
			return nil, nil, err
		}
		return f, file.Close, nil
	case config.ModeRead:
		data, err := safefileio.ReadFile(path, cfg.Input.MaxFileSize)
		if err != nil {
			return nil, nil, err
		}
		f, err := elfparse.Open(data)
		if err != nil {
			return nil, nil, err
		}
		return f, func() error { return nil }, nil
	default:
		m, err := elfmmap.Open(path)
		if err != nil {
			return nil, nil, err
		}
		f, err := m.ELF()
		if err != nil {
			_ = m.Close()
			return nil, nil, err
		}
		return f, m.Close, nil
	}
}

// inspectFile prints the selected reports for one file. A failing report
// does not stop the ones after it.
func inspectFile(path string, ic *inspectConfig, opts inspect.Options, stdout io.Writer) error {
	// safefileio refuses symlinks anywhere in the path; resolve the
	// user's path once so links they name on purpose still work.
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return err
	}
	f, closeInput, err := openInput(resolved, ic.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeInput(); err != nil {
			slog.Warn("Failed to close input", slog.String("file", path), slog.Any("error", err))
		}
	}()
	slog.Debug("Opened input", slog.String("file", resolved), slog.String("mode", string(ic.cfg.Input.Mode)),
		slog.String("class", f.Header().Class.String()), slog.String("machine", f.Header().Machine.String()))

	p := inspect.NewPrinter(stdout, f, opts)
	r := ic.reports
	steps := []struct {
		enabled bool
		run     func() error
	}{
		{r.all || r.fileHeader, p.FileHeader},
		{r.all || r.sections, p.SectionHeaders},
		{r.all || r.segments, p.ProgramHeaders},
		{r.all || r.symbols, func() error { return p.Symbols(false) }},
		{r.all || r.dynSyms, func() error { return p.Symbols(true) }},
		{r.all || r.dynamic, p.Dynamic},
		{r.all || r.notes, p.Notes},
		{r.all || r.relocs, p.Relocations},
		{r.all || r.versions, p.VersionInfo},
		{r.lookup != "", func() error { return p.Lookup(r.lookup) }},
		{r.hexDump != "", func() error { return p.HexDump(r.hexDump) }},
		{r.disasm > 0, func() error { return p.Disassemble(r.disasm) }},
	}

	var errs *multierror.Error
	for _, step := range steps {
		if !step.enabled {
			continue
		}
		if err := step.run(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
