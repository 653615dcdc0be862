//go:build test

package main

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/isseis/go-lazyelf/internal/elftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixture writes the shared object fixture into a fresh directory.
func writeFixture(t *testing.T) (dir, path string) {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	fx, err := elftest.SharedObject(elf.ELFCLASS64, binary.LittleEndian)
	require.NoError(t, err)
	path = filepath.Join(dir, "libfixture.so.1")
	require.NoError(t, os.WriteFile(path, fx.Build(), 0o600))
	return dir, path
}

func runCommand(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunArgumentErrors(t *testing.T) {
	_, path := writeFixture(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no files", args: []string{"-h"}, wantErr: "at least one file path"},
		{name: "no report", args: []string{path}, wantErr: "no report selected"},
		{name: "bad mode", args: []string{"-h", "-mode", "ftp", path}, wantErr: "invalid input mode"},
		{name: "bad color", args: []string{"-h", "-color", "rainbow", path}, wantErr: "invalid color mode"},
		{name: "bad log level", args: []string{"-h", "-log-level", "loud", path}, wantErr: "invalid log level"},
		{name: "negative disasm", args: []string{"-disasm", "-1", path}, wantErr: "-disasm must not be negative"},
		{name: "unknown flag", args: []string{"-bogus", path}, wantErr: "flag provided but not defined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCommand(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.wantErr)
		})
	}
}

func TestRunHelp(t *testing.T) {
	code, _, stderr := runCommand(t, "-help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stderr, "Usage:")
	assert.Contains(t, stderr, "-dyn-syms")
}

func TestRunModes(t *testing.T) {
	_, path := writeFixture(t)

	for _, mode := range []string{"mmap", "stream", "read"} {
		t.Run(mode, func(t *testing.T) {
			code, stdout, stderr := runCommand(t, "-h", "-dyn-syms", "-mode", mode, path)
			require.Equal(t, 0, code, stderr)
			assert.Contains(t, stdout, "ELF Header:")
			assert.Contains(t, stdout, "memset@GLIBC_2.2.5")
			assert.NotContains(t, stdout, "File: ")
		})
	}
}

func TestRunAll(t *testing.T) {
	_, path := writeFixture(t)

	code, stdout, stderr := runCommand(t, "-a", "-C", "-digest", "-lookup", "puts", "-x", ".debug_str", "-disasm", "3", path)
	require.Equal(t, 0, code, stderr)
	for _, want := range []string{
		"ELF Header:",
		"Section Headers:",
		"XXH64",
		"Program Headers:",
		"Symbol table '.symtab'",
		"Symbol table '.dynsym'",
		"foo::bar()",
		"Shared library: [libc.so.6]",
		"Build ID: deadbeef01234567",
		"R_X86_64_JMP_SLOT",
		"Version needs section:",
		"Lookup of 'puts':",
		"[decompressed COMPRESS_ZLIB",
		"Disassembly of entry point 0x1000:",
	} {
		assert.Contains(t, stdout, want)
	}
}

func TestRunAggregatesFailures(t *testing.T) {
	dir, path := writeFixture(t)
	notELF := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notELF, []byte("plain text, not an object file"), 0o600))
	missing := filepath.Join(dir, "missing.so")

	code, stdout, stderr := runCommand(t, "-h", notELF, path, missing)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "File: "+path)
	assert.Contains(t, stdout, "ELF Header:")
	assert.Contains(t, stderr, "2 errors occurred")
	assert.Contains(t, stderr, "bad magic")
	assert.Contains(t, stderr, "missing.so")
}

func TestRunLookupMiss(t *testing.T) {
	_, path := writeFixture(t)
	code, stdout, stderr := runCommand(t, "-lookup", "strlen", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "not found")
	assert.Contains(t, stderr, "symbol not found")
}

func TestRunSymlinkedInput(t *testing.T) {
	dir, path := writeFixture(t)
	link := filepath.Join(dir, "libfixture.so")
	require.NoError(t, os.Symlink(path, link))

	code, stdout, stderr := runCommand(t, "-h", link)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "ELF Header:")
}

func TestRunConfigFile(t *testing.T) {
	dir, path := writeFixture(t)
	cfgPath := filepath.Join(dir, "elfinspect.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[input]\nmode = \"read\"\nmax_file_size = 16\n"), 0o600))

	code, _, stderr := runCommand(t, "-config", cfgPath, "-h", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "file too large")

	code, stdout, stderr := runCommand(t, "-config", cfgPath, "-mode", "mmap", "-h", path)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "ELF Header:")

	require.NoError(t, os.WriteFile(cfgPath, []byte("[input]\nmood = \"read\"\n"), 0o600))
	code, _, stderr = runCommand(t, "-config", cfgPath, "-h", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "mood")
}

func TestRunLogDir(t *testing.T) {
	dir, path := writeFixture(t)
	logDir := filepath.Join(dir, "logs")

	code, _, stderr := runCommand(t, "-log-dir", logDir, "-log-level", "debug", "-h", path)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "Opened input")

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".json", filepath.Ext(entries[0].Name()))
}
