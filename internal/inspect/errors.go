package inspect

import (
	"debug/elf"
	"errors"
	"fmt"
)

// Static errors
var (
	// ErrSectionNotFound indicates that no section has the requested name.
	ErrSectionNotFound = errors.New("section not found")

	// ErrNoDynamicSymbols indicates that the file has no .dynsym table to search.
	ErrNoDynamicSymbols = errors.New("file has no dynamic symbol table")

	// ErrSymbolNotFound indicates that a lookup found nothing by any method.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrHashMismatch indicates that a hash table lookup disagrees with a linear scan.
	ErrHashMismatch = errors.New("hash table lookup disagrees with linear scan")

	// ErrDecompressedSize indicates that a compressed section did not inflate to ch_size bytes.
	ErrDecompressedSize = errors.New("decompressed size does not match compression header")

	// ErrEntryNotMapped indicates that no segment or section holds the entry point.
	ErrEntryNotMapped = errors.New("entry point is not in any executable segment or section")
)

// UnsupportedArchitectureError indicates that the disassembler does not handle the machine.
type UnsupportedArchitectureError struct {
	Machine elf.Machine
}

func (e *UnsupportedArchitectureError) Error() string {
	return fmt.Sprintf("unsupported architecture for disassembly: %s", e.Machine)
}

// UnsupportedCompressionError indicates an unknown ch_type.
type UnsupportedCompressionError struct {
	Type elf.CompressionType
}

func (e *UnsupportedCompressionError) Error() string {
	return fmt.Sprintf("unsupported compression type: %s", e.Type)
}
