//go:build test

package elftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Fixture is a small shared object with the tables a dynamic linker and a
// symbol inspector care about. Field values describe what Build encodes.
type Fixture struct {
	*Image

	// DynSymbols are the .dynsym names by index; index 0 is the null symbol.
	DynSymbols []string
	// DynVersions are the .gnu.version entries, one per dynamic symbol.
	DynVersions []uint16
	// Symbols are the .symtab names by index.
	Symbols []string
	Needed  []string
	Soname  string
	BuildID []byte
	// Code is the content of .text, mapped at TextAddr.
	Code     []byte
	TextAddr uint64
	// DebugStr is the uncompressed content of the zlib-compressed .debug_str
	// and the zstd-compressed .debug_line_str.
	DebugStr []byte
	// Relocs are the .rela.dyn entries; Relr are the raw .relr.dyn words.
	Relocs []Rela
	Relr   []uint64

	// Sections maps each section name to its index.
	Sections map[string]uint32
}

// Versions used by the fixture's .gnu.version_r.
const (
	FixtureVerGlibc225 = 2
	FixtureVerGlibc234 = 3
)

// fixtureCode returns a short function prologue and epilogue for machine.
func fixtureCode(machine elf.Machine) []byte {
	switch machine {
	case elf.EM_X86_64:
		// push rbp; mov rbp, rsp; nop; pop rbp; ret
		return []byte{0x55, 0x48, 0x89, 0xe5, 0x90, 0x5d, 0xc3}
	case elf.EM_386:
		// push ebp; mov ebp, esp; nop; pop ebp; ret
		return []byte{0x55, 0x89, 0xe5, 0x90, 0x5d, 0xc3}
	case elf.EM_AARCH64:
		// nop; ret
		return []byte{0x1f, 0x20, 0x03, 0xd5, 0xc0, 0x03, 0x5f, 0xd6}
	default:
		return []byte{0, 0, 0, 0}
	}
}

// SharedObject builds the fixture for class and order. ELF64 images target
// x86-64 and ELF32 images target i386.
func SharedObject(class elf.Class, order binary.ByteOrder) (*Fixture, error) {
	img := New(class, order)
	if class == elf.ELFCLASS32 {
		img.Machine = elf.EM_386
	}
	return sharedObject(img)
}

// SharedObjectFor builds the fixture for a specific machine.
func SharedObjectFor(class elf.Class, order binary.ByteOrder, machine elf.Machine) (*Fixture, error) {
	img := New(class, order)
	img.Machine = machine
	return sharedObject(img)
}

func sharedObject(img *Image) (*Fixture, error) {
	gnu := GnuHashParams{NBuckets: 3, SymOffset: 1, BloomSize: 2, BloomShift: 6}
	f := &Fixture{
		Image:      img,
		DynSymbols: SortForGnuHash([]string{"", "memset", "puts", "printf", "malloc", "_ZN3foo3barEv"}, 1, gnu.NBuckets),
		Symbols:    []string{"", "crtstuff.c", "main", "_ZN3foo3barEv", "memset"},
		Needed:     []string{"libc.so.6", "libm.so.6"},
		Soname:     "libfixture.so.1",
		BuildID:    []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x23, 0x45, 0x67},
		Code:       fixtureCode(img.Machine),
		TextAddr:   0x1000,
		DebugStr:   bytes.Repeat([]byte("lazy elf debug string\x00"), 8),
		Sections:   make(map[string]uint32),
		Relr:       []uint64{0x3000, 0x7},
	}
	f.Relocs = []Rela{
		{Offset: 0x3f00, Sym: 1, Type: uint32(elf.R_X86_64_GLOB_DAT), Addend: 0},
		{Offset: 0x3f08, Sym: 2, Type: uint32(elf.R_X86_64_JMP_SLOT), Addend: 0},
		{Offset: 0x3f10, Type: uint32(elf.R_X86_64_RELATIVE), Addend: 0x1000},
	}
	add := func(s Section) uint32 {
		idx := img.AddSection(s)
		f.Sections[s.Name] = idx
		return idx
	}

	symEntsize := uint64(16)
	dynEntsize := uint64(8)
	relaEntsize := uint64(12)
	if img.Is64() {
		symEntsize, dynEntsize, relaEntsize = 24, 16, 24
	}

	text := add(Section{
		Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR,
		Addr: f.TextAddr, Addralign: 16, Data: f.Code,
	})

	dynstr := NewStrtab()
	for _, name := range f.DynSymbols {
		dynstr.Add(name)
	}
	neededOffsets := make([]uint32, len(f.Needed))
	for i, lib := range f.Needed {
		neededOffsets[i] = dynstr.Add(lib)
	}
	sonameOffset := dynstr.Add(f.Soname)
	verneed := img.VerNeeds(dynstr, []VerNeed{{
		File: "libc.so.6",
		Aux: []VerNeedAux{
			{Hash: 0x09691a75, Other: FixtureVerGlibc225, Name: "GLIBC_2.2.5"},
			{Hash: 0x069691b4, Other: FixtureVerGlibc234, Name: "GLIBC_2.34"},
		},
	}})
	dynstrIdx := add(Section{Name: ".dynstr", Type: elf.SHT_STRTAB, Flags: elf.SHF_ALLOC, Addralign: 1, Data: dynstr.Bytes()})

	dynsyms := make([]Sym, len(f.DynSymbols))
	f.DynVersions = make([]uint16, len(f.DynSymbols))
	for i, name := range f.DynSymbols {
		if i == 0 {
			continue
		}
		switch name {
		case "_ZN3foo3barEv":
			dynsyms[i] = Sym{Name: dynstr.Add(name), Info: byte(elf.STB_GLOBAL)<<4 | byte(elf.STT_FUNC), Shndx: uint16(text), Value: f.TextAddr, Size: uint64(len(f.Code))}
			f.DynVersions[i] = 1
		case "memset":
			dynsyms[i] = Sym{Name: dynstr.Add(name), Info: byte(elf.STB_GLOBAL)<<4 | byte(elf.STT_FUNC)}
			f.DynVersions[i] = FixtureVerGlibc225
		default:
			dynsyms[i] = Sym{Name: dynstr.Add(name), Info: byte(elf.STB_GLOBAL)<<4 | byte(elf.STT_FUNC)}
			f.DynVersions[i] = FixtureVerGlibc234
		}
	}
	dynsymIdx := add(Section{
		Name: ".dynsym", Type: elf.SHT_DYNSYM, Flags: elf.SHF_ALLOC, Link: dynstrIdx, Info: 1,
		Addralign: 8, Entsize: symEntsize, Data: img.Symbols(dynsyms),
	})
	add(Section{Name: ".hash", Type: elf.SHT_HASH, Flags: elf.SHF_ALLOC, Link: dynsymIdx, Addralign: 8, Entsize: 4,
		Data: img.SysVHashSection(3, f.DynSymbols)})
	add(Section{Name: ".gnu.hash", Type: elf.SHT_GNU_HASH, Flags: elf.SHF_ALLOC, Link: dynsymIdx, Addralign: 8,
		Data: img.GnuHashSection(gnu, f.DynSymbols)})
	add(Section{Name: ".gnu.version", Type: elf.SHT_GNU_VERSYM, Flags: elf.SHF_ALLOC, Link: dynsymIdx, Addralign: 2, Entsize: 2,
		Data: img.Versions(f.DynVersions)})
	add(Section{Name: ".gnu.version_r", Type: elf.SHT_GNU_VERNEED, Flags: elf.SHF_ALLOC, Link: dynstrIdx, Info: 1, Addralign: 8,
		Data: verneed})

	entries := make([]Dyn, 0, len(f.Needed)+2)
	for _, off := range neededOffsets {
		entries = append(entries, Dyn{Tag: elf.DT_NEEDED, Val: uint64(off)})
	}
	entries = append(entries, Dyn{Tag: elf.DT_SONAME, Val: uint64(sonameOffset)}, Dyn{Tag: elf.DT_NULL})
	dynamic := add(Section{Name: ".dynamic", Type: elf.SHT_DYNAMIC, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Link: dynstrIdx,
		Addralign: 8, Entsize: dynEntsize, Data: img.Dynamic(entries)})

	note := add(Section{Name: ".note.gnu.build-id", Type: elf.SHT_NOTE, Flags: elf.SHF_ALLOC, Addralign: 4,
		Data: img.Notes(4, []Note{{Name: "GNU", Type: 3, Desc: f.BuildID}})})

	add(Section{Name: ".rela.dyn", Type: elf.SHT_RELA, Flags: elf.SHF_ALLOC, Link: dynsymIdx, Addralign: 8, Entsize: relaEntsize,
		Data: img.Relas(f.Relocs)})
	add(Section{Name: ".relr.dyn", Type: 19, Flags: elf.SHF_ALLOC, Addralign: 8, Entsize: uint64(len(img.Word(nil, 0))),
		Data: img.Words(f.Relr)})
	add(Section{Name: ".bss", Type: elf.SHT_NOBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Addralign: 32, Size: 0x100})

	strtab := NewStrtab()
	syms := make([]Sym, len(f.Symbols))
	for i, name := range f.Symbols {
		switch {
		case i == 0:
		case name == "crtstuff.c":
			syms[i] = Sym{Name: strtab.Add(name), Info: byte(elf.STT_FILE), Shndx: uint16(elf.SHN_ABS)}
		default:
			syms[i] = Sym{Name: strtab.Add(name), Info: byte(elf.STB_GLOBAL)<<4 | byte(elf.STT_FUNC), Shndx: uint16(text), Value: f.TextAddr}
		}
	}
	strtabIdx := add(Section{Name: ".strtab", Type: elf.SHT_STRTAB, Addralign: 1, Data: strtab.Bytes()})
	add(Section{Name: ".symtab", Type: elf.SHT_SYMTAB, Link: strtabIdx, Info: 2, Addralign: 8, Entsize: symEntsize,
		Data: img.Symbols(syms)})

	zlibData, err := compressZlib(f.DebugStr)
	if err != nil {
		return nil, err
	}
	add(Section{Name: ".debug_str", Type: elf.SHT_PROGBITS, Flags: elf.SHF_COMPRESSED | elf.SHF_MERGE | elf.SHF_STRINGS, Addralign: 8, Entsize: 1,
		Data: append(img.CompressionHeader(elf.COMPRESS_ZLIB, uint64(len(f.DebugStr)), 1), zlibData...)})
	zstdData, err := compressZstd(f.DebugStr)
	if err != nil {
		return nil, err
	}
	add(Section{Name: ".debug_line_str", Type: elf.SHT_PROGBITS, Flags: elf.SHF_COMPRESSED, Addralign: 8, Entsize: 1,
		Data: append(img.CompressionHeader(elf.COMPRESS_ZSTD, uint64(len(f.DebugStr)), 1), zstdData...)})

	img.Entry = f.TextAddr
	img.AddSegment(Segment{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_X, Vaddr: f.TextAddr, Align: 0x1000, Section: text})
	img.AddSegment(Segment{Type: elf.PT_DYNAMIC, Flags: elf.PF_R | elf.PF_W, Vaddr: 0x3e00, Align: 8, Section: dynamic})
	img.AddSegment(Segment{Type: elf.PT_NOTE, Flags: elf.PF_R, Vaddr: 0x300, Align: 4, Section: note})
	return f, nil
}

func compressZlib(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	return buf.Bytes(), nil
}

func compressZstd(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// Index returns the section index of name, panicking if the fixture has no such section.
func (f *Fixture) Index(name string) uint32 {
	idx, ok := f.Sections[name]
	if !ok {
		panic("elftest: no section " + name)
	}
	return idx
}
