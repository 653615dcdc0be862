package elfparse

import (
	"debug/elf"
)

// ProgramHeader is one entry of the program header (segment) table.
type ProgramHeader struct {
	Type   elf.ProgType
	Flags  elf.ProgFlag
	Offset uint64
	Vaddr  uint64
	Paddr  uint64
	Filesz uint64
	Memsz  uint64
	Align  uint64
}

func programHeaderSize(class elf.Class) int {
	if class == elf.ELFCLASS64 {
		return 56
	}
	return 32
}

func parseProgramHeader(d Decoder, data []byte, off *int) (ProgramHeader, error) {
	var ph ProgramHeader
	typ, err := d.U32(data, off)
	if err != nil {
		return ProgramHeader{}, err
	}
	ph.Type = elf.ProgType(typ)

	// ELF64 moves p_flags up to keep the 64-bit fields aligned.
	if d.Is64() {
		flags, err := d.U32(data, off)
		if err != nil {
			return ProgramHeader{}, err
		}
		ph.Flags = elf.ProgFlag(flags)
	}
	for _, field := range []*uint64{&ph.Offset, &ph.Vaddr, &ph.Paddr, &ph.Filesz, &ph.Memsz} {
		if *field, err = d.Word(data, off); err != nil {
			return ProgramHeader{}, err
		}
	}
	if !d.Is64() {
		flags, err := d.U32(data, off)
		if err != nil {
			return ProgramHeader{}, err
		}
		ph.Flags = elf.ProgFlag(flags)
	}
	if ph.Align, err = d.Word(data, off); err != nil {
		return ProgramHeader{}, err
	}
	return ph, nil
}

// FileRange returns the file range [start, end) backing the segment.
func (ph *ProgramHeader) FileRange() (uint64, uint64, error) {
	return span(ph.Offset, ph.Filesz)
}

// Contains reports whether the virtual address addr lies within the file-backed part of the segment.
func (ph *ProgramHeader) Contains(addr uint64) bool {
	return addr >= ph.Vaddr && addr-ph.Vaddr < ph.Filesz
}
