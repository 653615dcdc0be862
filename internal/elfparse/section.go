package elfparse

import (
	"debug/elf"
)

// SectionHeader is one entry of the section header table.
type SectionHeader struct {
	Name      uint32
	Type      elf.SectionType
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	Addralign uint64
	Entsize   uint64
}

func sectionHeaderSize(class elf.Class) int {
	if class == elf.ELFCLASS64 {
		return 64
	}
	return 40
}

// Both classes share the field order; only the word-sized fields widen.
func parseSectionHeader(d Decoder, data []byte, off *int) (SectionHeader, error) {
	var sh SectionHeader
	var err error
	if sh.Name, err = d.U32(data, off); err != nil {
		return SectionHeader{}, err
	}
	typ, err := d.U32(data, off)
	if err != nil {
		return SectionHeader{}, err
	}
	sh.Type = elf.SectionType(typ)
	if sh.Flags, err = d.Word(data, off); err != nil {
		return SectionHeader{}, err
	}
	if sh.Addr, err = d.Word(data, off); err != nil {
		return SectionHeader{}, err
	}
	if sh.Offset, err = d.Word(data, off); err != nil {
		return SectionHeader{}, err
	}
	if sh.Size, err = d.Word(data, off); err != nil {
		return SectionHeader{}, err
	}
	if sh.Link, err = d.U32(data, off); err != nil {
		return SectionHeader{}, err
	}
	if sh.Info, err = d.U32(data, off); err != nil {
		return SectionHeader{}, err
	}
	if sh.Addralign, err = d.Word(data, off); err != nil {
		return SectionHeader{}, err
	}
	if sh.Entsize, err = d.Word(data, off); err != nil {
		return SectionHeader{}, err
	}
	return sh, nil
}

// HasFlag reports whether every bit of f is set in the section flags.
func (sh *SectionHeader) HasFlag(f elf.SectionFlag) bool {
	return sh.Flags&uint64(f) == uint64(f)
}

// DataRange returns the file range [start, end) holding the section contents.
// SHT_NOBITS sections occupy no file bytes and return an empty range.
func (sh *SectionHeader) DataRange() (uint64, uint64, error) {
	if sh.Type == elf.SHT_NOBITS {
		return 0, 0, nil
	}
	return span(sh.Offset, sh.Size)
}
