package elfparse

import (
	"debug/elf"
)

// Rel is a relocation without an explicit addend.
type Rel struct {
	Offset uint64
	Sym    uint32
	Type   uint32
}

// Rela is a relocation with an explicit addend.
type Rela struct {
	Offset uint64
	Sym    uint32
	Type   uint32
	Addend int64
}

func relSize(class elf.Class) int {
	if class == elf.ELFCLASS64 {
		return 16
	}
	return 8
}

func relaSize(class elf.Class) int {
	if class == elf.ELFCLASS64 {
		return 24
	}
	return 12
}

// splitInfo unpacks r_info into the symbol index and relocation type.
func splitInfo(class elf.Class, info uint64) (sym, typ uint32) {
	if class == elf.ELFCLASS64 {
		return uint32(info >> 32), uint32(info & 0xffffffff)
	}
	return uint32(info >> 8), uint32(info & 0xff)
}

func parseRel(d Decoder, data []byte, off *int) (Rel, error) {
	offset, err := d.Word(data, off)
	if err != nil {
		return Rel{}, err
	}
	info, err := d.Word(data, off)
	if err != nil {
		return Rel{}, err
	}
	sym, typ := splitInfo(d.Class, info)
	return Rel{Offset: offset, Sym: sym, Type: typ}, nil
}

func parseRela(d Decoder, data []byte, off *int) (Rela, error) {
	offset, err := d.Word(data, off)
	if err != nil {
		return Rela{}, err
	}
	info, err := d.Word(data, off)
	if err != nil {
		return Rela{}, err
	}
	addend, err := d.SWord(data, off)
	if err != nil {
		return Rela{}, err
	}
	sym, typ := splitInfo(d.Class, info)
	return Rela{Offset: offset, Sym: sym, Type: typ, Addend: addend}, nil
}
