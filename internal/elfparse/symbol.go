package elfparse

import (
	"debug/elf"
)

// SymInfo is the packed st_info byte: binding in the high nibble, type in the low one.
type SymInfo uint8

// Type returns the symbol type.
func (i SymInfo) Type() elf.SymType {
	return elf.ST_TYPE(uint8(i))
}

// Bind returns the symbol binding.
func (i SymInfo) Bind() elf.SymBind {
	return elf.ST_BIND(uint8(i))
}

// SymOther is the packed st_other byte; the low two bits hold the visibility.
type SymOther uint8

// Visibility returns the symbol visibility.
func (o SymOther) Visibility() elf.SymVis {
	return elf.ST_VISIBILITY(uint8(o))
}

// Symbol is one entry of a symbol table.
type Symbol struct {
	Name  uint32
	Info  SymInfo
	Other SymOther
	Shndx elf.SectionIndex
	Value uint64
	Size  uint64
}

// IsUndefined reports whether the symbol refers to a definition in another object.
func (s *Symbol) IsUndefined() bool {
	return s.Shndx == elf.SHN_UNDEF
}

func symbolSize(class elf.Class) int {
	if class == elf.ELFCLASS64 {
		return elf.Sym64Size
	}
	return elf.Sym32Size
}

func parseSymbol(d Decoder, data []byte, off *int) (Symbol, error) {
	var s Symbol
	var err error
	if s.Name, err = d.U32(data, off); err != nil {
		return Symbol{}, err
	}
	if !d.Is64() {
		if s.Value, err = d.Word(data, off); err != nil {
			return Symbol{}, err
		}
		if s.Size, err = d.Word(data, off); err != nil {
			return Symbol{}, err
		}
	}
	info, err := d.U8(data, off)
	if err != nil {
		return Symbol{}, err
	}
	other, err := d.U8(data, off)
	if err != nil {
		return Symbol{}, err
	}
	shndx, err := d.U16(data, off)
	if err != nil {
		return Symbol{}, err
	}
	s.Info = SymInfo(info)
	s.Other = SymOther(other)
	s.Shndx = elf.SectionIndex(shndx)
	if d.Is64() {
		if s.Value, err = d.U64(data, off); err != nil {
			return Symbol{}, err
		}
		if s.Size, err = d.U64(data, off); err != nil {
			return Symbol{}, err
		}
	}
	return s, nil
}
