package elfparse

import (
	"debug/elf"
	"iter"
)

// relativeTypes maps machines to their R_*_RELATIVE relocation type.
var relativeTypes = map[elf.Machine]uint32{
	elf.EM_X86_64:       uint32(elf.R_X86_64_RELATIVE),
	elf.EM_386:          uint32(elf.R_386_RELATIVE),
	elf.EM_IAMCU:        uint32(elf.R_386_RELATIVE),
	elf.EM_AARCH64:      uint32(elf.R_AARCH64_RELATIVE),
	elf.EM_ARM:          uint32(elf.R_ARM_RELATIVE),
	elf.EM_ARC_COMPACT:  rARCRelative,
	elf.EM_ARC_COMPACT2: rARCRelative,
	elf.EM_QDSP6:        rHEXRelative,
	elf.EM_PPC64:        uint32(elf.R_PPC64_RELATIVE),
	elf.EM_RISCV:        uint32(elf.R_RISCV_RELATIVE),
	elf.EM_S390:         uint32(elf.R_390_RELATIVE),
	elf.EM_SPARC:        uint32(elf.R_SPARC_RELATIVE),
	elf.EM_SPARC32PLUS:  uint32(elf.R_SPARC_RELATIVE),
	elf.EM_SPARCV9:      uint32(elf.R_SPARC_RELATIVE),
	elf.EM_CSKY:         rCKCORERelative,
	elf.EM_VE:           rVERelative,
	elf.EM_LOONGARCH:    uint32(elf.R_LARCH_RELATIVE),
}

// RelativeType returns the R_*_RELATIVE type for machine, or 0 if unknown.
func RelativeType(machine elf.Machine) uint32 {
	return relativeTypes[machine]
}

// RelrIterator expands a SHT_RELR section into relative relocations.
//
// Even words are addresses; odd words are bitmaps whose bit i (after the
// marker bit) covers the word at base + i*wordsize.
type RelrIterator struct {
	words *WordTable
	typ   uint32
}

// NewRelrIterator wraps the contents of a SHT_RELR section.
func NewRelrIterator(d Decoder, machine elf.Machine, data []byte) (*RelrIterator, error) {
	words, err := NewWordTable(d, data)
	if err != nil {
		return nil, err
	}
	return &RelrIterator{words: words, typ: RelativeType(machine)}, nil
}

// All yields the relocations in order. A decode failure is yielded once and ends iteration.
func (it *RelrIterator) All() iter.Seq2[Rel, error] {
	return func(yield func(Rel, error) bool) {
		entsize := uint64(it.words.EntrySize())
		var base uint64
		for entry, err := range it.words.All() {
			if err != nil {
				yield(Rel{}, err)
				return
			}
			if entry&1 == 0 {
				if !yield(Rel{Offset: entry, Type: it.typ}, nil) {
					return
				}
				base = entry + entsize
				continue
			}
			offset := base
			for bitmap := entry >> 1; bitmap != 0; bitmap >>= 1 {
				if bitmap&1 != 0 {
					if !yield(Rel{Offset: offset, Type: it.typ}, nil) {
						return
					}
				}
				offset += entsize
			}
			base += (8*entsize - 1) * entsize
		}
	}
}
