package elfparse

import (
	"debug/elf"
)

// Dyn is one entry of the dynamic table. The tag decides whether Val is an
// address, a size, a set of flags or a plain integer.
type Dyn struct {
	Tag elf.DynTag
	Val uint64
}

// Ptr returns the value interpreted as a virtual address (d_ptr).
func (d Dyn) Ptr() uint64 {
	return d.Val
}

// Value returns the value interpreted as an integer (d_val).
func (d Dyn) Value() uint64 {
	return d.Val
}

func dynSize(class elf.Class) int {
	if class == elf.ELFCLASS64 {
		return 16
	}
	return 8
}

func parseDyn(d Decoder, data []byte, off *int) (Dyn, error) {
	tag, err := d.SWord(data, off)
	if err != nil {
		return Dyn{}, err
	}
	val, err := d.Word(data, off)
	if err != nil {
		return Dyn{}, err
	}
	return Dyn{Tag: elf.DynTag(tag), Val: val}, nil
}
