//go:build test

package elfparse

import (
	"debug/elf"
	"encoding/binary"
	"testing"

	"github.com/isseis/go-lazyelf/internal/elftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelrIterator_All(t *testing.T) {
	tests := []struct {
		name  string
		class elf.Class
		want  []uint64
	}{
		{name: "ELF64", class: elf.ELFCLASS64, want: []uint64{0x1000, 0x1008, 0x1018, 0x1200, 0x2000}},
		{name: "ELF32", class: elf.ELFCLASS32, want: []uint64{0x1000, 0x1004, 0x100c, 0x1080, 0x2000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decoder{Order: binary.LittleEndian, Class: tt.class}
			e := elftest.Encoder{Class: tt.class, Order: binary.LittleEndian}
			// address, bitmap 0b101, bitmap 0b1 one block further on, address
			data := e.Words([]uint64{0x1000, 0xb, 0x3, 0x2000})
			it, err := NewRelrIterator(d, elf.EM_X86_64, data)
			require.NoError(t, err)

			var got []uint64
			for rel, err := range it.All() {
				require.NoError(t, err)
				assert.Equal(t, uint32(elf.R_X86_64_RELATIVE), rel.Type)
				assert.Zero(t, rel.Sym)
				got = append(got, rel.Offset)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelrIterator_StopsEarly(t *testing.T) {
	d := Decoder{Order: binary.BigEndian, Class: elf.ELFCLASS64}
	e := elftest.Encoder{Class: elf.ELFCLASS64, Order: binary.BigEndian}
	it, err := NewRelrIterator(d, elf.EM_AARCH64, e.Words([]uint64{0x1000, 0xffff}))
	require.NoError(t, err)

	var n int
	for rel := range it.All() {
		assert.Equal(t, uint32(elf.R_AARCH64_RELATIVE), rel.Type)
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestRelrIterator_BadSize(t *testing.T) {
	d := Decoder{Order: binary.BigEndian, Class: elf.ELFCLASS64}
	_, err := NewRelrIterator(d, elf.EM_PPC64, make([]byte, 12))
	require.ErrorIs(t, err, ErrBadEntrySize)
}

func TestRelativeType(t *testing.T) {
	tests := []struct {
		machine elf.Machine
		want    uint32
	}{
		{machine: elf.EM_X86_64, want: 8},
		{machine: elf.EM_386, want: 8},
		{machine: elf.EM_AARCH64, want: 1027},
		{machine: elf.EM_ARM, want: 23},
		{machine: elf.EM_PPC64, want: 22},
		{machine: elf.EM_RISCV, want: 3},
		{machine: elf.EM_S390, want: 12},
		{machine: elf.EM_SPARCV9, want: 22},
		{machine: elf.EM_LOONGARCH, want: 3},
		{machine: elf.EM_IAMCU, want: 8},
		{machine: elf.EM_SPARC32PLUS, want: 22},
		{machine: elf.EM_ARC_COMPACT, want: 56},
		{machine: elf.EM_ARC_COMPACT2, want: 56},
		{machine: elf.EM_QDSP6, want: 35},
		{machine: elf.EM_CSKY, want: 9},
		{machine: elf.EM_VE, want: 17},
		{machine: elf.EM_MIPS, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.machine.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeType(tt.machine))
		})
	}
}
