//go:build test

// Package elftest builds small ELF images in memory for tests.
package elftest

import (
	"debug/elf"
	"encoding/binary"
)

// Encoder appends ELF records in one class and byte order.
type Encoder struct {
	Class elf.Class
	Order binary.ByteOrder
}

// Is64 reports whether the encoder writes ELF64 layouts.
func (e Encoder) Is64() bool {
	return e.Class == elf.ELFCLASS64
}

// U8 appends one byte.
func (e Encoder) U8(buf []byte, v uint8) []byte {
	return append(buf, v)
}

// U16 appends a 16-bit value.
func (e Encoder) U16(buf []byte, v uint16) []byte {
	var b [2]byte
	e.Order.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

// U32 appends a 32-bit value.
func (e Encoder) U32(buf []byte, v uint32) []byte {
	var b [4]byte
	e.Order.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// U64 appends a 64-bit value.
func (e Encoder) U64(buf []byte, v uint64) []byte {
	var b [8]byte
	e.Order.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// Word appends a class-width value.
func (e Encoder) Word(buf []byte, v uint64) []byte {
	if e.Is64() {
		return e.U64(buf, v)
	}
	return e.U32(buf, uint32(v))
}

// Sym is a symbol table entry to encode.
type Sym struct {
	Name  uint32
	Info  uint8
	Other uint8
	Shndx uint16
	Value uint64
	Size  uint64
}

// Symbols encodes syms as a symbol table.
func (e Encoder) Symbols(syms []Sym) []byte {
	var buf []byte
	for _, s := range syms {
		buf = e.U32(buf, s.Name)
		if !e.Is64() {
			buf = e.U32(buf, uint32(s.Value))
			buf = e.U32(buf, uint32(s.Size))
		}
		buf = append(buf, s.Info, s.Other)
		buf = e.U16(buf, s.Shndx)
		if e.Is64() {
			buf = e.U64(buf, s.Value)
			buf = e.U64(buf, s.Size)
		}
	}
	return buf
}

// Dyn is a dynamic table entry to encode.
type Dyn struct {
	Tag elf.DynTag
	Val uint64
}

// Dynamic encodes entries as a dynamic table.
func (e Encoder) Dynamic(entries []Dyn) []byte {
	var buf []byte
	for _, d := range entries {
		buf = e.Word(buf, uint64(d.Tag))
		buf = e.Word(buf, d.Val)
	}
	return buf
}

// Rela is a relocation to encode. Addend is ignored by Rels.
type Rela struct {
	Offset uint64
	Sym    uint32
	Type   uint32
	Addend int64
}

func (e Encoder) info(sym, typ uint32) uint64 {
	if e.Is64() {
		return uint64(sym)<<32 | uint64(typ)
	}
	return uint64(sym)<<8 | uint64(typ&0xff)
}

// Rels encodes relocations without addends.
func (e Encoder) Rels(rels []Rela) []byte {
	var buf []byte
	for _, r := range rels {
		buf = e.Word(buf, r.Offset)
		buf = e.Word(buf, e.info(r.Sym, r.Type))
	}
	return buf
}

// Relas encodes relocations with addends.
func (e Encoder) Relas(rels []Rela) []byte {
	var buf []byte
	for _, r := range rels {
		buf = e.Word(buf, r.Offset)
		buf = e.Word(buf, e.info(r.Sym, r.Type))
		buf = e.Word(buf, uint64(r.Addend))
	}
	return buf
}

// Words encodes class-width words, as found in SHT_RELR sections.
func (e Encoder) Words(words []uint64) []byte {
	var buf []byte
	for _, w := range words {
		buf = e.Word(buf, w)
	}
	return buf
}

// Note is a note entry to encode.
type Note struct {
	Name string
	Type uint32
	Desc []byte
}

func pad(buf []byte, align int) []byte {
	for len(buf)%align != 0 {
		buf = append(buf, 0)
	}
	return buf
}

// Notes encodes notes with their name and descriptor padded to align.
func (e Encoder) Notes(align int, notes []Note) []byte {
	var buf []byte
	for _, n := range notes {
		namesz := 0
		if n.Name != "" {
			namesz = len(n.Name) + 1
		}
		buf = e.U32(buf, uint32(namesz))
		buf = e.U32(buf, uint32(len(n.Desc)))
		buf = e.U32(buf, n.Type)
		if namesz > 0 {
			buf = append(buf, n.Name...)
			buf = append(buf, 0)
		}
		buf = pad(buf, align)
		buf = append(buf, n.Desc...)
		buf = pad(buf, align)
	}
	return buf
}

// CompressionHeader encodes an Elfxx_Chdr.
func (e Encoder) CompressionHeader(typ elf.CompressionType, size, align uint64) []byte {
	var buf []byte
	buf = e.U32(buf, uint32(typ))
	if e.Is64() {
		buf = e.U32(buf, 0)
	}
	buf = e.Word(buf, size)
	return e.Word(buf, align)
}

// Versions encodes a .gnu.version section.
func (e Encoder) Versions(indexes []uint16) []byte {
	var buf []byte
	for _, v := range indexes {
		buf = e.U16(buf, v)
	}
	return buf
}

// Strtab accumulates a string table. Offset 0 holds the empty string.
type Strtab struct {
	data    []byte
	offsets map[string]uint32
}

// NewStrtab returns a string table holding only the empty string.
func NewStrtab() *Strtab {
	return &Strtab{data: []byte{0}, offsets: map[string]uint32{"": 0}}
}

// Add appends s if it is not present yet and returns its offset.
func (t *Strtab) Add(s string) uint32 {
	if off, ok := t.offsets[s]; ok {
		return off
	}
	off := uint32(len(t.data))
	t.data = append(t.data, s...)
	t.data = append(t.data, 0)
	t.offsets[s] = off
	return off
}

// Bytes returns the encoded table.
func (t *Strtab) Bytes() []byte {
	return t.data
}

// SLEB128 appends the signed LEB128 encodings of values.
func SLEB128(buf []byte, values ...int64) []byte {
	for _, v := range values {
		for {
			b := byte(v & 0x7f)
			v >>= 7
			if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
				buf = append(buf, b)
				break
			}
			buf = append(buf, b|0x80)
		}
	}
	return buf
}
