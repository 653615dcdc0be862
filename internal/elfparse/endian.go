package elfparse

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
)

// Endian resolves the byte order used to decode a file from its EI_DATA byte.
//
// AnyEndian picks the order at runtime. LittleEndian and BigEndian are for
// callers that know the target's byte order ahead of time; they reject files
// of the other order.
type Endian interface {
	Order(data elf.Data) (binary.ByteOrder, error)
}

// AnyEndian selects the byte order from the file's identification bytes.
type AnyEndian struct{}

// Order implements Endian.
func (AnyEndian) Order(data elf.Data) (binary.ByteOrder, error) {
	switch data {
	case elf.ELFDATA2LSB:
		return binary.LittleEndian, nil
	case elf.ELFDATA2MSB:
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedEndianness, uint8(data))
	}
}

// LittleEndian accepts only ELFDATA2LSB files.
type LittleEndian struct{}

// Order implements Endian.
func (LittleEndian) Order(data elf.Data) (binary.ByteOrder, error) {
	if data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("%w: %d (want %s)", ErrUnsupportedEndianness, uint8(data), elf.ELFDATA2LSB)
	}
	return binary.LittleEndian, nil
}

// BigEndian accepts only ELFDATA2MSB files.
type BigEndian struct{}

// Order implements Endian.
func (BigEndian) Order(data elf.Data) (binary.ByteOrder, error) {
	if data != elf.ELFDATA2MSB {
		return nil, fmt.Errorf("%w: %d (want %s)", ErrUnsupportedEndianness, uint8(data), elf.ELFDATA2MSB)
	}
	return binary.BigEndian, nil
}

// Decoder reads fixed-width integers from a byte slice at a cursor.
// Every read advances the cursor on success and leaves it untouched on failure.
type Decoder struct {
	Order binary.ByteOrder
	Class elf.Class
}

// Is64 reports whether the decoder uses ELF64 field widths.
func (d Decoder) Is64() bool {
	return d.Class == elf.ELFCLASS64
}

// WordSize returns the size in bytes of a class-width word.
func (d Decoder) WordSize() int {
	if d.Is64() {
		return 8
	}
	return 4
}

func (d Decoder) take(data []byte, off *int, n int) ([]byte, error) {
	start := *off
	if start < 0 {
		return nil, &SliceReadError{Start: 0, End: uint64(n)}
	}
	if start > math.MaxInt-n {
		return nil, ErrIntegerOverflow
	}
	end := start + n
	if end > len(data) {
		return nil, &SliceReadError{Start: uint64(start), End: uint64(end)}
	}
	*off = end
	return data[start:end], nil
}

// U8 reads one byte.
func (d Decoder) U8(data []byte, off *int) (uint8, error) {
	b, err := d.take(data, off, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a 16-bit unsigned integer.
func (d Decoder) U16(data []byte, off *int) (uint16, error) {
	b, err := d.take(data, off, 2)
	if err != nil {
		return 0, err
	}
	return d.Order.Uint16(b), nil
}

// U32 reads a 32-bit unsigned integer.
func (d Decoder) U32(data []byte, off *int) (uint32, error) {
	b, err := d.take(data, off, 4)
	if err != nil {
		return 0, err
	}
	return d.Order.Uint32(b), nil
}

// U64 reads a 64-bit unsigned integer.
func (d Decoder) U64(data []byte, off *int) (uint64, error) {
	b, err := d.take(data, off, 8)
	if err != nil {
		return 0, err
	}
	return d.Order.Uint64(b), nil
}

// I32 reads a 32-bit signed integer.
func (d Decoder) I32(data []byte, off *int) (int32, error) {
	v, err := d.U32(data, off)
	return int32(v), err
}

// I64 reads a 64-bit signed integer.
func (d Decoder) I64(data []byte, off *int) (int64, error) {
	v, err := d.U64(data, off)
	return int64(v), err
}

// Word reads an unsigned integer of the class width (Elf32_Word/Addr/Off or Elf64_Xword/Addr/Off).
func (d Decoder) Word(data []byte, off *int) (uint64, error) {
	if d.Is64() {
		return d.U64(data, off)
	}
	v, err := d.U32(data, off)
	return uint64(v), err
}

// SWord reads a signed integer of the class width, sign-extended to 64 bits.
func (d Decoder) SWord(data []byte, off *int) (int64, error) {
	if d.Is64() {
		return d.I64(data, off)
	}
	v, err := d.I32(data, off)
	return int64(v), err
}

func addU64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrIntegerOverflow
	}
	return sum, nil
}

func mulU64(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrIntegerOverflow
	}
	return lo, nil
}

// toInt converts a parsed size or offset to int, failing if it does not fit.
func toInt(v uint64) (int, error) {
	if v > math.MaxInt {
		return 0, ErrIntegerOverflow
	}
	return int(v), nil
}

// span returns [off, off+size) after checking the end does not overflow.
func span(off, size uint64) (uint64, uint64, error) {
	end, err := addU64(off, size)
	if err != nil {
		return 0, 0, err
	}
	return off, end, nil
}

// subslice returns data[start:end] or a SliceReadError.
func subslice(data []byte, start, end uint64) ([]byte, error) {
	if start > end || end > uint64(len(data)) {
		return nil, &SliceReadError{Start: start, End: end}
	}
	return data[start:end], nil
}
