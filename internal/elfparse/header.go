package elfparse

import (
	"debug/elf"
	"fmt"
)

// Identification and header sizes
const (
	IdentSize      = 16 // EI_NIDENT
	ehdr32TailSize = 36
	ehdr64TailSize = 48
)

// Offsets into e_ident
const (
	eiClass      = 4
	eiData       = 5
	eiVersion    = 6
	eiOSABI      = 7
	eiABIVersion = 8
)

// FileHeader is the decoded ELF file header. It describes where the other
// structures live and holds nothing else.
type FileHeader struct {
	Class      elf.Class
	Data       elf.Data
	OSABI      elf.OSABI
	ABIVersion uint8
	Type       elf.Type
	Machine    elf.Machine
	Version    uint32
	Entry      uint64
	Phoff      uint64
	Shoff      uint64
	Flags      uint32
	Ehsize     uint16
	Phentsize  uint16
	Phnum      uint16
	Shentsize  uint16
	Shnum      uint16
	Shstrndx   uint16
}

// ident is the validated identification prefix.
type ident struct {
	class      elf.Class
	data       elf.Data
	osabi      elf.OSABI
	abiVersion uint8
}

// parseIdent validates the 16-byte identification prefix.
func parseIdent(buf []byte) (ident, error) {
	if len(buf) < IdentSize {
		return ident{}, &SliceReadError{Start: 0, End: IdentSize}
	}
	if buf[0] != 0x7f || buf[1] != 'E' || buf[2] != 'L' || buf[3] != 'F' {
		return ident{}, fmt.Errorf("%w: % x", ErrBadMagic, buf[:4])
	}
	if v := elf.Version(buf[eiVersion]); v != elf.EV_CURRENT {
		return ident{}, &VersionError{Got: uint64(v), Want: uint64(elf.EV_CURRENT)}
	}
	class := elf.Class(buf[eiClass])
	if class != elf.ELFCLASS32 && class != elf.ELFCLASS64 {
		return ident{}, fmt.Errorf("%w: %d", ErrUnsupportedClass, buf[eiClass])
	}
	return ident{
		class:      class,
		data:       elf.Data(buf[eiData]),
		osabi:      elf.OSABI(buf[eiOSABI]),
		abiVersion: buf[eiABIVersion],
	}, nil
}

// headerTailSize returns the size of the class-dependent part of the file header.
func headerTailSize(class elf.Class) int {
	if class == elf.ELFCLASS64 {
		return ehdr64TailSize
	}
	return ehdr32TailSize
}

// parseHeaderTail decodes the class-dependent part of the file header.
func parseHeaderTail(id ident, d Decoder, data []byte) (FileHeader, error) {
	h := FileHeader{
		Class:      id.class,
		Data:       id.data,
		OSABI:      id.osabi,
		ABIVersion: id.abiVersion,
	}
	off := 0
	typ, err := d.U16(data, &off)
	if err != nil {
		return FileHeader{}, err
	}
	machine, err := d.U16(data, &off)
	if err != nil {
		return FileHeader{}, err
	}
	h.Type = elf.Type(typ)
	h.Machine = elf.Machine(machine)
	if h.Version, err = d.U32(data, &off); err != nil {
		return FileHeader{}, err
	}
	if h.Entry, err = d.Word(data, &off); err != nil {
		return FileHeader{}, err
	}
	if h.Phoff, err = d.Word(data, &off); err != nil {
		return FileHeader{}, err
	}
	if h.Shoff, err = d.Word(data, &off); err != nil {
		return FileHeader{}, err
	}
	if h.Flags, err = d.U32(data, &off); err != nil {
		return FileHeader{}, err
	}
	for _, field := range []*uint16{&h.Ehsize, &h.Phentsize, &h.Phnum, &h.Shentsize, &h.Shnum, &h.Shstrndx} {
		if *field, err = d.U16(data, &off); err != nil {
			return FileHeader{}, err
		}
	}
	return h, nil
}
