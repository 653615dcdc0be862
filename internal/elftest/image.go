//go:build test

package elftest

import (
	"debug/elf"
	"encoding/binary"
)

// Section describes one section of an Image. The null section at index 0
// and the section name string table are added by Build.
type Section struct {
	Name      string
	Type      elf.SectionType
	Flags     elf.SectionFlag
	Addr      uint64
	Link      uint32
	Info      uint32
	Addralign uint64
	Entsize   uint64
	Data      []byte

	// Size overrides len(Data) in the header when non-zero, e.g. for SHT_NOBITS.
	Size uint64
}

// Segment describes one program header of an Image.
type Segment struct {
	Type  elf.ProgType
	Flags elf.ProgFlag
	Vaddr uint64
	Align uint64

	// Section, if non-zero, is the index of a section whose file range the
	// segment covers. Otherwise the segment holds Data.
	Section uint32
	Data    []byte
}

// Image is an ELF file under construction.
type Image struct {
	Encoder
	Type    elf.Type
	Machine elf.Machine
	Entry   uint64

	Sections []Section
	Segments []Segment

	// NoSectionHeaders omits the section header table (e_shoff = 0).
	NoSectionHeaders bool
	// ExtendedShnum stores the section count in shdr[0].sh_size.
	ExtendedShnum bool
	// ExtendedPhnum stores the segment count in shdr[0].sh_info.
	ExtendedPhnum bool
	// ExtendedShstrndx stores the name table index in shdr[0].sh_link.
	ExtendedShstrndx bool

	// Non-zero values override the entry sizes written to the header.
	Shentsize uint16
	Phentsize uint16
}

// New returns an empty image of the given class and byte order.
func New(class elf.Class, order binary.ByteOrder) *Image {
	return &Image{
		Encoder: Encoder{Class: class, Order: order},
		Type:    elf.ET_DYN,
		Machine: elf.EM_X86_64,
	}
}

// AddSection appends s and returns its section index.
func (img *Image) AddSection(s Section) uint32 {
	img.Sections = append(img.Sections, s)
	return uint32(len(img.Sections))
}

// AddSegment appends p.
func (img *Image) AddSegment(p Segment) {
	img.Segments = append(img.Segments, p)
}

// HeaderSize returns e_ehsize for the image's class.
func (img *Image) HeaderSize() int {
	if img.Is64() {
		return 64
	}
	return 52
}

// SectionHeaderSize returns the size of one section header.
func (img *Image) SectionHeaderSize() int {
	if img.Is64() {
		return 64
	}
	return 40
}

// ProgramHeaderSize returns the size of one program header.
func (img *Image) ProgramHeaderSize() int {
	if img.Is64() {
		return 56
	}
	return 32
}

type placed struct {
	offset uint64
	size   uint64
}

// Build lays out the image: file header, program headers, section and
// segment contents, then the section header table.
func (img *Image) Build() []byte {
	sections := append([]Section{{}}, img.Sections...)
	shstrtab := NewStrtab()
	for i := range sections[1:] {
		shstrtab.Add(sections[i+1].Name)
	}
	shstrndx := uint32(len(sections))
	shstrtab.Add(".shstrtab")
	sections = append(sections, Section{Name: ".shstrtab", Type: elf.SHT_STRTAB, Addralign: 1, Data: shstrtab.Bytes()})

	phoff := uint64(0)
	if len(img.Segments) > 0 {
		phoff = uint64(img.HeaderSize())
	}
	body := make([]byte, img.HeaderSize()+len(img.Segments)*img.ProgramHeaderSize())

	secPlace := make([]placed, len(sections))
	for i := 1; i < len(sections); i++ {
		body = pad(body, 8)
		size := uint64(len(sections[i].Data))
		if sections[i].Size != 0 {
			size = sections[i].Size
		}
		secPlace[i] = placed{offset: uint64(len(body)), size: size}
		if sections[i].Type != elf.SHT_NOBITS {
			body = append(body, sections[i].Data...)
		}
	}
	segPlace := make([]placed, len(img.Segments))
	for i, p := range img.Segments {
		if p.Section != 0 {
			segPlace[i] = secPlace[p.Section]
			continue
		}
		body = pad(body, 8)
		segPlace[i] = placed{offset: uint64(len(body)), size: uint64(len(p.Data))}
		body = append(body, p.Data...)
	}

	shoff := uint64(0)
	if !img.NoSectionHeaders {
		body = pad(body, 8)
		shoff = uint64(len(body))
		for i, s := range sections {
			if i == 0 {
				body = img.nullSection(body, len(sections), shstrndx)
				continue
			}
			body = img.sectionHeader(body, shstrtab.Add(s.Name), s, secPlace[i])
		}
	}

	hdr := img.fileHeader(phoff, shoff, len(sections), shstrndx)
	copy(body, hdr)
	var ph []byte
	for i, p := range img.Segments {
		ph = img.programHeader(ph, p, segPlace[i])
	}
	copy(body[phoff:], ph)
	return body
}

func (img *Image) nullSection(buf []byte, shnum int, shstrndx uint32) []byte {
	var s Section
	var size uint64
	if img.ExtendedShnum {
		size = uint64(shnum)
	}
	if img.ExtendedPhnum {
		s.Info = uint32(len(img.Segments))
	}
	if img.ExtendedShstrndx {
		s.Link = shstrndx
	}
	return img.sectionHeader(buf, 0, s, placed{size: size})
}

func (img *Image) sectionHeader(buf []byte, name uint32, s Section, at placed) []byte {
	buf = img.U32(buf, name)
	buf = img.U32(buf, uint32(s.Type))
	buf = img.Word(buf, uint64(s.Flags))
	buf = img.Word(buf, s.Addr)
	buf = img.Word(buf, at.offset)
	buf = img.Word(buf, at.size)
	buf = img.U32(buf, s.Link)
	buf = img.U32(buf, s.Info)
	buf = img.Word(buf, s.Addralign)
	return img.Word(buf, s.Entsize)
}

func (img *Image) programHeader(buf []byte, p Segment, at placed) []byte {
	buf = img.U32(buf, uint32(p.Type))
	if img.Is64() {
		buf = img.U32(buf, uint32(p.Flags))
	}
	buf = img.Word(buf, at.offset)
	buf = img.Word(buf, p.Vaddr)
	buf = img.Word(buf, p.Vaddr)
	buf = img.Word(buf, at.size)
	buf = img.Word(buf, at.size)
	if !img.Is64() {
		buf = img.U32(buf, uint32(p.Flags))
	}
	return img.Word(buf, p.Align)
}

func (img *Image) fileHeader(phoff, shoff uint64, shnum int, shstrndx uint32) []byte {
	data := elf.ELFDATA2LSB
	if img.Order == binary.BigEndian {
		data = elf.ELFDATA2MSB
	}
	buf := []byte{0x7f, 'E', 'L', 'F', byte(img.Class), byte(data), byte(elf.EV_CURRENT)}
	buf = pad(append(buf, 0), 16)

	phentsize := uint16(img.ProgramHeaderSize())
	if img.Phentsize != 0 {
		phentsize = img.Phentsize
	}
	shentsize := uint16(img.SectionHeaderSize())
	if img.Shentsize != 0 {
		shentsize = img.Shentsize
	}
	phnum := uint16(len(img.Segments))
	if img.ExtendedPhnum {
		phnum = 0xffff
	}
	encShnum := uint16(shnum)
	if img.ExtendedShnum {
		encShnum = 0
	}
	encShstrndx := uint16(shstrndx)
	if img.ExtendedShstrndx {
		encShstrndx = uint16(elf.SHN_XINDEX)
	}
	if img.NoSectionHeaders {
		encShnum, encShstrndx = 0, 0
	}

	buf = img.U16(buf, uint16(img.Type))
	buf = img.U16(buf, uint16(img.Machine))
	buf = img.U32(buf, uint32(elf.EV_CURRENT))
	buf = img.Word(buf, img.Entry)
	buf = img.Word(buf, phoff)
	buf = img.Word(buf, shoff)
	buf = img.U32(buf, 0)
	buf = img.U16(buf, uint16(img.HeaderSize()))
	buf = img.U16(buf, phentsize)
	buf = img.U16(buf, phnum)
	buf = img.U16(buf, shentsize)
	buf = img.U16(buf, encShnum)
	return img.U16(buf, encShstrndx)
}
