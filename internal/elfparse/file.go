package elfparse

import (
	"debug/elf"
	"fmt"
	"io"
)

// File is an ELF image opened for lazy inspection.
//
// Opening a File decodes only the file header and locates the section and
// program header tables. Every accessor reads just the bytes it needs and
// decodes records on demand. Files backed by a memory buffer are immutable
// and safe for concurrent use; files backed by a stream are not.
type File struct {
	src    Source
	dec    Decoder
	header FileHeader
	shdrs  *SectionHeaderTable
	phdrs  *SegmentTable
}

// Open decodes an ELF image held in memory. The returned File and every
// slice it hands out alias data.
func Open(data []byte) (*File, error) {
	return NewFile(NewMemorySource(data), AnyEndian{})
}

// OpenStream decodes an ELF image from a seekable stream, loading byte
// ranges on demand and caching them for the life of the File.
func OpenStream(r io.ReadSeeker) (*File, error) {
	return NewFile(NewStreamSource(r), AnyEndian{})
}

// NewFile decodes the image served by src, resolving its byte order with e.
func NewFile(src Source, e Endian) (*File, error) {
	identBuf, err := src.ReadBytes(0, IdentSize)
	if err != nil {
		return nil, err
	}
	id, err := parseIdent(identBuf)
	if err != nil {
		return nil, err
	}
	order, err := e.Order(id.data)
	if err != nil {
		return nil, err
	}
	dec := Decoder{Order: order, Class: id.class}

	tail, err := src.ReadBytes(IdentSize, IdentSize+uint64(headerTailSize(id.class)))
	if err != nil {
		return nil, err
	}
	header, err := parseHeaderTail(id, dec, tail)
	if err != nil {
		return nil, err
	}

	f := &File{src: src, dec: dec, header: header}
	if f.shdrs, err = f.locateSectionHeaders(); err != nil {
		return nil, fmt.Errorf("section header table: %w", err)
	}
	if f.phdrs, err = f.locateSegments(); err != nil {
		return nil, fmt.Errorf("program header table: %w", err)
	}
	return f, nil
}

// locateSectionHeaders returns the section header table, or nil if the file has none.
func (f *File) locateSectionHeaders() (*SectionHeaderTable, error) {
	if f.header.Shoff == 0 {
		return nil, nil
	}
	entsize := sectionHeaderSize(f.dec.Class)
	if err := validateEntsize(uint64(f.header.Shentsize), entsize); err != nil {
		return nil, err
	}

	// With SHN_LORESERVE or more sections, e_shnum is 0 and the count lives in shdr[0].sh_size.
	count := uint64(f.header.Shnum)
	if count == 0 {
		shdr0, err := f.readSectionHeaderAt(f.header.Shoff)
		if err != nil {
			return nil, err
		}
		count = shdr0.Size
	}
	return readTable(f, f.header.Shoff, count, entsize, NewSectionHeaderTable)
}

// locateSegments returns the program header table, or nil if the file has none.
func (f *File) locateSegments() (*SegmentTable, error) {
	if f.header.Phoff == 0 {
		return nil, nil
	}
	entsize := programHeaderSize(f.dec.Class)
	if err := validateEntsize(uint64(f.header.Phentsize), entsize); err != nil {
		return nil, err
	}

	// PN_XNUM defers the count to shdr[0].sh_info.
	count := uint64(f.header.Phnum)
	if f.header.Phnum == PNXNum {
		shdr0, err := f.shdrs.Get(0)
		if err != nil {
			return nil, err
		}
		count = uint64(shdr0.Info)
	}
	return readTable(f, f.header.Phoff, count, entsize, NewSegmentTable)
}

func (f *File) readSectionHeaderAt(off uint64) (SectionHeader, error) {
	start, end, err := span(off, uint64(sectionHeaderSize(f.dec.Class)))
	if err != nil {
		return SectionHeader{}, err
	}
	buf, err := f.src.ReadBytes(start, end)
	if err != nil {
		return SectionHeader{}, err
	}
	pos := 0
	return parseSectionHeader(f.dec, buf, &pos)
}

// readTable reads count entries of entsize bytes at off and wraps them with newFn.
func readTable[T any](f *File, off, count uint64, entsize int,
	newFn func(Decoder, []byte) (*Table[T], error),
) (*Table[T], error) {
	size, err := mulU64(count, uint64(entsize))
	if err != nil {
		return nil, err
	}
	start, end, err := span(off, size)
	if err != nil {
		return nil, err
	}
	buf, err := f.src.ReadBytes(start, end)
	if err != nil {
		return nil, err
	}
	return newFn(f.dec, buf)
}

// Header returns the decoded file header.
func (f *File) Header() FileHeader {
	return f.header
}

// Decoder returns the decoder for the file's class and byte order.
func (f *File) Decoder() Decoder {
	return f.dec
}

// Source returns the byte source the file was opened over.
func (f *File) Source() Source {
	return f.src
}

// SectionHeaders returns the section header table, or nil if the file has none.
func (f *File) SectionHeaders() *SectionHeaderTable {
	return f.shdrs
}

// Segments returns the program header table, or nil if the file has none.
func (f *File) Segments() *SegmentTable {
	return f.phdrs
}

// SectionHeadersWithStrtab returns the section header table together with
// the section name string table. Both are nil if the file has no sections.
func (f *File) SectionHeadersWithStrtab() (*SectionHeaderTable, *StringTable, error) {
	if f.shdrs == nil {
		return nil, nil, nil
	}
	index := uint64(f.header.Shstrndx)
	if f.header.Shstrndx == uint16(elf.SHN_XINDEX) {
		shdr0, err := f.shdrs.Get(0)
		if err != nil {
			return nil, nil, err
		}
		index = uint64(shdr0.Link)
	}
	idx, err := toInt(index)
	if err != nil {
		return nil, nil, err
	}
	strtabShdr, err := f.shdrs.Get(idx)
	if err != nil {
		return nil, nil, err
	}
	buf, err := f.rangeOf(strtabShdr.DataRange())
	if err != nil {
		return nil, nil, err
	}
	strtab := NewStringTable(buf)
	return f.shdrs, &strtab, nil
}

// SectionHeaderByName returns the first section named name, or nil if none is.
func (f *File) SectionHeaderByName(name string) (*SectionHeader, error) {
	shdrs, strtab, err := f.SectionHeadersWithStrtab()
	if err != nil || shdrs == nil {
		return nil, err
	}
	for shdr, err := range shdrs.All() {
		if err != nil {
			return nil, err
		}
		got, err := strtab.Raw(uint64(shdr.Name))
		if err != nil {
			return nil, err
		}
		if string(got) == name {
			return &shdr, nil
		}
	}
	return nil, nil
}

func (f *File) rangeOf(start, end uint64, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return f.src.ReadBytes(start, end)
}

// SectionData returns the contents of the section described by shdr.
//
// For SHF_COMPRESSED sections the compression header is decoded and returned
// alongside the still-compressed payload that follows it. SHT_NOBITS
// sections have no contents.
func (f *File) SectionData(shdr SectionHeader) ([]byte, *CompressionHeader, error) {
	if shdr.Type == elf.SHT_NOBITS {
		return []byte{}, nil, nil
	}
	buf, err := f.rangeOf(shdr.DataRange())
	if err != nil {
		return nil, nil, err
	}
	if !shdr.HasFlag(elf.SHF_COMPRESSED) {
		return buf, nil, nil
	}
	off := 0
	chdr, err := parseCompressionHeader(f.dec, buf, &off)
	if err != nil {
		return nil, nil, err
	}
	return buf[off:], &chdr, nil
}

func checkSectionType(shdr SectionHeader, want elf.SectionType) error {
	if shdr.Type != want {
		return &UnexpectedTypeError{Got: uint32(shdr.Type), Want: uint32(want)}
	}
	return nil
}

// typedSectionData returns the contents of shdr after checking its type.
func (f *File) typedSectionData(shdr SectionHeader, want elf.SectionType) ([]byte, error) {
	if err := checkSectionType(shdr, want); err != nil {
		return nil, err
	}
	buf, _, err := f.SectionData(shdr)
	return buf, err
}

// SectionDataAsStrtab interprets a SHT_STRTAB section as a string table.
func (f *File) SectionDataAsStrtab(shdr SectionHeader) (StringTable, error) {
	buf, err := f.typedSectionData(shdr, elf.SHT_STRTAB)
	if err != nil {
		return StringTable{}, err
	}
	return NewStringTable(buf), nil
}

// SectionDataAsRels interprets a SHT_REL section as relocations without addends.
func (f *File) SectionDataAsRels(shdr SectionHeader) (*RelTable, error) {
	buf, err := f.typedSectionData(shdr, elf.SHT_REL)
	if err != nil {
		return nil, err
	}
	return NewRelTable(f.dec, buf)
}

// SectionDataAsRelas interprets a SHT_RELA section as relocations with addends.
func (f *File) SectionDataAsRelas(shdr SectionHeader) (*RelaTable, error) {
	buf, err := f.typedSectionData(shdr, elf.SHT_RELA)
	if err != nil {
		return nil, err
	}
	return NewRelaTable(f.dec, buf)
}

// SectionDataAsRelr interprets a SHT_RELR section as packed relative relocations.
func (f *File) SectionDataAsRelr(shdr SectionHeader) (*RelrIterator, error) {
	buf, err := f.typedSectionData(shdr, SHTRelr)
	if err != nil {
		return nil, err
	}
	return NewRelrIterator(f.dec, f.header.Machine, buf)
}

// SectionDataAsAndroidRels interprets a SHT_ANDROID_REL section.
func (f *File) SectionDataAsAndroidRels(shdr SectionHeader) (*AndroidRelocIterator, error) {
	buf, err := f.typedSectionData(shdr, SHTAndroidRel)
	if err != nil {
		return nil, err
	}
	return NewAndroidRelIterator(f.dec, buf)
}

// SectionDataAsAndroidRelas interprets a SHT_ANDROID_RELA section.
func (f *File) SectionDataAsAndroidRelas(shdr SectionHeader) (*AndroidRelocIterator, error) {
	buf, err := f.typedSectionData(shdr, SHTAndroidRela)
	if err != nil {
		return nil, err
	}
	return NewAndroidRelaIterator(f.dec, buf)
}

// SectionDataAsNotes interprets a SHT_NOTE section as a sequence of notes.
func (f *File) SectionDataAsNotes(shdr SectionHeader) (*NoteIterator, error) {
	buf, err := f.typedSectionData(shdr, elf.SHT_NOTE)
	if err != nil {
		return nil, err
	}
	return NewNoteIterator(f.dec, shdr.Addralign, buf), nil
}

// SectionDataAsSymbolTable interprets shdr as a symbol table whose names
// live in strtabShdr.
func (f *File) SectionDataAsSymbolTable(shdr, strtabShdr SectionHeader) (*SymbolTable, StringTable, error) {
	if err := validateEntsize(shdr.Entsize, symbolSize(f.dec.Class)); err != nil {
		return nil, StringTable{}, err
	}
	symBuf, err := f.rangeOf(shdr.DataRange())
	if err != nil {
		return nil, StringTable{}, err
	}
	strBuf, err := f.rangeOf(strtabShdr.DataRange())
	if err != nil {
		return nil, StringTable{}, err
	}
	symtab, err := NewSymbolTable(f.dec, symBuf)
	if err != nil {
		return nil, StringTable{}, err
	}
	return symtab, NewStringTable(strBuf), nil
}

// SegmentData returns the file contents of the segment described by phdr.
func (f *File) SegmentData(phdr ProgramHeader) ([]byte, error) {
	return f.rangeOf(phdr.FileRange())
}

// SegmentDataAsNotes interprets a PT_NOTE segment as a sequence of notes.
func (f *File) SegmentDataAsNotes(phdr ProgramHeader) (*NoteIterator, error) {
	if phdr.Type != elf.PT_NOTE {
		return nil, &UnexpectedTypeError{Segment: true, Got: uint32(phdr.Type), Want: uint32(elf.PT_NOTE)}
	}
	buf, err := f.SegmentData(phdr)
	if err != nil {
		return nil, err
	}
	return NewNoteIterator(f.dec, phdr.Align, buf), nil
}

// findSection returns the first section of type typ, or nil.
func (f *File) findSection(typ elf.SectionType) (*SectionHeader, error) {
	for shdr, err := range f.shdrs.All() {
		if err != nil {
			return nil, err
		}
		if shdr.Type == typ {
			return &shdr, nil
		}
	}
	return nil, nil
}

// findSegment returns the first segment of type typ, or nil.
func (f *File) findSegment(typ elf.ProgType) (*ProgramHeader, error) {
	for phdr, err := range f.phdrs.All() {
		if err != nil {
			return nil, err
		}
		if phdr.Type == typ {
			return &phdr, nil
		}
	}
	return nil, nil
}

// Dynamic returns the dynamic table from the SHT_DYNAMIC section or, for
// files without a section table, from the PT_DYNAMIC segment. It returns
// nil if the file has neither.
func (f *File) Dynamic() (*DynTable, error) {
	if f.shdrs != nil {
		shdr, err := f.findSection(elf.SHT_DYNAMIC)
		if err != nil || shdr == nil {
			return nil, err
		}
		buf, err := f.rangeOf(shdr.DataRange())
		if err != nil {
			return nil, err
		}
		return NewDynTable(f.dec, buf)
	}
	return f.dynamicFromSegments()
}

func (f *File) dynamicFromSegments() (*DynTable, error) {
	phdr, err := f.findSegment(elf.PT_DYNAMIC)
	if err != nil || phdr == nil {
		return nil, err
	}
	buf, err := f.SegmentData(*phdr)
	if err != nil {
		return nil, err
	}
	return NewDynTable(f.dec, buf)
}

// symbolTableOfType locates the first section of type typ and its linked string table.
func (f *File) symbolTableOfType(typ elf.SectionType) (*SymbolTable, StringTable, error) {
	shdr, err := f.findSection(typ)
	if err != nil || shdr == nil {
		return nil, StringTable{}, err
	}
	strtabShdr, err := f.shdrs.Get(int(shdr.Link))
	if err != nil {
		return nil, StringTable{}, err
	}
	return f.SectionDataAsSymbolTable(*shdr, strtabShdr)
}

// SymbolTable returns the .symtab table and its string table, or a nil
// table if the file has none.
func (f *File) SymbolTable() (*SymbolTable, StringTable, error) {
	return f.symbolTableOfType(elf.SHT_SYMTAB)
}

// DynamicSymbolTable returns the .dynsym table and its string table, or a
// nil table if the file has none.
func (f *File) DynamicSymbolTable() (*SymbolTable, StringTable, error) {
	return f.symbolTableOfType(elf.SHT_DYNSYM)
}

// linkedStrtab returns the string table named by shdr's sh_link.
func (f *File) linkedStrtab(shdr SectionHeader) (StringTable, error) {
	strtabShdr, err := f.shdrs.Get(int(shdr.Link))
	if err != nil {
		return StringTable{}, err
	}
	buf, err := f.rangeOf(strtabShdr.DataRange())
	if err != nil {
		return StringTable{}, err
	}
	return NewStringTable(buf), nil
}

// SymbolVersionTable assembles the GNU symbol versioning sections. It
// returns nil if the file has no .gnu.version section.
func (f *File) SymbolVersionTable() (*SymbolVersionTable, error) {
	var versym, verneed, verdef *SectionHeader
	for shdr, err := range f.shdrs.All() {
		if err != nil {
			return nil, err
		}
		switch shdr.Type {
		case elf.SHT_GNU_VERSYM:
			versym = &shdr
		case elf.SHT_GNU_VERNEED:
			verneed = &shdr
		case elf.SHT_GNU_VERDEF:
			verdef = &shdr
		}
	}
	if versym == nil {
		return nil, nil
	}

	if err := validateEntsize(versym.Entsize, versionIndexSize); err != nil {
		return nil, err
	}
	buf, err := f.rangeOf(versym.DataRange())
	if err != nil {
		return nil, err
	}
	versions, err := NewVersionIndexTable(f.dec, buf)
	if err != nil {
		return nil, err
	}

	var needs *VerNeedTable
	var needsStrs StringTable
	if verneed != nil {
		buf, err := f.rangeOf(verneed.DataRange())
		if err != nil {
			return nil, err
		}
		if needsStrs, err = f.linkedStrtab(*verneed); err != nil {
			return nil, err
		}
		needs = NewVerNeedTable(f.dec, uint64(verneed.Info), buf)
	}

	var defs *VerDefTable
	var defsStrs StringTable
	if verdef != nil {
		buf, err := f.rangeOf(verdef.DataRange())
		if err != nil {
			return nil, err
		}
		if defsStrs, err = f.linkedStrtab(*verdef); err != nil {
			return nil, err
		}
		defs = NewVerDefTable(f.dec, uint64(verdef.Info), buf)
	}

	return NewSymbolVersionTable(versions, needs, needsStrs, defs, defsStrs), nil
}
