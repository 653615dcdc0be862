package elfparse

import (
	"iter"
)

// parseFunc decodes one record of kind T at *off and advances the cursor.
type parseFunc[T any] func(d Decoder, data []byte, off *int) (T, error)

// Table is a lazily decoded array of fixed-size records over a byte slice.
// It keeps only the slice; each Get or iteration step decodes one record.
type Table[T any] struct {
	dec     Decoder
	data    []byte
	entsize int
	parse   parseFunc[T]
}

// Named tables for the record kinds.
type (
	SectionHeaderTable = Table[SectionHeader]
	SegmentTable       = Table[ProgramHeader]
	SymbolTable        = Table[Symbol]
	DynTable           = Table[Dyn]
	RelTable           = Table[Rel]
	RelaTable          = Table[Rela]
	VersionIndexTable  = Table[VersionIndex]
	U32Table           = Table[uint32]
	WordTable          = Table[uint64]
)

func newTable[T any](d Decoder, data []byte, entsize int, parse parseFunc[T]) (*Table[T], error) {
	if entsize <= 0 || len(data)%entsize != 0 {
		return nil, &TableSizeError{Len: uint64(len(data)), EntrySize: uint64(entsize)}
	}
	return &Table[T]{dec: d, data: data, entsize: entsize, parse: parse}, nil
}

// NewSectionHeaderTable wraps data as an array of section headers.
func NewSectionHeaderTable(d Decoder, data []byte) (*SectionHeaderTable, error) {
	return newTable(d, data, sectionHeaderSize(d.Class), parseSectionHeader)
}

// NewSegmentTable wraps data as an array of program headers.
func NewSegmentTable(d Decoder, data []byte) (*SegmentTable, error) {
	return newTable(d, data, programHeaderSize(d.Class), parseProgramHeader)
}

// NewSymbolTable wraps data as an array of symbols.
func NewSymbolTable(d Decoder, data []byte) (*SymbolTable, error) {
	return newTable(d, data, symbolSize(d.Class), parseSymbol)
}

// NewDynTable wraps data as an array of dynamic entries.
func NewDynTable(d Decoder, data []byte) (*DynTable, error) {
	return newTable(d, data, dynSize(d.Class), parseDyn)
}

// NewRelTable wraps data as an array of Rel entries.
func NewRelTable(d Decoder, data []byte) (*RelTable, error) {
	return newTable(d, data, relSize(d.Class), parseRel)
}

// NewRelaTable wraps data as an array of Rela entries.
func NewRelaTable(d Decoder, data []byte) (*RelaTable, error) {
	return newTable(d, data, relaSize(d.Class), parseRela)
}

// NewVersionIndexTable wraps the contents of a .gnu.version section.
func NewVersionIndexTable(d Decoder, data []byte) (*VersionIndexTable, error) {
	return newTable(d, data, versionIndexSize, parseVersionIndex)
}

// NewU32Table wraps data as an array of 32-bit words regardless of class.
func NewU32Table(d Decoder, data []byte) (*U32Table, error) {
	return newTable(d, data, 4, func(d Decoder, data []byte, off *int) (uint32, error) {
		return d.U32(data, off)
	})
}

// NewWordTable wraps data as an array of class-width words.
func NewWordTable(d Decoder, data []byte) (*WordTable, error) {
	return newTable(d, data, d.WordSize(), func(d Decoder, data []byte, off *int) (uint64, error) {
		return d.Word(data, off)
	})
}

// Len returns the number of entries.
func (t *Table[T]) Len() int {
	if t == nil {
		return 0
	}
	return len(t.data) / t.entsize
}

// EntrySize returns the on-disk size of one entry.
func (t *Table[T]) EntrySize() int {
	return t.entsize
}

// Get decodes the entry at index i.
func (t *Table[T]) Get(i int) (T, error) {
	var zero T
	n := t.Len()
	if i < 0 || i >= n {
		return zero, &BadIndexError{Index: i, Len: n}
	}
	off := i * t.entsize
	return t.parse(t.dec, t.data, &off)
}

// All yields every entry in order, decoding one per step. If an entry fails
// to decode, All yields the error and stops.
func (t *Table[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for i := range t.Len() {
			v, err := t.Get(i)
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// validateEntsize checks a declared entry size against the expected one.
func validateEntsize(declared uint64, want int) error {
	if declared != uint64(want) {
		return &EntrySizeError{Got: declared, Want: uint64(want)}
	}
	return nil
}
