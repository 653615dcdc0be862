package elfparse

import (
	"iter"
)

// Version index values and masks (.gnu.version entries)
const (
	VerNdxLocal   = 0
	VerNdxGlobal  = 1
	VerNdxVersion = 0x7fff
	VerNdxHidden  = 0x8000
)

// Version structure revisions
const (
	VerDefCurrent  = 1
	VerNeedCurrent = 1
)

const (
	versionIndexSize = 2
	verDefSize       = 20
	verDefAuxSize    = 8
	verNeedSize      = 16
	verNeedAuxSize   = 16
)

// VersionIndex is one .gnu.version entry: the version of the dynamic symbol
// with the same index, plus a hidden bit.
type VersionIndex uint16

// Index returns the version index with the hidden bit cleared.
func (v VersionIndex) Index() uint16 {
	return uint16(v) & VerNdxVersion
}

// IsLocal reports whether the symbol is local to the object.
func (v VersionIndex) IsLocal() bool {
	return v.Index() == VerNdxLocal
}

// IsGlobal reports whether the symbol is global and unversioned.
func (v VersionIndex) IsGlobal() bool {
	return v.Index() == VerNdxGlobal
}

// IsHidden reports whether the symbol is hidden from static linking against this version.
func (v VersionIndex) IsHidden() bool {
	return uint16(v)&VerNdxHidden != 0
}

func parseVersionIndex(d Decoder, data []byte, off *int) (VersionIndex, error) {
	v, err := d.U16(data, off)
	return VersionIndex(v), err
}

// VerDef is a version definition (Elfxx_Verdef).
type VerDef struct {
	Flags uint16
	Ndx   uint16
	Cnt   uint16
	Hash  uint32
	Aux   uint32
	Next  uint32
}

func parseVerDef(d Decoder, data []byte, off *int) (VerDef, error) {
	version, err := d.U16(data, off)
	if err != nil {
		return VerDef{}, err
	}
	if version != VerDefCurrent {
		return VerDef{}, &VersionError{Got: uint64(version), Want: VerDefCurrent}
	}
	var vd VerDef
	for _, field := range []*uint16{&vd.Flags, &vd.Ndx, &vd.Cnt} {
		if *field, err = d.U16(data, off); err != nil {
			return VerDef{}, err
		}
	}
	for _, field := range []*uint32{&vd.Hash, &vd.Aux, &vd.Next} {
		if *field, err = d.U32(data, off); err != nil {
			return VerDef{}, err
		}
	}
	return vd, nil
}

// VerDefAux names a version definition (Elfxx_Verdaux).
type VerDefAux struct {
	Name uint32
	Next uint32
}

func parseVerDefAux(d Decoder, data []byte, off *int) (VerDefAux, error) {
	name, err := d.U32(data, off)
	if err != nil {
		return VerDefAux{}, err
	}
	next, err := d.U32(data, off)
	if err != nil {
		return VerDefAux{}, err
	}
	return VerDefAux{Name: name, Next: next}, nil
}

// VerNeed is a version requirement on one shared object (Elfxx_Verneed).
type VerNeed struct {
	Cnt  uint16
	File uint32
	Aux  uint32
	Next uint32
}

func parseVerNeed(d Decoder, data []byte, off *int) (VerNeed, error) {
	version, err := d.U16(data, off)
	if err != nil {
		return VerNeed{}, err
	}
	if version != VerNeedCurrent {
		return VerNeed{}, &VersionError{Got: uint64(version), Want: VerNeedCurrent}
	}
	var vn VerNeed
	if vn.Cnt, err = d.U16(data, off); err != nil {
		return VerNeed{}, err
	}
	for _, field := range []*uint32{&vn.File, &vn.Aux, &vn.Next} {
		if *field, err = d.U32(data, off); err != nil {
			return VerNeed{}, err
		}
	}
	return vn, nil
}

// VerNeedAux is one required version of a VerNeed (Elfxx_Vernaux).
type VerNeedAux struct {
	Hash  uint32
	Flags uint16
	Other uint16
	Name  uint32
	Next  uint32
}

func parseVerNeedAux(d Decoder, data []byte, off *int) (VerNeedAux, error) {
	var vna VerNeedAux
	var err error
	if vna.Hash, err = d.U32(data, off); err != nil {
		return VerNeedAux{}, err
	}
	if vna.Flags, err = d.U16(data, off); err != nil {
		return VerNeedAux{}, err
	}
	if vna.Other, err = d.U16(data, off); err != nil {
		return VerNeedAux{}, err
	}
	if vna.Name, err = d.U32(data, off); err != nil {
		return VerNeedAux{}, err
	}
	if vna.Next, err = d.U32(data, off); err != nil {
		return VerNeedAux{}, err
	}
	return vna, nil
}

// linkedRecords walks count records starting at start, each located by
// adding the previous record's next increment to its offset. Iteration ends
// silently on a decode failure, an offset overflow, or an early zero link.
func linkedRecords[T any](d Decoder, data []byte, start uint64, count uint64,
	parse parseFunc[T], next func(T) uint32,
) iter.Seq2[uint64, T] {
	return func(yield func(uint64, T) bool) {
		if len(data) == 0 {
			return
		}
		offset := start
		for remaining := count; remaining > 0; remaining-- {
			pos, err := toInt(offset)
			if err != nil {
				return
			}
			rec, err := parse(d, data, &pos)
			if err != nil {
				return
			}
			if !yield(offset, rec) {
				return
			}
			link := next(rec)
			if link == 0 {
				return
			}
			if offset, err = addU64(offset, uint64(link)); err != nil {
				return
			}
		}
	}
}

// VerDefTable is the contents of a SHT_GNU_VERDEF section.
type VerDefTable struct {
	dec   Decoder
	data  []byte
	count uint64
}

// NewVerDefTable wraps data holding count version definitions (the section's sh_info).
func NewVerDefTable(d Decoder, count uint64, data []byte) *VerDefTable {
	return &VerDefTable{dec: d, data: data, count: count}
}

// All yields each definition with its auxiliary name chain.
func (t *VerDefTable) All() iter.Seq2[VerDef, VerDefAuxChain] {
	return func(yield func(VerDef, VerDefAuxChain) bool) {
		defs := linkedRecords(t.dec, t.data, 0, t.count, parseVerDef, func(vd VerDef) uint32 { return vd.Next })
		for offset, vd := range defs {
			start, err := addU64(offset, uint64(vd.Aux))
			chain := VerDefAuxChain{dec: t.dec, data: t.data, start: start, count: vd.Cnt, bad: err != nil}
			if !yield(vd, chain) {
				return
			}
		}
	}
}

// VerDefAuxChain is the list of names attached to one VerDef.
type VerDefAuxChain struct {
	dec   Decoder
	data  []byte
	start uint64
	count uint16
	bad   bool
}

// All yields each auxiliary entry.
func (c VerDefAuxChain) All() iter.Seq[VerDefAux] {
	return func(yield func(VerDefAux) bool) {
		if c.bad {
			return
		}
		for _, vda := range linkedRecords(c.dec, c.data, c.start, uint64(c.count), parseVerDefAux, func(a VerDefAux) uint32 { return a.Next }) {
			if !yield(vda) {
				return
			}
		}
	}
}

// VerNeedTable is the contents of a SHT_GNU_VERNEED section.
type VerNeedTable struct {
	dec   Decoder
	data  []byte
	count uint64
}

// NewVerNeedTable wraps data holding count version requirements (the section's sh_info).
func NewVerNeedTable(d Decoder, count uint64, data []byte) *VerNeedTable {
	return &VerNeedTable{dec: d, data: data, count: count}
}

// All yields each requirement with its auxiliary version chain.
func (t *VerNeedTable) All() iter.Seq2[VerNeed, VerNeedAuxChain] {
	return func(yield func(VerNeed, VerNeedAuxChain) bool) {
		needs := linkedRecords(t.dec, t.data, 0, t.count, parseVerNeed, func(vn VerNeed) uint32 { return vn.Next })
		for offset, vn := range needs {
			start, err := addU64(offset, uint64(vn.Aux))
			chain := VerNeedAuxChain{dec: t.dec, data: t.data, start: start, count: vn.Cnt, bad: err != nil}
			if !yield(vn, chain) {
				return
			}
		}
	}
}

// VerNeedAuxChain is the list of versions required from one VerNeed's file.
type VerNeedAuxChain struct {
	dec   Decoder
	data  []byte
	start uint64
	count uint16
	bad   bool
}

// All yields each auxiliary entry.
func (c VerNeedAuxChain) All() iter.Seq[VerNeedAux] {
	return func(yield func(VerNeedAux) bool) {
		if c.bad {
			return
		}
		for _, vna := range linkedRecords(c.dec, c.data, c.start, uint64(c.count), parseVerNeedAux, func(a VerNeedAux) uint32 { return a.Next }) {
			if !yield(vna) {
				return
			}
		}
	}
}

// SymbolRequirement is the version a dynamic symbol requires from another object.
type SymbolRequirement struct {
	File   string
	Name   string
	Hash   uint32
	Flags  uint16
	Hidden bool
}

// SymbolDefinition is the version under which this object defines a dynamic symbol.
type SymbolDefinition struct {
	Hash   uint32
	Flags  uint16
	Hidden bool

	aux    VerDefAuxChain
	strtab StringTable
}

// Names yields the version name followed by any parent version names.
func (def *SymbolDefinition) Names() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for vda := range def.aux.All() {
			name, err := def.strtab.Get(uint64(vda.Name))
			if !yield(name, err) || err != nil {
				return
			}
		}
	}
}

// SymbolVersionTable combines .gnu.version with the optional
// .gnu.version_r and .gnu.version_d sections and their string tables.
type SymbolVersionTable struct {
	versions *VersionIndexTable

	needs     *VerNeedTable
	needsStrs StringTable
	defs      *VerDefTable
	defsStrs  StringTable
}

// NewSymbolVersionTable assembles a version table. needs and defs may be nil.
func NewSymbolVersionTable(versions *VersionIndexTable, needs *VerNeedTable, needsStrs StringTable,
	defs *VerDefTable, defsStrs StringTable,
) *SymbolVersionTable {
	return &SymbolVersionTable{
		versions:  versions,
		needs:     needs,
		needsStrs: needsStrs,
		defs:      defs,
		defsStrs:  defsStrs,
	}
}

// Len returns the number of version entries (one per dynamic symbol).
func (t *SymbolVersionTable) Len() int {
	return t.versions.Len()
}

// VersionIndex returns the raw version entry for the dynamic symbol at sym.
func (t *SymbolVersionTable) VersionIndex(sym int) (VersionIndex, error) {
	return t.versions.Get(sym)
}

// VerNeeds returns the requirement table, or nil if the object has none.
func (t *SymbolVersionTable) VerNeeds() (*VerNeedTable, StringTable) {
	return t.needs, t.needsStrs
}

// VerDefs returns the definition table, or nil if the object has none.
func (t *SymbolVersionTable) VerDefs() (*VerDefTable, StringTable) {
	return t.defs, t.defsStrs
}

// Requirement returns the version the dynamic symbol at sym requires, or
// nil if the object has no requirements or none matches the symbol's index.
func (t *SymbolVersionTable) Requirement(sym int) (*SymbolRequirement, error) {
	if t.needs == nil {
		return nil, nil
	}
	ver, err := t.versions.Get(sym)
	if err != nil {
		return nil, err
	}
	for vn, auxes := range t.needs.All() {
		for vna := range auxes.All() {
			if vna.Other != ver.Index() {
				continue
			}
			file, err := t.needsStrs.Get(uint64(vn.File))
			if err != nil {
				return nil, err
			}
			name, err := t.needsStrs.Get(uint64(vna.Name))
			if err != nil {
				return nil, err
			}
			return &SymbolRequirement{
				File:   file,
				Name:   name,
				Hash:   vna.Hash,
				Flags:  vna.Flags,
				Hidden: ver.IsHidden(),
			}, nil
		}
	}
	return nil, nil
}

// Definition returns the version under which the dynamic symbol at sym is
// defined, or nil if the object defines no versions or none matches.
func (t *SymbolVersionTable) Definition(sym int) (*SymbolDefinition, error) {
	if t.defs == nil {
		return nil, nil
	}
	ver, err := t.versions.Get(sym)
	if err != nil {
		return nil, err
	}
	for vd, auxes := range t.defs.All() {
		if vd.Ndx != ver.Index() {
			continue
		}
		return &SymbolDefinition{
			Hash:   vd.Hash,
			Flags:  vd.Flags,
			Hidden: ver.IsHidden(),
			aux:    auxes,
			strtab: t.defsStrs,
		}, nil
	}
	return nil, nil
}
