package elfparse

import (
	"debug/elf"
)

// CommonData collects the tables most consumers need. Fields are nil or
// empty when the file lacks the corresponding section.
type CommonData struct {
	Symtab     *SymbolTable
	SymtabStrs StringTable

	Dynsyms     *SymbolTable
	DynsymsStrs StringTable

	// Dynamic comes from the SHT_DYNAMIC section or, failing that, the PT_DYNAMIC segment.
	Dynamic *DynTable

	SysVHash *SysVHashTable
	GnuHash  *GnuHashTable
}

// FindCommonData locates the symbol tables, dynamic table and hash tables
// with a single pass over the section headers.
func (f *File) FindCommonData() (*CommonData, error) {
	result := &CommonData{}
	for shdr, err := range f.shdrs.All() {
		if err != nil {
			return nil, err
		}
		switch shdr.Type {
		case elf.SHT_SYMTAB, elf.SHT_DYNSYM:
			strtabShdr, err := f.shdrs.Get(int(shdr.Link))
			if err != nil {
				return nil, err
			}
			symtab, strtab, err := f.SectionDataAsSymbolTable(shdr, strtabShdr)
			if err != nil {
				return nil, err
			}
			if shdr.Type == elf.SHT_SYMTAB {
				result.Symtab, result.SymtabStrs = symtab, strtab
			} else {
				result.Dynsyms, result.DynsymsStrs = symtab, strtab
			}
		case elf.SHT_DYNAMIC:
			buf, err := f.rangeOf(shdr.DataRange())
			if err != nil {
				return nil, err
			}
			if result.Dynamic, err = NewDynTable(f.dec, buf); err != nil {
				return nil, err
			}
		case elf.SHT_HASH:
			buf, err := f.rangeOf(shdr.DataRange())
			if err != nil {
				return nil, err
			}
			if result.SysVHash, err = NewSysVHashTable(f.dec, buf); err != nil {
				return nil, err
			}
		case elf.SHT_GNU_HASH:
			buf, err := f.rangeOf(shdr.DataRange())
			if err != nil {
				return nil, err
			}
			if result.GnuHash, err = NewGnuHashTable(f.dec, buf); err != nil {
				return nil, err
			}
		}
	}

	if result.Dynamic == nil {
		dyn, err := f.dynamicFromSegments()
		if err != nil {
			return nil, err
		}
		result.Dynamic = dyn
	}
	return result, nil
}
