package inspect

import (
	"debug/elf"
	"errors"
	"fmt"
	"strings"

	"github.com/isseis/go-lazyelf/internal/elfparse"
)

func symbolIndex(shndx elf.SectionIndex) string {
	switch shndx {
	case elf.SHN_UNDEF:
		return "UND"
	case elf.SHN_ABS:
		return "ABS"
	case elf.SHN_COMMON:
		return "COM"
	case elf.SHN_XINDEX:
		return "XIDX"
	}
	return fmt.Sprint(uint16(shndx))
}

// Symbols prints .dynsym when dynamic is set and .symtab otherwise. Dynamic
// symbols carry their GNU version: "@VER" for a required or hidden version
// and "@@VER" for the default version this object defines.
func (p *Printer) Symbols(dynamic bool) error {
	symtab, strtab, err := p.f.SymbolTable()
	section := ".symtab"
	if dynamic {
		symtab, strtab, err = p.f.DynamicSymbolTable()
		section = ".dynsym"
	}
	if err != nil {
		return err
	}
	if symtab == nil {
		p.printf("\nNo %s table in this file.\n", section)
		return nil
	}

	var versions *elfparse.SymbolVersionTable
	if dynamic {
		if versions, err = p.f.SymbolVersionTable(); err != nil {
			return err
		}
	}

	p.heading("Symbol table '%s' contains %d entries:", section, symtab.Len())
	table := p.newTable("Num", "Value", "Size", "Type", "Bind", "Vis", "Ndx", "Name")
	i := 0
	for sym, err := range symtab.All() {
		if err != nil {
			return err
		}
		name, err := strtab.Get(uint64(sym.Name))
		if err != nil {
			return err
		}
		name = p.opts.Demangler.Demangle(name)
		if versions != nil && name != "" {
			suffix, err := versionSuffix(versions, i)
			if err != nil {
				return err
			}
			name += suffix
		}
		table.Append([]string{
			fmt.Sprintf("%d:", i),
			p.addr(sym.Value),
			fmt.Sprint(sym.Size),
			strings.TrimPrefix(sym.Info.Type().String(), "STT_"),
			strings.TrimPrefix(sym.Info.Bind().String(), "STB_"),
			strings.TrimPrefix(sym.Other.Visibility().String(), "STV_"),
			symbolIndex(sym.Shndx),
			p.opts.Palette.Name(name),
		})
		i++
	}
	table.Render()
	return nil
}

// versionSuffix returns the @VER or @@VER suffix for dynamic symbol sym.
func versionSuffix(versions *elfparse.SymbolVersionTable, sym int) (string, error) {
	if sym >= versions.Len() {
		return "", nil
	}
	ver, err := versions.VersionIndex(sym)
	if err != nil {
		return "", err
	}
	if ver.IsLocal() || ver.IsGlobal() {
		return "", nil
	}
	req, err := versions.Requirement(sym)
	if err != nil {
		return "", err
	}
	if req != nil {
		return "@" + req.Name, nil
	}
	def, err := versions.Definition(sym)
	if err != nil || def == nil {
		return "", err
	}
	for name, err := range def.Names() {
		if err != nil {
			return "", err
		}
		if def.Hidden {
			return "@" + name, nil
		}
		return "@@" + name, nil
	}
	return "", nil
}

// Lookup methods
const (
	methodGnuHash    = "gnu hash"
	methodSysVHash   = "sysv hash"
	methodLinearScan = "linear scan"
)

// LookupResult is the outcome of one lookup method.
type LookupResult struct {
	Method string
	Found  bool
	Match  elfparse.SymbolMatch
}

// FindSymbol looks name up in the dynamic symbol table through the GNU hash
// table, the SysV hash table and a linear scan, in that order. Hash tables
// the file lacks are skipped. It fails with ErrHashMismatch if a hash table
// disagrees with the scan.
func FindSymbol(common *elfparse.CommonData, name string) ([]LookupResult, error) {
	if common.Dynsyms == nil {
		return nil, ErrNoDynamicSymbols
	}
	key := []byte(name)
	var results []LookupResult
	if common.GnuHash != nil {
		match, ok, err := common.GnuHash.Find(key, common.Dynsyms, common.DynsymsStrs)
		if err != nil {
			return nil, fmt.Errorf("gnu hash: %w", err)
		}
		results = append(results, LookupResult{Method: methodGnuHash, Found: ok, Match: match})
	}
	if common.SysVHash != nil {
		match, ok, err := common.SysVHash.Find(key, common.Dynsyms, common.DynsymsStrs)
		if err != nil {
			return nil, fmt.Errorf("sysv hash: %w", err)
		}
		results = append(results, LookupResult{Method: methodSysVHash, Found: ok, Match: match})
	}
	scan, err := linearScan(common.Dynsyms, common.DynsymsStrs, key)
	if err != nil {
		return nil, err
	}
	results = append(results, scan)

	for _, r := range results[:len(results)-1] {
		want := scan.Found
		// The GNU table only covers symbols from symoffset on.
		if r.Method == methodGnuHash && scan.Match.Index < int(common.GnuHash.Header.SymOffset) {
			want = false
		}
		if r.Found != want || r.Found && r.Match.Index != scan.Match.Index {
			return results, fmt.Errorf("%w: %s for %q", ErrHashMismatch, r.Method, name)
		}
	}
	return results, nil
}

func linearScan(symtab *elfparse.SymbolTable, strtab elfparse.StringTable, name []byte) (LookupResult, error) {
	result := LookupResult{Method: methodLinearScan}
	i := 0
	for sym, err := range symtab.All() {
		if err != nil {
			return result, err
		}
		if i > 0 {
			got, err := strtab.Raw(uint64(sym.Name))
			if err != nil {
				return result, err
			}
			if string(got) == string(name) {
				result.Found = true
				result.Match = elfparse.SymbolMatch{Index: i, Symbol: sym}
				return result, nil
			}
		}
		i++
	}
	return result, nil
}

// Lookup prints the result of FindSymbol for name. It fails with
// ErrSymbolNotFound when no method finds the symbol.
func (p *Printer) Lookup(name string) error {
	common, err := p.f.FindCommonData()
	if err != nil {
		return err
	}
	results, err := FindSymbol(common, name)
	if err != nil && !errors.Is(err, ErrHashMismatch) {
		return err
	}

	p.heading("Lookup of '%s':", name)
	for _, r := range results {
		if !r.Found {
			p.printf("  %-12s not found\n", r.Method+":")
			continue
		}
		p.printf("  %-12s index %d value 0x%x size %d\n", r.Method+":", r.Match.Index, r.Match.Symbol.Value, r.Match.Symbol.Size)
	}
	if err != nil {
		return err
	}
	if !results[len(results)-1].Found {
		return fmt.Errorf("%w: %s", ErrSymbolNotFound, name)
	}
	return nil
}
