package inspect

import (
	"fmt"
	"strings"

	"github.com/isseis/go-lazyelf/internal/elfparse"
)

// vd_flags and vna_flags bits
const (
	verFlagBase = 0x1
	verFlagWeak = 0x2
)

func verFlags(flags uint16) string {
	var parts []string
	if flags&verFlagBase != 0 {
		parts = append(parts, "BASE")
	}
	if flags&verFlagWeak != 0 {
		parts = append(parts, "WEAK")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " | ")
}

// VersionInfo prints .gnu.version alongside the dynamic symbols, then the
// version definitions and requirements.
func (p *Printer) VersionInfo() error {
	versions, err := p.f.SymbolVersionTable()
	if err != nil {
		return err
	}
	if versions == nil {
		p.printf("\nNo version information found in this file.\n")
		return nil
	}
	dynsyms, dynstr, err := p.f.DynamicSymbolTable()
	if err != nil {
		return err
	}

	p.heading("Version symbols section contains %d entries:", versions.Len())
	table := p.newTable("Num", "Version", "Symbol")
	for i := range versions.Len() {
		ver, err := versions.VersionIndex(i)
		if err != nil {
			return err
		}
		label, err := versionLabel(versions, i, ver)
		if err != nil {
			return err
		}
		symName := ""
		if i < dynsyms.Len() {
			sym, err := dynsyms.Get(i)
			if err != nil {
				return err
			}
			if symName, err = dynstr.Get(uint64(sym.Name)); err != nil {
				return err
			}
		}
		table.Append([]string{fmt.Sprintf("%d:", i), label, p.opts.Palette.Name(p.opts.Demangler.Demangle(symName))})
	}
	table.Render()

	if defs, strs := versions.VerDefs(); defs != nil {
		p.heading("Version definition section:")
		for vd, auxes := range defs.All() {
			var names []string
			for aux := range auxes.All() {
				name, err := strs.Get(uint64(aux.Name))
				if err != nil {
					return err
				}
				names = append(names, name)
			}
			name, parents := "", ""
			if len(names) > 0 {
				name = names[0]
				parents = strings.Join(names[1:], " ")
			}
			p.printf("  Index: %d  Flags: %s  Cnt: %d  Hash: 0x%08x  Name: %s\n", vd.Ndx, verFlags(vd.Flags), vd.Cnt, vd.Hash, name)
			if parents != "" {
				p.printf("    Parent: %s\n", parents)
			}
		}
	}

	if needs, strs := versions.VerNeeds(); needs != nil {
		p.heading("Version needs section:")
		for vn, auxes := range needs.All() {
			file, err := strs.Get(uint64(vn.File))
			if err != nil {
				return err
			}
			p.printf("  File: %s  Cnt: %d\n", p.opts.Palette.Name(file), vn.Cnt)
			for aux := range auxes.All() {
				name, err := strs.Get(uint64(aux.Name))
				if err != nil {
					return err
				}
				p.printf("    Name: %s  Hash: 0x%08x  Flags: %s  Version: %d\n", name, aux.Hash, verFlags(aux.Flags), aux.Other)
			}
		}
	}
	return nil
}

// versionLabel renders a .gnu.version entry as "N (name)", with "h" marking hidden versions.
func versionLabel(versions *elfparse.SymbolVersionTable, sym int, ver elfparse.VersionIndex) (string, error) {
	switch {
	case ver.IsLocal():
		return "0 (*local*)", nil
	case ver.IsGlobal():
		return "1 (*global*)", nil
	}
	hidden := ""
	if ver.IsHidden() {
		hidden = "h"
	}
	req, err := versions.Requirement(sym)
	if err != nil {
		return "", err
	}
	if req != nil {
		return fmt.Sprintf("%d%s (%s)", ver.Index(), hidden, req.Name), nil
	}
	def, err := versions.Definition(sym)
	if err != nil {
		return "", err
	}
	if def != nil {
		for name, err := range def.Names() {
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d%s (%s)", ver.Index(), hidden, name), nil
		}
	}
	return fmt.Sprintf("%d%s", ver.Index(), hidden), nil
}
