package inspect

import (
	"debug/elf"
	"fmt"
	"iter"

	"github.com/isseis/go-lazyelf/internal/elfparse"
)

// relocTypeName names r_type for the machine, falling back to the number.
func relocTypeName(machine elf.Machine, typ uint32) string {
	switch machine {
	case elf.EM_X86_64:
		return elf.R_X86_64(typ).String()
	case elf.EM_386:
		return elf.R_386(typ).String()
	case elf.EM_AARCH64:
		return elf.R_AARCH64(typ).String()
	case elf.EM_ARM:
		return elf.R_ARM(typ).String()
	case elf.EM_RISCV:
		return elf.R_RISCV(typ).String()
	case elf.EM_PPC64:
		return elf.R_PPC64(typ).String()
	case elf.EM_PPC:
		return elf.R_PPC(typ).String()
	case elf.EM_S390:
		return elf.R_390(typ).String()
	case elf.EM_MIPS:
		return elf.R_MIPS(typ).String()
	case elf.EM_LOONGARCH:
		return elf.R_LARCH(typ).String()
	case elf.EM_SPARCV9, elf.EM_SPARC:
		return elf.R_SPARC(typ).String()
	}
	return fmt.Sprintf("0x%x", typ)
}

// relocation is the common shape of every relocation encoding.
type relocation struct {
	offset    uint64
	sym       uint32
	typ       uint32
	addend    int64
	hasAddend bool
}

func relocationsOf[T any](seq iter.Seq2[T, error], conv func(T) relocation) iter.Seq2[relocation, error] {
	return func(yield func(relocation, error) bool) {
		for r, err := range seq {
			if !yield(conv(r), err) || err != nil {
				return
			}
		}
	}
}

func fromRel(r elfparse.Rel) relocation {
	return relocation{offset: r.Offset, sym: r.Sym, typ: r.Type}
}

func fromRela(r elfparse.Rela) relocation {
	return relocation{offset: r.Offset, sym: r.Sym, typ: r.Type, addend: r.Addend, hasAddend: true}
}

// relocationSeq decodes a relocation section of any supported encoding. ok
// is false for sections that hold no relocations.
func (p *Printer) relocationSeq(shdr elfparse.SectionHeader) (seq iter.Seq2[relocation, error], ok bool, err error) {
	switch shdr.Type {
	case elf.SHT_REL:
		rels, err := p.f.SectionDataAsRels(shdr)
		if err != nil {
			return nil, true, err
		}
		return relocationsOf(rels.All(), fromRel), true, nil
	case elf.SHT_RELA:
		relas, err := p.f.SectionDataAsRelas(shdr)
		if err != nil {
			return nil, true, err
		}
		return relocationsOf(relas.All(), fromRela), true, nil
	case elfparse.SHTRelr:
		relr, err := p.f.SectionDataAsRelr(shdr)
		if err != nil {
			return nil, true, err
		}
		return relocationsOf(relr.All(), fromRel), true, nil
	case elfparse.SHTAndroidRel:
		packed, err := p.f.SectionDataAsAndroidRels(shdr)
		if err != nil {
			return nil, true, err
		}
		return relocationsOf(packed.Rels(), fromRel), true, nil
	case elfparse.SHTAndroidRela:
		packed, err := p.f.SectionDataAsAndroidRelas(shdr)
		if err != nil {
			return nil, true, err
		}
		return relocationsOf(packed.Relas(), fromRela), true, nil
	}
	return nil, false, nil
}

// linkedSymbols returns the symbol table named by a relocation section's
// sh_link, or nil when sh_link is zero.
func (p *Printer) linkedSymbols(shdr elfparse.SectionHeader) (*elfparse.SymbolTable, elfparse.StringTable, error) {
	if shdr.Link == 0 {
		return nil, elfparse.StringTable{}, nil
	}
	symShdr, err := p.f.SectionHeaders().Get(int(shdr.Link))
	if err != nil {
		return nil, elfparse.StringTable{}, err
	}
	strShdr, err := p.f.SectionHeaders().Get(int(symShdr.Link))
	if err != nil {
		return nil, elfparse.StringTable{}, err
	}
	return p.f.SectionDataAsSymbolTable(symShdr, strShdr)
}

// Relocations prints every REL, RELA, RELR and Android packed relocation section.
func (p *Printer) Relocations() error {
	machine := p.f.Header().Machine
	found := false
	for shdr, err := range p.f.SectionHeaders().All() {
		if err != nil {
			return err
		}
		seq, ok, seqErr := p.relocationSeq(shdr)
		if !ok {
			continue
		}
		found = true
		name, err := p.sectionName(shdr)
		if err != nil {
			return err
		}
		if seqErr != nil {
			return fmt.Errorf("relocation section %s: %w", name, seqErr)
		}

		symtab, strtab, err := p.linkedSymbols(shdr)
		if err != nil {
			return err
		}
		p.heading("Relocation section '%s' at offset 0x%x:", name, shdr.Offset)
		table := p.newTable("Offset", "Type", "Sym", "Symbol", "Addend")
		listed, truncated := 0, false
		for r, err := range seq {
			if listed == p.opts.MaxRelocations {
				truncated = true
				break
			}
			listed++
			if err != nil {
				return fmt.Errorf("relocation section %s: %w", name, err)
			}
			symName := ""
			if r.sym != 0 && symtab != nil {
				sym, err := symtab.Get(int(r.sym))
				if err != nil {
					return err
				}
				if symName, err = strtab.Get(uint64(sym.Name)); err != nil {
					return err
				}
				symName = p.opts.Demangler.Demangle(symName)
			}
			addend := ""
			if r.hasAddend {
				addend = fmt.Sprintf("%+#x", r.addend)
			}
			table.Append([]string{
				p.addr(r.offset),
				relocTypeName(machine, r.typ),
				fmt.Sprint(r.sym),
				p.opts.Palette.Name(symName),
				addend,
			})
		}
		table.Render()
		if truncated {
			p.printf("  [listing stopped after %d entries]\n", listed)
		}
	}
	if !found {
		p.printf("\nThere are no relocations in this file.\n")
	}
	return nil
}
