package inspect

import (
	"debug/elf"
	"fmt"
	"strings"

	"github.com/isseis/go-lazyelf/internal/elfparse"
)

func segmentFlags(flags elf.ProgFlag) string {
	b := []byte("   ")
	if flags&elf.PF_R != 0 {
		b[0] = 'R'
	}
	if flags&elf.PF_W != 0 {
		b[1] = 'W'
	}
	if flags&elf.PF_X != 0 {
		b[2] = 'E'
	}
	return string(b)
}

// ProgramHeaders prints the program header table followed by the
// sections each segment maps.
func (p *Printer) ProgramHeaders() error {
	phdrs := p.f.Segments()
	if phdrs.Len() == 0 {
		p.printf("\nThere are no program headers in this file.\n")
		return nil
	}

	p.heading("Program Headers:")
	table := p.newTable("Type", "Offset", "VirtAddr", "PhysAddr", "FileSiz", "MemSiz", "Flags", "Align")
	var segments []elfparse.ProgramHeader
	for phdr, err := range phdrs.All() {
		if err != nil {
			return err
		}
		segments = append(segments, phdr)
		table.Append([]string{
			strings.TrimPrefix(phdr.Type.String(), "PT_"),
			fmt.Sprintf("0x%06x", phdr.Offset),
			p.addr(phdr.Vaddr),
			p.addr(phdr.Paddr),
			fmt.Sprintf("0x%06x", phdr.Filesz),
			fmt.Sprintf("0x%06x", phdr.Memsz),
			segmentFlags(phdr.Flags),
			fmt.Sprintf("0x%x", phdr.Align),
		})
	}
	table.Render()

	if p.f.SectionHeaders().Len() == 0 {
		return nil
	}
	p.heading("Section to Segment mapping:")
	for i, phdr := range segments {
		names, err := p.segmentSections(phdr)
		if err != nil {
			return err
		}
		p.printf("  %02d     %s\n", i, strings.Join(names, " "))
	}
	return nil
}

// segmentSections lists the allocated sections whose file range lies in phdr.
func (p *Printer) segmentSections(phdr elfparse.ProgramHeader) ([]string, error) {
	var names []string
	for shdr, err := range p.f.SectionHeaders().All() {
		if err != nil {
			return nil, err
		}
		if shdr.Type == elf.SHT_NULL || !shdr.HasFlag(elf.SHF_ALLOC) && phdr.Type != elf.PT_NOTE {
			continue
		}
		if shdr.Type == elf.SHT_NOBITS {
			if shdr.Addr < phdr.Vaddr || shdr.Addr-phdr.Vaddr >= phdr.Memsz {
				continue
			}
		} else if shdr.Offset < phdr.Offset || shdr.Offset-phdr.Offset >= phdr.Filesz ||
			shdr.Size > phdr.Filesz-(shdr.Offset-phdr.Offset) {
			continue
		}
		name, err := p.sectionName(shdr)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}
