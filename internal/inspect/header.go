package inspect

import (
	"fmt"
	"strings"
)

// FileHeader prints the ELF file header. Counts stored out of line
// (e_shnum == 0, e_phnum == PN_XNUM) are shown with the effective value.
func (p *Printer) FileHeader() error {
	h := p.f.Header()
	shnum := fmt.Sprint(h.Shnum)
	if n := p.f.SectionHeaders().Len(); n != int(h.Shnum) {
		shnum = fmt.Sprintf("%d (%d)", h.Shnum, n)
	}
	phnum := fmt.Sprint(h.Phnum)
	if n := p.f.Segments().Len(); n != int(h.Phnum) {
		phnum = fmt.Sprintf("%d (%d)", h.Phnum, n)
	}

	p.heading("ELF Header:")
	rows := [][2]string{
		{"Class", h.Class.String()},
		{"Data", h.Data.String()},
		{"OS/ABI", h.OSABI.String()},
		{"ABI Version", fmt.Sprint(h.ABIVersion)},
		{"Type", h.Type.String()},
		{"Machine", h.Machine.String()},
		{"Version", fmt.Sprintf("0x%x", h.Version)},
		{"Entry point address", fmt.Sprintf("0x%x", h.Entry)},
		{"Start of program headers", fmt.Sprintf("%d (bytes into file)", h.Phoff)},
		{"Start of section headers", fmt.Sprintf("%d (bytes into file)", h.Shoff)},
		{"Flags", fmt.Sprintf("0x%x", h.Flags)},
		{"Size of this header", fmt.Sprintf("%d (bytes)", h.Ehsize)},
		{"Size of program headers", fmt.Sprintf("%d (bytes)", h.Phentsize)},
		{"Number of program headers", phnum},
		{"Size of section headers", fmt.Sprintf("%d (bytes)", h.Shentsize)},
		{"Number of section headers", shnum},
		{"Section header string table index", fmt.Sprint(h.Shstrndx)},
	}
	for _, row := range rows {
		label := row[0] + ":"
		p.printf("  %s%s%s\n", label, strings.Repeat(" ", max(1, 36-len(label))), row[1])
	}
	return nil
}
