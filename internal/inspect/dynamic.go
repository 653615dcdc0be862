package inspect

import (
	"debug/elf"
	"fmt"
	"strings"

	"github.com/isseis/go-lazyelf/internal/elfparse"
)

// dynamicStringLabels are the tags whose value is an offset into .dynstr.
var dynamicStringLabels = map[elf.DynTag]string{
	elf.DT_NEEDED:  "Shared library",
	elf.DT_SONAME:  "Library soname",
	elf.DT_RPATH:   "Library rpath",
	elf.DT_RUNPATH: "Library runpath",
}

var localDynamicTags = map[elf.DynTag]string{
	elfparse.DTRelrSz:  "RELRSZ",
	elfparse.DTRelr:    "RELR",
	elfparse.DTRelrEnt: "RELRENT",
}

func dynamicTagName(tag elf.DynTag) string {
	if name, ok := localDynamicTags[tag]; ok {
		return name
	}
	return strings.TrimPrefix(tag.String(), "DT_")
}

func isSizeTag(tag elf.DynTag) bool {
	switch tag {
	case elf.DT_PLTRELSZ, elf.DT_RELASZ, elf.DT_RELAENT, elf.DT_STRSZ, elf.DT_SYMENT,
		elf.DT_RELSZ, elf.DT_RELENT, elf.DT_INIT_ARRAYSZ, elf.DT_FINI_ARRAYSZ,
		elf.DT_PREINIT_ARRAYSZ, elfparse.DTRelrSz, elfparse.DTRelrEnt:
		return true
	}
	return false
}

// Dynamic prints the dynamic table up to and including DT_NULL.
func (p *Printer) Dynamic() error {
	common, err := p.f.FindCommonData()
	if err != nil {
		return err
	}
	if common.Dynamic == nil {
		p.printf("\nThere is no dynamic section in this file.\n")
		return nil
	}

	p.heading("Dynamic section contains %d entries:", common.Dynamic.Len())
	table := p.newTable("Tag", "Type", "Name/Value")
	for dyn, err := range common.Dynamic.All() {
		if err != nil {
			return err
		}
		value, err := p.dynamicValue(dyn, common.DynsymsStrs)
		if err != nil {
			return err
		}
		table.Append([]string{
			fmt.Sprintf("0x%016x", uint64(dyn.Tag)),
			"(" + dynamicTagName(dyn.Tag) + ")",
			value,
		})
		if dyn.Tag == elf.DT_NULL {
			break
		}
	}
	table.Render()
	return nil
}

func (p *Printer) dynamicValue(dyn elfparse.Dyn, dynstr elfparse.StringTable) (string, error) {
	if label, ok := dynamicStringLabels[dyn.Tag]; ok {
		name, err := dynstr.Get(dyn.Value())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: [%s]", label, p.opts.Palette.Name(name)), nil
	}
	switch {
	case isSizeTag(dyn.Tag):
		return fmt.Sprintf("%d (bytes)", dyn.Value()), nil
	case dyn.Tag == elf.DT_FLAGS:
		return elf.DynFlag(dyn.Value()).String(), nil
	case dyn.Tag == elf.DT_FLAGS_1:
		return elf.DynFlag1(dyn.Value()).String(), nil
	}
	return fmt.Sprintf("0x%x", dyn.Value()), nil
}
