package elfparse

import (
	"debug/elf"
)

// Values missing from older debug/elf releases.
const (
	SHTRelr        elf.SectionType = 19
	SHTAndroidRel  elf.SectionType = 0x60000001
	SHTAndroidRela elf.SectionType = 0x60000002

	DTRelrSz  elf.DynTag = 35
	DTRelr    elf.DynTag = 36
	DTRelrEnt elf.DynTag = 37

	// R_*_RELATIVE types debug/elf does not define.
	rARCRelative    = 56
	rHEXRelative    = 35
	rCKCORERelative = 9
	rVERelative     = 17

	// PNXNum in e_phnum means the real count is in sh_info of section 0.
	PNXNum = 0xffff
)
