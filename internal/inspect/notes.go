package inspect

import (
	"debug/elf"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/isseis/go-lazyelf/internal/elfparse"
)

var abiTagOS = map[uint32]string{
	0: "Linux",
	1: "Hurd",
	2: "Solaris",
	3: "FreeBSD",
}

// Notes prints every SHT_NOTE section or, when the file has no section
// table, every PT_NOTE segment.
func (p *Printer) Notes() error {
	if p.f.SectionHeaders().Len() > 0 {
		for shdr, err := range p.f.SectionHeaders().All() {
			if err != nil {
				return err
			}
			if shdr.Type != elf.SHT_NOTE {
				continue
			}
			name, err := p.sectionName(shdr)
			if err != nil {
				return err
			}
			notes, err := p.f.SectionDataAsNotes(shdr)
			if err != nil {
				return err
			}
			p.heading("Displaying notes found in: %s", name)
			if err := p.printNotes(notes); err != nil {
				return err
			}
		}
		return nil
	}

	for phdr, err := range p.f.Segments().All() {
		if err != nil {
			return err
		}
		if phdr.Type != elf.PT_NOTE {
			continue
		}
		notes, err := p.f.SegmentDataAsNotes(phdr)
		if err != nil {
			return err
		}
		p.heading("Displaying notes found at file offset 0x%08x with length 0x%08x:", phdr.Offset, phdr.Filesz)
		if err := p.printNotes(notes); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) printNotes(notes *elfparse.NoteIterator) error {
	table := p.newTable("Owner", "Data size", "Description")
	for note, err := range notes.All() {
		if err != nil {
			return err
		}
		desc, err := p.describeNote(note)
		if err != nil {
			return err
		}
		table.Append([]string{note.Name, fmt.Sprintf("0x%08x", len(note.Desc)), desc})
	}
	table.Render()
	return nil
}

func (p *Printer) describeNote(note elfparse.Note) (string, error) {
	if id, ok := note.GNUBuildID(); ok {
		desc := "NT_GNU_BUILD_ID  Build ID: " + hex.EncodeToString(id)
		// ld --build-id=uuid writes a random RFC 4122 UUID.
		if len(id) == 16 {
			if u, err := uuid.FromBytes(id); err == nil {
				desc += " (UUID " + u.String() + ")"
			}
		}
		return desc, nil
	}
	tag, ok, err := note.GNUABITag(p.f.Decoder())
	if err != nil {
		return "", err
	}
	if ok {
		osName, known := abiTagOS[tag.OS]
		if !known {
			osName = fmt.Sprintf("OS %d", tag.OS)
		}
		return fmt.Sprintf("NT_GNU_ABI_TAG  OS: %s, ABI: %d.%d.%d", osName, tag.Major, tag.Minor, tag.Subminor), nil
	}
	return fmt.Sprintf("type 0x%x", note.Type), nil
}
