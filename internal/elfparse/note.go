package elfparse

import (
	"iter"
	"unicode/utf8"
)

// GNU note types
const (
	NTGNUABITag  = 1
	NTGNUBuildID = 3
)

// GNUNoteName is the owner name of GNU notes.
const GNUNoteName = "GNU"

const noteHeaderSize = 12

// Note is one entry of a note section or segment. Desc aliases the file bytes.
type Note struct {
	Type uint64
	Name string
	Desc []byte
}

// NoteGNUABITag is the descriptor of an NT_GNU_ABI_TAG note.
type NoteGNUABITag struct {
	OS       uint32
	Major    uint32
	Minor    uint32
	Subminor uint32
}

// NoteIterator walks the notes packed in a byte range.
type NoteIterator struct {
	dec   Decoder
	align uint64
	data  []byte
}

// NewNoteIterator returns an iterator over data, whose entries are padded to align.
func NewNoteIterator(d Decoder, align uint64, data []byte) *NoteIterator {
	return &NoteIterator{dec: d, align: align, data: data}
}

// All yields each note in order. A malformed note yields its error and ends iteration.
func (it *NoteIterator) All() iter.Seq2[Note, error] {
	return func(yield func(Note, error) bool) {
		off := 0
		for off < len(it.data) {
			n, err := parseNote(it.dec, it.align, it.data, &off)
			if !yield(n, err) || err != nil {
				return
			}
		}
	}
}

// padTo rounds *off up to a multiple of align.
func padTo(off *int, align uint64) error {
	a, err := toInt(align)
	if err != nil {
		return err
	}
	if rem := *off % a; rem > 0 {
		next, err := addU64(uint64(*off), uint64(a-rem))
		if err != nil {
			return err
		}
		if *off, err = toInt(next); err != nil {
			return err
		}
	}
	return nil
}

// parseNote decodes one note. Headers are 32-bit in both classes; gcc and
// clang emit them that way for ELF64 too.
func parseNote(d Decoder, align uint64, data []byte, off *int) (Note, error) {
	if align == 0 {
		return Note{}, &AlignmentError{Align: align}
	}
	namesz, err := d.U32(data, off)
	if err != nil {
		return Note{}, err
	}
	descsz, err := d.U32(data, off)
	if err != nil {
		return Note{}, err
	}
	typ, err := d.U32(data, off)
	if err != nil {
		return Note{}, err
	}

	nameStart := uint64(*off)
	nameLen := uint64(namesz)
	if nameLen > 0 {
		// drop the trailing NUL
		nameLen--
	}
	nameBuf, err := subslice(data, nameStart, nameStart+nameLen)
	if err != nil {
		return Note{}, err
	}
	if !utf8.Valid(nameBuf) {
		return Note{}, &StringError{Offset: nameStart, Reason: "invalid UTF-8 in note name"}
	}
	end, err := addU64(nameStart, uint64(namesz))
	if err != nil {
		return Note{}, err
	}
	if *off, err = toInt(end); err != nil {
		return Note{}, err
	}
	if err := padTo(off, align); err != nil {
		return Note{}, err
	}

	descStart := uint64(*off)
	descEnd, err := addU64(descStart, uint64(descsz))
	if err != nil {
		return Note{}, err
	}
	desc, err := subslice(data, descStart, descEnd)
	if err != nil {
		return Note{}, err
	}
	if *off, err = toInt(descEnd); err != nil {
		return Note{}, err
	}
	if err := padTo(off, align); err != nil {
		return Note{}, err
	}
	return Note{Type: uint64(typ), Name: string(nameBuf), Desc: desc}, nil
}

// GNUABITag decodes the note as NT_GNU_ABI_TAG. ok is false for other notes.
func (n Note) GNUABITag(d Decoder) (tag NoteGNUABITag, ok bool, err error) {
	if n.Name != GNUNoteName || n.Type != NTGNUABITag {
		return NoteGNUABITag{}, false, nil
	}
	off := 0
	for _, field := range []*uint32{&tag.OS, &tag.Major, &tag.Minor, &tag.Subminor} {
		if *field, err = d.U32(n.Desc, &off); err != nil {
			return NoteGNUABITag{}, true, err
		}
	}
	return tag, true, nil
}

// GNUBuildID returns the build id bytes if the note is NT_GNU_BUILD_ID.
func (n Note) GNUBuildID() ([]byte, bool) {
	if n.Name != GNUNoteName || n.Type != NTGNUBuildID {
		return nil, false
	}
	return n.Desc, true
}
