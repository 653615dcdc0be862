//go:build test

package elfparse

import (
	"debug/elf"
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/isseis/go-lazyelf/internal/elftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectNotes(t *testing.T, it *NoteIterator) []Note {
	t.Helper()
	var notes []Note
	for n, err := range it.All() {
		require.NoError(t, err)
		notes = append(notes, n)
	}
	return notes
}

func TestNoteIterator_All(t *testing.T) {
	buildID := []byte{0x77, 0x41, 0x67, 0x76, 0x9d, 0x05, 0x8a, 0x8c, 0x1b, 0x8d}
	for _, l := range layouts {
		for _, align := range []int{4, 8} {
			t.Run(l.name, func(t *testing.T) {
				d := Decoder{Order: l.order, Class: l.class}
				e := elftest.Encoder{Class: l.class, Order: l.order}
				abiDesc := e.U32(e.U32(e.U32(e.U32(nil, 0), 3), 2), 0)
				data := e.Notes(align, []elftest.Note{
					{Name: "GNU", Type: NTGNUABITag, Desc: abiDesc},
					{Name: "GNU", Type: NTGNUBuildID, Desc: buildID},
					{Name: "", Type: 0x99, Desc: []byte{1}},
				})

				notes := collectNotes(t, NewNoteIterator(d, uint64(align), data))
				want := []Note{
					{Type: NTGNUABITag, Name: "GNU", Desc: abiDesc},
					{Type: NTGNUBuildID, Name: "GNU", Desc: buildID},
					{Type: 0x99, Name: "", Desc: []byte{1}},
				}
				if diff := cmp.Diff(want, notes); diff != "" {
					t.Fatalf("notes mismatch (-want +got):\n%s", diff)
				}

				tag, ok, err := notes[0].GNUABITag(d)
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, NoteGNUABITag{OS: 0, Major: 3, Minor: 2, Subminor: 0}, tag)

				id, ok := notes[1].GNUBuildID()
				require.True(t, ok)
				assert.Equal(t, buildID, id)

				_, ok = notes[2].GNUBuildID()
				assert.False(t, ok)
				_, ok, err = notes[1].GNUABITag(d)
				require.NoError(t, err)
				assert.False(t, ok)
			})
		}
	}
}

func TestNoteIterator_Errors(t *testing.T) {
	d := Decoder{Order: binary.LittleEndian, Class: elf.ELFCLASS64}
	e := elftest.Encoder{Class: elf.ELFCLASS64, Order: binary.LittleEndian}
	valid := e.Notes(4, []elftest.Note{{Name: "GNU", Type: NTGNUBuildID, Desc: []byte{1, 2, 3, 4}}})

	t.Run("zero alignment", func(t *testing.T) {
		var gotErr error
		for _, err := range NewNoteIterator(d, 0, valid).All() {
			gotErr = err
		}
		var ae *AlignmentError
		require.ErrorAs(t, gotErr, &ae)
		assert.ErrorIs(t, gotErr, ErrUnexpectedAlignment)
	})

	t.Run("truncated descriptor", func(t *testing.T) {
		var count int
		var gotErr error
		for _, err := range NewNoteIterator(d, 4, valid[:len(valid)-2]).All() {
			count++
			gotErr = err
		}
		assert.Equal(t, 1, count)
		require.ErrorIs(t, gotErr, ErrBadOffset)
	})

	t.Run("truncated header", func(t *testing.T) {
		for n := 1; n < noteHeaderSize; n++ {
			var gotErr error
			for _, err := range NewNoteIterator(d, 4, valid[:n]).All() {
				gotErr = err
			}
			require.ErrorIs(t, gotErr, ErrBadOffset, "truncated to %d bytes", n)
		}
	})

	t.Run("short ABI tag descriptor", func(t *testing.T) {
		n := Note{Type: NTGNUABITag, Name: GNUNoteName, Desc: []byte{1, 2, 3}}
		_, ok, err := n.GNUABITag(d)
		assert.True(t, ok)
		require.ErrorIs(t, err, ErrBadOffset)
	})
}
