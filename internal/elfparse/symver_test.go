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

type versionFixture struct {
	dec       Decoder
	needs     []byte
	needsStrs *elftest.Strtab
	defs      []byte
	defsStrs  *elftest.Strtab
}

// newVersionFixture encodes the version sections of a small shared object
// that requires zlib and glibc versions and defines four LIBCTF versions.
func newVersionFixture(class elf.Class, order binary.ByteOrder) versionFixture {
	e := elftest.Encoder{Class: class, Order: order}
	f := versionFixture{
		dec:       Decoder{Order: order, Class: class},
		needsStrs: elftest.NewStrtab(),
		defsStrs:  elftest.NewStrtab(),
	}
	f.needs = e.VerNeeds(f.needsStrs, []elftest.VerNeed{
		{File: "libz.so.1", Aux: []elftest.VerNeedAux{
			{Hash: 0x0827e5c0, Other: 0x0a, Name: "ZLIB_1.2.0"},
		}},
		{File: "libc.so.6", Aux: []elftest.VerNeedAux{
			{Hash: 0x0d696913, Other: 0x0c, Name: "GLIBC_2.33"},
			{Hash: 0x069691b3, Other: 0x0b, Name: "GLIBC_2.2.5"},
			{Hash: 0x06969194, Other: 0x09, Name: "GLIBC_2.3"},
		}},
	})
	f.defs = e.VerDefs(f.defsStrs, []elftest.VerDef{
		{Flags: 1, Ndx: 1, Hash: 0x0b077ab0, Names: []string{"LIBCTF_1.0"}},
		{Ndx: 2, Hash: 0x088f2f70, Names: []string{"LIBCTF_1.1"}},
		{Ndx: 3, Hash: 0x088f2f71, Names: []string{"LIBCTF_1.2", "LIBCTF_1.1"}},
		{Ndx: 4, Hash: 0x088f2f72, Names: []string{"LIBCTF_1.1", "LIBCTF_1.2"}},
	})
	return f
}

type needEntry struct {
	Need VerNeed
	Aux  []VerNeedAux
}

func collectNeeds(t *VerNeedTable) []needEntry {
	var out []needEntry
	for vn, chain := range t.All() {
		entry := needEntry{Need: vn}
		for vna := range chain.All() {
			entry.Aux = append(entry.Aux, vna)
		}
		out = append(out, entry)
	}
	return out
}

type defEntry struct {
	Def VerDef
	Aux []VerDefAux
}

func collectDefs(t *VerDefTable) []defEntry {
	var out []defEntry
	for vd, chain := range t.All() {
		entry := defEntry{Def: vd}
		for vda := range chain.All() {
			entry.Aux = append(entry.Aux, vda)
		}
		out = append(out, entry)
	}
	return out
}

func TestVerNeedTable_All(t *testing.T) {
	f := newVersionFixture(elf.ELFCLASS64, binary.LittleEndian)
	require.Len(t, f.needs, 96)

	entries := collectNeeds(NewVerNeedTable(f.dec, 2, f.needs))
	require.Len(t, entries, 2)
	assert.Equal(t, VerNeed{Cnt: 1, File: f.needsStrs.Add("libz.so.1"), Aux: 0x10, Next: 0x20}, entries[0].Need)
	assert.Equal(t, []VerNeedAux{{Hash: 0x0827e5c0, Other: 0x0a, Name: f.needsStrs.Add("ZLIB_1.2.0")}}, entries[0].Aux)

	want := []VerNeedAux{
		{Hash: 0x0d696913, Other: 0x0c, Name: f.needsStrs.Add("GLIBC_2.33"), Next: 0x10},
		{Hash: 0x069691b3, Other: 0x0b, Name: f.needsStrs.Add("GLIBC_2.2.5"), Next: 0x10},
		{Hash: 0x06969194, Other: 0x09, Name: f.needsStrs.Add("GLIBC_2.3")},
	}
	if diff := cmp.Diff(want, entries[1].Aux); diff != "" {
		t.Errorf("libc.so.6 requirements mismatch (-want +got):\n%s", diff)
	}
}

func TestVerNeedTable_Truncation(t *testing.T) {
	f := newVersionFixture(elf.ELFCLASS64, binary.LittleEndian)

	t.Run("count larger than the chain", func(t *testing.T) {
		assert.Len(t, collectNeeds(NewVerNeedTable(f.dec, 3, f.needs)), 2)
	})

	t.Run("early zero next link", func(t *testing.T) {
		broken := append([]byte(nil), f.needs...)
		binary.LittleEndian.PutUint32(broken[12:], 0)
		assert.Len(t, collectNeeds(NewVerNeedTable(f.dec, 2, broken)), 1)
	})

	t.Run("aux count larger than the chain", func(t *testing.T) {
		for _, chain := range NewVerNeedTable(f.dec, 2, f.needs).All() {
			chain.count = 7
			var n int
			for range chain.All() {
				n++
			}
			assert.LessOrEqual(t, n, 3)
		}
	})

	t.Run("truncated data", func(t *testing.T) {
		entries := collectNeeds(NewVerNeedTable(f.dec, 2, f.needs[:40]))
		require.Len(t, entries, 1)
		assert.Len(t, entries[0].Aux, 1)
	})

	t.Run("bad version ends iteration", func(t *testing.T) {
		broken := append([]byte(nil), f.needs...)
		binary.LittleEndian.PutUint16(broken[0x20:], 2)
		assert.Len(t, collectNeeds(NewVerNeedTable(f.dec, 2, broken)), 1)
	})

	t.Run("empty section", func(t *testing.T) {
		assert.Empty(t, collectNeeds(NewVerNeedTable(f.dec, 2, nil)))
	})
}

func TestVerDefTable_All(t *testing.T) {
	f := newVersionFixture(elf.ELFCLASS64, binary.LittleEndian)
	require.Len(t, f.defs, 128)
	name := f.defsStrs.Add

	want := []defEntry{
		{Def: VerDef{Flags: 1, Ndx: 1, Cnt: 1, Hash: 0x0b077ab0, Aux: 20, Next: 28}, Aux: []VerDefAux{{Name: name("LIBCTF_1.0")}}},
		{Def: VerDef{Ndx: 2, Cnt: 1, Hash: 0x088f2f70, Aux: 20, Next: 28}, Aux: []VerDefAux{{Name: name("LIBCTF_1.1")}}},
		{Def: VerDef{Ndx: 3, Cnt: 2, Hash: 0x088f2f71, Aux: 20, Next: 36}, Aux: []VerDefAux{{Name: name("LIBCTF_1.2"), Next: 8}, {Name: name("LIBCTF_1.1")}}},
		{Def: VerDef{Ndx: 4, Cnt: 2, Hash: 0x088f2f72, Aux: 20}, Aux: []VerDefAux{{Name: name("LIBCTF_1.1"), Next: 8}, {Name: name("LIBCTF_1.2")}}},
	}
	for _, count := range []uint64{4, 7} {
		got := collectDefs(NewVerDefTable(f.dec, count, f.defs))
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("count %d: definitions mismatch (-want +got):\n%s", count, diff)
		}
	}

	assert.Len(t, collectDefs(NewVerDefTable(f.dec, 2, f.defs)), 2)
}

func TestSymbolVersionTable(t *testing.T) {
	for _, l := range layouts {
		t.Run(l.name, func(t *testing.T) {
			f := newVersionFixture(l.class, l.order)
			e := elftest.Encoder{Class: l.class, Order: l.order}
			versions, err := NewVersionIndexTable(f.dec, e.Versions([]uint16{2, 3, 9, 0x0a, 0xffff, 0x8003, 1}))
			require.NoError(t, err)
			table := NewSymbolVersionTable(
				versions,
				NewVerNeedTable(f.dec, 2, f.needs), NewStringTable(f.needsStrs.Bytes()),
				NewVerDefTable(f.dec, 4, f.defs), NewStringTable(f.defsStrs.Bytes()),
			)
			assert.Equal(t, 7, table.Len())

			def, err := table.Definition(0)
			require.NoError(t, err)
			require.NotNil(t, def)
			assert.Equal(t, uint32(0x088f2f70), def.Hash)
			assert.False(t, def.Hidden)
			assert.Equal(t, []string{"LIBCTF_1.1"}, definitionNames(t, def))

			def, err = table.Definition(1)
			require.NoError(t, err)
			require.NotNil(t, def)
			assert.Equal(t, uint32(0x088f2f71), def.Hash)
			assert.Equal(t, []string{"LIBCTF_1.2", "LIBCTF_1.1"}, definitionNames(t, def))

			req, err := table.Requirement(2)
			require.NoError(t, err)
			assert.Equal(t, &SymbolRequirement{File: "libc.so.6", Name: "GLIBC_2.3", Hash: 0x06969194}, req)

			req, err = table.Requirement(3)
			require.NoError(t, err)
			assert.Equal(t, &SymbolRequirement{File: "libz.so.1", Name: "ZLIB_1.2.0", Hash: 0x0827e5c0}, req)

			// 0xffff names index 0x7fff, which nothing defines or requires.
			def, err = table.Definition(4)
			require.NoError(t, err)
			assert.Nil(t, def)
			req, err = table.Requirement(4)
			require.NoError(t, err)
			assert.Nil(t, req)

			def, err = table.Definition(5)
			require.NoError(t, err)
			require.NotNil(t, def)
			assert.True(t, def.Hidden)
			assert.Equal(t, uint32(0x088f2f71), def.Hash)

			v, err := table.VersionIndex(6)
			require.NoError(t, err)
			assert.True(t, v.IsGlobal())

			_, err = table.Definition(7)
			require.ErrorIs(t, err, ErrBadOffset)
		})
	}
}

func TestSymbolVersionTable_WithoutNeedsOrDefs(t *testing.T) {
	d := Decoder{Order: binary.BigEndian, Class: elf.ELFCLASS32}
	versions, err := NewVersionIndexTable(d, []byte{0, 2, 0, 3})
	require.NoError(t, err)
	table := NewSymbolVersionTable(versions, nil, StringTable{}, nil, StringTable{})

	def, err := table.Definition(0)
	require.NoError(t, err)
	assert.Nil(t, def)
	req, err := table.Requirement(1)
	require.NoError(t, err)
	assert.Nil(t, req)
}

func definitionNames(t *testing.T, def *SymbolDefinition) []string {
	t.Helper()
	var names []string
	for name, err := range def.Names() {
		require.NoError(t, err)
		names = append(names, name)
	}
	return names
}
