//go:build test

package elfparse

import (
	"debug/elf"
	"encoding/binary"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/isseis/go-lazyelf/internal/elftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSLEB128(t *testing.T) {
	tests := []struct {
		name  string
		value int64
		width uint
	}{
		{name: "zero", value: 0, width: 64},
		{name: "one", value: 1, width: 64},
		{name: "minus one", value: -1, width: 64},
		{name: "largest single byte", value: 63, width: 64},
		{name: "smallest two byte", value: 64, width: 64},
		{name: "negative single byte", value: -64, width: 64},
		{name: "negative two byte", value: -65, width: 64},
		{name: "int32 max", value: math.MaxInt32, width: 32},
		{name: "int32 min", value: math.MinInt32, width: 32},
		{name: "int64 max", value: math.MaxInt64, width: 64},
		{name: "int64 min", value: math.MinInt64, width: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := elftest.SLEB128([]byte{0xaa}, tt.value)
			off := 1
			got, err := readSLEB128(buf, &off, tt.width)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
			assert.Equal(t, len(buf), off)
		})
	}
}

func TestReadSLEB128_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		width   uint
		wantErr error
	}{
		{name: "empty", data: nil, width: 64, wantErr: ErrBadOffset},
		{name: "unterminated", data: []byte{0x80, 0x80}, width: 64, wantErr: ErrBadOffset},
		{name: "too wide for 32 bits", data: elftest.SLEB128(nil, math.MaxInt32+1), width: 32, wantErr: ErrIntegerOverflow},
		{name: "too many bytes", data: append(elftest.SLEB128(nil, math.MaxInt64)[:9], 0x80, 0x80, 0x00), width: 64, wantErr: ErrIntegerOverflow},
		{name: "bit 64 set", data: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x02}, width: 64, wantErr: ErrIntegerOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off := 0
			_, err := readSLEB128(tt.data, &off, tt.width)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, off)
		})
	}
}

func collectAndroidRelas(t *testing.T, it *AndroidRelocIterator) ([]Rela, error) {
	t.Helper()
	var out []Rela
	for r, err := range it.Relas() {
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

func TestAndroidRelocIterator_Rela(t *testing.T) {
	d := Decoder{Order: binary.LittleEndian, Class: elf.ELFCLASS64}
	data := append([]byte("APS2"), elftest.SLEB128(nil,
		4, 0x1000, // count, initial offset
		2, aps2GroupedByInfo|aps2GroupedByOffsetDelta|aps2GroupedByAddend|aps2GroupHasAddend, 8, 8, 16,
		1, aps2GroupHasAddend, 0x100, 1<<32|1, -24,
		1, aps2GroupedByInfo, 8, 8,
	)...)

	it, err := NewAndroidRelaIterator(d, data)
	require.NoError(t, err)
	assert.Equal(t, int64(4), it.Len())

	got, err := collectAndroidRelas(t, it)
	require.NoError(t, err)
	want := []Rela{
		{Offset: 0x1008, Sym: 0, Type: 8, Addend: 16},
		{Offset: 0x1010, Sym: 0, Type: 8, Addend: 16},
		{Offset: 0x1110, Sym: 1, Type: 1, Addend: -8},
		{Offset: 0x1118, Sym: 0, Type: 8, Addend: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("relocations mismatch (-want +got):\n%s", diff)
	}

	_, err = collectAndroidRelas(t, mustAndroidRel(t, d, data))
	require.ErrorIs(t, err, ErrUnexpectedAddend)
}

func mustAndroidRel(t *testing.T, d Decoder, data []byte) *AndroidRelocIterator {
	t.Helper()
	it, err := NewAndroidRelIterator(d, data)
	require.NoError(t, err)
	return it
}

func TestAndroidRelocIterator_Rel32(t *testing.T) {
	d := Decoder{Order: binary.BigEndian, Class: elf.ELFCLASS32}
	data := append([]byte("APS2"), elftest.SLEB128(nil,
		3, 0,
		2, aps2GroupedByInfo|aps2GroupedByOffsetDelta, 4, 0x17,
		1, 0, 0x10, 0x215,
	)...)

	var got []Rel
	for r, err := range mustAndroidRel(t, d, data).Rels() {
		require.NoError(t, err)
		got = append(got, r)
	}
	assert.Equal(t, []Rel{
		{Offset: 4, Sym: 0, Type: 0x17},
		{Offset: 8, Sym: 0, Type: 0x17},
		{Offset: 0x18, Sym: 2, Type: 0x15},
	}, got)
}

func TestAndroidRelocIterator_Errors(t *testing.T) {
	d := Decoder{Order: binary.LittleEndian, Class: elf.ELFCLASS32}

	t.Run("bad magic", func(t *testing.T) {
		_, err := NewAndroidRelaIterator(d, []byte("APS1\x00\x00"))
		require.ErrorIs(t, err, ErrBadMagic)
	})

	t.Run("too short for magic", func(t *testing.T) {
		_, err := NewAndroidRelaIterator(d, []byte("AP"))
		require.ErrorIs(t, err, ErrBadOffset)
	})

	t.Run("missing initial offset", func(t *testing.T) {
		_, err := NewAndroidRelaIterator(d, append([]byte("APS2"), elftest.SLEB128(nil, 1)...))
		require.ErrorIs(t, err, ErrBadOffset)
	})

	t.Run("count exceeds stream", func(t *testing.T) {
		data := append([]byte("APS2"), elftest.SLEB128(nil, 5, 0, 1, aps2GroupedByInfo, 8, 4)...)
		got, err := collectAndroidRelas(t, mustAndroidRel(t, d, data))
		require.ErrorIs(t, err, ErrBadOffset)
		assert.Len(t, got, 1)
	})

	t.Run("32-bit value overflow", func(t *testing.T) {
		data := append([]byte("APS2"), elftest.SLEB128(nil, 1, 1<<40)...)
		_, err := NewAndroidRelaIterator(d, data)
		require.ErrorIs(t, err, ErrIntegerOverflow)
	})
}
