//go:build test

package inspect

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"

	"github.com/isseis/go-lazyelf/internal/elfparse"
	"github.com/isseis/go-lazyelf/internal/elftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinter_DisassembleEntryNotMapped(t *testing.T) {
	code := []byte{0x55, 0x48, 0x89, 0xe5, 0x90, 0x5d, 0xc3, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90}

	tests := []struct {
		name  string
		entry uint64
		text  func(img *elftest.Image) elftest.Section
	}{
		{
			name:  "entry inside compressed text",
			entry: 0x1020,
			text: func(img *elftest.Image) elftest.Section {
				return elftest.Section{
					Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR | elf.SHF_COMPRESSED,
					Addr: 0x1000, Addralign: 8,
					Data: append(img.CompressionHeader(elf.COMPRESS_ZLIB, 0x40, 1), code...),
				}
			},
		},
		{
			name:  "entry past text",
			entry: 0x1010,
			text: func(_ *elftest.Image) elftest.Section {
				return elftest.Section{
					Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR,
					Addr: 0x1000, Addralign: 16, Data: code,
				}
			},
		},
		{
			name:  "entry in data section",
			entry: 0x1000,
			text: func(_ *elftest.Image) elftest.Section {
				return elftest.Section{
					Name: ".data", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE,
					Addr: 0x1000, Addralign: 16, Data: code,
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := elftest.New(elf.ELFCLASS64, binary.LittleEndian)
			img.Entry = tt.entry
			img.AddSection(tt.text(img))
			f, err := elfparse.Open(img.Build())
			require.NoError(t, err)

			var buf bytes.Buffer
			err = NewPrinter(&buf, f, Options{}).Disassemble(4)
			assert.ErrorIs(t, err, ErrEntryNotMapped)
			assert.Empty(t, buf.String())
		})
	}
}

func TestCodeAt(t *testing.T) {
	data := []byte{0x90, 0xc3}

	got, err := codeAt(data, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xc3}, got)

	_, err = codeAt(data, 2)
	assert.ErrorIs(t, err, ErrEntryNotMapped)

	_, err = codeAt(nil, 0)
	assert.ErrorIs(t, err, ErrEntryNotMapped)
}
