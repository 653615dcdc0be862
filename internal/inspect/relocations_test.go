//go:build test

package inspect

import (
	"debug/elf"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/isseis/go-lazyelf/internal/elfparse"
	"github.com/isseis/go-lazyelf/internal/elftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// packedRelativeImage holds one APS2 section whose single group shares
// offset delta and info, so each declared entry takes no bytes.
func packedRelativeImage(t *testing.T, count int64) *elfparse.File {
	t.Helper()
	const groupedByInfoAndDelta = 1 | 2
	data := append([]byte("APS2"), elftest.SLEB128(nil,
		count, 0, // count, initial offset
		count, groupedByInfoAndDelta, 8, int64(elf.R_X86_64_RELATIVE),
	)...)

	img := elftest.New(elf.ELFCLASS64, binary.LittleEndian)
	img.AddSection(elftest.Section{
		Name: ".rela.dyn", Type: elfparse.SHTAndroidRela, Flags: elf.SHF_ALLOC, Addralign: 1, Data: data,
	})
	f, err := elfparse.Open(img.Build())
	require.NoError(t, err)
	return f
}

func TestPrinter_RelocationsLimit(t *testing.T) {
	tests := []struct {
		name      string
		count     int64
		limit     int
		wantRows  int
		truncated bool
	}{
		{name: "declared count far beyond limit", count: 1 << 62, limit: 3, wantRows: 3, truncated: true},
		{name: "count equal to limit", count: 3, limit: 3, wantRows: 3},
		{name: "count below limit", count: 2, limit: 3, wantRows: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := packedRelativeImage(t, tt.count)
			out := render(t, f, Options{MaxRelocations: tt.limit}, (*Printer).Relocations)

			assert.Equal(t, tt.wantRows, strings.Count(out, "R_X86_64_RELATIVE"))
			assert.Equal(t, tt.truncated, strings.Contains(out, "[listing stopped after"))
			if tt.wantRows == 3 {
				assert.Contains(t, out, "0000000000000018")
				assert.NotContains(t, out, "0000000000000020")
			}
		})
	}
}

func TestNewPrinter_DefaultRelocationLimit(t *testing.T) {
	_, f := sharedObject(t, elf.ELFCLASS64, binary.LittleEndian)
	assert.Equal(t, DefaultMaxRelocations, NewPrinter(nil, f, Options{}).opts.MaxRelocations)
	assert.Equal(t, 7, NewPrinter(nil, f, Options{MaxRelocations: 7}).opts.MaxRelocations)
}
