package inspect

import (
	"bytes"
	"debug/elf"
	"fmt"
	"io"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/isseis/go-lazyelf/internal/elfparse"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// sectionFlagLetters follows the readelf key to flags.
var sectionFlagLetters = []struct {
	flag   elf.SectionFlag
	letter byte
}{
	{elf.SHF_WRITE, 'W'},
	{elf.SHF_ALLOC, 'A'},
	{elf.SHF_EXECINSTR, 'X'},
	{elf.SHF_MERGE, 'M'},
	{elf.SHF_STRINGS, 'S'},
	{elf.SHF_INFO_LINK, 'I'},
	{elf.SHF_LINK_ORDER, 'L'},
	{elf.SHF_OS_NONCONFORMING, 'O'},
	{elf.SHF_GROUP, 'G'},
	{elf.SHF_TLS, 'T'},
	{elf.SHF_COMPRESSED, 'C'},
}

var localSectionTypes = map[elf.SectionType]string{
	elfparse.SHTRelr:        "RELR",
	elfparse.SHTAndroidRel:  "ANDROID_REL",
	elfparse.SHTAndroidRela: "ANDROID_RELA",
}

func sectionTypeName(t elf.SectionType) string {
	if name, ok := localSectionTypes[t]; ok {
		return name
	}
	return strings.TrimPrefix(t.String(), "SHT_")
}

func sectionFlags(flags uint64) string {
	var b strings.Builder
	for _, f := range sectionFlagLetters {
		if flags&uint64(f.flag) != 0 {
			b.WriteByte(f.letter)
		}
	}
	return b.String()
}

// SectionHeaders prints the section header table. With Options.Digest each
// section with file contents also gets the xxhash64 of its raw bytes.
func (p *Printer) SectionHeaders() error {
	shdrs := p.f.SectionHeaders()
	if shdrs.Len() == 0 {
		p.printf("\nThere are no sections in this file.\n")
		return nil
	}

	p.heading("Section Headers:")
	header := []string{"[Nr]", "Name", "Type", "Address", "Offset", "Size", "EntSize", "Flags", "Link", "Info", "Align"}
	if p.opts.Digest {
		header = append(header, "XXH64")
	}
	table := p.newTable(header...)
	i := 0
	for shdr, err := range shdrs.All() {
		if err != nil {
			return err
		}
		name, err := p.sectionName(shdr)
		if err != nil {
			return err
		}
		row := []string{
			fmt.Sprintf("[%2d]", i),
			p.opts.Palette.Name(name),
			sectionTypeName(shdr.Type),
			p.addr(shdr.Addr),
			fmt.Sprintf("%08x", shdr.Offset),
			fmt.Sprintf("%016x", shdr.Size),
			fmt.Sprintf("%016x", shdr.Entsize),
			sectionFlags(shdr.Flags),
			fmt.Sprint(shdr.Link),
			fmt.Sprint(shdr.Info),
			fmt.Sprint(shdr.Addralign),
		}
		if p.opts.Digest {
			digest, err := p.sectionDigest(shdr)
			if err != nil {
				return err
			}
			row = append(row, digest)
		}
		table.Append(row)
		i++
	}
	table.Render()
	return nil
}

func (p *Printer) sectionDigest(shdr elfparse.SectionHeader) (string, error) {
	if shdr.Type == elf.SHT_NOBITS || shdr.Type == elf.SHT_NULL {
		return "-", nil
	}
	start, end, err := shdr.DataRange()
	if err != nil {
		return "", err
	}
	data, err := p.f.Source().ReadBytes(start, end)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}

// HexDump prints the contents of the named section. SHF_COMPRESSED sections
// are inflated first.
func (p *Printer) HexDump(name string) error {
	shdr, err := p.f.SectionHeaderByName(name)
	if err != nil {
		return err
	}
	if shdr == nil {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, name)
	}
	data, chdr, err := p.f.SectionData(*shdr)
	if err != nil {
		return err
	}

	p.heading("Hex dump of section '%s':", name)
	if chdr != nil {
		if data, err = decompress(*chdr, data); err != nil {
			return fmt.Errorf("section %s: %w", name, err)
		}
		p.printf("  [decompressed %s, %d bytes]\n", chdr.Type, chdr.Size)
	}
	if len(data) == 0 {
		p.printf("  (no data)\n")
		return nil
	}
	p.hexDump(shdr.Addr, data)
	return nil
}

// hexDump writes data sixteen bytes per line as four groups of four bytes
// followed by the printable characters.
func (p *Printer) hexDump(addr uint64, data []byte) {
	for off := 0; off < len(data); off += 16 {
		line := data[off:min(off+16, len(data))]
		var hexPart, text strings.Builder
		for i := range 16 {
			if i < len(line) {
				fmt.Fprintf(&hexPart, "%02x", line[i])
			} else {
				hexPart.WriteString("  ")
			}
			if i%4 == 3 {
				hexPart.WriteByte(' ')
			}
		}
		for _, c := range line {
			if c >= 0x20 && c < 0x7f {
				text.WriteByte(c)
			} else {
				text.WriteByte('.')
			}
		}
		p.printf("  %s %s%s\n", p.opts.Palette.Address(fmt.Sprintf("0x%08x", addr+uint64(off))), hexPart.String(), text.String())
	}
}

// maxDecompressedSize bounds the memory a hex dump may inflate into.
const maxDecompressedSize = 1 << 30

// decompress inflates a SHF_COMPRESSED payload and checks it against ch_size.
func decompress(chdr elfparse.CompressionHeader, payload []byte) ([]byte, error) {
	if chdr.Size > maxDecompressedSize {
		return nil, fmt.Errorf("%w: ch_size %d exceeds limit %d", ErrDecompressedSize, chdr.Size, uint64(maxDecompressedSize))
	}
	var out []byte
	switch chdr.Type {
	case elf.COMPRESS_ZLIB:
		r, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
		defer r.Close()
		// Read one byte past ch_size to detect oversized streams.
		out, err = io.ReadAll(io.LimitReader(r, int64(chdr.Size)+1))
		if err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
	case elf.COMPRESS_ZSTD:
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(chdr.Size+1))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		if out, err = dec.DecodeAll(payload, nil); err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
	default:
		return nil, &UnsupportedCompressionError{Type: chdr.Type}
	}
	if uint64(len(out)) != chdr.Size {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDecompressedSize, len(out), chdr.Size)
	}
	return out, nil
}
