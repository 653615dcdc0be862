package elfparse

import (
	"debug/elf"
)

// CompressionHeader describes the contents of an SHF_COMPRESSED section.
// This package does not decompress; callers pass the header and the
// compressed bytes to a codec of their choice.
type CompressionHeader struct {
	Type      elf.CompressionType
	Size      uint64
	Addralign uint64
}

func compressionHeaderSize(class elf.Class) int {
	if class == elf.ELFCLASS64 {
		return 24
	}
	return 12
}

func parseCompressionHeader(d Decoder, data []byte, off *int) (CompressionHeader, error) {
	typ, err := d.U32(data, off)
	if err != nil {
		return CompressionHeader{}, err
	}
	if d.Is64() {
		// ch_reserved
		if _, err := d.U32(data, off); err != nil {
			return CompressionHeader{}, err
		}
	}
	size, err := d.Word(data, off)
	if err != nil {
		return CompressionHeader{}, err
	}
	align, err := d.Word(data, off)
	if err != nil {
		return CompressionHeader{}, err
	}
	return CompressionHeader{Type: elf.CompressionType(typ), Size: size, Addralign: align}, nil
}
