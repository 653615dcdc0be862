package inspect

import (
	"debug/elf"
	"fmt"
	"strings"

	"github.com/isseis/go-lazyelf/internal/elfparse"
	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

const (
	// x86 decoding modes by ELF class.
	x86_32BitMode = 32
	x86_64BitMode = 64

	arm64InstLen = 4
)

// DecodedInstruction is one decoded machine instruction.
type DecodedInstruction struct {
	// Addr is the instruction's virtual address.
	Addr uint64

	// Len is the instruction length in bytes.
	Len int

	// Text is the instruction in GNU assembler syntax.
	Text string

	// Raw contains the raw instruction bytes.
	Raw []byte
}

// MachineCodeDecoder decodes machine code for one architecture.
type MachineCodeDecoder interface {
	// Decode decodes a single instruction at the start of code, which is
	// mapped at addr.
	Decode(code []byte, addr uint64) (DecodedInstruction, error)

	// MinLen is how far to skip past bytes that do not decode.
	MinLen() int
}

// X86Decoder implements MachineCodeDecoder for 32 and 64 bit x86.
type X86Decoder struct {
	mode int
}

// NewX86Decoder creates a decoder for the given mode, 32 or 64.
func NewX86Decoder(mode int) *X86Decoder {
	return &X86Decoder{mode: mode}
}

// Decode decodes a single x86 instruction.
func (d *X86Decoder) Decode(code []byte, addr uint64) (DecodedInstruction, error) {
	inst, err := x86asm.Decode(code, d.mode)
	if err != nil {
		return DecodedInstruction{}, err
	}
	return DecodedInstruction{
		Addr: addr,
		Len:  inst.Len,
		Text: x86asm.GNUSyntax(inst, addr, nil),
		Raw:  code[:inst.Len],
	}, nil
}

// MinLen implements MachineCodeDecoder.
func (d *X86Decoder) MinLen() int { return 1 }

// ARM64Decoder implements MachineCodeDecoder for AArch64.
type ARM64Decoder struct{}

// NewARM64Decoder creates a new ARM64Decoder.
func NewARM64Decoder() *ARM64Decoder {
	return &ARM64Decoder{}
}

// Decode decodes a single AArch64 instruction.
func (d *ARM64Decoder) Decode(code []byte, addr uint64) (DecodedInstruction, error) {
	inst, err := arm64asm.Decode(code)
	if err != nil {
		return DecodedInstruction{}, err
	}
	return DecodedInstruction{
		Addr: addr,
		Len:  arm64InstLen,
		Text: arm64asm.GNUSyntax(inst),
		Raw:  code[:arm64InstLen],
	}, nil
}

// MinLen implements MachineCodeDecoder.
func (d *ARM64Decoder) MinLen() int { return arm64InstLen }

// NewDecoder returns the decoder for the file's machine. AArch64 code is
// decoded as little endian regardless of the file's byte order.
func NewDecoder(h elfparse.FileHeader) (MachineCodeDecoder, error) {
	switch {
	case h.Machine == elf.EM_X86_64:
		return NewX86Decoder(x86_64BitMode), nil
	case h.Machine == elf.EM_386:
		return NewX86Decoder(x86_32BitMode), nil
	case h.Machine == elf.EM_AARCH64 && h.Data == elf.ELFDATA2LSB:
		return NewARM64Decoder(), nil
	}
	return nil, &UnsupportedArchitectureError{Machine: h.Machine}
}

// entryCode returns the file bytes from the entry point to the end of the
// executable segment holding it or, without program headers, the end of
// the executable section holding it.
func (p *Printer) entryCode(entry uint64) ([]byte, error) {
	for phdr, err := range p.f.Segments().All() {
		if err != nil {
			return nil, err
		}
		if phdr.Type != elf.PT_LOAD || phdr.Flags&elf.PF_X == 0 || !phdr.Contains(entry) {
			continue
		}
		data, err := p.f.SegmentData(phdr)
		if err != nil {
			return nil, err
		}
		return codeAt(data, entry-phdr.Vaddr)
	}
	for shdr, err := range p.f.SectionHeaders().All() {
		if err != nil {
			return nil, err
		}
		// sh_size of a compressed section counts the compressed bytes,
		// so addresses inside it do not map onto the payload.
		if !shdr.HasFlag(elf.SHF_EXECINSTR) || shdr.HasFlag(elf.SHF_COMPRESSED) || shdr.Type == elf.SHT_NOBITS ||
			entry < shdr.Addr || entry-shdr.Addr >= shdr.Size {
			continue
		}
		data, _, err := p.f.SectionData(shdr)
		if err != nil {
			return nil, err
		}
		return codeAt(data, entry-shdr.Addr)
	}
	return nil, ErrEntryNotMapped
}

// codeAt returns data from off, failing when the header claims more bytes
// than the file provides.
func codeAt(data []byte, off uint64) ([]byte, error) {
	if off >= uint64(len(data)) {
		return nil, fmt.Errorf("%w: offset 0x%x past %d bytes of code", ErrEntryNotMapped, off, len(data))
	}
	return data[off:], nil
}

// Disassemble prints up to n instructions starting at the entry point.
// Bytes that do not decode are shown as "(bad)".
func (p *Printer) Disassemble(n int) error {
	h := p.f.Header()
	dec, err := NewDecoder(h)
	if err != nil {
		return err
	}
	code, err := p.entryCode(h.Entry)
	if err != nil {
		return err
	}

	p.heading("Disassembly of entry point 0x%x:", h.Entry)
	addr := h.Entry
	for i := 0; i < n && len(code) > 0; i++ {
		inst, err := dec.Decode(code, addr)
		if err != nil {
			skip := min(dec.MinLen(), len(code))
			inst = DecodedInstruction{Addr: addr, Len: skip, Text: "(bad)", Raw: code[:skip]}
		}
		p.printf("  %s:  %-24s %s\n", p.opts.Palette.Address(fmt.Sprintf("%x", inst.Addr)), hexBytes(inst.Raw), inst.Text)
		code = code[inst.Len:]
		addr += uint64(inst.Len)
	}
	return nil
}

func hexBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("%02x", c)
	}
	return strings.Join(parts, " ")
}
