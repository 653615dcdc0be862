// Package inspect renders the structures decoded by elfparse as readelf
// style text reports.
package inspect

import (
	"fmt"
	"io"

	"github.com/isseis/go-lazyelf/internal/color"
	"github.com/isseis/go-lazyelf/internal/elfparse"
	"github.com/olekukonko/tablewriter"
)

// Options configures a Printer.
type Options struct {
	// Palette colors headings, addresses and names. The zero value prints plain text.
	Palette color.Palette

	// Demangler, if set, demangles C++ and Rust symbol names.
	Demangler *Demangler

	// Digest adds an xxhash64 column to the section listing.
	Digest bool

	// MaxRelocations caps the entries listed per relocation section. Packed
	// encodings can declare far more entries than their size suggests.
	// Zero means DefaultMaxRelocations.
	MaxRelocations int
}

// DefaultMaxRelocations is the per-section listing limit when
// Options.MaxRelocations is zero.
const DefaultMaxRelocations = 1 << 20

// Printer writes reports about one file.
type Printer struct {
	w    io.Writer
	f    *elfparse.File
	opts Options

	names    *elfparse.StringTable
	namesErr error
	namesSet bool
}

// NewPrinter returns a Printer writing reports about f to w.
func NewPrinter(w io.Writer, f *elfparse.File, opts Options) *Printer {
	if opts.Palette.Heading == nil {
		opts.Palette = color.NewPalette(false)
	}
	if opts.MaxRelocations <= 0 {
		opts.MaxRelocations = DefaultMaxRelocations
	}
	return &Printer{w: w, f: f, opts: opts}
}

func (p *Printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) heading(format string, args ...any) {
	p.printf("\n%s\n", p.opts.Palette.Heading(fmt.Sprintf(format, args...)))
}

func (p *Printer) addr(v uint64) string {
	return p.opts.Palette.Address(fmt.Sprintf("%016x", v))
}

// sectionName returns the name of shdr, or "" when the file has no section
// name table. The name table is located once per Printer.
func (p *Printer) sectionName(shdr elfparse.SectionHeader) (string, error) {
	if !p.namesSet {
		_, p.names, p.namesErr = p.f.SectionHeadersWithStrtab()
		p.namesSet = true
	}
	if p.namesErr != nil {
		return "", p.namesErr
	}
	if p.names == nil {
		return "", nil
	}
	return p.names.Get(uint64(shdr.Name))
}

// newTable returns a borderless, left aligned table writing to the Printer.
func (p *Printer) newTable(header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(p.w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetBorder(false)
	t.SetHeaderLine(false)
	t.SetColumnSeparator("")
	t.SetCenterSeparator("")
	t.SetRowSeparator("")
	t.SetTablePadding("  ")
	t.SetNoWhiteSpace(true)
	return t
}
