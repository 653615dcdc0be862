package elfparse

import (
	"errors"
	"fmt"
)

// Static errors
var (
	// ErrBadOffset indicates that an offset or range fell outside the bytes
	// available for the structure being decoded. Short buffers report this too.
	ErrBadOffset = errors.New("offset out of bounds")

	// ErrIntegerOverflow indicates that arithmetic on parsed fields overflowed.
	ErrIntegerOverflow = errors.New("integer overflow")

	// ErrBadEntrySize indicates that a declared entry size differs from the
	// fixed on-disk size of the record kind for the file's class.
	ErrBadEntrySize = errors.New("unexpected entry size")

	// ErrUnexpectedType indicates that a section or segment was requested
	// under an interpretation that does not match its type.
	ErrUnexpectedType = errors.New("unexpected section or segment type")

	// ErrUnsupportedEndianness indicates an EI_DATA value the chosen endian
	// strategy cannot decode.
	ErrUnsupportedEndianness = errors.New("unsupported ELF endianness")

	// ErrUnsupportedClass indicates an EI_CLASS value other than ELFCLASS32 or ELFCLASS64.
	ErrUnsupportedClass = errors.New("unsupported ELF class")

	// ErrUnsupportedVersion indicates a version field with a value this package does not understand.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrBadMagic indicates that the leading magic bytes were not the expected ones.
	ErrBadMagic = errors.New("bad magic")

	// ErrMalformedString indicates a string table entry without a terminating
	// NUL byte or with invalid UTF-8.
	ErrMalformedString = errors.New("malformed string")

	// ErrUnexpectedAlignment indicates a note section or segment with an unusable alignment.
	ErrUnexpectedAlignment = errors.New("unexpected alignment")

	// ErrUnexpectedAddend indicates a packed REL relocation stream that carries addends.
	ErrUnexpectedAddend = errors.New("unexpected relocation addend")

	// ErrIO indicates that the underlying byte source failed.
	ErrIO = errors.New("I/O error")
)

// SliceReadError reports a request for bytes [Start, End) that the source cannot satisfy.
type SliceReadError struct {
	Start uint64
	End   uint64
}

func (e *SliceReadError) Error() string {
	return fmt.Sprintf("could not read bytes in range [%#x, %#x)", e.Start, e.End)
}

func (e *SliceReadError) Unwrap() error {
	return ErrBadOffset
}

// BadIndexError reports a table index outside [0, Len).
type BadIndexError struct {
	Index int
	Len   int
}

func (e *BadIndexError) Error() string {
	return fmt.Sprintf("index %d out of range for table of length %d", e.Index, e.Len)
}

func (e *BadIndexError) Unwrap() error {
	return ErrBadOffset
}

// EntrySizeError reports a declared or implied entry size that does not match
// the record kind.
type EntrySizeError struct {
	Got  uint64
	Want uint64
}

func (e *EntrySizeError) Error() string {
	return fmt.Sprintf("invalid entry size: got %d, want %d", e.Got, e.Want)
}

func (e *EntrySizeError) Unwrap() error {
	return ErrBadEntrySize
}

// UnexpectedTypeError reports a section (or segment) interpreted as the wrong kind.
type UnexpectedTypeError struct {
	Segment bool
	Got     uint32
	Want    uint32
}

func (e *UnexpectedTypeError) Error() string {
	kind := "section"
	if e.Segment {
		kind = "segment"
	}
	return fmt.Sprintf("unexpected %s type: got %#x, want %#x", kind, e.Got, e.Want)
}

func (e *UnexpectedTypeError) Unwrap() error {
	return ErrUnexpectedType
}

// VersionError reports a version field with an unsupported value.
type VersionError struct {
	Got  uint64
	Want uint64
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("unsupported version %d (want %d)", e.Got, e.Want)
}

func (e *VersionError) Unwrap() error {
	return ErrUnsupportedVersion
}

// StringError reports a malformed string at Offset within a string table.
type StringError struct {
	Offset uint64
	Reason string
}

func (e *StringError) Error() string {
	return fmt.Sprintf("malformed string at offset %#x: %s", e.Offset, e.Reason)
}

func (e *StringError) Unwrap() error {
	return ErrMalformedString
}

// AlignmentError reports an alignment value that cannot be used for note padding.
type AlignmentError struct {
	Align uint64
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("unexpected alignment %d", e.Align)
}

func (e *AlignmentError) Unwrap() error {
	return ErrUnexpectedAlignment
}

// TableSizeError reports a table whose byte length is not a whole number of entries.
type TableSizeError struct {
	Len       uint64
	EntrySize uint64
}

func (e *TableSizeError) Error() string {
	return fmt.Sprintf("table length %d is not a multiple of entry size %d", e.Len, e.EntrySize)
}

func (e *TableSizeError) Unwrap() error {
	return ErrBadEntrySize
}
