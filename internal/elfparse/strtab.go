package elfparse

import (
	"bytes"
	"unicode/utf8"
)

// StringTable is a section of NUL-terminated strings addressed by byte offset.
type StringTable struct {
	data []byte
}

// NewStringTable wraps data as a string table.
func NewStringTable(data []byte) StringTable {
	return StringTable{data: data}
}

// Len returns the size of the table in bytes.
func (t StringTable) Len() int {
	return len(t.data)
}

// Raw returns the bytes of the string starting at off, without the NUL.
func (t StringTable) Raw(off uint64) ([]byte, error) {
	if off >= uint64(len(t.data)) {
		return nil, &SliceReadError{Start: off, End: off + 1}
	}
	rest := t.data[off:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return nil, &StringError{Offset: off, Reason: "missing NUL terminator"}
	}
	return rest[:end], nil
}

// Get returns the string starting at off.
func (t StringTable) Get(off uint64) (string, error) {
	raw, err := t.Raw(off)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", &StringError{Offset: off, Reason: "invalid UTF-8"}
	}
	return string(raw), nil
}
