// Package cachingreader reads byte ranges from a seekable stream and keeps
// each loaded range so later requests for it return the same bytes.
package cachingreader

import (
	"errors"
	"fmt"
	"io"
)

type byteRange struct {
	start uint64
	end   uint64
}

// Reader caches byte ranges read from an io.ReadSeeker.
//
// Slices returned by Bytes stay valid for the lifetime of the Reader.
// A Reader is not safe for concurrent use.
type Reader struct {
	r      io.ReadSeeker
	size   int64
	sized  bool
	ranges map[byteRange][]byte
}

// New returns a Reader over r. r is not read until the first Load.
func New(r io.ReadSeeker) *Reader {
	return &Reader{r: r, ranges: make(map[byteRange][]byte)}
}

// streamSize returns the total length of the stream, measured once.
func (c *Reader) streamSize() (int64, error) {
	if c.sized {
		return c.size, nil
	}
	size, err := c.r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to measure stream: %w", err)
	}
	c.size, c.sized = size, true
	return size, nil
}

// Load reads [start, end) from the stream unless it is already cached.
func (c *Reader) Load(start, end uint64) error {
	if start > end {
		return &RangeError{Start: start, End: end, Err: ErrInvalidRange}
	}
	key := byteRange{start: start, end: end}
	if _, ok := c.ranges[key]; ok {
		return nil
	}

	size, err := c.streamSize()
	if err != nil {
		return &RangeError{Start: start, End: end, Err: err}
	}
	if end > uint64(size) {
		return &RangeError{Start: start, End: end, Err: ErrShortRead}
	}

	if _, err := c.r.Seek(int64(start), io.SeekStart); err != nil {
		return &RangeError{Start: start, End: end, Err: err}
	}
	buf := make([]byte, end-start)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			err = ErrShortRead
		}
		return &RangeError{Start: start, End: end, Err: err}
	}
	c.ranges[key] = buf
	return nil
}

// Bytes returns the cached bytes for a range previously passed to Load.
func (c *Reader) Bytes(start, end uint64) ([]byte, error) {
	buf, ok := c.ranges[byteRange{start: start, end: end}]
	if !ok {
		return nil, &RangeError{Start: start, End: end, Err: ErrNotLoaded}
	}
	return buf, nil
}

// ReadBytes loads [start, end) if needed and returns it.
func (c *Reader) ReadBytes(start, end uint64) ([]byte, error) {
	if err := c.Load(start, end); err != nil {
		return nil, err
	}
	return c.Bytes(start, end)
}

// Len returns the number of cached ranges.
func (c *Reader) Len() int {
	return len(c.ranges)
}
