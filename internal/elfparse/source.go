package elfparse

import (
	"errors"
	"fmt"
	"io"

	"github.com/isseis/go-lazyelf/internal/cachingreader"
)

// Source supplies byte ranges of an ELF image.
//
// Slices returned by ReadBytes must stay valid and unchanged for as long as
// the Source is in use.
type Source interface {
	ReadBytes(start, end uint64) ([]byte, error)
}

// memorySource serves ranges of a resident buffer without copying.
type memorySource []byte

func (m memorySource) ReadBytes(start, end uint64) ([]byte, error) {
	return subslice(m, start, end)
}

// streamSource serves ranges of a seekable stream through a caching reader.
type streamSource struct {
	cache *cachingreader.Reader
}

func (s *streamSource) ReadBytes(start, end uint64) ([]byte, error) {
	buf, err := s.cache.ReadBytes(start, end)
	if err == nil {
		return buf, nil
	}
	switch {
	case errors.Is(err, cachingreader.ErrShortRead):
		return nil, &SliceReadError{Start: start, End: end}
	case errors.Is(err, cachingreader.ErrInvalidRange):
		return nil, &SliceReadError{Start: start, End: end}
	default:
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
}

// NewMemorySource returns a Source over data. The File decoded from it
// borrows data and must not outlive modifications to it.
func NewMemorySource(data []byte) Source {
	return memorySource(data)
}

// NewStreamSource returns a Source that loads ranges from r on demand.
// Stream reader failures are reported wrapped in ErrIO.
func NewStreamSource(r io.ReadSeeker) Source {
	return &streamSource{cache: cachingreader.New(r)}
}
