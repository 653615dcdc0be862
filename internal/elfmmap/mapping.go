// Package elfmmap maps ELF files read-only so elfparse can decode them
// without copying.
package elfmmap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/isseis/go-lazyelf/internal/elfparse"
	"github.com/isseis/go-lazyelf/internal/safefileio"
)

// ErrClosed is returned when a closed Mapping is used.
var ErrClosed = errors.New("mapping closed")

// Mapping is a read-only memory mapping of a whole file.
type Mapping struct {
	path   string
	file   *os.File
	mapped mmap.MMap
	closed bool
}

// Open maps path read-only. Empty files yield an empty mapping without
// calling mmap, which rejects zero-length regions.
func Open(path string) (*Mapping, error) {
	f, info, err := safefileio.OpenForRead(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	m := &Mapping{path: path, file: f}
	if info.Size() == 0 {
		return m, nil
	}
	mapped, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close file", slog.String("path", path), slog.Any("error", closeErr))
		}
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	m.mapped = mapped
	return m, nil
}

// Bytes returns the mapped contents. The slice is invalid after Close.
func (m *Mapping) Bytes() []byte {
	if m.closed || m.mapped == nil {
		return []byte{}
	}
	return m.mapped
}

// Len returns the mapped length.
func (m *Mapping) Len() int {
	return len(m.Bytes())
}

// Path returns the path the mapping was opened with.
func (m *Mapping) Path() string {
	return m.path
}

// ELF decodes the mapped bytes. The returned File must not be used after Close.
func (m *Mapping) ELF() (*elfparse.File, error) {
	if m.closed {
		return nil, ErrClosed
	}
	return elfparse.Open(m.Bytes())
}

// Close unmaps the file and closes it. Closing twice is a no-op.
func (m *Mapping) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	var errs []error
	if m.mapped != nil {
		if err := m.mapped.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap %s: %w", m.path, err))
		}
		m.mapped = nil
	}
	if err := m.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", m.path, err))
	}
	return errors.Join(errs...)
}
