//go:build test

package elfmmap

import (
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/isseis/go-lazyelf/internal/elfparse"
	"github.com/isseis/go-lazyelf/internal/elftest"
	"github.com/isseis/go-lazyelf/internal/safefileio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestOpen_RoundTrip(t *testing.T) {
	fx, err := elftest.SharedObject(elf.ELFCLASS64, binary.LittleEndian)
	require.NoError(t, err)
	data := fx.Build()
	path := writeFile(t, "libfixture.so.1", data)

	m, err := Open(path)
	require.NoError(t, err)
	defer func() { assert.NoError(t, m.Close()) }()

	assert.Equal(t, data, m.Bytes())
	assert.Equal(t, len(data), m.Len())
	assert.Equal(t, path, m.Path())

	f, err := m.ELF()
	require.NoError(t, err)
	shdr, err := f.SectionHeaderByName(".gnu.hash")
	require.NoError(t, err)
	require.NotNil(t, shdr)
	assert.Equal(t, elf.SHT_GNU_HASH, shdr.Type)
}

func TestOpen_EmptyFile(t *testing.T) {
	m, err := Open(writeFile(t, "empty", nil))
	require.NoError(t, err)

	assert.NotNil(t, m.Bytes())
	assert.Empty(t, m.Bytes())
	_, err = m.ELF()
	assert.ErrorIs(t, err, elfparse.ErrBadOffset)
	require.NoError(t, m.Close())
}

func TestOpen_Errors(t *testing.T) {
	path := writeFile(t, "target", []byte("\x7fELF"))
	link := filepath.Join(filepath.Dir(path), "link")
	require.NoError(t, os.Symlink(path, link))

	_, err := Open(link)
	assert.ErrorIs(t, err, safefileio.ErrIsSymlink)

	_, err = Open(filepath.Join(filepath.Dir(path), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Open(filepath.Dir(path))
	assert.ErrorIs(t, err, safefileio.ErrNotRegularFile)
}

func TestMapping_Close(t *testing.T) {
	m, err := Open(writeFile(t, "data", []byte("\x7fELF\x02\x01\x01")))
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Empty(t, m.Bytes())
	_, err = m.ELF()
	assert.ErrorIs(t, err, ErrClosed)
}
