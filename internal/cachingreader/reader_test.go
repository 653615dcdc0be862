//go:build test

package cachingreader

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingReader records how many Read calls reach the underlying stream.
type countingReader struct {
	*bytes.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	return c.Reader.Read(p)
}

var errBroken = errors.New("broken stream")

// brokenReader fails every operation after seeking to the end succeeds.
type brokenReader struct {
	size   int64
	seekOK bool
}

func (b *brokenReader) Read([]byte) (int, error) {
	return 0, errBroken
}

func (b *brokenReader) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekEnd {
		return b.size, nil
	}
	if b.seekOK {
		return offset, nil
	}
	return 0, errBroken
}

func testData() []byte {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

func TestReader_ReadBytes(t *testing.T) {
	data := testData()
	tests := []struct {
		name  string
		start uint64
		end   uint64
	}{
		{name: "prefix", start: 0, end: 16},
		{name: "middle", start: 100, end: 140},
		{name: "suffix", start: 200, end: 256},
		{name: "whole", start: 0, end: 256},
		{name: "empty", start: 30, end: 30},
		{name: "empty at end", start: 256, end: 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(bytes.NewReader(data))
			got, err := r.ReadBytes(tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, data[tt.start:tt.end], got)
			assert.Equal(t, 1, r.Len())
		})
	}
}

func TestReader_LoadIsIdempotent(t *testing.T) {
	src := &countingReader{Reader: bytes.NewReader(testData())}
	r := New(src)

	first, err := r.ReadBytes(8, 24)
	require.NoError(t, err)
	reads := src.reads

	require.NoError(t, r.Load(8, 24))
	second, err := r.ReadBytes(8, 24)
	require.NoError(t, err)

	assert.Equal(t, reads, src.reads)
	assert.Same(t, &first[0], &second[0])
	assert.Equal(t, 1, r.Len())

	// Overlapping but distinct ranges are cached separately.
	_, err = r.ReadBytes(16, 32)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, testData()[8:24], first)
}

func TestReader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		r       io.ReadSeeker
		start   uint64
		end     uint64
		wantErr error
	}{
		{name: "inverted range", r: bytes.NewReader(testData()), start: 10, end: 4, wantErr: ErrInvalidRange},
		{name: "past end", r: bytes.NewReader(testData()), start: 250, end: 260, wantErr: ErrShortRead},
		{name: "huge range", r: bytes.NewReader(testData()), start: 0, end: ^uint64(0), wantErr: ErrShortRead},
		{name: "read failure", r: &brokenReader{size: 64, seekOK: true}, start: 0, end: 8, wantErr: errBroken},
		{name: "seek failure", r: &brokenReader{size: 64}, start: 0, end: 8, wantErr: errBroken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.r)
			_, err := r.ReadBytes(tt.start, tt.end)
			require.ErrorIs(t, err, tt.wantErr)

			var rangeErr *RangeError
			require.ErrorAs(t, err, &rangeErr)
			assert.Equal(t, tt.start, rangeErr.Start)
			assert.Equal(t, tt.end, rangeErr.End)
			assert.Equal(t, 0, r.Len())
		})
	}
}

func TestReader_ShortStream(t *testing.T) {
	// The stream reports more bytes than it can deliver.
	r := New(&lyingReader{Reader: bytes.NewReader(testData()[:10])})
	_, err := r.ReadBytes(0, 20)
	assert.ErrorIs(t, err, ErrShortRead)
}

type lyingReader struct {
	*bytes.Reader
}

func (l *lyingReader) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekEnd {
		return 1 << 20, nil
	}
	return l.Reader.Seek(offset, whence)
}

func TestReader_BytesRequiresLoad(t *testing.T) {
	r := New(bytes.NewReader(testData()))
	_, err := r.Bytes(0, 4)
	assert.ErrorIs(t, err, ErrNotLoaded)

	require.NoError(t, r.Load(0, 4))
	got, err := r.Bytes(0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3}, got)

	_, err = r.Bytes(0, 5)
	assert.ErrorIs(t, err, ErrNotLoaded)
}
