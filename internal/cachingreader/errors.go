package cachingreader

import (
	"errors"
	"fmt"
)

// Static errors
var (
	// ErrNotLoaded is returned by Bytes for a range that was never loaded.
	ErrNotLoaded = errors.New("range not loaded")

	// ErrInvalidRange is returned for a range whose start is past its end.
	ErrInvalidRange = errors.New("invalid range")

	// ErrShortRead is returned when the stream ends before the requested range does.
	ErrShortRead = errors.New("short read")
)

// RangeError describes a failure for the byte range [Start, End).
type RangeError struct {
	Start uint64
	End   uint64
	Err   error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range [%#x, %#x): %v", e.Start, e.End, e.Err)
}

func (e *RangeError) Unwrap() error {
	return e.Err
}
