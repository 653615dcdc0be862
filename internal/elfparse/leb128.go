package elfparse

// readSLEB128 decodes a signed LEB128 value of at most width bits at *off.
// Values that do not fit in width bits report ErrIntegerOverflow; a value
// running past the end of data reports a SliceReadError.
func readSLEB128(data []byte, off *int, width uint) (int64, error) {
	var result int64
	var shift uint
	pos := *off
	for {
		if pos >= len(data) {
			return 0, &SliceReadError{Start: uint64(*off), End: uint64(pos) + 1}
		}
		b := data[pos]
		pos++
		if shift >= width {
			return 0, ErrIntegerOverflow
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -1 << shift
			}
			break
		}
	}

	if width < 64 {
		lo, hi := -int64(1)<<(width-1), int64(1)<<(width-1)-1
		if result < lo || result > hi {
			return 0, ErrIntegerOverflow
		}
	} else if shift > 64 {
		// Only bit 0 of the tenth byte lands in the result; the rest must sign-extend it.
		if last := data[pos-1] & 0x7f; last != 0 && last != 0x7f {
			return 0, ErrIntegerOverflow
		}
	}
	*off = pos
	return result, nil
}
