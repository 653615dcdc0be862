package elfparse

import (
	"fmt"
	"iter"
)

// aps2Magic prefixes Android packed relocation sections.
var aps2Magic = [4]byte{'A', 'P', 'S', '2'}

// APS2 group flags
const (
	aps2GroupedByInfo        = 0x1
	aps2GroupedByOffsetDelta = 0x2
	aps2GroupedByAddend      = 0x4
	aps2GroupHasAddend       = 0x8
)

// AndroidRelocIterator decodes a SHT_ANDROID_REL or SHT_ANDROID_RELA section.
//
// The stream is a run of signed LEB128 values: the relocation count and the
// initial offset, then groups. Each group starts with its size and flags and
// may carry an offset delta, info, or addend shared by every member; fields
// not shared are stored per relocation.
type AndroidRelocIterator struct {
	dec   Decoder
	data  []byte
	count int64
	start uint64
	rela  bool
}

func newAndroidRelocIterator(d Decoder, data []byte, rela bool) (*AndroidRelocIterator, error) {
	if len(data) < len(aps2Magic) {
		return nil, &SliceReadError{Start: 0, End: uint64(len(aps2Magic))}
	}
	if [4]byte(data[:4]) != aps2Magic {
		return nil, fmt.Errorf("%w: % x", ErrBadMagic, data[:4])
	}
	it := &AndroidRelocIterator{dec: d, data: data[4:], rela: rela}
	off := 0
	count, err := it.leb(&off)
	if err != nil {
		return nil, err
	}
	start, err := it.leb(&off)
	if err != nil {
		return nil, err
	}
	it.count = count
	it.start = uint64(start)
	it.data = it.data[off:]
	return it, nil
}

// NewAndroidRelIterator wraps the contents of a SHT_ANDROID_REL section.
func NewAndroidRelIterator(d Decoder, data []byte) (*AndroidRelocIterator, error) {
	return newAndroidRelocIterator(d, data, false)
}

// NewAndroidRelaIterator wraps the contents of a SHT_ANDROID_RELA section.
func NewAndroidRelaIterator(d Decoder, data []byte) (*AndroidRelocIterator, error) {
	return newAndroidRelocIterator(d, data, true)
}

// Len returns the relocation count declared by the stream.
func (it *AndroidRelocIterator) Len() int64 {
	return it.count
}

func (it *AndroidRelocIterator) leb(off *int) (int64, error) {
	return readSLEB128(it.data, off, uint(8*it.dec.WordSize()))
}

// aps2State is the decoder state carried between relocations.
type aps2State struct {
	it *AndroidRelocIterator
	off int

	groupLeft   int64
	flags       int64
	offsetDelta uint64

	offset uint64
	info   uint64
	addend int64
}

func (s *aps2State) has(flag int64) bool {
	return s.flags&flag != 0
}

func (s *aps2State) readGroup() error {
	var err error
	if s.groupLeft, err = s.it.leb(&s.off); err != nil {
		return err
	}
	if s.flags, err = s.it.leb(&s.off); err != nil {
		return err
	}
	if s.has(aps2GroupedByOffsetDelta) {
		delta, err := s.it.leb(&s.off)
		if err != nil {
			return err
		}
		s.offsetDelta = uint64(delta)
	}
	if s.has(aps2GroupedByInfo) {
		info, err := s.it.leb(&s.off)
		if err != nil {
			return err
		}
		s.info = uint64(info)
	}
	switch {
	case s.has(aps2GroupedByAddend) && s.has(aps2GroupHasAddend):
		if !s.it.rela {
			return ErrUnexpectedAddend
		}
		addend, err := s.it.leb(&s.off)
		if err != nil {
			return err
		}
		s.addend += addend
	case !s.has(aps2GroupHasAddend) && s.it.rela:
		s.addend = 0
	}
	return nil
}

func (s *aps2State) readRelocation() error {
	if s.has(aps2GroupedByOffsetDelta) {
		s.offset += s.offsetDelta
	} else {
		delta, err := s.it.leb(&s.off)
		if err != nil {
			return err
		}
		s.offset += uint64(delta)
	}
	if !s.has(aps2GroupedByInfo) {
		info, err := s.it.leb(&s.off)
		if err != nil {
			return err
		}
		s.info = uint64(info)
	}
	if s.has(aps2GroupHasAddend) && !s.has(aps2GroupedByAddend) {
		if !s.it.rela {
			return ErrUnexpectedAddend
		}
		addend, err := s.it.leb(&s.off)
		if err != nil {
			return err
		}
		s.addend += addend
	}
	s.groupLeft--
	return nil
}

// Relas yields the decoded relocations with their addends. REL streams
// always yield zero addends. A decode failure is yielded once and ends iteration.
func (it *AndroidRelocIterator) Relas() iter.Seq2[Rela, error] {
	return func(yield func(Rela, error) bool) {
		s := &aps2State{it: it, offset: it.start}
		for range it.count {
			if s.groupLeft <= 0 {
				if err := s.readGroup(); err != nil {
					yield(Rela{}, err)
					return
				}
			}
			if err := s.readRelocation(); err != nil {
				yield(Rela{}, err)
				return
			}
			sym, typ := splitInfo(it.dec.Class, s.info)
			if !yield(Rela{Offset: s.offset, Sym: sym, Type: typ, Addend: s.addend}, nil) {
				return
			}
		}
	}
}

// Rels yields the decoded relocations without addends.
func (it *AndroidRelocIterator) Rels() iter.Seq2[Rel, error] {
	return func(yield func(Rel, error) bool) {
		for r, err := range it.Relas() {
			if !yield(Rel{Offset: r.Offset, Sym: r.Sym, Type: r.Type}, err) || err != nil {
				return
			}
		}
	}
}
