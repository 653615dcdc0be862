//go:build test

package elftest

import (
	"slices"
)

// SysVHash is the SysV ELF hash function.
func SysVHash(name string) uint32 {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = h<<4 + uint32(name[i])
		if g := h & 0xf0000000; g != 0 {
			h ^= g >> 24
		}
		h &^= 0xf0000000
	}
	return h
}

// GnuHash is the GNU (DJB) hash function.
func GnuHash(name string) uint32 {
	h := uint32(5381)
	for i := 0; i < len(name); i++ {
		h = h*33 + uint32(name[i])
	}
	return h
}

// SysVHashSection encodes a SHT_HASH section for a symbol table whose
// entry i is named names[i]. Entry 0 is the null symbol and is not hashed.
func (e Encoder) SysVHashSection(nbucket uint32, names []string) []byte {
	buckets := make([]uint32, nbucket)
	chains := make([]uint32, len(names))
	for i := 1; i < len(names) && nbucket > 0; i++ {
		b := SysVHash(names[i]) % nbucket
		chains[i] = buckets[b]
		buckets[b] = uint32(i)
	}
	var buf []byte
	buf = e.U32(buf, nbucket)
	buf = e.U32(buf, uint32(len(names)))
	for _, v := range buckets {
		buf = e.U32(buf, v)
	}
	for _, v := range chains {
		buf = e.U32(buf, v)
	}
	return buf
}

// SortForGnuHash orders names[symoffset:] by GNU hash bucket, as the
// section requires, leaving the first symoffset names in place.
func SortForGnuHash(names []string, symoffset int, nbuckets uint32) []string {
	out := slices.Clone(names)
	slices.SortStableFunc(out[symoffset:], func(a, b string) int {
		ba, bb := GnuHash(a)%nbuckets, GnuHash(b)%nbuckets
		switch {
		case ba < bb:
			return -1
		case ba > bb:
			return 1
		}
		return 0
	})
	return out
}

// GnuHashParams shapes a SHT_GNU_HASH section.
type GnuHashParams struct {
	NBuckets   uint32
	SymOffset  uint32
	BloomSize  uint32
	BloomShift uint32
}

// GnuHashSection encodes a SHT_GNU_HASH section for a symbol table whose
// entry i is named names[i]. names[p.SymOffset:] must already be grouped by
// bucket; see SortForGnuHash.
func (e Encoder) GnuHashSection(p GnuHashParams, names []string) []byte {
	bits := uint32(32)
	if e.Is64() {
		bits = 64
	}
	bloom := make([]uint64, p.BloomSize)
	buckets := make([]uint32, p.NBuckets)
	var chains []uint32
	for i := int(p.SymOffset); i < len(names); i++ {
		h := GnuHash(names[i])
		if p.BloomSize > 0 {
			word := (h / bits) % p.BloomSize
			bloom[word] |= uint64(1)<<(h%bits) | uint64(1)<<((h>>p.BloomShift)%bits)
		}
		if p.NBuckets > 0 {
			b := h % p.NBuckets
			if buckets[b] == 0 {
				buckets[b] = uint32(i)
			}
			last := i+1 == len(names) || GnuHash(names[i+1])%p.NBuckets != b
			if last {
				h |= 1
			} else {
				h &^= 1
			}
		}
		chains = append(chains, h)
	}

	var buf []byte
	buf = e.U32(buf, p.NBuckets)
	buf = e.U32(buf, p.SymOffset)
	buf = e.U32(buf, p.BloomSize)
	buf = e.U32(buf, p.BloomShift)
	for _, w := range bloom {
		buf = e.Word(buf, w)
	}
	for _, v := range buckets {
		buf = e.U32(buf, v)
	}
	for _, v := range chains {
		buf = e.U32(buf, v)
	}
	return buf
}
