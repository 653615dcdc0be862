package elfparse

import (
	"bytes"
)

// SymbolMatch is a symbol found through a hash table, with its index in the symbol table.
type SymbolMatch struct {
	Index  int
	Symbol Symbol
}

// SysVHashHeader is the header of a SHT_HASH section.
type SysVHashHeader struct {
	NBucket uint32
	NChain  uint32
}

const sysvHashHeaderSize = 8

func parseSysVHashHeader(d Decoder, data []byte, off *int) (SysVHashHeader, error) {
	nbucket, err := d.U32(data, off)
	if err != nil {
		return SysVHashHeader{}, err
	}
	nchain, err := d.U32(data, off)
	if err != nil {
		return SysVHashHeader{}, err
	}
	return SysVHashHeader{NBucket: nbucket, NChain: nchain}, nil
}

// SysVHash computes the SysV ELF hash of name.
func SysVHash(name []byte) uint32 {
	var h uint32
	for _, c := range name {
		h = h*16 + uint32(c)
		h ^= (h >> 24) & 0xf0
	}
	return h & 0xfffffff
}

// SysVHashTable is a SHT_HASH table: nbucket chain heads followed by nchain links.
type SysVHashTable struct {
	Header  SysVHashHeader
	buckets *U32Table
	chains  *U32Table
}

// u32Run slices count 32-bit words starting at *off and advances the cursor.
func u32Run(d Decoder, data []byte, off *int, count uint32) (*U32Table, error) {
	size, err := mulU64(4, uint64(count))
	if err != nil {
		return nil, err
	}
	start, end, err := span(uint64(*off), size)
	if err != nil {
		return nil, err
	}
	buf, err := subslice(data, start, end)
	if err != nil {
		return nil, err
	}
	*off = int(end)
	return NewU32Table(d, buf)
}

// NewSysVHashTable parses the header of data and slices out the bucket and chain arrays.
func NewSysVHashTable(d Decoder, data []byte) (*SysVHashTable, error) {
	off := 0
	hdr, err := parseSysVHashHeader(d, data, &off)
	if err != nil {
		return nil, err
	}
	buckets, err := u32Run(d, data, &off, hdr.NBucket)
	if err != nil {
		return nil, err
	}
	chains, err := u32Run(d, data, &off, hdr.NChain)
	if err != nil {
		return nil, err
	}
	return &SysVHashTable{Header: hdr, buckets: buckets, chains: chains}, nil
}

// Find looks up name through the hash table, confirming candidates against
// symtab and strtab. ok is false if the name is not present.
func (h *SysVHashTable) Find(name []byte, symtab *SymbolTable, strtab StringTable) (match SymbolMatch, ok bool, err error) {
	// Empty tables have no entries, and the modulus below needs a bucket.
	if h.buckets.Len() == 0 {
		return SymbolMatch{}, false, nil
	}
	hash := SysVHash(name)
	head, err := h.buckets.Get(int(hash % uint32(h.buckets.Len())))
	if err != nil {
		return SymbolMatch{}, false, err
	}

	// Bound the walk by the chain length so a cyclic chain cannot loop forever.
	index := head
	for i := 0; index != 0 && i < h.chains.Len(); i++ {
		sym, err := symtab.Get(int(index))
		if err != nil {
			return SymbolMatch{}, false, err
		}
		symName, err := strtab.Raw(uint64(sym.Name))
		if err != nil {
			return SymbolMatch{}, false, err
		}
		if bytes.Equal(symName, name) {
			return SymbolMatch{Index: int(index), Symbol: sym}, true, nil
		}
		if index, err = h.chains.Get(int(index)); err != nil {
			return SymbolMatch{}, false, err
		}
	}
	return SymbolMatch{}, false, nil
}

// GnuHashHeader is the header of a SHT_GNU_HASH section.
type GnuHashHeader struct {
	NBuckets   uint32
	SymOffset  uint32
	BloomSize  uint32
	BloomShift uint32
}

const gnuHashHeaderSize = 16

func parseGnuHashHeader(d Decoder, data []byte, off *int) (GnuHashHeader, error) {
	var h GnuHashHeader
	var err error
	for _, field := range []*uint32{&h.NBuckets, &h.SymOffset, &h.BloomSize, &h.BloomShift} {
		if *field, err = d.U32(data, off); err != nil {
			return GnuHashHeader{}, err
		}
	}
	return h, nil
}

// GnuHash computes the GNU (DJB) hash of name.
func GnuHash(name []byte) uint32 {
	h := uint32(5381)
	for _, c := range name {
		h = h*33 + uint32(c)
	}
	return h
}

// GnuHashTable is a SHT_GNU_HASH table: a bloom filter of class-width words,
// nbuckets chain starts, and one hash word per symbol from SymOffset on.
type GnuHashTable struct {
	Header  GnuHashHeader
	bloom   *WordTable
	buckets *U32Table
	chains  *U32Table
	bits    uint32
}

// NewGnuHashTable parses the header of data and slices out the bloom, bucket and chain arrays.
// The chain array runs to the end of data.
func NewGnuHashTable(d Decoder, data []byte) (*GnuHashTable, error) {
	off := 0
	hdr, err := parseGnuHashHeader(d, data, &off)
	if err != nil {
		return nil, err
	}

	bloomBytes, err := mulU64(uint64(d.WordSize()), uint64(hdr.BloomSize))
	if err != nil {
		return nil, err
	}
	start, end, err := span(uint64(off), bloomBytes)
	if err != nil {
		return nil, err
	}
	bloomBuf, err := subslice(data, start, end)
	if err != nil {
		return nil, err
	}
	bloom, err := NewWordTable(d, bloomBuf)
	if err != nil {
		return nil, err
	}
	off = int(end)

	buckets, err := u32Run(d, data, &off, hdr.NBuckets)
	if err != nil {
		return nil, err
	}
	rest := data[off:]
	chains, err := NewU32Table(d, rest[:len(rest)-len(rest)%4])
	if err != nil {
		return nil, err
	}
	return &GnuHashTable{
		Header:  hdr,
		bloom:   bloom,
		buckets: buckets,
		chains:  chains,
		bits:    uint32(8 * d.WordSize()),
	}, nil
}

// BloomContains reports whether both bloom filter bits for hash are set.
// A false result proves the name is absent; a true one may be a false positive.
func (h *GnuHashTable) BloomContains(hash uint32) (bool, error) {
	if h.bloom.Len() == 0 {
		return false, nil
	}
	word, err := h.bloom.Get(int((hash / h.bits) % uint32(h.bloom.Len())))
	if err != nil {
		return false, err
	}
	mask := uint64(1)<<(hash%h.bits) | uint64(1)<<((hash>>h.Header.BloomShift)%h.bits)
	return word&mask == mask, nil
}

// Find looks up name through the bloom filter and hash chains, confirming
// candidates against symtab and strtab. ok is false if the name is not present.
func (h *GnuHashTable) Find(name []byte, symtab *SymbolTable, strtab StringTable) (match SymbolMatch, ok bool, err error) {
	if h.buckets.Len() == 0 {
		return SymbolMatch{}, false, nil
	}
	hash := GnuHash(name)
	present, err := h.BloomContains(hash)
	if err != nil || !present {
		return SymbolMatch{}, false, err
	}

	index, err := h.buckets.Get(int(hash % uint32(h.buckets.Len())))
	if err != nil {
		return SymbolMatch{}, false, err
	}
	if index == 0 || index < h.Header.SymOffset {
		return SymbolMatch{}, false, nil
	}

	// Each step consumes one chain word, so the walk ends at the last word at the latest.
	for ; ; index++ {
		chainHash, err := h.chains.Get(int(index - h.Header.SymOffset))
		if err != nil {
			return SymbolMatch{}, false, err
		}
		if chainHash|1 == hash|1 {
			sym, err := symtab.Get(int(index))
			if err != nil {
				return SymbolMatch{}, false, err
			}
			symName, err := strtab.Raw(uint64(sym.Name))
			if err != nil {
				return SymbolMatch{}, false, err
			}
			if bytes.Equal(symName, name) {
				return SymbolMatch{Index: int(index), Symbol: sym}, true, nil
			}
		}
		if chainHash&1 != 0 {
			return SymbolMatch{}, false, nil
		}
		if index == ^uint32(0) {
			return SymbolMatch{}, false, ErrIntegerOverflow
		}
	}
}
