//go:build test

package elftest

// VerNeedAux is one required version to encode.
type VerNeedAux struct {
	Hash  uint32
	Flags uint16
	Other uint16
	Name  string
}

// VerNeed is a version requirement on one file.
type VerNeed struct {
	File string
	Aux  []VerNeedAux
}

// VerNeeds encodes a SHT_GNU_VERNEED section, adding names to strs.
func (e Encoder) VerNeeds(strs *Strtab, needs []VerNeed) []byte {
	var buf []byte
	for i, vn := range needs {
		next := uint32(16 + 16*len(vn.Aux))
		if i == len(needs)-1 {
			next = 0
		}
		buf = e.U16(buf, 1)
		buf = e.U16(buf, uint16(len(vn.Aux)))
		buf = e.U32(buf, strs.Add(vn.File))
		buf = e.U32(buf, 16)
		buf = e.U32(buf, next)
		for j, vna := range vn.Aux {
			auxNext := uint32(16)
			if j == len(vn.Aux)-1 {
				auxNext = 0
			}
			buf = e.U32(buf, vna.Hash)
			buf = e.U16(buf, vna.Flags)
			buf = e.U16(buf, vna.Other)
			buf = e.U32(buf, strs.Add(vna.Name))
			buf = e.U32(buf, auxNext)
		}
	}
	return buf
}

// VerDef is a version definition to encode. Names[0] is the version
// itself; the rest are its parents.
type VerDef struct {
	Flags uint16
	Ndx   uint16
	Hash  uint32
	Names []string
}

// VerDefs encodes a SHT_GNU_VERDEF section, adding names to strs.
func (e Encoder) VerDefs(strs *Strtab, defs []VerDef) []byte {
	var buf []byte
	for i, vd := range defs {
		next := uint32(20 + 8*len(vd.Names))
		if i == len(defs)-1 {
			next = 0
		}
		buf = e.U16(buf, 1)
		buf = e.U16(buf, vd.Flags)
		buf = e.U16(buf, vd.Ndx)
		buf = e.U16(buf, uint16(len(vd.Names)))
		buf = e.U32(buf, vd.Hash)
		buf = e.U32(buf, 20)
		buf = e.U32(buf, next)
		for j, name := range vd.Names {
			auxNext := uint32(8)
			if j == len(vd.Names)-1 {
				auxNext = 0
			}
			buf = e.U32(buf, strs.Add(name))
			buf = e.U32(buf, auxNext)
		}
	}
	return buf
}
