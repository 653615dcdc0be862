// Package elfparse decodes ELF object files lazily.
//
// A File is opened from a byte slice (Open), a seekable stream (OpenStream)
// or any Source (NewFile). Opening reads only the file header; section
// headers, segments, symbols, dynamic entries, relocations, notes, hash
// tables and GNU version information are decoded on demand, one record at
// a time, straight from the underlying bytes.
//
// All offsets and sizes in a file are treated as untrusted. Range
// arithmetic is overflow checked and every failure is reported as an error
// that matches one of the package's sentinel errors under errors.Is.
// Compressed sections are returned with their CompressionHeader and left
// compressed.
package elfparse
