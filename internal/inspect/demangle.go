package inspect

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ianlancetaylor/demangle"
)

// Demangler demangles symbol names, remembering recent results. Names that
// are not mangled are returned unchanged.
type Demangler struct {
	cache *lru.Cache[string, string]
}

// NewDemangler returns a Demangler caching up to size names.
func NewDemangler(size int) (*Demangler, error) {
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("lru create %w", err)
	}
	return &Demangler{cache: c}, nil
}

// Demangle returns the demangled form of name. A nil Demangler returns name.
func (d *Demangler) Demangle(name string) string {
	if d == nil || name == "" {
		return name
	}
	if out, ok := d.cache.Get(name); ok {
		return out
	}
	out := demangle.Filter(name)
	d.cache.Add(name, out)
	return out
}

// Len returns the number of cached names.
func (d *Demangler) Len() int {
	if d == nil {
		return 0
	}
	return d.cache.Len()
}
