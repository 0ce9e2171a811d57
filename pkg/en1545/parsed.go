package en1545

import (
	"fmt"
	"sort"
)

// Parsed maps field names to their decoded integer values.
type Parsed map[string]int

// Get returns the value of name and whether it was decoded.
func (p Parsed) Get(name string) (int, bool) {
	v, ok := p[name]
	return v, ok
}

// Has reports whether name was decoded.
func (p Parsed) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// Int returns the value of name, failing if it was not decoded.
func (p Parsed) Int(name string) (int, error) {
	v, ok := p[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMissingField, name)
	}
	return v, nil
}

// Names returns the decoded field names in lexical order.
func (p Parsed) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
