// Package en1545 implements a declarative bit-field codec for the EN1545
// family of transit record layouts.
//
// A record layout is a tree of Fields: fixed-width integers (some of which
// carry a date or time meaning) grouped into ordered Containers. Decoding
// walks the tree in declaration order and consumes each field's width from a
// bit stream; encoding is the exact inverse.
package en1545

import (
	"errors"
	"fmt"

	"github.com/gregLibert/transit-card/pkg/bits"
)

// BitOrder selects how the bytes of a record are turned into a bit stream.
// Issuers disagree on this, so the same layout can be read either way.
type BitOrder int

const (
	// MSBFirst reads each byte from bit 8 down to bit 1; values are big-endian.
	MSBFirst BitOrder = iota
	// LSBFirst reads each byte from bit 1 up to bit 8; values are little-endian.
	LSBFirst
)

func (o BitOrder) String() string {
	switch o {
	case MSBFirst:
		return "MSB first"
	case LSBFirst:
		return "LSB first"
	default:
		return fmt.Sprintf("BitOrder(%d)", int(o))
	}
}

// Kind tells consumers how the raw integer of a field is meant to be read.
// The codec itself only ever extracts the integer.
type Kind int

const (
	KindInteger Kind = iota
	// KindDate counts days since 1997-01-01.
	KindDate
	// KindTimeLocal counts minutes since local midnight.
	KindTimeLocal
	// KindDateTimeLocal counts seconds since 1997-01-01 00:00 local time.
	KindDateTimeLocal
)

// Standard widths of the EN1545 date and time fields.
const (
	DateWidth          = 14
	TimeLocalWidth     = 11
	DateTimeLocalWidth = 30
)

// MaxIntegerWidth is the widest integer field. Values are carried as int, so
// one bit of the 64-bit window is kept for the sign.
const MaxIntegerWidth = 63

// Field is one node of a record layout.
type Field interface {
	// Width is the number of bits the field occupies in the stream.
	Width() int

	decode(s *stream, out Parsed) error
	encode(s *stream, in Parsed) error
	names() []string
}

// FixedInteger is a leaf field of a fixed bit width.
type FixedInteger struct {
	name  string
	width int
	kind  Kind
}

// Integer declares a plain unsigned integer field.
func Integer(name string, width int) *FixedInteger {
	if width <= 0 || width > MaxIntegerWidth {
		panic(fmt.Sprintf("en1545: field %q has invalid width %d", name, width))
	}
	return &FixedInteger{name: name, width: width, kind: KindInteger}
}

// Date declares a 14-bit day count field.
func Date(name string) *FixedInteger {
	return &FixedInteger{name: name, width: DateWidth, kind: KindDate}
}

// TimeLocal declares an 11-bit minutes-of-day field.
func TimeLocal(name string) *FixedInteger {
	return &FixedInteger{name: name, width: TimeLocalWidth, kind: KindTimeLocal}
}

// DateTimeLocal declares a 30-bit seconds-since-epoch field.
func DateTimeLocal(name string) *FixedInteger {
	return &FixedInteger{name: name, width: DateTimeLocalWidth, kind: KindDateTimeLocal}
}

func (f *FixedInteger) Name() string { return f.name }
func (f *FixedInteger) Width() int   { return f.width }
func (f *FixedInteger) Kind() Kind   { return f.kind }
func (f *FixedInteger) names() []string {
	return []string{f.name}
}

func (f *FixedInteger) decode(s *stream, out Parsed) error {
	start := s.pos
	v, err := s.read(f.width)
	if err != nil {
		if errors.Is(err, bits.ErrOutOfRange) {
			return fmt.Errorf("%w: field %q needs bits [%d,%d) of %d",
				ErrTruncatedData, f.name, start, start+f.width, s.size())
		}
		return err
	}
	out[f.name] = int(v)
	return nil
}

func (f *FixedInteger) encode(s *stream, in Parsed) error {
	v, ok := in[f.name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrMissingField, f.name)
	}
	if v < 0 || uint64(v) >= uint64(1)<<uint(f.width) {
		return fmt.Errorf("%w: %q value %d does not fit in %d bits", ErrOverflow, f.name, v, f.width)
	}
	if err := s.write(f.width, uint64(v)); err != nil {
		return fmt.Errorf("%w: field %q", ErrTruncatedData, f.name)
	}
	return nil
}

// OptionalField wraps a field that some records are too short to carry.
type OptionalField struct {
	inner Field
}

// Optional marks f as optional: when the buffer ends before f does, its
// names are left absent instead of failing the whole decode.
func Optional(f Field) *OptionalField {
	return &OptionalField{inner: f}
}

func (o *OptionalField) Inner() Field    { return o.inner }
func (o *OptionalField) Width() int      { return o.inner.Width() }
func (o *OptionalField) names() []string { return o.inner.names() }

func (o *OptionalField) decode(s *stream, out Parsed) error {
	start := s.pos
	tmp := Parsed{}
	if err := o.inner.decode(s, tmp); err != nil {
		if errors.Is(err, ErrTruncatedData) {
			s.pos = start + o.inner.Width()
			return nil
		}
		return err
	}
	for k, v := range tmp {
		out[k] = v
	}
	return nil
}

func (o *OptionalField) encode(s *stream, in Parsed) error {
	present := 0
	all := o.inner.names()
	for _, n := range all {
		if _, ok := in[n]; ok {
			present++
		}
	}
	if present == 0 {
		s.pos += o.inner.Width()
		return nil
	}
	if present != len(all) {
		return fmt.Errorf("%w: optional group %v is only partially set", ErrMissingField, all)
	}
	return o.inner.encode(s, in)
}

// Container is an ordered sequence of fields.
type Container struct {
	fields []Field
	width  int
}

// NewContainer builds a container. Field names must be unique across the
// whole tree; a duplicate is a programming error and panics.
func NewContainer(fields ...Field) *Container {
	c := &Container{fields: fields}
	seen := make(map[string]bool)
	for _, f := range fields {
		c.width += f.Width()
		for _, n := range f.names() {
			if seen[n] {
				panic(fmt.Sprintf("en1545: duplicate field name %q", n))
			}
			seen[n] = true
		}
	}
	return c
}

// Fields returns the children in declaration order.
func (c *Container) Fields() []Field { return c.fields }
func (c *Container) Width() int      { return c.width }

func (c *Container) names() []string {
	var out []string
	for _, f := range c.fields {
		out = append(out, f.names()...)
	}
	return out
}

func (c *Container) decode(s *stream, out Parsed) error {
	for _, f := range c.fields {
		if err := f.decode(s, out); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) encode(s *stream, in Parsed) error {
	for _, f := range c.fields {
		if err := f.encode(s, in); err != nil {
			return err
		}
	}
	return nil
}

// Walk calls fn for every FixedInteger of f in stream order.
func Walk(f Field, fn func(leaf *FixedInteger)) {
	switch x := f.(type) {
	case *FixedInteger:
		fn(x)
	case *OptionalField:
		Walk(x.inner, fn)
	case *Container:
		for _, child := range x.fields {
			Walk(child, fn)
		}
	}
}
