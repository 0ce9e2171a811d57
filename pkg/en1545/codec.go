package en1545

import (
	"errors"
	"fmt"

	"github.com/gregLibert/transit-card/pkg/bits"
)

var (
	// ErrTruncatedData means a field needs more bits than the buffer holds.
	ErrTruncatedData = errors.New("truncated data")
	// ErrMissingField means a required field has no value.
	ErrMissingField = errors.New("missing field")
	// ErrOverflow means a value does not fit the declared width.
	ErrOverflow = errors.New("value overflows field")
)

type stream struct {
	data  []byte
	pos   int
	order BitOrder
}

func (s *stream) size() int { return len(s.data) * 8 }

func (s *stream) read(width int) (uint64, error) {
	var v uint64
	var err error
	if s.order == LSBFirst {
		v, err = bits.GetLSB(s.data, s.pos, width)
	} else {
		v, err = bits.GetMSB(s.data, s.pos, width)
	}
	if err != nil {
		return 0, err
	}
	s.pos += width
	return v, nil
}

func (s *stream) write(width int, v uint64) error {
	var err error
	if s.order == LSBFirst {
		err = bits.PutLSB(s.data, s.pos, width, v)
	} else {
		err = bits.PutMSB(s.data, s.pos, width, v)
	}
	if err != nil {
		return err
	}
	s.pos += width
	return nil
}

// Decode reads f from data starting at bit offset.
func Decode(f Field, data []byte, offset int, order BitOrder) (Parsed, error) {
	if offset < 0 {
		return nil, fmt.Errorf("negative bit offset %d", offset)
	}
	s := &stream{data: data, pos: offset, order: order}
	out := Parsed{}
	if err := f.decode(s, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Encode lays p out according to f in a fresh buffer of ceil(width/8) bytes.
func Encode(f Field, p Parsed, order BitOrder) ([]byte, error) {
	buf := make([]byte, (f.Width()+7)/8)
	if err := EncodeInto(f, buf, 0, p, order); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeInto writes p into buf starting at bit offset. Bits outside the
// fields of f are left untouched; absent optional fields keep their bits.
func EncodeInto(f Field, buf []byte, offset int, p Parsed, order BitOrder) error {
	if offset < 0 || offset+f.Width() > len(buf)*8 {
		return fmt.Errorf("%w: layout needs bits [%d,%d) of %d", ErrTruncatedData, offset, offset+f.Width(), len(buf)*8)
	}
	s := &stream{data: buf, pos: offset, order: order}
	return f.encode(s, p)
}
