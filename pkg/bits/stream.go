package bits

import (
	"errors"
	"fmt"
)

// BIT STREAMS:
// Card records pack fields back to back with no byte alignment. A record is
// read as one long stream of bits built from the concatenated bytes, and a
// field is a window [offset, offset+width) into that stream.
//
// Two conventions exist for numbering the bits of a byte inside the stream:
//
// 1. MSB first: stream bit 0 is bit 8 of byte 0. The first bit of a window is
//    the most significant bit of the value (big-endian reading).
//
// 2. LSB first: stream bit 0 is bit 1 of byte 0. The first bit of a window is
//    the least significant bit of the value (little-endian reading).
//
// Whole single-byte windows read the same under both conventions; anything
// narrower that straddles a byte boundary, or wider than a byte, does not.

// MaxWidth is the widest window that fits in the returned value.
const MaxWidth = 64

// ErrOutOfRange is returned when a window does not fit inside the buffer.
var ErrOutOfRange = errors.New("bit window out of range")

func checkWindow(buf []byte, offset, width int) error {
	if offset < 0 || width < 0 || width > MaxWidth {
		return fmt.Errorf("%w: offset %d width %d", ErrOutOfRange, offset, width)
	}
	if offset+width > len(buf)*8 {
		return fmt.Errorf("%w: bits [%d,%d) of %d", ErrOutOfRange, offset, offset+width, len(buf)*8)
	}
	return nil
}

// streamBitMSB returns stream bit i using the MSB-first convention.
func streamBitMSB(buf []byte, i int) uint64 {
	return uint64(buf[i/8]>>(7-uint(i%8))) & 1
}

// streamBitLSB returns stream bit i using the LSB-first convention.
func streamBitLSB(buf []byte, i int) uint64 {
	return uint64(buf[i/8]>>uint(i%8)) & 1
}

// GetMSB reads width bits at offset, most significant bit first.
func GetMSB(buf []byte, offset, width int) (uint64, error) {
	if err := checkWindow(buf, offset, width); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < width; i++ {
		v = v<<1 | streamBitMSB(buf, offset+i)
	}
	return v, nil
}

// GetLSB reads width bits at offset, least significant bit first.
func GetLSB(buf []byte, offset, width int) (uint64, error) {
	if err := checkWindow(buf, offset, width); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < width; i++ {
		v |= streamBitLSB(buf, offset+i) << uint(i)
	}
	return v, nil
}

// PutMSB writes the low width bits of v at offset, most significant bit first.
func PutMSB(buf []byte, offset, width int, v uint64) error {
	if err := checkWindow(buf, offset, width); err != nil {
		return err
	}
	for i := 0; i < width; i++ {
		bit := (v >> uint(width-1-i)) & 1
		pos := offset + i
		mask := byte(1) << (7 - uint(pos%8))
		if bit == 1 {
			buf[pos/8] |= mask
		} else {
			buf[pos/8] &^= mask
		}
	}
	return nil
}

// PutLSB writes the low width bits of v at offset, least significant bit first.
func PutLSB(buf []byte, offset, width int, v uint64) error {
	if err := checkWindow(buf, offset, width); err != nil {
		return err
	}
	for i := 0; i < width; i++ {
		bit := (v >> uint(i)) & 1
		pos := offset + i
		mask := byte(1) << uint(pos%8)
		if bit == 1 {
			buf[pos/8] |= mask
		} else {
			buf[pos/8] &^= mask
		}
	}
	return nil
}

// SignExtend interprets the low width bits of v as a two's complement number.
func SignExtend(v uint64, width int) int64 {
	if width <= 0 || width >= 64 {
		return int64(v)
	}
	shift := uint(64 - width)
	return int64(v<<shift) >> shift
}
