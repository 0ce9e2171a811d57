// Package bits reads and writes bit fields, inside a single byte and across
// packed byte streams.
package bits

// BYTE BITS:
// Inside a single byte, bits are numbered 1 to 8 from the least significant
// one, the way ISO 7816 and the RKF documents write them ("b1".."b8"). Numbers
// outside that range select nothing.

// Bit returns a byte with only bit n set.
func Bit(n uint) byte {
	if n < 1 || n > 8 {
		return 0
	}
	return 1 << (n - 1)
}

// IsSet reports whether bit n of b is set.
func IsSet(b byte, n uint) bool {
	return b&Bit(n) != 0
}

// GetRange returns bits high..low of b, shifted down.
// Example: GetRange(0b00001100, 4, 3) returns 3 (0b11)
func GetRange(b byte, high, low uint) byte {
	if high < low || high > 8 || low < 1 {
		return 0
	}
	mask := byte(1<<(high-low+1) - 1)
	return b >> (low - 1) & mask
}
