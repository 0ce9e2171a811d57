package en1545

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestRoundTripProperty(t *testing.T) {
	layout := NewContainer(
		Integer("A", 3),
		Integer("B", 8),
		TimeLocal("C"),
		Date("D"),
		DateTimeLocal("E"),
		Integer("F", 1),
		Integer("G", 20),
	)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("decode(encode(v)) == v in both bit orders", prop.ForAll(
		func(a, b, c, d, e, f, g int) bool {
			in := Parsed{"A": a, "B": b, "C": c, "D": d, "E": e, "F": f, "G": g}
			for _, order := range []BitOrder{MSBFirst, LSBFirst} {
				raw, err := Encode(layout, in, order)
				if err != nil {
					return false
				}
				out, err := Decode(layout, raw, 0, order)
				if err != nil || len(out) != len(in) {
					return false
				}
				for k, v := range in {
					if out[k] != v {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(0, 1<<3-1),
		gen.IntRange(0, 1<<8-1),
		gen.IntRange(0, 1<<TimeLocalWidth-1),
		gen.IntRange(0, 1<<DateWidth-1),
		gen.IntRange(0, 1<<DateTimeLocalWidth-1),
		gen.IntRange(0, 1),
		gen.IntRange(0, 1<<20-1),
	))

	properties.TestingRun(t)
}

func TestByteAlignedFieldsIgnoreBitOrder(t *testing.T) {
	layout := NewContainer(Integer("X", 8), Integer("Y", 8), Integer("Z", 8))

	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("single-byte aligned fields decode identically", prop.ForAll(
		func(data []byte) bool {
			msb, err1 := Decode(layout, data, 0, MSBFirst)
			lsb, err2 := Decode(layout, data, 0, LSBFirst)
			if err1 != nil || err2 != nil {
				return false
			}
			return msb["X"] == lsb["X"] && msb["Y"] == lsb["Y"] && msb["Z"] == lsb["Z"]
		},
		gen.SliceOfN(3, gen.UInt8()),
	))

	properties.TestingRun(t)
}

func TestBoundarySpanningFieldDependsOnBitOrder(t *testing.T) {
	// Z covers the last two bits of byte 0 and the first two of byte 1.
	layout := NewContainer(Integer("Pad", 6), Integer("Z", 4))
	data := []byte{0b1100_0000, 0b0000_0000}

	msb, err := Decode(layout, data, 0, MSBFirst)
	if err != nil {
		t.Fatal(err)
	}
	lsb, err := Decode(layout, data, 0, LSBFirst)
	if err != nil {
		t.Fatal(err)
	}

	// MSB first: pad = 110000, Z = 00 00.
	// LSB first: pad = 000000, Z = bits 6,7 of byte 0 then bits 0,1 of byte 1 -> 0b0011.
	if msb["Z"] != 0 || lsb["Z"] != 3 {
		t.Errorf("Z = %d (MSB) / %d (LSB); want 0 / 3", msb["Z"], lsb["Z"])
	}
	if msb["Z"] == lsb["Z"] {
		t.Error("boundary spanning field should differ between bit orders")
	}
}
