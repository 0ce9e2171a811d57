package classic

import (
	"bytes"
	"testing"
)

func TestHex(t *testing.T) {
	tests := []struct {
		name      string
		inputs    []string
		want      []byte
		wantPanic bool
	}{
		{
			name:   "Simple Join",
			inputs: []string{"84", "0C"},
			want:   []byte{0x84, 0x0C},
		},
		{
			name:   "With Spaces",
			inputs: []string{"91 83", " 01 00 "},
			want:   []byte{0x91, 0x83, 0x01, 0x00},
		},
		{
			name:   "Colon Separated",
			inputs: []string{"de:ad:be:ef"},
			want:   []byte{0xDE, 0xAD, 0xBE, 0xEF},
		},
		{
			name:      "Invalid Hex",
			inputs:    []string{"ZZ"},
			wantPanic: true,
		},
		{
			name:      "Odd Length",
			inputs:    []string{"123"},
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if (r != nil) != tt.wantPanic {
					t.Errorf("Hex() panic = %v, wantPanic %v", r, tt.wantPanic)
				}
			}()

			got := Hex(tt.inputs...)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Hex() = %X, want %X", got, tt.want)
			}
		})
	}
}

func TestParseHexError(t *testing.T) {
	if _, err := ParseHex("0G"); err == nil {
		t.Error("expected error for invalid digit")
	}
}
