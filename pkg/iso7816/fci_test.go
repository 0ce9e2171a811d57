package iso7816

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gregLibert/transit-card/pkg/classic"
)

func TestParseFCI(t *testing.T) {
	tests := []struct {
		name      string
		rawData   []byte
		wantAID   []byte
		wantLabel string
		wantDisc  []byte
		wantErr   bool
	}{
		{
			name: "Wrapped in 6F",
			rawData: classic.Hex(
				"6F 13",
				"84 07 A0000004040125",
				"A5 08",
				"50 06 52454A5345", "4B",
			),
			wantAID:   classic.Hex("A0000004040125"),
			wantLabel: "REJSEK",
		},
		{
			name: "Flat answer with discretionary data",
			rawData: classic.Hex(
				"84 05 A000000291",
				"A5 04",
				"53 02 0102",
			),
			wantAID:  classic.Hex("A000000291"),
			wantDisc: []byte{0x01, 0x02},
		},
		{
			name:    "Empty data",
			rawData: nil,
			wantErr: true,
		},
		{
			name:    "Truncated TLV",
			rawData: []byte{0x6F, 0x05, 0x84},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fci, err := ParseFCI(tt.rawData)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFCI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !bytes.Equal(fci.DFName, tt.wantAID) {
				t.Errorf("DFName = %X; want %X", fci.DFName, tt.wantAID)
			}
			if fci.Label != tt.wantLabel {
				t.Errorf("Label = %q; want %q", fci.Label, tt.wantLabel)
			}
			if !bytes.Equal(fci.Discretionary, tt.wantDisc) {
				t.Errorf("Discretionary = %X; want %X", fci.Discretionary, tt.wantDisc)
			}
		})
	}
}

func TestFCIDescribe(t *testing.T) {
	fci := &FCI{
		DFName:        classic.Hex("A000000291"),
		Label:         "SL\x01",
		Discretionary: []byte{0xCA, 0xFE},
	}

	expected := []string{
		"    - FCI.DFName: A000000291",
		"    - FCI.Label: SL.",
		"    - FCI.Discretionary: CAFE",
	}

	if diff := cmp.Diff(expected, strings.Split(fci.Describe(), "\n")); diff != "" {
		t.Errorf("Mismatch (-want +got):\n%s", diff)
	}
}
