package iso7816

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/moov-io/bertlv"
)

// FILE CONTROL INFORMATION (FCI) OF TRANSIT APPLICATIONS:
//
// Selecting a transit application returns an FCI template describing it:
//
//	6F  FCI Template
//	    84  DF Name (the AID)
//	    A5  Proprietary template
//	        50    Application label
//	        53    Discretionary data (issuer specific, kept raw)
//	        BF0C  Issuer discretionary template (kept raw)
//
// Some cards omit the '6F' wrapper and answer with the children directly.

// FCI is the parsed File Control Information of an application.
type FCI struct {
	DFName        []byte
	Label         string
	Discretionary []byte

	// Unknown holds the TLVs that matched none of the fields above.
	Unknown []bertlv.TLV
}

// ParseFCI decodes a BER-TLV encoded FCI.
func ParseFCI(data []byte) (*FCI, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data cannot be parsed")
	}

	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("BER-TLV decode failed: %w", err)
	}

	if len(packets) > 0 && strings.EqualFold(packets[0].Tag, "6F") {
		packets = packets[0].TLVs
	}

	fci := &FCI{}
	for _, p := range packets {
		switch strings.ToUpper(p.Tag) {
		case "84":
			fci.DFName = p.Value
		case "A5":
			fci.parseProprietary(p.TLVs)
		default:
			fci.Unknown = append(fci.Unknown, p)
		}
	}
	return fci, nil
}

func (f *FCI) parseProprietary(packets []bertlv.TLV) {
	for _, p := range packets {
		switch strings.ToUpper(p.Tag) {
		case "50":
			f.Label = string(p.Value)
		case "53":
			f.Discretionary = p.Value
		default:
			f.Unknown = append(f.Unknown, p)
		}
	}
}

// Describe generates a report of the FCI content.
func (f *FCI) Describe() string {
	var lines []string
	if len(f.DFName) > 0 {
		lines = append(lines, fmt.Sprintf("    - FCI.DFName: %X", f.DFName))
	}
	if f.Label != "" {
		lines = append(lines, fmt.Sprintf("    - FCI.Label: %s", MakeSafeASCII([]byte(f.Label))))
	}
	if len(f.Discretionary) > 0 {
		lines = append(lines, fmt.Sprintf("    - FCI.Discretionary: %X", f.Discretionary))
	}
	for _, u := range f.Unknown {
		lines = append(lines, fmt.Sprintf("    - FCI.Unknown[%s]: %s", strings.ToUpper(u.Tag), strings.ToUpper(hex.EncodeToString(u.Value))))
	}
	return strings.Join(lines, "\n")
}

// MakeSafeASCII replaces non-printable bytes with '.'.
func MakeSafeASCII(data []byte) string {
	out := make([]byte, len(data))
	for i, b := range data {
		if b >= 0x20 && b <= 0x7E {
			out[i] = b
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
