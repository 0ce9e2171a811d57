package rkf

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"golang.org/x/text/currency"
	"gopkg.in/yaml.v3"
)

//go:embed issuers.yaml
var defaultIssuers []byte

// SerialFormat describes how an issuer prints card serial numbers.
type SerialFormat struct {
	Prefix string `yaml:"prefix"`
	Digits int    `yaml:"digits"`
	Luhn   bool   `yaml:"luhn"`
	Groups []int  `yaml:"groups"`
}

// Issuer is one row of the issuer capability table.
type Issuer struct {
	ID       int          `yaml:"id"`
	Name     string       `yaml:"name"`
	Timezone string       `yaml:"timezone"`
	Currency string       `yaml:"currency"`
	Serial   SerialFormat `yaml:"serial"`

	loc  *time.Location
	unit currency.Unit
}

// Location returns the issuer's time zone.
func (i Issuer) Location() *time.Location {
	if i.loc == nil {
		return time.UTC
	}
	return i.loc
}

// Unit returns the issuer's currency.
func (i Issuer) Unit() currency.Unit {
	if i.unit == (currency.Unit{}) {
		return currency.XXX
	}
	return i.unit
}

// FormatAmount prints an amount held in minor units, using the number of
// decimals ISO 4217 defines for the issuer's currency.
func (i Issuer) FormatAmount(minor int) string {
	unit := i.Unit()
	scale, _ := currency.Standard.Rounding(unit)
	return fmt.Sprintf("%s %.*f", unit, scale, float64(minor)/math.Pow10(scale))
}

// FormatSerial prints the card serial derived from the UID.
func (i Issuer) FormatSerial(uid uint32) string {
	f := i.Serial
	digits := f.Prefix + fmt.Sprintf("%0*d", f.Digits, uid)
	if f.Luhn {
		// digits only holds '0'-'9' here, Luhn cannot fail.
		check, _ := Luhn(digits)
		digits += strconv.Itoa(check)
	}
	return group(digits, f.Groups)
}

func group(digits string, sizes []int) string {
	var parts []string
	rest := digits
	for _, n := range sizes {
		if n <= 0 || len(rest) == 0 {
			continue
		}
		if n > len(rest) {
			n = len(rest)
		}
		parts = append(parts, rest[:n])
		rest = rest[n:]
	}
	if rest != "" {
		parts = append(parts, rest)
	}
	return strings.Join(parts, " ")
}

// Luhn returns the check digit that makes digits+check pass the Luhn test.
func Luhn(digits string) (int, error) {
	sum := 0
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("luhn: invalid digit %q", c)
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10, nil
}

// Lookup maps issuer codes to issuer capabilities.
type Lookup struct {
	issuers map[int]Issuer
}

type lookupFile struct {
	Issuers []Issuer `yaml:"issuers"`
}

// ParseLookup reads an issuer table. Every time zone and currency is
// resolved up front so a bad table fails here rather than mid-decode.
func ParseLookup(data []byte) (*Lookup, error) {
	var f lookupFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse issuer table: %w", err)
	}

	l := &Lookup{issuers: make(map[int]Issuer, len(f.Issuers))}
	for _, is := range f.Issuers {
		if _, dup := l.issuers[is.ID]; dup {
			return nil, fmt.Errorf("issuer %d declared twice", is.ID)
		}
		loc, err := time.LoadLocation(is.Timezone)
		if err != nil {
			return nil, fmt.Errorf("issuer %d: %w", is.ID, err)
		}
		unit, err := currency.ParseISO(is.Currency)
		if err != nil {
			return nil, fmt.Errorf("issuer %d: currency %q: %w", is.ID, is.Currency, err)
		}
		is.loc, is.unit = loc, unit
		l.issuers[is.ID] = is
	}
	return l, nil
}

// LoadLookup reads an issuer table from a YAML file.
func LoadLookup(path string) (*Lookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read issuer table: %w", err)
	}
	return ParseLookup(data)
}

// DefaultLookup returns the built-in issuer table.
func DefaultLookup() *Lookup {
	l, err := ParseLookup(defaultIssuers)
	if err != nil {
		panic(fmt.Sprintf("rkf: embedded issuer table: %v", err))
	}
	return l
}

// Issuer returns the issuer for id.
func (l *Lookup) Issuer(id int) (Issuer, bool) {
	is, ok := l.issuers[id]
	return is, ok
}

// FallbackIssuer is used for issuer codes missing from the table: UTC, no
// currency, the bare UID as serial.
func FallbackIssuer(id int) Issuer {
	return Issuer{
		ID:       id,
		Name:     fmt.Sprintf("Unknown issuer %d", id),
		Timezone: "UTC",
		Currency: "XXX",
		Serial:   SerialFormat{Digits: 10},
		loc:      time.UTC,
		unit:     currency.XXX,
	}
}
