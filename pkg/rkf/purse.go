package rkf

import (
	"time"

	"github.com/gregLibert/transit-card/pkg/bits"
	"github.com/gregLibert/transit-card/pkg/en1545"
)

// Purse is a decoded TCPU record. Value is signed: a purse may be overdrawn.
type Purse struct {
	Origin            Cursor
	Provider          int
	Serial            uint32
	ValidFrom         time.Time
	ValidTo           time.Time
	TransactionNumber int
	Value             int
	Deposit           int
	Autoload          bool
}

// valueWidth is the width of the signed purse value.
const valueWidth = 24

// counterAfter reports whether transaction number a follows b. The counters
// are 16 bits wide and wrap, so 0x0000 follows 0xFFFF.
func counterAfter(a, b int) bool {
	d := uint16(a - b)
	return d != 0 && d < 0x8000
}

type rawPurse struct {
	ServiceProvider    int    `en1545:"ServiceProvider"`
	PurseSerial        uint32 `en1545:"PurseSerial"`
	ValidFrom          int    `en1545:"ValidFrom"`
	ValidTo            int    `en1545:"ValidTo"`
	TransactionNumber  int    `en1545:"TransactionNumber,optional"`
	Value              int    `en1545:"Value,optional"`
	TransactionNumberA int    `en1545:"TransactionNumberA,optional"`
	ValueA             int    `en1545:"ValueA,optional"`
	TransactionNumberB int    `en1545:"TransactionNumberB,optional"`
	ValueB             int    `en1545:"ValueB,optional"`
	Deposit            int    `en1545:"Deposit"`
	Autoload           bool   `en1545:"Autoload"`
}

func decodePurse(r Record, p en1545.Parsed, loc *time.Location) (Purse, error) {
	var raw rawPurse
	if err := en1545.Unmarshal(p, &raw); err != nil {
		return Purse{}, err
	}

	number, value := raw.TransactionNumber, raw.Value
	if p.Has("TransactionNumberA") {
		// Two value areas are written alternately; the most recent wins.
		number, value = raw.TransactionNumberA, raw.ValueA
		if counterAfter(raw.TransactionNumberB, raw.TransactionNumberA) {
			number, value = raw.TransactionNumberB, raw.ValueB
		}
	}

	purse := Purse{
		Origin:            r.Origin,
		Provider:          raw.ServiceProvider,
		Serial:            raw.PurseSerial,
		TransactionNumber: number,
		Value:             int(bits.SignExtend(uint64(value), valueWidth)),
		Deposit:           raw.Deposit,
		Autoload:          raw.Autoload,
	}
	if raw.ValidFrom != 0 {
		purse.ValidFrom = en1545.DateToTime(raw.ValidFrom, loc)
	}
	if raw.ValidTo != 0 {
		purse.ValidTo = en1545.DateToTime(raw.ValidTo, loc)
	}
	return purse, nil
}
