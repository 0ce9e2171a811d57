package rkf

import (
	"fmt"
	"time"

	"github.com/gregLibert/transit-card/pkg/en1545"
)

// TICKET OBJECTS (TCTO):
// A ticket is a stream of sub-records, each starting with a one-byte sub-tag
// whose length depends on the sub-tag and the ticket version:
//
//	SUB-TAG  CONTENT    BYTES v1-2  BYTES v3+
//	0x86     header     2           2
//	0x87     sale       8           9
//	0x88     profile    6           6
//	0x89     validity   10          11
//	0x8A     extension  4           4
//
// Lengths include the sub-tag byte. Sub-records are packed back to back with
// no regard for block boundaries. Any other byte closes the ticket; the next
// ticket, if any, starts on the following block.

type subTagLength struct {
	v1, v3 int
}

var subTagLengths = map[byte]subTagLength{
	0x86: {2, 2},
	0x87: {8, 9},
	0x88: {6, 6},
	0x89: {10, 11},
	0x8A: {4, 4},
}

// SubRecordLength returns the byte length of sub-tag at version, or false
// when the byte is not a sub-tag.
func SubRecordLength(subTag byte, version int) (int, bool) {
	l, ok := subTagLengths[subTag]
	if !ok {
		return 0, false
	}
	if version >= 3 {
		return l.v3, true
	}
	return l.v1, true
}

const (
	subTagHeader   byte = 0x86
	subTagSale     byte = 0x87
	subTagValidity byte = 0x89
)

var (
	validityV1 = en1545.NewContainer(
		en1545.Integer("SubTag", 8),
		en1545.Integer("ServiceProvider", 12),
		en1545.Integer("TicketType", 12),
		en1545.Date("ValidFromDate"),
		en1545.TimeLocal("ValidFromTime"),
		en1545.Integer("DurationMinutes", 20),
	)
	validityV3 = en1545.NewContainer(
		en1545.Integer("SubTag", 8),
		en1545.Integer("ServiceProvider", 12),
		en1545.Integer("TicketType", 12),
		en1545.DateTimeLocal("ValidFrom"),
		en1545.Integer("DurationMinutes", 20),
		en1545.Integer("Passengers", 6),
	)
	saleV1 = en1545.NewContainer(
		en1545.Integer("SubTag", 8),
		en1545.Integer("Price", 20),
		en1545.Integer("Zones", 16),
		en1545.Integer("SaleDevice", 16),
	)
	saleV3 = en1545.NewContainer(
		en1545.Integer("SubTag", 8),
		en1545.Integer("Price", 20),
		en1545.Integer("Zones", 16),
		en1545.Integer("SaleDevice", 16),
		en1545.Integer("SaleSequence", 12),
	)
)

// Chunk is one ticket object: its sub-records in card order.
type Chunk [][]byte

// Ticket is a decoded ticket object.
type Ticket struct {
	Origin     Cursor
	Provider   int
	Type       int
	ValidFrom  time.Time
	ValidTo    time.Time
	Price      int
	Zones      int
	Passengers int
}

type rawValidity struct {
	ServiceProvider int `en1545:"ServiceProvider"`
	TicketType      int `en1545:"TicketType"`
	ValidFromDate   int `en1545:"ValidFromDate,optional"`
	ValidFromTime   int `en1545:"ValidFromTime,optional"`
	ValidFrom       int `en1545:"ValidFrom,optional"`
	DurationMinutes int `en1545:"DurationMinutes"`
	Passengers      int `en1545:"Passengers,optional"`
}

type rawSale struct {
	Price int `en1545:"Price"`
	Zones int `en1545:"Zones"`
}

// decodeTicket decodes the validity sub-record of a chunk, and the sale
// sub-record when present.
func decodeTicket(origin Cursor, version int, chunk Chunk, loc *time.Location) (Ticket, error) {
	validity, sale := validityV1, saleV1
	if version >= 3 {
		validity, sale = validityV3, saleV3
	}

	t := Ticket{Origin: origin, Passengers: 1}
	found := false
	for _, sub := range chunk {
		switch sub[0] {
		case subTagValidity:
			p, err := en1545.Decode(validity, sub, 0, en1545.LSBFirst)
			if err != nil {
				return Ticket{}, fmt.Errorf("validity: %w", err)
			}
			var raw rawValidity
			if err := en1545.Unmarshal(p, &raw); err != nil {
				return Ticket{}, fmt.Errorf("validity: %w", err)
			}
			t.Provider = raw.ServiceProvider
			t.Type = raw.TicketType
			if version >= 3 {
				t.ValidFrom = en1545.DateTimeLocalToTime(raw.ValidFrom, loc)
			} else {
				t.ValidFrom = en1545.DateTimeToTime(raw.ValidFromDate, raw.ValidFromTime, loc)
			}
			t.ValidTo = t.ValidFrom.Add(time.Duration(raw.DurationMinutes) * time.Minute)
			if raw.Passengers > 0 {
				t.Passengers = raw.Passengers
			}
			found = true
		case subTagSale:
			p, err := en1545.Decode(sale, sub, 0, en1545.LSBFirst)
			if err != nil {
				return Ticket{}, fmt.Errorf("sale: %w", err)
			}
			var raw rawSale
			if err := en1545.Unmarshal(p, &raw); err != nil {
				return Ticket{}, fmt.Errorf("sale: %w", err)
			}
			t.Price, t.Zones = raw.Price, raw.Zones
		}
	}
	if !found {
		return Ticket{}, fmt.Errorf("%w: no validity sub-record", en1545.ErrMissingField)
	}
	return t, nil
}
