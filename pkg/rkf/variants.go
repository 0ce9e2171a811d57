package rkf

import (
	"github.com/gregLibert/transit-card/pkg/bits"
	"github.com/gregLibert/transit-card/pkg/classic"
	"github.com/gregLibert/transit-card/pkg/en1545"
)

// RECORD VARIANTS:
// A record type is known by its tag, but its size and layout change with the
// version number stored in bits 8..13 of its first block. Every supported
// (tag, version range) pair is listed below; anything else is reported as an
// unsupported variant and never decoded by guesswork.
//
//	TAG   NAME  VERSIONS  BLOCKS
//	0x84  TCEL  1-2       1       transaction (event log)
//	0x84  TCEL  3-6       1       adds the device number
//	0x85  TCPU  1-2       2       purse, single value area
//	0x85  TCPU  3-6       3       purse, two value areas A/B
//	0xA2  TCCP  1-6       1       customer profile, kept raw
//	0xA3  TCST  1-2       2       trip
//	0xA3  TCST  3-6       3       adds zones, transfers and validity

const (
	TagTransaction byte = 0x84
	TagPurse       byte = 0x85
	TagProfile     byte = 0xA2
	TagTrip        byte = 0xA3

	// Ticket objects use the range [TagTicketFirst, TagTicketLast].
	TagTicketFirst byte = 0x86
	TagTicketLast  byte = 0x8F
)

// Block offset and width of the version field, shared by all records.
const (
	versionOffset = 8
	versionWidth  = 6
)

type recordKind int

const (
	kindTransaction recordKind = iota
	kindPurse
	kindTrip
	kindProfile
)

type variant struct {
	name       string
	kind       recordKind
	tag        byte
	minVersion int
	maxVersion int
	blocks     int
	layout     *en1545.Container
}

func head() []en1545.Field {
	return []en1545.Field{
		en1545.Integer("Identifier", 8),
		en1545.Integer("Version", versionWidth),
		en1545.Integer("ServiceProvider", 12),
	}
}

func fields(groups ...[]en1545.Field) *en1545.Container {
	var all []en1545.Field
	for _, g := range groups {
		all = append(all, g...)
	}
	return en1545.NewContainer(all...)
}

var variants = []variant{
	{
		name: "TCEL", kind: kindTransaction, tag: TagTransaction,
		minVersion: 1, maxVersion: 2, blocks: 1,
		layout: fields(head(), []en1545.Field{
			en1545.DateTimeLocal("EventDateTime"),
			en1545.Integer("EventCode", 8),
			en1545.Integer("Place", 16),
			en1545.Integer("Price", 20),
			en1545.Integer("Sequence", 16),
		}),
	},
	{
		name: "TCEL", kind: kindTransaction, tag: TagTransaction,
		minVersion: 3, maxVersion: 6, blocks: 1,
		layout: fields(head(), []en1545.Field{
			en1545.DateTimeLocal("EventDateTime"),
			en1545.Integer("EventCode", 8),
			en1545.Integer("Place", 16),
			en1545.Integer("Device", 12),
			en1545.Integer("Price", 20),
			en1545.Integer("Sequence", 16),
		}),
	},
	{
		name: "TCPU", kind: kindPurse, tag: TagPurse,
		minVersion: 1, maxVersion: 2, blocks: 2,
		layout: fields(head(), purseHead(), []en1545.Field{
			en1545.Integer("TransactionNumber", 16),
			en1545.Integer("Value", 24),
		}, purseTail()),
	},
	{
		name: "TCPU", kind: kindPurse, tag: TagPurse,
		minVersion: 3, maxVersion: 6, blocks: 3,
		layout: fields(head(), purseHead(), []en1545.Field{
			en1545.Integer("TransactionNumberA", 16),
			en1545.Integer("ValueA", 24),
			en1545.Integer("TransactionNumberB", 16),
			en1545.Integer("ValueB", 24),
		}, purseTail()),
	},
	{
		name: "TCCP", kind: kindProfile, tag: TagProfile,
		minVersion: 1, maxVersion: 6, blocks: 1,
		layout: fields(head()),
	},
	{
		name: "TCST", kind: kindTrip, tag: TagTrip,
		minVersion: 1, maxVersion: 2, blocks: 2,
		layout: fields(head(), tripBody()),
	},
	{
		name: "TCST", kind: kindTrip, tag: TagTrip,
		minVersion: 3, maxVersion: 6, blocks: 3,
		layout: fields(head(), tripBody(), []en1545.Field{
			en1545.Integer("Zones", 16),
			en1545.Integer("Transfers", 4),
			en1545.Integer("ValidityMinutes", 16),
		}),
	},
}

func purseHead() []en1545.Field {
	return []en1545.Field{
		en1545.Integer("PurseSerial", 32),
		en1545.Date("ValidFrom"),
		en1545.Date("ValidTo"),
	}
}

func purseTail() []en1545.Field {
	return []en1545.Field{
		en1545.Integer("Deposit", 20),
		en1545.Integer("Autoload", 1),
	}
}

func tripBody() []en1545.Field {
	return []en1545.Field{
		en1545.DateTimeLocal("StartDateTime"),
		en1545.Integer("StartPlace", 16),
		en1545.DateTimeLocal("EndDateTime"),
		en1545.Integer("EndPlace", 16),
		en1545.Integer("Status", 4),
		en1545.Integer("Price", 20),
		en1545.Integer("Passengers", 6),
	}
}

func lookupVariant(tag byte, version int) (*variant, bool) {
	for i := range variants {
		v := &variants[i]
		if v.tag == tag && version >= v.minVersion && version <= v.maxVersion {
			return v, true
		}
	}
	return nil, false
}

// coversBlock reports whether the layout places any bit in the record's
// block n (0-based). Later blocks only hold padding.
func (v *variant) coversBlock(n int) bool {
	return v.layout.Width() > n*classic.BlockSize*8
}

func isTicketTag(tag byte) bool {
	return tag >= TagTicketFirst && tag <= TagTicketLast
}

// recordVersion reads the version field of a record's first block.
func recordVersion(block []byte) int {
	v, err := bits.GetLSB(block, versionOffset, versionWidth)
	if err != nil {
		return 0
	}
	return int(v)
}
