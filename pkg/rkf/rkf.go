// Package rkf decodes MIFARE Classic cards of the RKF family (Rejsekort,
// SLaccess and other Nordic issuers).
//
// CARD ORGANISATION:
//
//   - Sector 0 block 0 holds the UID, which gives the printed serial number.
//   - Sector 0 block 1 holds the TCCI header: issuer, card version and the
//     indicator 0x8391 that identifies the family.
//   - Sectors 1 and 2 are reserved.
//   - From sector 3 on, every data block starts with a type tag. Blocks that
//     share a tag form a run; the record's own version field (bits 8..13)
//     tells how many blocks one record of that type spans.
//   - Tags 0x86 to 0x8F are ticket objects: a stream of variable length
//     sub-records that ignore block boundaries.
//
// All fields are packed least significant bit first. Timestamps count from
// 1997-01-01 in the issuer's local time.
package rkf

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRKF means the card does not carry the RKF header at all.
	ErrNotRKF = errors.New("not an RKF card")
	// ErrHeader means the card looks like RKF but its header is unusable.
	// The whole analysis is abandoned.
	ErrHeader = errors.New("invalid RKF header")
	// ErrUnsupportedVariant marks a (tag, version) pair with no known layout.
	ErrUnsupportedVariant = errors.New("unsupported record variant")
	// ErrInconsistentOrdering marks a trip whose end precedes its start.
	ErrInconsistentOrdering = errors.New("trip ends before it starts")
	// ErrGapSkipped marks an empty block skipped inside a record. The
	// heuristic is an approximation; cards that trigger it deserve review.
	ErrGapSkipped = errors.New("empty block skipped inside record")
	// ErrTruncatedRecord means a record ran out of blocks.
	ErrTruncatedRecord = errors.New("record truncated")
	// ErrUnknownIssuer means the issuer is missing from the lookup table.
	ErrUnknownIssuer = errors.New("unknown issuer")
)

// RecordError locates a recoverable problem on the card.
type RecordError struct {
	Sector  int
	Block   int
	Tag     byte
	Version int
	Err     error
}

func (e *RecordError) Error() string {
	if e.Tag == 0 {
		return fmt.Sprintf("sector %d block %d: %v", e.Sector, e.Block, e.Err)
	}
	return fmt.Sprintf("sector %d block %d tag %02X v%d: %v", e.Sector, e.Block, e.Tag, e.Version, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
