package rkf

import (
	"fmt"
	"time"

	"github.com/gregLibert/transit-card/pkg/classic"
	"github.com/gregLibert/transit-card/pkg/en1545"
)

// TCCI HEADER (sector 0, block 1):
//
//	FIELD            BITS
//	MADIndicator     16    0x8391 on every RKF card
//	CardVersion      6
//	Issuer           12    key into the issuer table
//	ValidityEnd      14    date
//	Status           8
//	Currency         16
//	EventLogVersion  6
//	Reserved         34
//	Checksum         16

// MADIndicator identifies RKF cards.
const MADIndicator = 0x8391

var headerLayout = en1545.NewContainer(
	en1545.Integer("MADIndicator", 16),
	en1545.Integer("CardVersion", 6),
	en1545.Integer("Issuer", 12),
	en1545.Date("ValidityEnd"),
	en1545.Integer("Status", 8),
	en1545.Integer("Currency", 16),
	en1545.Integer("EventLogVersion", 6),
	en1545.Integer("Reserved", 34),
	en1545.Integer("Checksum", 16),
)

// Header is the decoded TCCI record.
type Header struct {
	CardVersion     int `en1545:"CardVersion"`
	Issuer          int `en1545:"Issuer"`
	ValidityEnd     int `en1545:"ValidityEnd"`
	Status          int `en1545:"Status"`
	Currency        int `en1545:"Currency"`
	EventLogVersion int `en1545:"EventLogVersion"`
	Checksum        int `en1545:"Checksum"`

	Fields en1545.Parsed `en1545:"-"`
}

// ValidUntil returns the end of validity in loc, or the zero time when unset.
func (h Header) ValidUntil(loc *time.Location) time.Time {
	if h.ValidityEnd == 0 {
		return time.Time{}
	}
	return en1545.DateToTime(h.ValidityEnd, loc)
}

// Check reports whether src carries an RKF header.
func Check(src classic.BlockSource) bool {
	b, err := src.Block(0, 1)
	if err != nil {
		return false
	}
	p, err := en1545.Decode(headerLayout, b, 0, en1545.LSBFirst)
	return err == nil && p["MADIndicator"] == MADIndicator
}

// readHeader decodes the header. Cards without the RKF indicator fail with
// ErrNotRKF; RKF cards with an unusable header fail with ErrHeader.
func readHeader(src classic.BlockSource) (Header, error) {
	b, err := src.Block(0, 1)
	if err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrNotRKF, err)
	}
	p, err := en1545.Decode(headerLayout, b, 0, en1545.LSBFirst)
	if err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrNotRKF, err)
	}
	if p["MADIndicator"] != MADIndicator {
		return Header{}, fmt.Errorf("%w: indicator %04X", ErrNotRKF, p["MADIndicator"])
	}

	var h Header
	if err := en1545.Unmarshal(p, &h); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrHeader, err)
	}
	h.Fields = p
	if h.CardVersion == 0 {
		return Header{}, fmt.Errorf("%w: card version is 0", ErrHeader)
	}
	if h.Issuer == 0 {
		return Header{}, fmt.Errorf("%w: issuer is 0", ErrHeader)
	}
	return h, nil
}
