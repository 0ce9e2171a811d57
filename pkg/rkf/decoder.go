package rkf

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gregLibert/transit-card/pkg/classic"
	"github.com/gregLibert/transit-card/pkg/en1545"
)

// Decoder turns a card dump into a Summary. It holds no per-card state and
// may decode several cards concurrently.
type Decoder struct {
	lookup *Lookup
	logger *slog.Logger
}

// NewDecoder creates a decoder. A nil lookup selects the built-in issuer
// table; a nil logger discards logs.
func NewDecoder(lookup *Lookup, logger *slog.Logger) *Decoder {
	if lookup == nil {
		lookup = DefaultLookup()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Decoder{lookup: lookup, logger: logger}
}

// Summary is everything decoded from one card.
type Summary struct {
	Serial    string
	UID       uint32
	Issuer    Issuer
	Header    Header
	Balances  []Purse
	Tickets   []Ticket
	Trips     []Trip
	Movements []Movement
	Records   []Record
	// Issues lists every recoverable problem met during the decode.
	Issues []error
}

// Partial reports whether some card content could not be decoded, so the
// history shown may be incomplete. Review flags alone do not make a
// summary partial.
func (s *Summary) Partial() bool {
	for _, err := range s.Issues {
		switch {
		case errors.Is(err, ErrGapSkipped),
			errors.Is(err, ErrUnknownIssuer),
			errors.Is(err, ErrInconsistentOrdering):
			continue
		}
		return true
	}
	return false
}

// Decode runs the whole pipeline on src. It fails only when src is not an
// RKF card (ErrNotRKF) or its header is unusable (ErrHeader); everything
// else is reported in Summary.Issues.
func (d *Decoder) Decode(src classic.BlockSource) (*Summary, error) {
	h, err := readHeader(src)
	if err != nil {
		return nil, err
	}
	uid, err := classic.UID(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHeader, err)
	}

	s := &Summary{UID: uid, Header: h}

	issuer, ok := d.lookup.Issuer(h.Issuer)
	if !ok {
		issuer = FallbackIssuer(h.Issuer)
		s.Issues = append(s.Issues, fmt.Errorf("%w: %d", ErrUnknownIssuer, h.Issuer))
		d.logger.Warn("unknown issuer, using fallback", "issuer", h.Issuer)
	}
	s.Issuer = issuer
	s.Serial = issuer.FormatSerial(uid)

	records, issues := Extract(src, d.logger)
	s.Records = records
	s.Issues = append(s.Issues, issues...)

	var txs []Transaction
	loc := issuer.Location()
	for _, r := range records {
		if err := d.decodeRecord(s, r, loc, &txs); err != nil {
			d.reportRecord(s, r, err)
		}
	}

	for _, t := range s.Trips {
		if t.End.Before(t.Start) {
			re := &RecordError{Sector: t.Origin.Sector, Block: t.Origin.Block, Tag: TagTrip, Err: ErrInconsistentOrdering}
			logIssue(d.logger, re)
			s.Issues = append(s.Issues, re)
		}
	}

	res := Reconstruct(s.Trips, txs)
	s.Trips = res.Trips
	s.Movements = res.Movements

	d.logger.Debug("card decoded",
		"serial", s.Serial,
		"records", len(s.Records),
		"trips", len(s.Trips),
		"issues", len(s.Issues),
	)
	return s, nil
}

func (d *Decoder) reportRecord(s *Summary, r Record, err error) {
	re := &RecordError{Sector: r.Origin.Sector, Block: r.Origin.Block, Tag: r.Tag, Version: r.Version, Err: err}
	logIssue(d.logger, re)
	s.Issues = append(s.Issues, re)
}

func (d *Decoder) decodeRecord(s *Summary, r Record, loc *time.Location, txs *[]Transaction) error {
	if r.Chunked() {
		// Tickets are independent: a bad one does not hide the others.
		for i, c := range r.Chunks {
			t, err := decodeTicket(r.Origin, r.Version, c, loc)
			if err != nil {
				d.reportRecord(s, r, fmt.Errorf("ticket %d: %w", i, err))
				continue
			}
			s.Tickets = append(s.Tickets, t)
		}
		return nil
	}

	v, ok := lookupVariant(r.Tag, r.Version)
	if !ok {
		return ErrUnsupportedVariant
	}
	p, err := en1545.Decode(v.layout, r.Data, 0, en1545.LSBFirst)
	if err != nil {
		return err
	}
	d.logger.Debug("record decoded", "origin", r.Origin.String(), "type", v.name, "version", r.Version)

	switch v.kind {
	case kindTransaction:
		t, err := decodeTransaction(r, p, loc)
		if err != nil {
			return err
		}
		*txs = append(*txs, t)
	case kindPurse:
		pu, err := decodePurse(r, p, loc)
		if err != nil {
			return err
		}
		s.Balances = append(s.Balances, pu)
	case kindTrip:
		t, err := decodeTrip(r, p, loc)
		if err != nil {
			return err
		}
		s.Trips = append(s.Trips, t)
	case kindProfile:
		// Kept raw in Records.
	}
	return nil
}

// Describe generates a report of the card. verbose adds every record's
// decoded fields.
func (s *Summary) Describe(verbose bool) string {
	var sb strings.Builder
	is := s.Issuer

	sb.WriteString("=== RKF CARD ===")
	sb.WriteString(fmt.Sprintf("\n    - Serial: %s", s.Serial))
	sb.WriteString(fmt.Sprintf("\n    - Issuer: %s (%d)", is.Name, is.ID))
	if end := s.Header.ValidUntil(is.Location()); !end.IsZero() {
		sb.WriteString(fmt.Sprintf("\n    - Valid until: %s", end.Format("2006-01-02")))
	}
	if s.Partial() {
		sb.WriteString("\n    - Decode: PARTIAL, history may be incomplete")
	} else {
		sb.WriteString("\n    - Decode: complete")
	}

	if len(s.Balances) > 0 {
		sb.WriteString("\n=== BALANCES ===")
		for _, p := range s.Balances {
			sb.WriteString(fmt.Sprintf("\n    - Purse %d: %s (transaction #%d)", p.Serial, is.FormatAmount(p.Value), p.TransactionNumber))
		}
	}

	if len(s.Tickets) > 0 {
		sb.WriteString("\n=== TICKETS ===")
		for _, t := range s.Tickets {
			sb.WriteString(fmt.Sprintf("\n    - Ticket type %d: %s to %s, %s, %d passenger(s)",
				t.Type, t.ValidFrom.Format(timeLayout), t.ValidTo.Format(timeLayout), is.FormatAmount(t.Price), t.Passengers))
		}
	}

	if len(s.Movements) > 0 {
		sb.WriteString("\n=== MOVEMENTS ===")
		for _, m := range s.Movements {
			sb.WriteString("\n" + describeMovement(m, is))
		}
	}

	if len(s.Issues) > 0 {
		sb.WriteString("\n=== ISSUES ===")
		for _, err := range s.Issues {
			sb.WriteString(fmt.Sprintf("\n    - %v", err))
		}
	}

	if verbose {
		var rb strings.Builder
		en1545.WriteFields(&rb, "Header", headerLayout, s.Header.Fields)
		sb.WriteString("\n=== RECORDS ===\n" + rb.String())
		for _, r := range s.Records {
			sb.WriteString("\n" + describeRecord(r))
		}
	}

	return sb.String()
}

const timeLayout = "2006-01-02 15:04"

func describeMovement(m Movement, is Issuer) string {
	if m.Trip != nil {
		t := m.Trip
		state := "checked out"
		if !t.CheckoutCompleted {
			state = "not checked out"
		}
		return fmt.Sprintf("    - %s trip %d -> %d, %s, %s, %d transaction(s)",
			t.Start.Format(timeLayout), t.StartPlace, t.EndPlace, is.FormatAmount(t.Price), state, len(t.Transactions))
	}
	mg := m.Merged
	return fmt.Sprintf("    - %s %s, %s, %d entr%s",
		mg.Timestamp.Format(timeLayout), mg.Members[0].Code, is.FormatAmount(mg.Fare), len(mg.Members), plural(len(mg.Members), "y", "ies"))
}

func describeRecord(r Record) string {
	var sb strings.Builder
	if r.Chunked() {
		sb.WriteString(fmt.Sprintf("--- Record %s tag %02X v%d: ticket object ---", r.Origin, r.Tag, r.Version))
		for i, c := range r.Chunks {
			for _, sub := range c {
				sb.WriteString(fmt.Sprintf("\n    - Chunk[%d].%02X: %X", i, sub[0], sub))
			}
		}
		return sb.String()
	}

	v, ok := lookupVariant(r.Tag, r.Version)
	if !ok {
		return fmt.Sprintf("--- Record %s tag %02X v%d: unsupported ---", r.Origin, r.Tag, r.Version)
	}
	sb.WriteString(fmt.Sprintf("--- Record %s %s v%d ---", r.Origin, v.name, r.Version))
	p, err := en1545.Decode(v.layout, r.Data, 0, en1545.LSBFirst)
	if err != nil {
		sb.WriteString(fmt.Sprintf("\n    - error: %v", err))
		return sb.String()
	}
	en1545.WriteFields(&sb, v.name, v.layout, p)
	return sb.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
