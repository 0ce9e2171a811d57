package rkf

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gregLibert/transit-card/pkg/classic"
)

// RECORD EXTRACTION:
// Scanning starts at sector 3, block 0, and moves forward one run at a time.
//
//  1. Tag 0 in the first byte of a block means "nothing here": the rest of
//     the sector is skipped.
//  2. A run is a sequence of records sharing a tag. Each record spans the
//     block count its (tag, version) pair declares; the run continues while
//     the block following a record carries the same tag.
//  3. Block 0 of a sector always starts a new run. A record that does not fit
//     before the trailer continues in block 0 of the next sector, and its run
//     ends there.
//  4. Cards sometimes leave an empty block in the middle of a record. An
//     all-zero continuation block is skipped when the layout still has bits
//     to place in it, the sector has room for the rest of the record and data
//     resumes right after it. Blocks past the layout width are padding and
//     are always taken as they are. This is an approximation inferred from
//     dumps: every skip is reported so the card can be reviewed.
//  5. Ticket tags are parsed as a stream of sub-records confined to the
//     sector (see ticket.go).
//  6. Trailers are never read as data. An unreadable sector is reported and
//     skipped without guessing its content.

// FirstDataSector is the first sector scanned for records.
const FirstDataSector = 3

// Cursor is a block position on the card.
type Cursor struct {
	Sector int
	Block  int
}

func (c Cursor) String() string {
	return fmt.Sprintf("%d/%d", c.Sector, c.Block)
}

func (c Cursor) nextSector() Cursor {
	return Cursor{Sector: c.Sector + 1}
}

// next returns the following data block, jumping over the trailer.
func (c Cursor) next(src classic.BlockSource) Cursor {
	if c.Block+1 >= src.BlocksPerSector(c.Sector)-1 {
		return c.nextSector()
	}
	return Cursor{Sector: c.Sector, Block: c.Block + 1}
}

// Record is a logical record reassembled from one or more blocks. Data is
// set for simple records, Chunks for ticket objects.
type Record struct {
	Origin  Cursor
	Tag     byte
	Version int
	Data    []byte
	Chunks  []Chunk
}

// Chunked reports whether r is a ticket object.
func (r Record) Chunked() bool { return r.Chunks != nil }

// Extract walks src from FirstDataSector and returns every record it could
// reassemble, in card order, along with the recoverable problems met on the
// way. Problems are logged at warn level.
func Extract(src classic.BlockSource, logger *slog.Logger) ([]Record, []error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var records []Record
	var issues []error
	cur := Cursor{Sector: FirstDataSector}
	for cur.Sector < src.SectorCount() {
		next, recs, errs := step(src, cur)
		records = append(records, recs...)
		for _, err := range errs {
			logIssue(logger, err)
		}
		issues = append(issues, errs...)
		cur = next
	}
	return records, issues
}

func logIssue(logger *slog.Logger, err error) {
	var re *RecordError
	if errors.As(err, &re) {
		logger.Warn("record extraction issue",
			"sector", re.Sector,
			"block", re.Block,
			"tag", fmt.Sprintf("%02X", re.Tag),
			"version", re.Version,
			"error", re.Err,
		)
		return
	}
	logger.Warn("record extraction issue", "error", err)
}

// step consumes one run starting at cur and returns where scanning resumes.
// It never moves backwards, so Extract always terminates.
func step(src classic.BlockSource, cur Cursor) (Cursor, []Record, []error) {
	n := src.BlocksPerSector(cur.Sector)
	if cur.Block >= n-1 {
		return cur.nextSector(), nil, nil
	}

	first, err := src.Block(cur.Sector, cur.Block)
	if err != nil {
		return cur.nextSector(), nil, []error{&RecordError{Sector: cur.Sector, Block: cur.Block, Err: err}}
	}

	tag := first[0]
	if tag == 0 {
		return cur.nextSector(), nil, nil
	}
	if isTicketTag(tag) {
		return stepTicket(src, cur, first)
	}
	return stepRun(src, cur, tag)
}

func stepRun(src classic.BlockSource, start Cursor, tag byte) (Cursor, []Record, []error) {
	var records []Record
	var issues []error

	cur := start
	for {
		first, err := src.Block(cur.Sector, cur.Block)
		if err != nil {
			issues = append(issues, &RecordError{Sector: cur.Sector, Block: cur.Block, Tag: tag, Err: err})
			return cur.nextSector(), records, issues
		}
		version := recordVersion(first)

		v, ok := lookupVariant(tag, version)
		if !ok {
			issues = append(issues, &RecordError{Sector: cur.Sector, Block: cur.Block, Tag: tag, Version: version, Err: ErrUnsupportedVariant})
			return skipRun(src, cur, tag), records, issues
		}

		rec, next, recIssues, err := readRecord(src, cur, v, version, first)
		issues = append(issues, recIssues...)
		if err != nil {
			issues = append(issues, &RecordError{Sector: cur.Sector, Block: cur.Block, Tag: tag, Version: version, Err: err})
			return next, records, issues
		}
		records = append(records, rec)

		// The run ends at a sector change or when the next block changes tag.
		if next.Sector != start.Sector {
			return next, records, issues
		}
		b, err := src.Block(next.Sector, next.Block)
		if err != nil || b[0] != tag {
			return next, records, issues
		}
		cur = next
	}
}

// readRecord collects the blocks of one record starting at cur.
func readRecord(src classic.BlockSource, cur Cursor, v *variant, version int, first []byte) (Record, Cursor, []error, error) {
	var issues []error
	data := append([]byte(nil), first...)
	pos := cur.next(src)

	for got := 1; got < v.blocks; {
		if pos.Sector >= src.SectorCount() {
			return Record{}, pos, issues, fmt.Errorf("%w: %d of %d blocks before end of card", ErrTruncatedRecord, got, v.blocks)
		}
		b, err := src.Block(pos.Sector, pos.Block)
		if err != nil {
			return Record{}, pos.nextSector(), issues, fmt.Errorf("%w: %d of %d blocks: %v", ErrTruncatedRecord, got, v.blocks, err)
		}

		if isEmpty(b) && v.coversBlock(got) && isGap(src, pos, v.tag, v.blocks-got) {
			issues = append(issues, &RecordError{Sector: pos.Sector, Block: pos.Block, Tag: v.tag, Version: version, Err: ErrGapSkipped})
			pos = pos.next(src)
			continue
		}

		data = append(data, b...)
		got++
		pos = pos.next(src)
	}

	return Record{Origin: cur, Tag: v.tag, Version: version, Data: data}, pos, issues, nil
}

// isGap decides whether the empty block at pos, which the layout still
// expects data in, is a hole inside the record: the sector must still hold
// the needed blocks after pos, and the data must resume right after it with
// a block that does not look like the start of the next record.
func isGap(src classic.BlockSource, pos Cursor, tag byte, needed int) bool {
	if roomAfter(src, pos) < needed {
		return false
	}
	after, err := src.Block(pos.Sector, pos.Block+1)
	return err == nil && !isEmpty(after) && after[0] != tag
}

// roomAfter counts the data blocks of pos's sector that follow pos.
func roomAfter(src classic.BlockSource, pos Cursor) int {
	return src.BlocksPerSector(pos.Sector) - 2 - pos.Block
}

// skipRun drops the remainder of a run whose variant is unknown.
func skipRun(src classic.BlockSource, cur Cursor, tag byte) Cursor {
	for {
		cur = cur.next(src)
		if cur.Block == 0 {
			return cur
		}
		b, err := src.Block(cur.Sector, cur.Block)
		if err != nil || b[0] != tag {
			return cur
		}
	}
}

func isEmpty(b []byte) bool {
	return len(bytes.Trim(b, "\x00")) == 0
}

func stepTicket(src classic.BlockSource, start Cursor, first []byte) (Cursor, []Record, []error) {
	tag := first[0]
	version := recordVersion(first)
	n := src.BlocksPerSector(start.Sector)

	// The sector's remaining data blocks, as one byte stream.
	var buf []byte
	for b := start.Block; b < n-1; b++ {
		blk, err := src.Block(start.Sector, b)
		if err != nil {
			break
		}
		buf = append(buf, blk...)
	}

	chunks, used, err := parseChunks(buf, version)
	if len(chunks) == 0 {
		if err == nil {
			err = ErrUnsupportedVariant
		}
		return start.next(src), nil, []error{&RecordError{Sector: start.Sector, Block: start.Block, Tag: tag, Version: version, Err: err}}
	}

	var issues []error
	if err != nil {
		issues = append(issues, &RecordError{Sector: start.Sector, Block: start.Block, Tag: tag, Version: version, Err: err})
	}

	rec := Record{Origin: start, Tag: tag, Version: version, Chunks: chunks}
	blocks := (used + classic.BlockSize - 1) / classic.BlockSize
	next := Cursor{Sector: start.Sector, Block: start.Block + blocks}
	if next.Block >= n-1 {
		next = start.nextSector()
	}
	return next, []Record{rec}, issues
}

// parseChunks splits buf into ticket objects. Each object starts on a block
// boundary with a ticket tag and runs until a byte that is not a sub-tag.
// It returns the chunks and the number of bytes they cover.
func parseChunks(buf []byte, version int) ([]Chunk, int, error) {
	var chunks []Chunk
	pos := 0
	used := 0

	for pos < len(buf) && isTicketTag(buf[pos]) {
		var chunk Chunk
		for pos < len(buf) {
			l, ok := SubRecordLength(buf[pos], version)
			if !ok {
				break
			}
			if pos+l > len(buf) {
				if len(chunk) > 0 {
					chunks = append(chunks, chunk)
				}
				return chunks, len(buf), fmt.Errorf("%w: sub-tag %02X needs %d bytes, %d left", ErrTruncatedRecord, buf[pos], l, len(buf)-pos)
			}
			chunk = append(chunk, append([]byte(nil), buf[pos:pos+l]...))
			pos += l
		}
		if len(chunk) == 0 {
			break
		}
		chunks = append(chunks, chunk)
		used = pos

		// Another ticket may follow on the next block.
		pos = (pos + classic.BlockSize - 1) / classic.BlockSize * classic.BlockSize
	}
	return chunks, used, nil
}
