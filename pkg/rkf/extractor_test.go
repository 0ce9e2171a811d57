package rkf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregLibert/transit-card/pkg/classic"
	"github.com/gregLibert/transit-card/pkg/en1545"
)

func txRecord(t *testing.T, version, seq int) []byte {
	return encodeRecord(t, TagTransaction, version, en1545.Parsed{"EventCode": 1, "Sequence": seq})[0]
}

func origins(records []Record) []Cursor {
	var out []Cursor
	for _, r := range records {
		out = append(out, r.Origin)
	}
	return out
}

func TestExtractSingleBlockRecords(t *testing.T) {
	c := newTestCard(t, 16, 1, 1)
	c.put(3, 0, txRecord(t, 3, 1), txRecord(t, 3, 2), txRecord(t, 3, 3))

	records, issues := Extract(c.build(), nil)
	require.Empty(t, issues)
	require.Len(t, records, 3, "three one-block transactions, not one three-block record")

	assert.Equal(t, []Cursor{{3, 0}, {3, 1}, {3, 2}}, origins(records))
	for _, r := range records {
		assert.Equal(t, TagTransaction, r.Tag)
		assert.Equal(t, 3, r.Version)
		assert.Len(t, r.Data, classic.BlockSize)
		assert.False(t, r.Chunked())
	}
}

func TestExtractTicketChunk(t *testing.T) {
	c := newTestCard(t, 16, 1, 1)
	block := make([]byte, classic.BlockSize)
	copy(block, classic.Hex("86 03", "89 0102030405060708090A"))
	c.put(3, 0, block)

	records, issues := Extract(c.build(), nil)
	require.Empty(t, issues)
	require.Len(t, records, 1)

	r := records[0]
	require.True(t, r.Chunked())
	assert.Equal(t, byte(0x86), r.Tag)
	assert.Equal(t, 3, r.Version)
	require.Len(t, r.Chunks, 1)
	require.Len(t, r.Chunks[0], 2)
	assert.Len(t, r.Chunks[0][0], 2)
	assert.Len(t, r.Chunks[0][1], 11)
	assert.Equal(t, byte(0x89), r.Chunks[0][1][0])
}

func TestExtractTicketAcrossBlocks(t *testing.T) {
	c := newTestCard(t, 16, 1, 1)
	// header, sale (9 bytes), validity (11 bytes) spill into block 1;
	// a second ticket starts on block 2.
	stream := classic.Hex(
		"86 03",
		"87 0102030405060708",
		"89 0102030405060708090A",
	)
	b0 := make([]byte, classic.BlockSize)
	b1 := make([]byte, classic.BlockSize)
	copy(b0, stream[:16])
	copy(b1, stream[16:])
	b2 := make([]byte, classic.BlockSize)
	copy(b2, classic.Hex("86 03", "8A 010203"))
	c.put(3, 0, b0, b1, b2)
	c.put(4, 0, txRecord(t, 3, 7))

	records, issues := Extract(c.build(), nil)
	require.Empty(t, issues)
	require.Len(t, records, 2)

	ticket := records[0]
	require.Len(t, ticket.Chunks, 2)
	assert.Len(t, ticket.Chunks[0], 3)
	assert.Len(t, ticket.Chunks[0][2], 11)
	assert.Equal(t, classic.Hex("8A 010203"), ticket.Chunks[1][1])

	assert.Equal(t, Cursor{4, 0}, records[1].Origin)
}

func TestExtractSentinel(t *testing.T) {
	c := newTestCard(t, 16, 1, 1)
	// Sector 3 starts with tag 0: nothing after it in the sector is read.
	c.put(3, 1, txRecord(t, 3, 1))
	c.put(4, 0, txRecord(t, 3, 2))

	records, issues := Extract(c.build(), nil)
	require.Empty(t, issues)
	assert.Equal(t, []Cursor{{4, 0}}, origins(records))
}

func TestExtractTagChangeStartsNewRun(t *testing.T) {
	c := newTestCard(t, 16, 1, 1)
	purse := encodeRecord(t, TagPurse, 1, en1545.Parsed{"Value": 100})
	c.put(3, 0, txRecord(t, 3, 1), purse[0], purse[1])

	records, issues := Extract(c.build(), nil)
	require.Empty(t, issues)
	require.Len(t, records, 2)
	assert.Equal(t, TagTransaction, records[0].Tag)
	assert.Equal(t, TagPurse, records[1].Tag)
	assert.Equal(t, Cursor{3, 1}, records[1].Origin)
	assert.Len(t, records[1].Data, 2*classic.BlockSize)
}

func TestExtractSectorBoundary(t *testing.T) {
	c := newTestCard(t, 16, 1, 1)
	trip := encodeRecord(t, TagTrip, 1, en1545.Parsed{"Price": 2400, "Passengers": 1})
	c.put(3, 0, txRecord(t, 3, 1), txRecord(t, 3, 2))
	// Starts on the last data block of sector 3 and continues in sector 4.
	c.put(3, 2, trip...)
	c.put(4, 1, txRecord(t, 3, 3))

	records, issues := Extract(c.build(), nil)
	require.Empty(t, issues)
	assert.Equal(t, []Cursor{{3, 0}, {3, 1}, {3, 2}, {4, 1}}, origins(records))

	spanning := records[2]
	assert.Equal(t, append(append([]byte(nil), trip[0]...), trip[1]...), spanning.Data)
	for _, r := range records {
		for off := 0; off < len(r.Data); off += classic.BlockSize {
			assert.NotEqual(t, trailer, r.Data[off:off+classic.BlockSize], "trailer read as data")
		}
	}
}

func TestExtractUnsupportedVariant(t *testing.T) {
	c := newTestCard(t, 16, 1, 1)
	future := txRecord(t, 3, 1)
	future[1] = 0x09 // version 9
	c.put(3, 0, future, future)
	c.put(4, 0, txRecord(t, 3, 2))

	records, issues := Extract(c.build(), nil)
	assert.Equal(t, []Cursor{{4, 0}}, origins(records), "run dropped, later records kept")

	require.Len(t, issues, 1)
	assert.ErrorIs(t, issues[0], ErrUnsupportedVariant)
	var re *RecordError
	require.True(t, errors.As(issues[0], &re))
	assert.Equal(t, RecordError{Sector: 3, Block: 0, Tag: TagTransaction, Version: 9, Err: ErrUnsupportedVariant}, *re)
}

func TestExtractUnreadableSector(t *testing.T) {
	c := newTestCard(t, 16, 1, 1)
	c.put(4, 0, txRecord(t, 3, 1))
	c.unreadable(3)

	records, issues := Extract(c.build(), nil)
	assert.Equal(t, []Cursor{{4, 0}}, origins(records))
	require.Len(t, issues, 1)
	assert.ErrorIs(t, issues[0], classic.ErrSectorUnreadable)
}

func TestExtractGapSkipped(t *testing.T) {
	c := newTestCard(t, 16, 1, 1)
	trip := encodeRecord(t, TagTrip, 1, en1545.Parsed{"Price": 2400, "Passengers": 1})
	require.NotEqual(t, TagTrip, trip[1][0])
	c.put(3, 0, trip[0], make([]byte, classic.BlockSize), trip[1])

	records, issues := Extract(c.build(), nil)
	require.Len(t, records, 1)
	assert.Equal(t, append(append([]byte(nil), trip[0]...), trip[1]...), records[0].Data)

	require.Len(t, issues, 1)
	assert.ErrorIs(t, issues[0], ErrGapSkipped)
	var re *RecordError
	require.True(t, errors.As(issues[0], &re))
	assert.Equal(t, 3, re.Sector)
	assert.Equal(t, 1, re.Block)
}

func TestExtractKeepsZeroPadding(t *testing.T) {
	// 4K sectors hold 15 data blocks: two 3-block trips back to back, each
	// ending with an all-zero padding block.
	c := newTestCard(t, 40, 1, 1)
	first := encodeRecord(t, TagTrip, 3, en1545.Parsed{"Price": 1200, "Passengers": 1})
	second := encodeRecord(t, TagTrip, 3, en1545.Parsed{"Price": 1300, "Passengers": 2})
	require.Equal(t, make([]byte, classic.BlockSize), first[2])
	c.put(32, 0, first...)
	c.put(32, 3, second...)

	records, issues := Extract(c.build(), nil)
	require.Empty(t, issues)
	assert.Equal(t, []Cursor{{32, 0}, {32, 3}}, origins(records))
}

func TestExtractPaddingBeforeOtherTag(t *testing.T) {
	tests := []struct {
		name   string
		tag    byte
		values en1545.Parsed
	}{
		{"Trip", TagTrip, en1545.Parsed{"Price": 1200, "Passengers": 1}},
		{"Purse", TagPurse, en1545.Parsed{"PurseSerial": 7, "TransactionNumberA": 3, "ValueA": 5000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCard(t, 40, 1, 1)
			rec := encodeRecord(t, tt.tag, 3, tt.values)
			require.Len(t, rec, 3)
			require.Equal(t, make([]byte, classic.BlockSize), rec[2])
			c.put(32, 0, rec...)
			c.put(32, 3, txRecord(t, 3, 9))

			records, issues := Extract(c.build(), nil)
			require.Empty(t, issues)
			assert.Equal(t, []Cursor{{32, 0}, {32, 3}}, origins(records))

			var want []byte
			for _, b := range rec {
				want = append(want, b...)
			}
			assert.Equal(t, want, records[0].Data, "padding block kept, next record left alone")
			assert.Equal(t, TagTransaction, records[1].Tag)
		})
	}
}

func TestExtractTruncatedAtEndOfCard(t *testing.T) {
	c := newTestCard(t, 4, 1, 1)
	trip := encodeRecord(t, TagTrip, 1, nil)
	c.put(3, 2, trip[0])

	records, issues := Extract(c.build(), nil)
	assert.Empty(t, records)
	require.Len(t, issues, 1)
	assert.ErrorIs(t, issues[0], ErrTruncatedRecord)
}

func TestStepIsRepeatable(t *testing.T) {
	c := newTestCard(t, 16, 1, 1)
	c.put(3, 0, txRecord(t, 3, 1), txRecord(t, 3, 2))
	card := c.build()

	start := Cursor{Sector: 3}
	next1, recs1, errs1 := step(card, start)
	next2, recs2, errs2 := step(card, start)

	assert.Equal(t, next1, next2)
	assert.Equal(t, recs1, recs2)
	assert.Equal(t, errs1, errs2)
	assert.Equal(t, Cursor{Sector: 3, Block: 2}, next1, "run ends where the tag changes")
	assert.Len(t, recs1, 2)
}
