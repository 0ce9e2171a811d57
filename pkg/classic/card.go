package classic

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MIFARE CLASSIC MEMORY LAYOUT:
// The card is a grid of 16-byte blocks grouped into sectors.
//
// - Sectors 0-31 hold 4 blocks each (Mini, 1K, 2K and the low half of 4K).
// - Sectors 32-39 hold 16 blocks each (4K only).
// - The last block of every sector is the sector trailer: Key A, access bits
//   and Key B. It never carries application data.
// - Block 0 of sector 0 is the manufacturer block; its first 4 bytes are the UID.
//
// A dump may lack whole sectors when the reader could not authenticate them.
// Such sectors are reported explicitly and never replaced with zeroes.

// BlockSize is the size of a MIFARE Classic block in bytes.
const BlockSize = 16

var (
	// ErrSectorUnreadable is returned for sectors the dump could not read.
	ErrSectorUnreadable = errors.New("sector unreadable")
	// ErrOutOfRange is returned for addresses outside the card.
	ErrOutOfRange = errors.New("address out of range")
)

// BlockSource is a read-only view of a card's sector/block grid.
type BlockSource interface {
	// Block returns the 16 bytes at (sector, block).
	Block(sector, block int) ([]byte, error)
	SectorCount() int
	BlocksPerSector(sector int) int
}

// BlocksInSector returns the standard block count of a sector.
func BlocksInSector(sector int) int {
	if sector < 32 {
		return 4
	}
	return 16
}

// IsTrailer reports whether block is the trailer of sector under the
// standard geometry.
func IsTrailer(sector, block int) bool {
	return block == BlocksInSector(sector)-1
}

// Sector is one sector of a dump.
type Sector struct {
	Blocks [][]byte
	// Unreadable marks sectors whose keys were unknown.
	Unreadable bool
}

// Card is an immutable in-memory dump.
type Card struct {
	sectors []Sector
}

// NewCard validates the sectors and wraps them in a Card.
func NewCard(sectors []Sector) (*Card, error) {
	for i, s := range sectors {
		if s.Unreadable {
			continue
		}
		if len(s.Blocks) < 2 {
			return nil, fmt.Errorf("sector %d has %d blocks", i, len(s.Blocks))
		}
		for j, b := range s.Blocks {
			if len(b) != BlockSize {
				return nil, fmt.Errorf("sector %d block %d has %d bytes", i, j, len(b))
			}
		}
	}

	// Copy so the card cannot change under its readers.
	own := make([]Sector, len(sectors))
	for i, s := range sectors {
		own[i].Unreadable = s.Unreadable
		for _, b := range s.Blocks {
			own[i].Blocks = append(own[i].Blocks, append([]byte(nil), b...))
		}
	}
	return &Card{sectors: own}, nil
}

// SectorCount returns the number of sectors in the dump.
func (c *Card) SectorCount() int {
	return len(c.sectors)
}

// BlocksPerSector returns the block count of sector, including its trailer.
func (c *Card) BlocksPerSector(sector int) int {
	if sector < 0 || sector >= len(c.sectors) {
		return 0
	}
	if c.sectors[sector].Unreadable {
		return BlocksInSector(sector)
	}
	return len(c.sectors[sector].Blocks)
}

// Block returns a copy of the block at (sector, block).
func (c *Card) Block(sector, block int) ([]byte, error) {
	if sector < 0 || sector >= len(c.sectors) {
		return nil, fmt.Errorf("%w: sector %d", ErrOutOfRange, sector)
	}
	s := c.sectors[sector]
	if s.Unreadable {
		return nil, fmt.Errorf("%w: sector %d", ErrSectorUnreadable, sector)
	}
	if block < 0 || block >= len(s.Blocks) {
		return nil, fmt.Errorf("%w: sector %d block %d", ErrOutOfRange, sector, block)
	}
	return append([]byte(nil), s.Blocks[block]...), nil
}

// UID returns the 4-byte UID from the manufacturer block of src as a
// little-endian number.
func UID(src BlockSource) (uint32, error) {
	b, err := src.Block(0, 0)
	if err != nil {
		return 0, fmt.Errorf("manufacturer block: %w", err)
	}
	return binary.LittleEndian.Uint32(b[:4]), nil
}
