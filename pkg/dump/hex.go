package dump

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/gregLibert/transit-card/pkg/classic"
)

// HEX BLOCK DUMPS (.eml / .hex / .txt):
// One 16-byte block per line as 32 hex digits, in card order. Blank lines and
// lines starting with '#' are ignored. A line of '-' characters stands for a
// block the reader could not authenticate; the whole sector is then treated
// as unreadable. Trailers may show '-' in place of key bytes the reader never
// learned. Those bytes are read as zero and the sector stays readable.
//
// The number of blocks gives the card geometry:
//
//	 20 blocks: Mini, 5 sectors of 4 blocks
//	 64 blocks: 1K, 16 sectors of 4 blocks
//	128 blocks: 2K, 32 sectors of 4 blocks
//	256 blocks: 4K, 32 sectors of 4 blocks then 8 sectors of 16 blocks

var sectorsForBlocks = map[int]int{20: 5, 64: 16, 128: 32, 256: 40}

type hexFormat struct{}

func (hexFormat) Name() string         { return "Hex block" }
func (hexFormat) Extensions() []string { return []string{".eml", ".hex", ".txt"} }

func (hexFormat) Match(data []byte) bool {
	lines, err := meaningfulLines(data)
	return err == nil && len(lines) > 0 && isBlockLine(lines[0])
}

func (hexFormat) Parse(data []byte) (*Dump, error) {
	lines, err := meaningfulLines(data)
	if err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	nSectors, ok := sectorsForBlocks[len(lines)]
	if !ok {
		return nil, fmt.Errorf("%d blocks do not match any MIFARE Classic geometry", len(lines))
	}

	sectors := make([]classic.Sector, 0, nSectors)
	next := 0
	for s := 0; s < nSectors; s++ {
		n := classic.BlocksInSector(s)
		sector := classic.Sector{}
		for b := 0; b < n; b++ {
			line := lines[next]
			next++

			if isMissingLine(line) {
				sector.Unreadable = true
				continue
			}
			if classic.IsTrailer(s, b) {
				line = strings.ReplaceAll(line, "-", "0")
			}
			block, err := classic.ParseHex(line)
			if err != nil {
				return nil, fmt.Errorf("sector %d block %d: %w", s, b, err)
			}
			if len(block) != classic.BlockSize {
				return nil, fmt.Errorf("sector %d block %d: %d bytes", s, b, len(block))
			}
			sector.Blocks = append(sector.Blocks, block)
		}
		if sector.Unreadable {
			sector.Blocks = nil
		}
		sectors = append(sectors, sector)
	}

	card, err := classic.NewCard(sectors)
	if err != nil {
		return nil, err
	}
	return &Dump{Kind: KindClassic, Classic: card}, nil
}

func meaningfulLines(data []byte) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func isMissingLine(line string) bool {
	return strings.Trim(line, "- ") == "" && strings.Contains(line, "-")
}

func isBlockLine(line string) bool {
	if isMissingLine(line) {
		return true
	}
	b, err := classic.ParseHex(line)
	return err == nil && len(b) == classic.BlockSize
}
