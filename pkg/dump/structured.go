package dump

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/gregLibert/transit-card/pkg/classic"
	"github.com/gregLibert/transit-card/pkg/iso7816"
)

// STRUCTURED DUMPS (.yaml / .yml / .json):
//
//	type: mifare-classic
//	sectors:
//	  - blocks: ["<32 hex digits>", ...]
//	  - unreadable: true
//
//	type: iso7816
//	applications:
//	  - aid: A000000291
//	    fci: 6F...
//	    files:
//	      - id: "2001"
//	        records: ["<hex>", ...]
//	        status: "9000"
//
// JSON is valid YAML, so both are read by the same decoder.

type document struct {
	Type         string      `yaml:"type"`
	Sectors      []sectorDoc `yaml:"sectors"`
	Applications []appDoc    `yaml:"applications"`
}

type sectorDoc struct {
	Blocks     []string `yaml:"blocks"`
	Unreadable bool     `yaml:"unreadable"`
}

type appDoc struct {
	AID   string    `yaml:"aid"`
	FCI   string    `yaml:"fci"`
	Files []fileDoc `yaml:"files"`
}

type fileDoc struct {
	ID      string   `yaml:"id"`
	Records []string `yaml:"records"`
	Status  string   `yaml:"status"`
}

type structuredFormat struct{}

func (structuredFormat) Name() string         { return "Structured" }
func (structuredFormat) Extensions() []string { return []string{".yaml", ".yml", ".json"} }

func (structuredFormat) Match(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return bytes.HasPrefix(trimmed, []byte("{")) ||
		bytes.HasPrefix(trimmed, []byte("---")) ||
		bytes.HasPrefix(trimmed, []byte("type:"))
}

func (structuredFormat) Parse(data []byte) (*Dump, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	switch Kind(doc.Type) {
	case KindClassic:
		return doc.classic()
	case KindISO7816:
		return doc.iso()
	default:
		return nil, fmt.Errorf("unsupported card type %q", doc.Type)
	}
}

func (doc *document) classic() (*Dump, error) {
	sectors := make([]classic.Sector, len(doc.Sectors))
	for i, sd := range doc.Sectors {
		if sd.Unreadable {
			sectors[i].Unreadable = true
			continue
		}
		for j, line := range sd.Blocks {
			b, err := classic.ParseHex(line)
			if err != nil {
				return nil, fmt.Errorf("sector %d block %d: %w", i, j, err)
			}
			sectors[i].Blocks = append(sectors[i].Blocks, b)
		}
	}

	card, err := classic.NewCard(sectors)
	if err != nil {
		return nil, err
	}
	return &Dump{Kind: KindClassic, Classic: card}, nil
}

func (doc *document) iso() (*Dump, error) {
	card := &iso7816.Card{}
	for i, ad := range doc.Applications {
		aid, err := classic.ParseHex(ad.AID)
		if err != nil {
			return nil, fmt.Errorf("application %d aid: %w", i, err)
		}
		app := iso7816.Application{AID: aid}

		if ad.FCI != "" {
			raw, err := classic.ParseHex(ad.FCI)
			if err != nil {
				return nil, fmt.Errorf("application %X fci: %w", aid, err)
			}
			if app.FCI, err = iso7816.ParseFCI(raw); err != nil {
				return nil, fmt.Errorf("application %X fci: %w", aid, err)
			}
		}

		for _, fd := range ad.Files {
			f, err := fd.file()
			if err != nil {
				return nil, fmt.Errorf("application %X: %w", aid, err)
			}
			app.Files = append(app.Files, f)
		}
		card.Applications = append(card.Applications, app)
	}
	return &Dump{Kind: KindISO7816, ISO: card}, nil
}

func (fd fileDoc) file() (iso7816.File, error) {
	id, err := strconv.ParseUint(fd.ID, 16, 16)
	if err != nil {
		return iso7816.File{}, fmt.Errorf("file id %q: %w", fd.ID, err)
	}
	sw, err := iso7816.ParseStatusWord(fd.Status)
	if err != nil {
		return iso7816.File{}, fmt.Errorf("file %04X: %w", id, err)
	}

	f := iso7816.File{ID: uint16(id), Status: sw}
	for n, r := range fd.Records {
		rec, err := classic.ParseHex(r)
		if err != nil {
			return iso7816.File{}, fmt.Errorf("file %04X record %d: %w", id, n+1, err)
		}
		f.Records = append(f.Records, rec)
	}
	return f, nil
}
