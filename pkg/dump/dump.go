// Package dump loads card dumps produced by reader tools into the block and
// file storage views the decoders consume.
//
// Formats are detected by content first and fall back to the file extension.
package dump

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gregLibert/transit-card/pkg/classic"
	"github.com/gregLibert/transit-card/pkg/iso7816"
)

// Kind names the storage model of a dump.
type Kind string

const (
	KindClassic Kind = "mifare-classic"
	KindISO7816 Kind = "iso7816"
)

// ErrUnknownFormat is returned when no format recognises a dump.
var ErrUnknownFormat = errors.New("unknown dump format")

// Dump is a loaded card. Exactly one of Classic and ISO is set, matching Kind.
type Dump struct {
	Name    string
	Kind    Kind
	Classic *classic.Card
	ISO     *iso7816.Card
}

// Format parses one dump file format.
type Format interface {
	// Name returns a human-readable format name.
	Name() string

	// Extensions returns file extensions this format handles,
	// including the leading dot.
	Extensions() []string

	// Match returns true if data looks like this format.
	Match(data []byte) bool

	Parse(data []byte) (*Dump, error)
}

var formats = []Format{hexFormat{}, structuredFormat{}}

// Detect identifies the format of a dump. It checks content first, then
// falls back to extension matching.
func Detect(name string, data []byte) Format {
	for _, f := range formats {
		if f.Match(data) {
			return f
		}
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, f := range formats {
		for _, e := range f.Extensions() {
			if ext == e {
				return f
			}
		}
	}
	return nil
}

// Parse detects the format of data and parses it. name is only used for
// extension matching and reporting.
func Parse(name string, data []byte) (*Dump, error) {
	f := Detect(name, data)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
	d, err := f.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s dump %s: %w", f.Name(), name, err)
	}
	d.Name = filepath.Base(name)
	return d, nil
}

// Load reads and parses the dump at path.
func Load(path string) (*Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}
	return Parse(path, data)
}
