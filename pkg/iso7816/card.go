package iso7816

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrFileUnreadable is returned for files the dump could not read. The
// wrapped message carries the status word the card answered with.
var ErrFileUnreadable = errors.New("file unreadable")

// File is one elementary file of an application, addressed by its 2-byte ID.
type File struct {
	ID      uint16
	Records [][]byte
	Status  StatusWord
}

// Application is one selected application and its files.
type Application struct {
	AID   []byte
	FCI   *FCI
	Files []File
}

// Card is an immutable snapshot of an ISO7816 file-structured card.
type Card struct {
	Applications []Application
}

// Application looks up an application by AID.
func (c *Card) Application(aid []byte) (*Application, bool) {
	for i := range c.Applications {
		if bytes.Equal(c.Applications[i].AID, aid) {
			return &c.Applications[i], true
		}
	}
	return nil, false
}

// File looks up a file by ID.
func (a *Application) File(id uint16) (*File, bool) {
	for i := range a.Files {
		if a.Files[i].ID == id {
			return &a.Files[i], true
		}
	}
	return nil, false
}

// Record returns a copy of record n (1-based, as in READ RECORD) of file id.
func (a *Application) Record(id uint16, n int) ([]byte, error) {
	f, ok := a.File(id)
	if !ok {
		return nil, fmt.Errorf("%w: file %04X: %s", ErrFileUnreadable, id, SW_ERR_FILE_NOT_FOUND.Verbose())
	}
	if !f.Status.IsSuccess() {
		return nil, fmt.Errorf("%w: file %04X: %s", ErrFileUnreadable, id, f.Status.Verbose())
	}
	if n < 1 || n > len(f.Records) {
		return nil, fmt.Errorf("%w: file %04X record %d: %s", ErrFileUnreadable, id, n, SW_ERR_RECORD_NOT_FOUND.Verbose())
	}
	return append([]byte(nil), f.Records[n-1]...), nil
}

// Describe generates a report of every application and file in the dump.
func (c *Card) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== ISO7816 CARD ===")

	for _, app := range c.Applications {
		sb.WriteString(fmt.Sprintf("\n--- Application %X ---", app.AID))
		if app.FCI != nil {
			if d := app.FCI.Describe(); d != "" {
				sb.WriteString("\n" + d)
			}
		}
		for _, f := range app.Files {
			if !f.Status.IsSuccess() {
				sb.WriteString(fmt.Sprintf("\n    - File %04X: unreadable, %s", f.ID, f.Status.Verbose()))
				continue
			}
			sb.WriteString(fmt.Sprintf("\n    - File %04X: %d record(s)", f.ID, len(f.Records)))
			for i, r := range f.Records {
				sb.WriteString(fmt.Sprintf("\n        #%d: %X", i+1, r))
			}
		}
	}
	return sb.String()
}
