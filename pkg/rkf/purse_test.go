package rkf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregLibert/transit-card/pkg/en1545"
)

func TestDecodePurseValueAreas(t *testing.T) {
	tests := []struct {
		name       string
		numA, numB int
		wantNumber int
		wantValue  int
	}{
		{"B more recent", 5, 6, 6, 2000},
		{"A more recent", 6, 5, 6, 1000},
		{"B wrapped past A", 0xFFFF, 0x0000, 0x0000, 2000},
		{"A wrapped past B", 0x0001, 0xFFFE, 0x0001, 1000},
		{"Equal counters keep A", 7, 7, 7, 1000},
	}

	v, ok := lookupVariant(TagPurse, 3)
	require.True(t, ok)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := encodeRecord(t, TagPurse, 3, en1545.Parsed{
				"PurseSerial":        9,
				"TransactionNumberA": tt.numA,
				"ValueA":             1000,
				"TransactionNumberB": tt.numB,
				"ValueB":             2000,
			})
			var data []byte
			for _, b := range blocks {
				data = append(data, b...)
			}
			r := Record{Origin: Cursor{Sector: 3}, Tag: TagPurse, Version: 3, Data: data}

			p, err := en1545.Decode(v.layout, r.Data, 0, en1545.LSBFirst)
			require.NoError(t, err)
			purse, err := decodePurse(r, p, time.UTC)
			require.NoError(t, err)

			assert.Equal(t, tt.wantNumber, purse.TransactionNumber)
			assert.Equal(t, tt.wantValue, purse.Value)
		})
	}
}

func TestCounterAfter(t *testing.T) {
	assert.True(t, counterAfter(1, 0))
	assert.True(t, counterAfter(0, 0xFFFF))
	assert.False(t, counterAfter(0xFFFF, 0))
	assert.False(t, counterAfter(3, 3))
}
