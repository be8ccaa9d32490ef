package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRows_AliasesAndTimestampCoercion(t *testing.T) {
	rows := []RawRow{
		{"Pallet ID": "P1", "Location": "01-01-001A", "Creation Date": "2026-07-30 10:00:00", "Receipt Number": "R1", "Description": "widgets"},
		{"palletId": "P2", "location": "01-01-002A", "creationDate": "not-a-date", "receiptNumber": "R1"},
	}
	pallets, skipped := NormalizeRows(rows)
	require.Len(t, pallets, 2)
	assert.Equal(t, "P1", pallets[0].PalletID)
	assert.Equal(t, "01-01-001A", pallets[0].Location)
	assert.True(t, pallets[0].HasValidTimestamp)
	assert.False(t, pallets[1].HasValidTimestamp)
	assert.Equal(t, 1, skipped)
}

func TestNormalizeRows_MissingLocationPreserved(t *testing.T) {
	rows := []RawRow{{"palletId": "P1", "location": ""}}
	pallets, _ := NormalizeRows(rows)
	require.Len(t, pallets, 1)
	assert.Empty(t, pallets[0].Location)
}
