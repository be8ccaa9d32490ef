package engine

import (
	"strings"
	"time"

	"github.com/warehouseiq/anomaly-engine/internal/anomaly"
)

// RawRow is one inbound snapshot row before column normalization: whatever
// column names the external caller's ingestion layer produced (spec §6
// "Acceptable encodings are decided outside the core").
type RawRow map[string]interface{}

// columnAliases is the fixed alias table from spec §4.5 step 1.
var columnAliases = map[string][]string{
	"palletId":      {"palletId", "PalletID", "Pallet ID", "pallet_id"},
	"location":      {"location", "Location", "LOCATION"},
	"creationDate":  {"creationDate", "CreationDate", "Creation Date", "creation_date"},
	"receiptNumber": {"receiptNumber", "ReceiptNumber", "Receipt Number", "receipt_number", "lot", "Lot"},
	"description":   {"description", "Description", "DESCRIPTION"},
}

// timestampLayouts are tried in order when coercing creationDate; the first
// layout that parses wins.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

func lookupAlias(row RawRow, canonical string) (interface{}, bool) {
	for _, alias := range columnAliases[canonical] {
		if v, ok := row[alias]; ok {
			return v, true
		}
	}
	return nil, false
}

func asString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func coerceTimestamp(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// NormalizeRows applies the column alias table and timestamp coercion to a
// batch of raw rows (spec §4.5 step 1). Rows with unparseable critical
// fields are kept — not dropped — so DATA_INTEGRITY and MISSING_LOCATION
// still see them (spec §7 "Per-row faults: row skipped for affected
// evaluators").
func NormalizeRows(rows []RawRow) ([]anomaly.Pallet, int) {
	out := make([]anomaly.Pallet, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		palletIDVal, _ := lookupAlias(row, "palletId")
		locVal, _ := lookupAlias(row, "location")
		dateVal, _ := lookupAlias(row, "creationDate")
		receiptVal, _ := lookupAlias(row, "receiptNumber")
		descVal, _ := lookupAlias(row, "description")

		rawLoc := asString(locVal)
		ts, ok := coerceTimestamp(dateVal)
		if !ok {
			skipped++
		}

		out = append(out, anomaly.Pallet{
			PalletID:          asString(palletIDVal),
			Location:          rawLoc,
			RawLocation:       rawLoc,
			CreationDate:      ts,
			HasValidTimestamp: ok,
			ReceiptNumber:     asString(receiptVal),
			Description:       asString(descVal),
		})
	}
	return out, skipped
}
