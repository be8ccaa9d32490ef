package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warehouseiq/anomaly-engine/internal/anomaly"
	"github.com/warehouseiq/anomaly-engine/internal/virtual"
)

func testEngine(t *testing.T) *virtual.Engine {
	tpl := virtual.Template{
		WarehouseID:           "W1",
		NumAisles:             2,
		RacksPerAisle:         1,
		PositionsPerRack:      22,
		LevelsPerPosition:     4,
		LevelNames:            "ABCD",
		DefaultPalletCapacity: 1,
		SpecialAreas: []virtual.SpecialArea{
			{Code: "RECV-01", Type: virtual.AreaReceiving, Capacity: 10, Zone: "AMBIENT"},
		},
	}
	e, err := virtual.Build(tpl)
	require.NoError(t, err)
	return e
}

// TestStagnantPallets_S3 mirrors spec §8 S3.
func TestStagnantPallets_S3(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	ec := EvalContext{Engine: testEngine(t), Now: now}
	rule := anomaly.Rule{ID: "r1", Conditions: map[string]interface{}{
		"locationTypes":      []interface{}{"RECEIVING"},
		"timeThresholdHours": 6.0,
	}}
	snapshot := []anomaly.Pallet{
		{PalletID: "P1", Location: "RECV-01", CreationDate: now.Add(-8 * time.Hour), HasValidTimestamp: true},
		{PalletID: "P2", Location: "RECV-01", CreationDate: now.Add(-2 * time.Hour), HasValidTimestamp: true},
		{PalletID: "P3", Location: "01-01-001A", CreationDate: now.Add(-10 * time.Hour), HasValidTimestamp: true},
	}
	out, err := evaluateStagnantPallets(context.Background(), rule, snapshot, ec)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "P1", out[0].PalletID)
}

// TestOvercapacity_S4 mirrors spec §8 S4.
func TestOvercapacity_S4(t *testing.T) {
	ec := EvalContext{Engine: testEngine(t), Now: time.Now(), ObviousViolationMultiplier: 2.0}
	var snapshot []anomaly.Pallet
	snapshot = append(snapshot, anomaly.Pallet{PalletID: "P1", Location: "01-01-001A"})
	snapshot = append(snapshot, anomaly.Pallet{PalletID: "P2", Location: "01-01-001A"})
	for i := 0; i < 12; i++ {
		snapshot = append(snapshot, anomaly.Pallet{PalletID: "R" + string(rune('A'+i)), Location: "RECV-01"})
	}

	onRule := anomaly.Rule{ID: "r1", Conditions: map[string]interface{}{"useLocationDifferentiation": true}}
	out, err := evaluateOvercapacity(context.Background(), onRule, snapshot, ec)
	require.NoError(t, err)
	assert.Len(t, out, 3) // 2 per-pallet + 1 area-level

	offRule := anomaly.Rule{ID: "r1", Conditions: map[string]interface{}{"useLocationDifferentiation": false}}
	out2, err := evaluateOvercapacity(context.Background(), offRule, snapshot, ec)
	require.NoError(t, err)
	assert.Len(t, out2, 14) // 2 + 12 per-pallet
}

func TestOvercapacity_ObviousBypassSeverity(t *testing.T) {
	ec := EvalContext{Engine: testEngine(t), Now: time.Now(), ObviousViolationMultiplier: 2.0}
	snapshot := []anomaly.Pallet{
		{PalletID: "P1", Location: "01-01-001A"},
		{PalletID: "P2", Location: "01-01-001A"},
	}
	rule := anomaly.Rule{ID: "r1", Conditions: map[string]interface{}{"useLocationDifferentiation": true}}
	out, err := evaluateOvercapacity(context.Background(), rule, snapshot, ec)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, anomaly.SeverityVeryHigh, out[0].Severity)
}

// TestInvalidLocation_S5 mirrors spec §8 S5.
func TestInvalidLocation_S5(t *testing.T) {
	ec := EvalContext{Engine: testEngine(t), Now: time.Now()}
	rule := anomaly.Rule{ID: "r1"}
	snapshot := []anomaly.Pallet{
		{PalletID: "P1", Location: "03-01-001A"},
		{PalletID: "P2", Location: "03-01-001A"},
	}
	out, err := evaluateInvalidLocation(context.Background(), rule, snapshot, ec)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

// TestUncoordinatedLots_S6 mirrors spec §8 S6.
func TestUncoordinatedLots_S6(t *testing.T) {
	ec := EvalContext{Engine: testEngine(t), Now: time.Now()}
	var snapshot []anomaly.Pallet
	for i := 0; i < 8; i++ {
		snapshot = append(snapshot, anomaly.Pallet{PalletID: "S" + string(rune('A'+i)), Location: "01-01-001A", ReceiptNumber: "R7"})
	}
	snapshot = append(snapshot, anomaly.Pallet{PalletID: "T1", Location: "RECV-01", ReceiptNumber: "R7"})
	snapshot = append(snapshot, anomaly.Pallet{PalletID: "T2", Location: "RECV-01", ReceiptNumber: "R7"})

	rule8 := anomaly.Rule{ID: "r1", Conditions: map[string]interface{}{"completionThreshold": 0.8}}
	out, err := evaluateUncoordinatedLots(context.Background(), rule8, snapshot, ec)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	rule9 := anomaly.Rule{ID: "r1", Conditions: map[string]interface{}{"completionThreshold": 0.9}}
	out2, err := evaluateUncoordinatedLots(context.Background(), rule9, snapshot, ec)
	require.NoError(t, err)
	assert.Empty(t, out2)
}

func TestMissingLocation(t *testing.T) {
	ec := EvalContext{Now: time.Now()}
	rule := anomaly.Rule{ID: "r1"}
	snapshot := []anomaly.Pallet{
		{PalletID: "P1", RawLocation: ""},
		{PalletID: "P2", RawLocation: "NAN"},
		{PalletID: "P3", RawLocation: "01-01-001A", Location: "01-01-001A"},
	}
	out, err := evaluateMissingLocation(context.Background(), rule, snapshot, ec)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestDataIntegrity_DuplicatesAndImpossibleLocations(t *testing.T) {
	ec := EvalContext{Now: time.Now()}
	rule := anomaly.Rule{ID: "r1", Conditions: map[string]interface{}{
		"checkDuplicateScans":      true,
		"checkImpossibleLocations": true,
	}}
	snapshot := []anomaly.Pallet{
		{PalletID: "P1", Location: "01-01-001A", RawLocation: "01-01-001A"},
		{PalletID: "P1", Location: "01-01-002A", RawLocation: "01-01-002A"},
		{PalletID: "P2", Location: "weird", RawLocation: "this-is-a-very-long-location-string"},
		{PalletID: "P3", Location: "bad", RawLocation: "A@B#C"},
	}
	out, err := evaluateDataIntegrity(context.Background(), rule, snapshot, ec)
	require.NoError(t, err)
	// 2 duplicate-scan anomalies (P1 twice) + 2 impossible-location anomalies.
	assert.Len(t, out, 4)
}

func TestLocationSpecificStagnant_GlobMatch(t *testing.T) {
	ec := EvalContext{Engine: testEngine(t), Now: time.Now()}
	rule := anomaly.Rule{ID: "r1", Conditions: map[string]interface{}{
		"locationPattern":    "01-01-*",
		"timeThresholdHours": 1.0,
	}}
	snapshot := []anomaly.Pallet{
		{PalletID: "P1", Location: "01-01-001A", CreationDate: time.Now().Add(-2 * time.Hour), HasValidTimestamp: true},
		{PalletID: "P2", Location: "02-01-001A", CreationDate: time.Now().Add(-2 * time.Hour), HasValidTimestamp: true},
	}
	out, err := evaluateLocationSpecificStagnant(context.Background(), rule, snapshot, ec)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "P1", out[0].PalletID)
}

func TestTemperatureZoneMismatch(t *testing.T) {
	ec := EvalContext{Engine: testEngine(t), Now: time.Now()}
	rule := anomaly.Rule{ID: "r1", Conditions: map[string]interface{}{
		"productPatterns": []interface{}{"*frozen*"},
		"prohibitedZones": []interface{}{"AMBIENT"},
	}}
	snapshot := []anomaly.Pallet{
		{PalletID: "P1", Location: "RECV-01", Description: "frozen chicken"},
		{PalletID: "P2", Location: "RECV-01", Description: "canned beans"},
	}
	out, err := evaluateTemperatureZoneMismatch(context.Background(), rule, snapshot, ec)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "P1", out[0].PalletID)
}

func TestProductIncompatibility(t *testing.T) {
	ec := EvalContext{Engine: testEngine(t), Now: time.Now()}
	rule := anomaly.Rule{ID: "r1", Conditions: map[string]interface{}{
		"locationProducts": map[string]interface{}{
			"01-01-001A": []interface{}{"widget*"},
		},
	}}
	snapshot := []anomaly.Pallet{
		{PalletID: "P1", Location: "01-01-001A", Description: "widget-42"},
		{PalletID: "P2", Location: "01-01-001A", Description: "gadget-7"},
	}
	out, err := evaluateProductIncompatibility(context.Background(), rule, snapshot, ec)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "P2", out[0].PalletID)
}

func TestEvaluators_NoEngineStillRunsDataRules(t *testing.T) {
	ec := EvalContext{Engine: nil, Now: time.Now()}
	rule := anomaly.Rule{ID: "r1"}
	snapshot := []anomaly.Pallet{{PalletID: "P1", RawLocation: ""}}
	out, err := evaluateMissingLocation(context.Background(), rule, snapshot, ec)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestRegistry_HasAllNineTypes(t *testing.T) {
	types := []anomaly.RuleType{
		anomaly.RuleStagnantPallets, anomaly.RuleUncoordinatedLots, anomaly.RuleOvercapacity,
		anomaly.RuleInvalidLocation, anomaly.RuleLocationSpecificStagnant, anomaly.RuleTemperatureZoneMismatch,
		anomaly.RuleDataIntegrity, anomaly.RuleMissingLocation, anomaly.RuleProductIncompatibility,
	}
	for _, ty := range types {
		_, ok := Lookup(ty)
		assert.True(t, ok, "expected evaluator registered for %s", ty)
	}
}
