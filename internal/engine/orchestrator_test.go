package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warehouseiq/anomaly-engine/internal/anomaly"
	"github.com/warehouseiq/anomaly-engine/internal/config"
	"github.com/warehouseiq/anomaly-engine/internal/telemetry"
	"github.com/warehouseiq/anomaly-engine/internal/virtual"
)

func testCandidates() []Candidate {
	return []Candidate{{
		WarehouseID: "W1",
		Template: virtual.Template{
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
		},
	}}
}

// TestEvaluate_S2WarehouseDetection mirrors spec §8 S2.
func TestEvaluate_S2WarehouseDetection(t *testing.T) {
	o := New(config.DefaultConfig(), telemetry.NewNop())
	rows := []RawRow{
		{"palletId": "P1", "location": "01-01-005A"},
		{"palletId": "P2", "location": "01-01-005B"},
		{"palletId": "P3", "location": "02-01-010C"},
		{"palletId": "P4", "location": "RECV-01"},
		{"palletId": "P5", "location": "BOGUS"},
	}
	res, err := o.Evaluate(context.Background(), rows, nil, testCandidates(), "")
	require.NoError(t, err)
	assert.Equal(t, "W1", res.Warehouse.WarehouseID)
	assert.InDelta(t, 0.80, res.Warehouse.Coverage, 0.001)
}

func TestEvaluate_RulesRunAndAreAnnotated(t *testing.T) {
	o := New(config.DefaultConfig(), telemetry.NewNop())
	now := time.Now()
	rows := []RawRow{
		{"palletId": "P1", "location": "RECV-01", "creationDate": now.Add(-8 * time.Hour).Format(time.RFC3339)},
		{"palletId": "P2", "location": "RECV-01", "creationDate": now.Add(-2 * time.Hour).Format(time.RFC3339)},
	}
	ruleSet := []anomaly.Rule{{
		ID: "rule-1", Name: "stagnant receiving", Type: anomaly.RuleStagnantPallets,
		CategoryPriority: anomaly.CategoryFlowTime, Severity: anomaly.SeverityHigh, IsActive: true,
		Conditions: map[string]interface{}{"locationTypes": []interface{}{"RECEIVING"}, "timeThresholdHours": 6.0},
	}}
	res, err := o.Evaluate(context.Background(), rows, ruleSet, testCandidates(), "")
	require.NoError(t, err)
	require.Len(t, res.PerRule, 1)
	assert.True(t, res.PerRule[0].OK)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, "rule-1", res.Anomalies[0].RuleID)
	assert.Equal(t, anomaly.SeverityHigh, res.Anomalies[0].Severity)
}

func TestEvaluate_InactiveRulesSkipped(t *testing.T) {
	o := New(config.DefaultConfig(), telemetry.NewNop())
	ruleSet := []anomaly.Rule{{ID: "r1", Type: anomaly.RuleMissingLocation, IsActive: false}}
	res, err := o.Evaluate(context.Background(), nil, ruleSet, testCandidates(), "")
	require.NoError(t, err)
	assert.Empty(t, res.PerRule)
}

func TestEvaluate_UnknownRuleTypeIsolated(t *testing.T) {
	o := New(config.DefaultConfig(), telemetry.NewNop())
	ruleSet := []anomaly.Rule{
		{ID: "bad", Type: anomaly.RuleType("NOT_A_TYPE"), IsActive: true, CategoryPriority: anomaly.CategorySpace},
		{ID: "good", Type: anomaly.RuleMissingLocation, IsActive: true, CategoryPriority: anomaly.CategorySpace},
	}
	rows := []RawRow{{"palletId": "P1", "location": ""}}
	res, err := o.Evaluate(context.Background(), rows, ruleSet, testCandidates(), "")
	require.NoError(t, err)
	require.Len(t, res.PerRule, 2)
	var goodOK, badOK bool
	for _, r := range res.PerRule {
		if r.RuleID == "good" {
			goodOK = r.OK
		}
		if r.RuleID == "bad" {
			badOK = r.OK
		}
	}
	assert.True(t, goodOK, "a failing rule must not poison other rules")
	assert.False(t, badOK)
}

func TestEvaluate_NoWarehouseMatchedStillRunsDataRules(t *testing.T) {
	o := New(config.DefaultConfig(), telemetry.NewNop())
	rows := []RawRow{{"palletId": "P1", "location": ""}}
	ruleSet := []anomaly.Rule{{ID: "r1", Type: anomaly.RuleMissingLocation, IsActive: true}}
	res, err := o.Evaluate(context.Background(), rows, ruleSet, nil, "")
	require.NoError(t, err)
	assert.Empty(t, res.Warehouse.WarehouseID)
	require.Len(t, res.Anomalies, 1)
	require.NotNil(t, res.Aggregate)
	assert.True(t, res.Aggregate.Len() >= 1)
}

func TestEvaluate_SummaryAggregatesAnomalies(t *testing.T) {
	o := New(config.DefaultConfig(), telemetry.NewNop())
	now := time.Now()
	rows := []RawRow{
		{"palletId": "P1", "location": "RECV-01", "creationDate": now.Add(-8 * time.Hour).Format(time.RFC3339)},
		{"palletId": "P2", "location": "RECV-01", "creationDate": now.Add(-2 * time.Hour).Format(time.RFC3339)},
		{"palletId": "P3", "location": "not-a-timestamp row", "creationDate": "garbage"},
	}
	ruleSet := []anomaly.Rule{{
		ID: "rule-1", Name: "stagnant receiving", Type: anomaly.RuleStagnantPallets,
		CategoryPriority: anomaly.CategoryFlowTime, Severity: anomaly.SeverityHigh, IsActive: true,
		Conditions: map[string]interface{}{"locationTypes": []interface{}{"RECEIVING"}, "timeThresholdHours": 6.0},
	}}
	res, err := o.Evaluate(context.Background(), rows, ruleSet, testCandidates(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.TotalAnomalies)
	assert.Equal(t, 1, res.Summary.TotalPalletsFlagged)
	assert.Equal(t, 1, res.Summary.BySeverity[anomaly.SeverityHigh])
	assert.Equal(t, 1, res.Summary.ByRuleType[anomaly.RuleStagnantPallets])
	assert.Equal(t, 1, res.Summary.SkippedRows)
}

func TestFilterAndSortRules_DeterministicOrder(t *testing.T) {
	ruleSet := []anomaly.Rule{
		{ID: "z1", IsActive: true, CategoryPriority: anomaly.CategorySpace, Severity: anomaly.SeverityLow},
		{ID: "a1", IsActive: true, CategoryPriority: anomaly.CategoryFlowTime, Severity: anomaly.SeverityHigh},
		{ID: "a2", IsActive: true, CategoryPriority: anomaly.CategoryFlowTime, Severity: anomaly.SeverityVeryHigh},
		{ID: "skip", IsActive: false, CategoryPriority: anomaly.CategoryFlowTime},
	}
	sorted := filterAndSortRules(ruleSet)
	require.Len(t, sorted, 3)
	assert.Equal(t, []string{"a2", "a1", "z1"}, []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})
}
