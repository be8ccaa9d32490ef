// Package ruleengine is the single public entry point external callers
// import: a thin facade over the internal location/virtual/warehouse/rules
// components that wires them into one evaluation call (spec §6 "The core
// exposes a single logical operation").
package ruleengine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/warehouseiq/anomaly-engine/internal/anomaly"
	"github.com/warehouseiq/anomaly-engine/internal/config"
	"github.com/warehouseiq/anomaly-engine/internal/engine"
	"github.com/warehouseiq/anomaly-engine/internal/telemetry"
	"github.com/warehouseiq/anomaly-engine/internal/virtual"
)

// Re-exported value types so callers depend only on this package, not on
// internal/* directly.
type (
	Pallet      = anomaly.Pallet
	Rule        = anomaly.Rule
	Anomaly     = anomaly.Anomaly
	RuleType    = anomaly.RuleType
	Severity    = anomaly.Severity
	RuleResult  = engine.RuleResult
	Result      = engine.Result
	RunSummary  = engine.RunSummary
	RawRow      = engine.RawRow
	Config      = config.EngineConfig
	Template    = virtual.Template
	SpecialArea = virtual.SpecialArea
)

const (
	StagnantPallets          = anomaly.RuleStagnantPallets
	UncoordinatedLots        = anomaly.RuleUncoordinatedLots
	Overcapacity             = anomaly.RuleOvercapacity
	InvalidLocation          = anomaly.RuleInvalidLocation
	LocationSpecificStagnant = anomaly.RuleLocationSpecificStagnant
	TemperatureZoneMismatch  = anomaly.RuleTemperatureZoneMismatch
	DataIntegrity            = anomaly.RuleDataIntegrity
	MissingLocation          = anomaly.RuleMissingLocation
	ProductIncompatibility   = anomaly.RuleProductIncompatibility
)

// DefaultConfig returns the spec §6 default engine configuration.
func DefaultConfig() Config { return config.DefaultConfig() }

// CandidateWarehouse is one (warehouseId, template) pair offered to the
// resolver (spec §6 "Candidate warehouses").
type CandidateWarehouse = engine.Candidate

// Engine is the facade handle a caller builds once and reuses across
// evaluations; it owns the virtual-engine cache (spec §4.2 "Caching").
type Engine struct {
	orch *engine.Orchestrator
}

// New builds an Engine. Pass any logrus.FieldLogger for log (nil selects a
// logger that discards output), and DefaultConfig() for cfg if no overrides
// are needed.
func New(cfg Config, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = telemetry.NewNop()
	}
	return &Engine{orch: engine.New(cfg, log)}
}

// Evaluate runs one evaluation: normalize rows, resolve the warehouse,
// dispatch active rules to their evaluators, and return the aggregated
// anomaly list and per-rule execution record (spec §4.5).
func (e *Engine) Evaluate(ctx context.Context, rows []RawRow, rules []Rule, candidates []CandidateWarehouse, preferredWarehouseHint string) (Result, error) {
	return e.orch.Evaluate(ctx, rows, rules, candidates, preferredWarehouseHint)
}
