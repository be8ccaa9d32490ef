// Package config holds the engine-wide options spec §6 names as
// "recognized options" — plain structs, no external config-file format
// opinion baked in (callers load YAML/env/flags into this struct however
// they like; cmd/ruleengine runs with DefaultConfig() unchanged).
package config

import (
	"time"

	"github.com/warehouseiq/anomaly-engine/internal/warehouse"
)

// EngineConfig is the evaluation-wide configuration spec §6 lists.
type EngineConfig struct {
	PerRuleTimeout             time.Duration
	CanonicalCacheSize         int
	ParallelEvaluators         int
	ObviousViolationMultiplier float64
	WarehouseConfidenceThresholds warehouse.ConfidenceThresholds
	EngineCacheTTL             time.Duration
}

// DefaultConfig returns the defaults named in spec §6.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		PerRuleTimeout:                30 * time.Second,
		CanonicalCacheSize:            10000,
		ParallelEvaluators:            0, // 0 means "number of cores", resolved by the orchestrator
		ObviousViolationMultiplier:    2.0,
		WarehouseConfidenceThresholds: warehouse.DefaultConfidenceThresholds(),
		EngineCacheTTL:                10 * time.Minute,
	}
}
