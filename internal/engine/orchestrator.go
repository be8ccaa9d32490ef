// Package engine implements the rule engine orchestrator (C5): it owns the
// one evaluation entry point, wiring together column normalization, the
// warehouse resolver (C3), the virtual engine (C2), and the rule evaluator
// registry (C4) into a single ranked anomaly list (spec §4.5).
package engine

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/warehouseiq/anomaly-engine/internal/anomaly"
	"github.com/warehouseiq/anomaly-engine/internal/config"
	"github.com/warehouseiq/anomaly-engine/internal/errs"
	"github.com/warehouseiq/anomaly-engine/internal/rules"
	"github.com/warehouseiq/anomaly-engine/internal/rules/schema"
	"github.com/warehouseiq/anomaly-engine/internal/virtual"
	"github.com/warehouseiq/anomaly-engine/internal/warehouse"
)

// RuleResult is the per-rule execution record spec §4.5/§6 requires.
type RuleResult struct {
	RuleID      string
	OK          bool
	AnomalyCount int
	Duration    time.Duration
	Err         error
}

// Result is the orchestrator's single output value (spec §4.5 contract).
type Result struct {
	// RunID identifies one Evaluate call for log/telemetry correlation; it
	// has no meaning inside the core and is never persisted (spec §6
	// "Persisted state: none inside the core").
	RunID     string
	Anomalies []anomaly.Anomaly
	PerRule   []RuleResult
	Warehouse warehouse.Context
	Aggregate *errs.Aggregate
	Summary   RunSummary
}

// RunSummary is a pure aggregation over Anomalies and PerRule (SPEC_FULL §3
// "Evaluator execution summary per run"); it adds no state of its own.
type RunSummary struct {
	TotalAnomalies      int
	TotalPalletsFlagged int
	BySeverity          map[anomaly.Severity]int
	ByRuleType          map[anomaly.RuleType]int
	SkippedRows         int
}

func summarize(anomalies []anomaly.Anomaly, skippedRows int) RunSummary {
	s := RunSummary{
		TotalAnomalies: len(anomalies),
		BySeverity:     make(map[anomaly.Severity]int),
		ByRuleType:     make(map[anomaly.RuleType]int),
		SkippedRows:    skippedRows,
	}
	pallets := make(map[string]bool)
	for _, a := range anomalies {
		s.BySeverity[a.Severity]++
		s.ByRuleType[a.RuleType]++
		if a.PalletID != "" {
			pallets[a.PalletID] = true
		}
	}
	s.TotalPalletsFlagged = len(pallets)
	return s
}

// Orchestrator runs evaluations against a fixed configuration and shared
// caches. It holds no per-evaluation state between calls (spec §3.2 "Rule
// set: snapshot at the start of an evaluation").
type Orchestrator struct {
	cfg        config.EngineConfig
	engines    *virtual.EngineCache
	log        logrus.FieldLogger
}

// New builds an Orchestrator. log must not be nil; pass telemetry.NewNop()
// for silent operation.
func New(cfg config.EngineConfig, log logrus.FieldLogger) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		engines: virtual.NewEngineCache(cfg.EngineCacheTTL),
		log:     log,
	}
}

// Candidate is one (warehouseId, template) pair the caller offers (spec §6
// "Candidate warehouses").
type Candidate struct {
	WarehouseID string
	Template    virtual.Template
}

// Evaluate is the orchestrator's single logical operation (spec §4.5).
func (o *Orchestrator) Evaluate(ctx context.Context, rows []RawRow, ruleSet []anomaly.Rule, candidates []Candidate, preferredHint string) (Result, error) {
	runID := uuid.NewString()
	log := o.log.WithField("runId", runID)

	pallets, skipped := NormalizeRows(rows)
	if skipped > 0 {
		log.WithField("skippedRows", skipped).Debug("rows with unparseable timestamps kept for data-integrity evaluators only")
	}

	locations := make([]string, 0, len(pallets))
	for _, p := range pallets {
		if p.Location != "" {
			locations = append(locations, p.Location)
		}
	}

	resolverCandidates := make([]warehouse.Candidate, 0, len(candidates))
	enginesByID := make(map[string]*virtual.Engine, len(candidates))
	for _, c := range candidates {
		eng, err := o.engines.BuildCached(c.Template)
		if err != nil {
			log.WithError(err).WithField("warehouseId", c.WarehouseID).Warn("skipping candidate with invalid template")
			continue
		}
		enginesByID[c.WarehouseID] = eng
		resolverCandidates = append(resolverCandidates, warehouse.Candidate{WarehouseID: c.WarehouseID, Engine: eng})
	}

	wctx := warehouse.Resolve(locations, resolverCandidates, o.cfg.WarehouseConfidenceThresholds, preferredHint)

	var engineForRun *virtual.Engine
	agg := errs.NewAggregate()
	if wctx.WarehouseID != "" {
		engineForRun = enginesByID[wctx.WarehouseID]
	} else {
		agg.Add(errs.NewNoWarehouseMatchedError(wctx.Coverage))
	}

	active := filterAndSortRules(ruleSet)

	parallelism := o.cfg.ParallelEvaluators
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	sem := semaphore.NewWeighted(int64(parallelism))

	perRuleTimeout := o.cfg.PerRuleTimeout
	if perRuleTimeout <= 0 {
		perRuleTimeout = 30 * time.Second
	}

	evalCtx := rules.EvalContext{
		Engine:                     engineForRun,
		Warehouse:                  wctx,
		Now:                        time.Now(),
		ObviousViolationMultiplier: o.cfg.ObviousViolationMultiplier,
	}

	slots := make([]ruleOutcome, len(active))

	done := make(chan struct{}, len(active))
	for i, rule := range active {
		i, rule := i, rule
		if ctx.Err() != nil {
			slots[i] = ruleOutcome{result: RuleResult{RuleID: rule.ID, OK: false, Err: errs.NewEvaluatorCancelledError(rule.ID)}}
			done <- struct{}{}
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			slots[i] = ruleOutcome{result: RuleResult{RuleID: rule.ID, OK: false, Err: errs.NewEvaluatorCancelledError(rule.ID)}}
			done <- struct{}{}
			continue
		}
		go func() {
			defer sem.Release(1)
			defer func() { done <- struct{}{} }()
			slots[i] = o.runOne(ctx, rule, pallets, evalCtx, perRuleTimeout)
		}()
	}
	for range active {
		<-done
	}

	var allAnomalies []anomaly.Anomaly
	perRule := make([]RuleResult, 0, len(active))
	for _, s := range slots {
		allAnomalies = append(allAnomalies, s.anomalies...)
		perRule = append(perRule, s.result)
		if s.result.Err != nil {
			agg.Add(s.result.Err)
		}
	}

	return Result{
		RunID:     runID,
		Anomalies: allAnomalies,
		PerRule:   perRule,
		Warehouse: wctx,
		Aggregate: agg,
		Summary:   summarize(allAnomalies, skipped),
	}, nil
}

// ruleOutcome pairs a rule's emitted anomalies with its execution record.
type ruleOutcome struct {
	anomalies []anomaly.Anomaly
	result    RuleResult
}

// runOne dispatches a single rule to its evaluator under a per-rule timeout
// (spec §4.5 step 5, §5 "Timeouts").
func (o *Orchestrator) runOne(parent context.Context, rule anomaly.Rule, pallets []anomaly.Pallet, evalCtx rules.EvalContext, timeout time.Duration) (result ruleOutcome) {
	start := time.Now()
	ruleCtx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	if !schema.KnownType(rule.Type) {
		result.result = RuleResult{RuleID: rule.ID, OK: false, Err: errs.NewUnknownRuleTypeError(rule.ID, string(rule.Type))}
		return
	}
	evaluator, ok := rules.Lookup(rule.Type)
	if !ok {
		result.result = RuleResult{RuleID: rule.ID, OK: false, Err: errs.NewUnknownRuleTypeError(rule.ID, string(rule.Type))}
		return
	}
	if err := schema.Validate(rule.Type, rule.Conditions); err != nil {
		result.result = RuleResult{RuleID: rule.ID, OK: false, Err: errs.NewUnparseableRuleError(rule.ID, err.Error())}
		return
	}

	type outcome struct {
		anomalies []anomaly.Anomaly
		err       error
	}
	outcomeCh := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				outcomeCh <- outcome{err: errors.Errorf("evaluator panicked: %v", r)}
			}
		}()
		a, err := evaluator.Evaluate(ruleCtx, rule, pallets, evalCtx)
		outcomeCh <- outcome{anomalies: a, err: err}
	}()

	select {
	case oc := <-outcomeCh:
		dur := time.Since(start)
		if oc.err != nil {
			o.log.WithError(oc.err).WithField("ruleId", rule.ID).Warn("evaluator failed")
			result.result = RuleResult{RuleID: rule.ID, OK: false, Duration: dur, Err: errs.NewEvaluatorFailureError(rule.ID, "evaluator returned an error", oc.err)}
			return
		}
		annotated := annotate(oc.anomalies, rule)
		result.anomalies = annotated
		result.result = RuleResult{RuleID: rule.ID, OK: true, AnomalyCount: len(annotated), Duration: dur}
		return
	case <-ruleCtx.Done():
		dur := time.Since(start)
		if parent.Err() != nil {
			result.result = RuleResult{RuleID: rule.ID, OK: false, Duration: dur, Err: errs.NewEvaluatorCancelledError(rule.ID)}
			return
		}
		result.result = RuleResult{RuleID: rule.ID, OK: false, Duration: dur, Err: errs.NewEvaluatorTimeoutError(rule.ID, timeout)}
		return
	}
}

// annotate applies spec §4.5 step 6: stamp rule provenance and default
// severity from the rule when the evaluator left it unset.
func annotate(anomalies []anomaly.Anomaly, rule anomaly.Rule) []anomaly.Anomaly {
	out := make([]anomaly.Anomaly, len(anomalies))
	for i, a := range anomalies {
		a.RuleID = rule.ID
		a.RuleName = rule.Name
		a.RuleType = rule.Type
		if a.Severity == "" {
			a.Severity = rule.Severity
		}
		out[i] = a
	}
	return out
}

// filterAndSortRules implements spec §4.5 step 4: only active rules, in
// deterministic (categoryPriority, severity descending, ruleId ascending)
// order.
func filterAndSortRules(ruleSet []anomaly.Rule) []anomaly.Rule {
	var active []anomaly.Rule
	for _, r := range ruleSet {
		if r.IsActive {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if a.CategoryPriority != b.CategoryPriority {
			return a.CategoryPriority < b.CategoryPriority
		}
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		return a.ID < b.ID
	})
	return active
}
