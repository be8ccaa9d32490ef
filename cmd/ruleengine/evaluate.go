package main

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/warehouseiq/anomaly-engine/internal/anomaly"
	"github.com/warehouseiq/anomaly-engine/internal/engine"
	"github.com/warehouseiq/anomaly-engine/internal/virtual"
	"github.com/warehouseiq/anomaly-engine/pkg/ruleengine"
)

// templateFile is the on-disk shape of a warehouse template (spec §3.1
// WarehouseTemplate), one external YAML format among many acceptable
// encodings (spec §6).
type templateFile struct {
	WarehouseID           string            `yaml:"warehouseId"`
	NumAisles             int               `yaml:"numAisles"`
	RacksPerAisle         int               `yaml:"racksPerAisle"`
	PositionsPerRack      int               `yaml:"positionsPerRack"`
	LevelsPerPosition     int               `yaml:"levelsPerPosition"`
	LevelNames            string            `yaml:"levelNames"`
	DefaultPalletCapacity int               `yaml:"defaultPalletCapacity"`
	SpecialAreas          []specialAreaFile `yaml:"specialAreas"`
}

type specialAreaFile struct {
	Code     string `yaml:"code"`
	Type     string `yaml:"type"`
	Capacity int    `yaml:"capacity"`
	Zone     string `yaml:"zone"`
}

type ruleFile struct {
	ID               string                 `yaml:"id"`
	Name             string                 `yaml:"name"`
	Type             string                 `yaml:"type"`
	CategoryPriority string                 `yaml:"categoryPriority"`
	Severity         string                 `yaml:"severity"`
	IsActive         bool                   `yaml:"isActive"`
	Conditions       map[string]interface{} `yaml:"conditions"`
	Parameters       map[string]interface{} `yaml:"parameters"`
}

func newEvaluateCmd() *cobra.Command {
	var templatesPath, rulesPath, snapshotPath, preferredWarehouse string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "evaluate a snapshot against a ruleset and candidate warehouse templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(templatesPath, rulesPath, snapshotPath, preferredWarehouse)
		},
	}

	cmd.Flags().StringVar(&templatesPath, "templates", "", "path to a YAML file listing candidate warehouse templates")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "path to a YAML file listing rules")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "path to a YAML file listing inventory rows")
	cmd.Flags().StringVar(&preferredWarehouse, "preferred-warehouse", "", "optional warehouseId tie-break hint")
	for _, name := range []string{"templates", "rules", "snapshot"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runEvaluate(templatesPath, rulesPath, snapshotPath, preferredWarehouse string) error {
	var templateFiles []templateFile
	if err := loadYAML(templatesPath, &templateFiles); err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}
	var ruleFiles []ruleFile
	if err := loadYAML(rulesPath, &ruleFiles); err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}
	var rows []engine.RawRow
	if err := loadYAML(snapshotPath, &rows); err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	candidates := make([]ruleengine.CandidateWarehouse, 0, len(templateFiles))
	for _, tf := range templateFiles {
		candidates = append(candidates, ruleengine.CandidateWarehouse{
			WarehouseID: tf.WarehouseID,
			Template:    toVirtualTemplate(tf),
		})
	}

	rules := make([]anomaly.Rule, 0, len(ruleFiles))
	for _, rf := range ruleFiles {
		rules = append(rules, toRule(rf))
	}

	eng := ruleengine.New(ruleengine.DefaultConfig(), log.StandardLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := eng.Evaluate(ctx, rows, rules, candidates, preferredWarehouse)
	if err != nil {
		return fmt.Errorf("evaluating: %w", err)
	}

	printReport(result)
	return nil
}

func toVirtualTemplate(tf templateFile) virtual.Template {
	areas := make([]virtual.SpecialArea, 0, len(tf.SpecialAreas))
	for _, a := range tf.SpecialAreas {
		areas = append(areas, virtual.SpecialArea{
			Code: a.Code, Type: virtual.SpecialAreaType(a.Type), Capacity: a.Capacity, Zone: a.Zone,
		})
	}
	return virtual.Template{
		WarehouseID:           tf.WarehouseID,
		NumAisles:             tf.NumAisles,
		RacksPerAisle:         tf.RacksPerAisle,
		PositionsPerRack:      tf.PositionsPerRack,
		LevelsPerPosition:     tf.LevelsPerPosition,
		LevelNames:            tf.LevelNames,
		DefaultPalletCapacity: tf.DefaultPalletCapacity,
		SpecialAreas:          areas,
	}
}

func toRule(rf ruleFile) anomaly.Rule {
	return anomaly.Rule{
		ID:               rf.ID,
		Name:             rf.Name,
		Type:             anomaly.RuleType(rf.Type),
		CategoryPriority: anomaly.CategoryPriority(rf.CategoryPriority),
		Severity:         anomaly.Severity(rf.Severity),
		IsActive:         rf.IsActive,
		Conditions:       rf.Conditions,
		Parameters:       rf.Parameters,
	}
}

func loadYAML(path string, out interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, out)
}

func printReport(result engine.Result) {
	fmt.Printf("warehouse: %s (confidence=%s coverage=%.2f)\n", result.Warehouse.WarehouseID, result.Warehouse.Confidence, result.Warehouse.Coverage)
	fmt.Printf("anomalies: %d\n", len(result.Anomalies))
	for _, a := range result.Anomalies {
		fmt.Printf("  [%s] %s pallet=%s location=%s rule=%s: %s\n", a.Severity, a.AnomalyType, a.PalletID, a.LocationCode, a.RuleName, a.Description)
	}
	fmt.Println("rule results:")
	for _, r := range result.PerRule {
		status := "ok"
		if !r.OK {
			status = fmt.Sprintf("failed: %v", r.Err)
		}
		fmt.Printf("  %s: %s (%d anomalies, %s)\n", r.RuleID, status, r.AnomalyCount, r.Duration)
	}
	fmt.Printf("summary: %d pallets flagged, %d rows skipped\n", result.Summary.TotalPalletsFlagged, result.Summary.SkippedRows)
	for sev, n := range result.Summary.BySeverity {
		fmt.Printf("  severity %s: %d\n", sev, n)
	}
}
