package rules

import (
	"fmt"
	"strings"

	"github.com/warehouseiq/anomaly-engine/internal/anomaly"
)

type dataIntegrityConditions struct {
	CheckDuplicateScans      bool `mapstructure:"checkDuplicateScans"`
	CheckImpossibleLocations bool `mapstructure:"checkImpossibleLocations"`
}

const impossibleLocationChars = "@#!?"

func evaluateDataIntegrity(ctx EvalContextCarrier, rule anomaly.Rule, snapshot []anomaly.Pallet, ec EvalContext) ([]anomaly.Anomaly, error) {
	var cond dataIntegrityConditions
	if err := decodeConditions(rule.Conditions, &cond); err != nil {
		return nil, err
	}

	var out []anomaly.Anomaly

	if cond.CheckDuplicateScans {
		seen := make(map[string]int)
		for _, p := range snapshot {
			if p.PalletID != "" {
				seen[p.PalletID]++
			}
		}
		for i, p := range snapshot {
			if i%checkEvery10k == 0 && canceled(ctx) {
				return out, nil
			}
			if p.PalletID != "" && seen[p.PalletID] >= 2 {
				out = append(out, anomaly.Anomaly{
					PalletID:     p.PalletID,
					LocationCode: p.Location,
					AnomalyType:  "DUPLICATE_SCAN",
					Description:  fmt.Sprintf("pallet id %s appears %d times in the snapshot", p.PalletID, seen[p.PalletID]),
					Details:      map[string]interface{}{"occurrences": seen[p.PalletID]},
				})
			}
		}
	}

	if cond.CheckImpossibleLocations {
		for i, p := range snapshot {
			if i%checkEvery10k == 0 && canceled(ctx) {
				return out, nil
			}
			raw := p.RawLocation
			if raw == "" {
				raw = p.Location
			}
			if len(raw) > 20 || strings.ContainsAny(raw, impossibleLocationChars) {
				out = append(out, anomaly.Anomaly{
					PalletID:     p.PalletID,
					LocationCode: p.Location,
					AnomalyType:  "IMPOSSIBLE_LOCATION",
					Description:  fmt.Sprintf("pallet %s has an implausible location string %q", p.PalletID, raw),
					Details:      map[string]interface{}{"rawLocation": raw},
				})
			}
		}
	}

	return out, nil
}
