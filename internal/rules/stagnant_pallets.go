package rules

import (
	"fmt"
	"time"

	"github.com/warehouseiq/anomaly-engine/internal/anomaly"
)

// stagnantPalletsConditions is spec §4.4 STAGNANT_PALLETS's conditions
// shape: either an allow-list of location types, or a deny-list via
// ExcludedLocations, plus the age threshold.
type stagnantPalletsConditions struct {
	LocationTypes       []string `mapstructure:"locationTypes"`
	TimeThresholdHours  float64  `mapstructure:"timeThresholdHours"`
	ExcludedLocations   []string `mapstructure:"excludedLocations"`
}

func evaluateStagnantPallets(ctx EvalContextCarrier, rule anomaly.Rule, snapshot []anomaly.Pallet, ec EvalContext) ([]anomaly.Anomaly, error) {
	var cond stagnantPalletsConditions
	if err := decodeConditions(rule.Conditions, &cond); err != nil {
		return nil, err
	}
	threshold := time.Duration(cond.TimeThresholdHours * float64(time.Hour))

	var out []anomaly.Anomaly
	for i, p := range snapshot {
		if i%checkEvery10k == 0 && canceled(ctx) {
			return out, nil
		}
		if !p.HasValidTimestamp {
			continue
		}
		t := classifyPallet(ec, p.Location)
		if !locationTypesOrExcluded(t, cond.LocationTypes, cond.ExcludedLocations) {
			continue
		}
		age := ec.Now.Sub(p.CreationDate)
		if age > threshold {
			out = append(out, anomaly.Anomaly{
				PalletID:     p.PalletID,
				LocationCode: p.Location,
				AnomalyType:  "STAGNANT_PALLET",
				Description:  fmt.Sprintf("pallet %s has been at %s for %.1fh, exceeding the %.1fh threshold", p.PalletID, p.Location, age.Hours(), cond.TimeThresholdHours),
				Details: map[string]interface{}{
					"ageHours":       age.Hours(),
					"thresholdHours": cond.TimeThresholdHours,
					"locationType":   string(t),
				},
			})
		}
	}
	return out, nil
}
