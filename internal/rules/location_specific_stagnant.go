package rules

import (
	"fmt"
	"time"

	"github.com/gobwas/glob"

	"github.com/warehouseiq/anomaly-engine/internal/anomaly"
	"github.com/warehouseiq/anomaly-engine/internal/errs"
)

type locationSpecificStagnantConditions struct {
	LocationPattern    string  `mapstructure:"locationPattern"`
	TimeThresholdHours float64 `mapstructure:"timeThresholdHours"`
}

func evaluateLocationSpecificStagnant(ctx EvalContextCarrier, rule anomaly.Rule, snapshot []anomaly.Pallet, ec EvalContext) ([]anomaly.Anomaly, error) {
	var cond locationSpecificStagnantConditions
	if err := decodeConditions(rule.Conditions, &cond); err != nil {
		return nil, err
	}
	pattern, err := glob.Compile(cond.LocationPattern)
	if err != nil {
		return nil, errs.NewUnparseableRuleError(rule.ID, "locationPattern: "+err.Error())
	}
	threshold := time.Duration(cond.TimeThresholdHours * float64(time.Hour))

	var out []anomaly.Anomaly
	for i, p := range snapshot {
		if i%checkEvery10k == 0 && canceled(ctx) {
			return out, nil
		}
		if !p.HasValidTimestamp || p.Location == "" || !pattern.Match(p.Location) {
			continue
		}
		age := ec.Now.Sub(p.CreationDate)
		if age > threshold {
			out = append(out, anomaly.Anomaly{
				PalletID:     p.PalletID,
				LocationCode: p.Location,
				AnomalyType:  "LOCATION_SPECIFIC_STAGNANT",
				Description:  fmt.Sprintf("pallet %s matched pattern %q at %s and has aged %.1fh past the %.1fh threshold", p.PalletID, cond.LocationPattern, p.Location, age.Hours(), cond.TimeThresholdHours),
				Details: map[string]interface{}{
					"ageHours":        age.Hours(),
					"thresholdHours":  cond.TimeThresholdHours,
					"locationPattern": cond.LocationPattern,
				},
			})
		}
	}
	return out, nil
}
