package rules

import (
	"fmt"

	"github.com/warehouseiq/anomaly-engine/internal/anomaly"
	"github.com/warehouseiq/anomaly-engine/internal/virtual"
)

// overcapacityConditions is spec §4.4 OVERCAPACITY's conditions.
type overcapacityConditions struct {
	UseLocationDifferentiation bool `mapstructure:"useLocationDifferentiation"`
}

func evaluateOvercapacity(ctx EvalContextCarrier, rule anomaly.Rule, snapshot []anomaly.Pallet, ec EvalContext) ([]anomaly.Anomaly, error) {
	var cond overcapacityConditions
	if err := decodeConditions(rule.Conditions, &cond); err != nil {
		return nil, err
	}

	type group struct {
		indices  []int
		result   virtual.ValidationResult
	}
	groups := make(map[string]*group)
	var order []string
	for i, p := range snapshot {
		if i%checkEvery10k == 0 && canceled(ctx) {
			break
		}
		if p.Location == "" {
			continue
		}
		g, ok := groups[p.Location]
		if !ok {
			g = &group{result: validatePallet(ec, p.Location)}
			groups[p.Location] = g
			order = append(order, p.Location)
		}
		g.indices = append(g.indices, i)
	}

	multiplier := ec.ObviousViolationMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	var out []anomaly.Anomaly
	for _, loc := range order {
		g := groups[loc]
		if !g.result.Valid() {
			continue
		}
		capacity := g.result.Capacity
		count := len(g.indices)
		if capacity <= 0 || count <= capacity {
			continue
		}

		severity := anomaly.Severity("")
		obvious := float64(count) >= multiplier*float64(capacity)
		if obvious {
			severity = anomaly.SeverityVeryHigh
		}

		perPallet := g.result.Type == virtual.TypeStorage || !cond.UseLocationDifferentiation
		if perPallet {
			for _, idx := range g.indices {
				p := snapshot[idx]
				out = append(out, anomaly.Anomaly{
					PalletID:     p.PalletID,
					LocationCode: loc,
					AnomalyType:  "OVERCAPACITY",
					Severity:     severity,
					Description:  fmt.Sprintf("location %s holds %d pallets against a capacity of %d", loc, count, capacity),
					Details: map[string]interface{}{
						"count":    count,
						"capacity": capacity,
						"obvious":  obvious,
					},
				})
			}
			continue
		}

		// Special location with differentiation on: one area-level
		// anomaly using the first pallet as the representative.
		rep := snapshot[g.indices[0]]
		out = append(out, anomaly.Anomaly{
			PalletID:     rep.PalletID,
			LocationCode: loc,
			AnomalyType:  "OVERCAPACITY_AREA",
			Severity:     severity,
			Description:  fmt.Sprintf("area %s holds %d pallets against a capacity of %d", loc, count, capacity),
			Details: map[string]interface{}{
				"count":          count,
				"capacity":       capacity,
				"obvious":        obvious,
				"representative": true,
			},
		})
	}

	return out, nil
}
