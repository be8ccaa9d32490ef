package rules

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/warehouseiq/anomaly-engine/internal/anomaly"
	"github.com/warehouseiq/anomaly-engine/internal/errs"
	"github.com/warehouseiq/anomaly-engine/internal/location"
)

// productIncompatibilityConditions maps each location that declares
// restrictions to the glob patterns of product descriptions it accepts
// (spec §4.4: "if a location declares allowedProducts").
type productIncompatibilityConditions struct {
	LocationProducts map[string][]string `mapstructure:"locationProducts"`
}

func evaluateProductIncompatibility(ctx EvalContextCarrier, rule anomaly.Rule, snapshot []anomaly.Pallet, ec EvalContext) ([]anomaly.Anomaly, error) {
	var cond productIncompatibilityConditions
	if err := decodeConditions(rule.Conditions, &cond); err != nil {
		return nil, err
	}

	compiled := make(map[string][]glob.Glob, len(cond.LocationProducts))
	for loc, patterns := range cond.LocationProducts {
		key, uerr := location.ToCanonical(loc)
		canonKey := loc
		if uerr == nil {
			canonKey = location.Render(key)
		}
		gs := make([]glob.Glob, 0, len(patterns))
		for _, p := range patterns {
			g, err := glob.Compile(p)
			if err != nil {
				return nil, errs.NewUnparseableRuleError(rule.ID, "locationProducts: "+err.Error())
			}
			gs = append(gs, g)
		}
		compiled[canonKey] = gs
	}

	var out []anomaly.Anomaly
	for i, p := range snapshot {
		if i%checkEvery10k == 0 && canceled(ctx) {
			return out, nil
		}
		if p.Location == "" {
			continue
		}
		canon, uerr := location.ToCanonical(p.Location)
		key := p.Location
		if uerr == nil {
			key = location.Render(canon)
		}
		allowed, declared := compiled[key]
		if !declared || len(allowed) == 0 {
			continue
		}
		if matchesAny(allowed, p.Description) {
			continue
		}
		out = append(out, anomaly.Anomaly{
			PalletID:     p.PalletID,
			LocationCode: p.Location,
			AnomalyType:  "PRODUCT_INCOMPATIBILITY",
			Description:  fmt.Sprintf("pallet %s (%q) is not an allowed product at %s", p.PalletID, p.Description, p.Location),
			Details:      map[string]interface{}{"description": p.Description},
		})
	}
	return out, nil
}
