package rules

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/warehouseiq/anomaly-engine/internal/anomaly"
	"github.com/warehouseiq/anomaly-engine/internal/errs"
	"github.com/warehouseiq/anomaly-engine/internal/location"
)

type temperatureZoneMismatchConditions struct {
	ProductPatterns []string `mapstructure:"productPatterns"`
	ProhibitedZones []string `mapstructure:"prohibitedZones"`
}

func evaluateTemperatureZoneMismatch(ctx EvalContextCarrier, rule anomaly.Rule, snapshot []anomaly.Pallet, ec EvalContext) ([]anomaly.Anomaly, error) {
	var cond temperatureZoneMismatchConditions
	if err := decodeConditions(rule.Conditions, &cond); err != nil {
		return nil, err
	}
	patterns := make([]glob.Glob, 0, len(cond.ProductPatterns))
	for _, p := range cond.ProductPatterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errs.NewUnparseableRuleError(rule.ID, "productPatterns: "+err.Error())
		}
		patterns = append(patterns, g)
	}

	var out []anomaly.Anomaly
	for i, p := range snapshot {
		if i%checkEvery10k == 0 && canceled(ctx) {
			return out, nil
		}
		if !matchesAny(patterns, p.Description) {
			continue
		}
		zone := zoneOf(ec, p.Location)
		if zone == "" || !stringSliceContains(cond.ProhibitedZones, zone) {
			continue
		}
		out = append(out, anomaly.Anomaly{
			PalletID:     p.PalletID,
			LocationCode: p.Location,
			AnomalyType:  "TEMPERATURE_ZONE_MISMATCH",
			Description:  fmt.Sprintf("pallet %s (%q) sits in prohibited zone %s at %s", p.PalletID, p.Description, zone, p.Location),
			Details: map[string]interface{}{
				"zone":        zone,
				"description": p.Description,
			},
		})
	}
	return out, nil
}

func matchesAny(patterns []glob.Glob, s string) bool {
	for _, g := range patterns {
		if g.Match(s) {
			return true
		}
	}
	return false
}

func zoneOf(ec EvalContext, loc string) string {
	if ec.Engine == nil || loc == "" {
		return ""
	}
	c, uerr := location.ToCanonical(loc)
	if uerr != nil {
		return ""
	}
	return ec.Engine.Validate(c, uerr).Zone
}
