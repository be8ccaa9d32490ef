package rules

import (
	"fmt"

	"github.com/warehouseiq/anomaly-engine/internal/anomaly"
	"github.com/warehouseiq/anomaly-engine/internal/virtual"
)

func evaluateInvalidLocation(ctx EvalContextCarrier, rule anomaly.Rule, snapshot []anomaly.Pallet, ec EvalContext) ([]anomaly.Anomaly, error) {
	// No warehouse context: validity cannot be judged, so nothing is reported.
	if ec.Engine == nil {
		return nil, nil
	}
	type group struct {
		indices []int
		result  virtual.ValidationResult
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

	var out []anomaly.Anomaly
	for _, loc := range order {
		g := groups[loc]
		if g.result.Valid() {
			continue
		}
		reason := "not part of the warehouse's virtual universe"
		if g.result.Status == virtual.StatusUnparseable {
			reason = "could not be parsed into a canonical location"
		}
		for _, idx := range g.indices {
			p := snapshot[idx]
			out = append(out, anomaly.Anomaly{
				PalletID:     p.PalletID,
				LocationCode: loc,
				AnomalyType:  "INVALID_LOCATION",
				Description:  fmt.Sprintf("pallet %s is at %s, which is %s", p.PalletID, loc, reason),
				Details: map[string]interface{}{
					"status": statusLabel(g.result.Status),
				},
			})
		}
	}
	return out, nil
}

func statusLabel(s virtual.Status) string {
	switch s {
	case virtual.StatusValid:
		return "VALID"
	case virtual.StatusNotInUniverse:
		return "NOT_IN_UNIVERSE"
	case virtual.StatusUnparseable:
		return "UNPARSEABLE"
	default:
		return "UNKNOWN"
	}
}
