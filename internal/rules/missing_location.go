package rules

import (
	"fmt"
	"strings"

	"github.com/warehouseiq/anomaly-engine/internal/anomaly"
)

func evaluateMissingLocation(ctx EvalContextCarrier, rule anomaly.Rule, snapshot []anomaly.Pallet, ec EvalContext) ([]anomaly.Anomaly, error) {
	var out []anomaly.Anomaly
	for i, p := range snapshot {
		if i%checkEvery10k == 0 && canceled(ctx) {
			return out, nil
		}
		raw := p.RawLocation
		if raw == "" {
			raw = p.Location
		}
		if isMissingLocation(raw) {
			out = append(out, anomaly.Anomaly{
				PalletID:     p.PalletID,
				LocationCode: p.Location,
				AnomalyType:  "MISSING_LOCATION",
				Description:  fmt.Sprintf("pallet %s has no recorded location", p.PalletID),
				Details:      map[string]interface{}{},
			})
		}
	}
	return out, nil
}

func isMissingLocation(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed == "" || strings.EqualFold(trimmed, "NAN")
}
