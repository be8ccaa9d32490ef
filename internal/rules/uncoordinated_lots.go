package rules

import (
	"fmt"
	"sort"

	"github.com/warehouseiq/anomaly-engine/internal/anomaly"
)

// uncoordinatedLotsConditions is spec §4.4 UNCOORDINATED_LOTS's conditions.
type uncoordinatedLotsConditions struct {
	CompletionThreshold float64  `mapstructure:"completionThreshold"`
	LocationTypes       []string `mapstructure:"locationTypes"`
	FinalLocationTypes  []string `mapstructure:"finalLocationTypes"`
}

func evaluateUncoordinatedLots(ctx EvalContextCarrier, rule anomaly.Rule, snapshot []anomaly.Pallet, ec EvalContext) ([]anomaly.Anomaly, error) {
	cond := uncoordinatedLotsConditions{FinalLocationTypes: []string{"STORAGE", "FINAL"}}
	if err := decodeConditions(rule.Conditions, &cond); err != nil {
		return nil, err
	}
	if len(cond.FinalLocationTypes) == 0 {
		cond.FinalLocationTypes = []string{"STORAGE", "FINAL"}
	}

	type lotEntry struct {
		idx int
		loc string
	}
	lots := make(map[string][]lotEntry)
	for i, p := range snapshot {
		if i%checkEvery10k == 0 && canceled(ctx) {
			break
		}
		if p.ReceiptNumber == "" {
			continue
		}
		lots[p.ReceiptNumber] = append(lots[p.ReceiptNumber], lotEntry{idx: i, loc: p.Location})
	}

	type indexed struct {
		idx int
		a   anomaly.Anomaly
	}
	var found []indexed
	for receipt, entries := range lots {
		if len(entries) < 2 {
			continue
		}
		finalCount := 0
		for _, e := range entries {
			t := classifyPallet(ec, e.loc)
			if stringSliceContains(cond.FinalLocationTypes, string(t)) {
				finalCount++
			}
		}
		fraction := float64(finalCount) / float64(len(entries))
		if fraction < cond.CompletionThreshold {
			continue
		}
		for _, e := range entries {
			t := classifyPallet(ec, e.loc)
			// No explicit locationTypes allow-list: a straggler is any pallet
			// not already at one of the lot's final location types.
			if !locationTypesOrExcluded(t, cond.LocationTypes, cond.FinalLocationTypes) {
				continue
			}
			p := snapshot[e.idx]
			found = append(found, indexed{idx: e.idx, a: anomaly.Anomaly{
				PalletID:     p.PalletID,
				LocationCode: p.Location,
				AnomalyType:  "UNCOORDINATED_LOT_STRAGGLER",
				Description:  fmt.Sprintf("lot %s is %.0f%% complete but pallet %s is still at %s", receipt, fraction*100, p.PalletID, p.Location),
				Details: map[string]interface{}{
					"receiptNumber":  receipt,
					"lotSize":        len(entries),
					"completionFrac": fraction,
				},
			}})
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].idx < found[j].idx })
	out := make([]anomaly.Anomaly, 0, len(found))
	for _, f := range found {
		out = append(out, f.a)
	}
	return out, nil
}
