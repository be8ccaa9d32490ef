package rules

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/warehouseiq/anomaly-engine/internal/virtual"
)

// decodeConditions is the one place every evaluator turns a rule's loosely
// typed conditions map into a concrete Go struct, via mapstructure rather
// than a hand-written field-by-field type switch.
func decodeConditions(raw map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "building conditions decoder")
	}
	return dec.Decode(raw)
}

// locationTypesOrExcluded resolves spec §4.4 STAGNANT_PALLETS's either/or
// condition form: an explicit allow-list, or everything not on a deny-list.
func locationTypesOrExcluded(t virtual.LocationType, allow, exclude []string) bool {
	if len(allow) > 0 {
		for _, a := range allow {
			if string(t) == a {
				return true
			}
		}
		return false
	}
	for _, e := range exclude {
		if string(t) == e {
			return false
		}
	}
	return true
}

func stringSliceContains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
