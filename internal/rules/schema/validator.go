// Package schema compiles the per-rule-type JSON Schemas that validate a
// Rule's conditions before that rule's evaluator runs. A rule that fails
// validation is recorded as an UnparseableRuleError in its own per-rule
// result; the other rules of the evaluation still run.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/warehouseiq/anomaly-engine/internal/anomaly"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var typeToFile = map[anomaly.RuleType]string{
	anomaly.RuleStagnantPallets:          "stagnant_pallets.json",
	anomaly.RuleUncoordinatedLots:        "uncoordinated_lots.json",
	anomaly.RuleOvercapacity:             "overcapacity.json",
	anomaly.RuleInvalidLocation:          "invalid_location.json",
	anomaly.RuleLocationSpecificStagnant: "location_specific_stagnant.json",
	anomaly.RuleTemperatureZoneMismatch:  "temperature_zone_mismatch.json",
	anomaly.RuleDataIntegrity:            "data_integrity.json",
	anomaly.RuleMissingLocation:          "missing_location.json",
	anomaly.RuleProductIncompatibility:   "product_incompatibility.json",
}

var compiled map[anomaly.RuleType]*jsonschema.Schema

func init() {
	c := jsonschema.NewCompiler()
	for _, file := range typeToFile {
		b, err := schemaFS.ReadFile("schemas/" + file)
		if err != nil {
			panic(fmt.Sprintf("rules/schema: embedded schema %s missing: %v", file, err))
		}
		if err := c.AddResource(file, bytes.NewReader(b)); err != nil {
			panic(fmt.Sprintf("rules/schema: invalid schema %s: %v", file, err))
		}
	}
	compiled = make(map[anomaly.RuleType]*jsonschema.Schema, len(typeToFile))
	for ruleType, file := range typeToFile {
		s, err := c.Compile(file)
		if err != nil {
			panic(fmt.Sprintf("rules/schema: compiling %s: %v", file, err))
		}
		compiled[ruleType] = s
	}
}

// KnownType reports whether a rule type has a registered schema.
func KnownType(t anomaly.RuleType) bool {
	_, ok := typeToFile[t]
	return ok
}

// Validate checks a rule's conditions map against its type's schema. The
// conditions map is round-tripped through encoding/json so Go-typed values
// (e.g. []string, int) present to the validator exactly as a JSON document
// would. Values encoding/json cannot marshal, such as maps with
// non-string keys, are reported as an error.
func Validate(t anomaly.RuleType, conditions map[string]interface{}) error {
	s, ok := compiled[t]
	if !ok {
		return fmt.Errorf("no schema registered for rule type %q", t)
	}
	if conditions == nil {
		conditions = map[string]interface{}{}
	}
	b, err := json.Marshal(conditions)
	if err != nil {
		return fmt.Errorf("marshaling conditions: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("unmarshaling conditions: %w", err)
	}
	return s.Validate(doc)
}
