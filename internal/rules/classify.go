package rules

import (
	"github.com/warehouseiq/anomaly-engine/internal/location"
	"github.com/warehouseiq/anomaly-engine/internal/virtual"
)

// classifyPallet resolves a pallet's location type against the evaluation's
// engine. With no engine (warehouse context NONE), every location reads as
// UNKNOWN rather than panicking (spec §4.4 "treat warehouse context = NONE
// ... returning zero results where location validity is required").
func classifyPallet(ec EvalContext, p string) virtual.LocationType {
	if ec.Engine == nil {
		return virtual.TypeUnknown
	}
	c, uerr := location.ToCanonical(p)
	return ec.Engine.Classify(c, uerr)
}

// validatePallet returns the full ValidationResult. When there is no engine
// to validate against it returns Unparseable for unparseable input and
// NotInUniverse otherwise.
func validatePallet(ec EvalContext, p string) virtual.ValidationResult {
	c, uerr := location.ToCanonical(p)
	if ec.Engine == nil {
		if uerr != nil {
			return virtual.ValidationResult{Status: virtual.StatusUnparseable}
		}
		return virtual.ValidationResult{Status: virtual.StatusNotInUniverse}
	}
	return ec.Engine.Validate(c, uerr)
}
