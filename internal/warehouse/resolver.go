// Package warehouse implements the warehouse context resolver (C3):
// choosing which candidate warehouse's virtual universe best covers an
// inventory snapshot's observed locations, with a confidence score.
package warehouse

import (
	"sort"

	"github.com/warehouseiq/anomaly-engine/internal/location"
	"github.com/warehouseiq/anomaly-engine/internal/virtual"
)

// Confidence is the resolver's self-reported trust in its pick (spec §3.1).
type Confidence string

const (
	ConfidenceVeryHigh Confidence = "VERY_HIGH"
	ConfidenceHigh     Confidence = "HIGH"
	ConfidenceMedium   Confidence = "MEDIUM"
	ConfidenceLow      Confidence = "LOW"
	ConfidenceVeryLow  Confidence = "VERY_LOW"
	ConfidenceNone     Confidence = "NONE"
)

// ConfidenceThresholds is the overridable mapping from spec §4.3 step 5,
// exposed as engine configuration (spec §6).
type ConfidenceThresholds struct {
	VeryHighCoverage float64
	VeryHighMinValid int
	HighCoverage     float64
	HighMinValid     int
	MediumCoverage   float64
	MediumMinValid   int
	LowCoverage      float64
}

// DefaultConfidenceThresholds returns the thresholds named in spec §4.3.
func DefaultConfidenceThresholds() ConfidenceThresholds {
	return ConfidenceThresholds{
		VeryHighCoverage: 0.80, VeryHighMinValid: 5,
		HighCoverage: 0.60, HighMinValid: 3,
		MediumCoverage: 0.30, MediumMinValid: 2,
		LowCoverage: 0.15,
	}
}

func (th ConfidenceThresholds) classify(coverage float64, valid int) Confidence {
	switch {
	case coverage >= th.VeryHighCoverage && valid >= th.VeryHighMinValid:
		return ConfidenceVeryHigh
	case coverage >= th.HighCoverage && valid >= th.HighMinValid:
		return ConfidenceHigh
	case coverage >= th.MediumCoverage && valid >= th.MediumMinValid:
		return ConfidenceMedium
	case coverage >= th.LowCoverage:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// CandidateScore is the per-candidate diagnostic SPEC_FULL §3 "Supplemented
// features" adds on top of the single winning context.
type CandidateScore struct {
	WarehouseID string
	Coverage    float64
	ValidCount  int
}

// Context is the ephemeral resolution result (spec §3.1 WarehouseContext),
// enriched with the diagnostics SPEC_FULL §3 adds.
type Context struct {
	WarehouseID        string
	Confidence         Confidence
	Coverage           float64
	DetectionMethod    string
	UnmatchedLocations []string
	PerCandidate       []CandidateScore
}

// Candidate is one (warehouseId, template) pair the caller offers the
// resolver (spec §6 Inputs).
type Candidate struct {
	WarehouseID string
	Engine      *virtual.Engine
}

// Resolve implements spec §4.3's algorithm: normalize every distinct
// location, score each candidate by coverage, and pick the argmax. Ties are
// broken by higher valid count, then in favor of preferredHint (when
// non-empty), then by lexicographic warehouseId. It is pattern-agnostic: it never
// invents a match when no candidate covers anything (spec §9 "Warehouse
// inference caveat").
func Resolve(locations []string, candidates []Candidate, thresholds ConfidenceThresholds, preferredHint string) Context {
	distinct := distinctNonEmpty(locations)

	var canonicals []location.CanonicalLocation
	for _, raw := range distinct {
		c, uerr := location.ToCanonical(raw)
		if uerr == nil {
			canonicals = append(canonicals, c)
		}
	}

	if len(candidates) == 0 || len(distinct) == 0 {
		return Context{Confidence: ConfidenceNone, DetectionMethod: "coverage"}
	}

	scores := make([]CandidateScore, 0, len(candidates))
	byID := make(map[string]Candidate, len(candidates))
	for _, cand := range candidates {
		byID[cand.WarehouseID] = cand
		valid := 0
		for _, c := range canonicals {
			if cand.Engine.Validate(c, nil).Valid() {
				valid++
			}
		}
		scores = append(scores, CandidateScore{
			WarehouseID: cand.WarehouseID,
			Coverage:    float64(valid) / float64(len(distinct)),
			ValidCount:  valid,
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Coverage != scores[j].Coverage {
			return scores[i].Coverage > scores[j].Coverage
		}
		if scores[i].ValidCount != scores[j].ValidCount {
			return scores[i].ValidCount > scores[j].ValidCount
		}
		if preferredHint != "" {
			iPref, jPref := scores[i].WarehouseID == preferredHint, scores[j].WarehouseID == preferredHint
			if iPref != jPref {
				return iPref
			}
		}
		return scores[i].WarehouseID < scores[j].WarehouseID
	})

	best := scores[0]
	if best.ValidCount == 0 {
		return Context{
			Confidence:      ConfidenceNone,
			DetectionMethod: "coverage",
			PerCandidate:    scores,
		}
	}

	unmatched := unmatchedIn(distinct, byID[best.WarehouseID].Engine)

	return Context{
		WarehouseID:        best.WarehouseID,
		Confidence:         thresholds.classify(best.Coverage, best.ValidCount),
		Coverage:           best.Coverage,
		DetectionMethod:    "coverage",
		UnmatchedLocations: unmatched,
		PerCandidate:       scores,
	}
}

func distinctNonEmpty(locations []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range locations {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

func unmatchedIn(distinct []string, engine *virtual.Engine) []string {
	var out []string
	for _, raw := range distinct {
		c, uerr := location.ToCanonical(raw)
		if uerr != nil || !engine.Validate(c, uerr).Valid() {
			out = append(out, raw)
		}
	}
	return out
}
