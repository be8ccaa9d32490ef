package virtual

import (
	"github.com/warehouseiq/anomaly-engine/internal/location"
)

// LocationType is the template-aware classification C2 produces, coarser
// than a syntactic tag and richer than C1's (spec §4.2 contract).
type LocationType string

const (
	TypeStorage      LocationType = "STORAGE"
	TypeReceiving    LocationType = "RECEIVING"
	TypeStaging      LocationType = "STAGING"
	TypeDock         LocationType = "DOCK"
	TypeTransitional LocationType = "TRANSITIONAL"
	TypeUnknown      LocationType = "UNKNOWN"
)

// Status tags the three-way validation result from spec §4.2.
type Status int

const (
	StatusValid Status = iota
	StatusNotInUniverse
	StatusUnparseable
)

// ValidationResult is the tagged {Valid | NotInUniverse | Unparseable}
// variant the virtual engine's Validate returns.
type ValidationResult struct {
	Status   Status
	Type     LocationType
	Zone     string
	Capacity int
}

func (r ValidationResult) Valid() bool { return r.Status == StatusValid }

// Summary reports the virtual universe's size without ever enumerating it
// (spec §8 invariant 3).
type Summary struct {
	TotalPossible int
	StorageCount  int
	SpecialCount  int
}

// Engine answers membership/classification queries over a Template's
// virtual universe in O(1), and offers a restartable diagnostic
// enumerator that is never required for validation (spec §4.2).
type Engine struct {
	template     Template
	levelIndex   map[byte]bool
	specialIndex map[string]SpecialArea
}

// Build constructs an Engine from a template. Construction is pure compute
// and does not suspend (spec §5 "Suspension points").
func Build(t Template) (*Engine, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	levels := make(map[byte]bool, t.LevelsPerPosition)
	for i := 0; i < t.LevelsPerPosition; i++ {
		levels[t.LevelNames[i]] = true
	}
	specials := make(map[string]SpecialArea, len(t.SpecialAreas))
	for _, a := range t.SpecialAreas {
		specials[a.Code] = a
	}
	return &Engine{template: t, levelIndex: levels, specialIndex: specials}, nil
}

// Template returns the template this engine was built from.
func (e *Engine) Template() Template { return e.template }

// Validate is the O(1) validation algorithm from spec §4.2.
func (e *Engine) Validate(c location.CanonicalLocation, uerr *location.UnparseableError) ValidationResult {
	if uerr != nil {
		return ValidationResult{Status: StatusUnparseable}
	}
	if c.Kind == location.KindSpecial {
		code := location.Render(c)
		area, ok := e.specialIndex[code]
		if !ok {
			return ValidationResult{Status: StatusNotInUniverse}
		}
		return ValidationResult{
			Status:   StatusValid,
			Type:     specialLocationType(area.Type),
			Zone:     area.Zone,
			Capacity: area.Capacity,
		}
	}

	s := c.Storage
	t := e.template
	if s.Aisle < 1 || s.Aisle > t.NumAisles ||
		s.Rack < 1 || s.Rack > t.RacksPerAisle ||
		s.Position < 1 || s.Position > t.PositionsPerRack ||
		!e.levelIndex[s.Level] {
		return ValidationResult{Status: StatusNotInUniverse}
	}
	return ValidationResult{Status: StatusValid, Type: TypeStorage, Capacity: t.DefaultPalletCapacity}
}

func specialLocationType(t SpecialAreaType) LocationType {
	switch t {
	case AreaReceiving:
		return TypeReceiving
	case AreaStaging:
		return TypeStaging
	case AreaDock:
		return TypeDock
	case AreaTransitional:
		return TypeTransitional
	default:
		return TypeUnknown
	}
}

// Classify returns just the LocationType half of Validate, for callers
// (evaluators) that only need the type and not the full result.
func (e *Engine) Classify(c location.CanonicalLocation, uerr *location.UnparseableError) LocationType {
	r := e.Validate(c, uerr)
	if r.Status != StatusValid {
		return TypeUnknown
	}
	return r.Type
}

// Summary reports the virtual universe's size (spec §8 invariant 3):
// A*R*P*L + |specialAreas|, computed, never enumerated.
func (e *Engine) Summary() Summary {
	t := e.template
	storage := t.NumAisles * t.RacksPerAisle * t.PositionsPerRack * t.LevelsPerPosition
	return Summary{
		TotalPossible: storage + len(t.SpecialAreas),
		StorageCount:  storage,
		SpecialCount:  len(t.SpecialAreas),
	}
}

// Iterator is a restartable, lazy walk over the virtual universe, for
// diagnostics only — no evaluator may depend on it for validation (spec
// §4.2 contract).
type Iterator struct {
	e               *Engine
	aisle, rack     int
	position, level int
	specialIdx      int
	specialCodes    []string
	doneStorage     bool
}

// Enumerate returns a fresh, independent iterator each call.
func (e *Engine) Enumerate() *Iterator {
	codes := make([]string, 0, len(e.specialIndex))
	for code := range e.specialIndex {
		codes = append(codes, code)
	}
	return &Iterator{
		e:            e,
		aisle:        1, rack: 1, position: 1, level: 0,
		specialCodes: codes,
	}
}

// Next returns the next location in the universe, or ok=false when
// exhausted.
func (it *Iterator) Next() (location.CanonicalLocation, bool) {
	t := it.e.template
	if !it.doneStorage {
		if it.aisle > t.NumAisles {
			it.doneStorage = true
		} else {
			lvl := t.LevelNames[it.level]
			c := location.CanonicalLocation{Kind: location.KindStorage, Storage: location.Storage{
				Aisle: it.aisle, Rack: it.rack, Position: it.position, Level: lvl,
			}}
			it.level++
			if it.level >= t.LevelsPerPosition {
				it.level = 0
				it.position++
				if it.position > t.PositionsPerRack {
					it.position = 1
					it.rack++
					if it.rack > t.RacksPerAisle {
						it.rack = 1
						it.aisle++
					}
				}
			}
			return c, true
		}
	}
	if it.specialIdx < len(it.specialCodes) {
		code := it.specialCodes[it.specialIdx]
		it.specialIdx++
		c, uerr := location.ToCanonical(code)
		if uerr != nil {
			return it.Next()
		}
		return c, true
	}
	return location.CanonicalLocation{}, false
}
