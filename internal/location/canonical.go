// Package location implements the canonical location service (C1):
// normalization of heterogeneous location codes into the single textual
// form every downstream component compares against, and the small set of
// variant spellings actually observed in exported inventory data.
package location

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind discriminates the two disjoint shapes a CanonicalLocation can take.
type Kind int

const (
	KindStorage Kind = iota
	KindSpecial
)

// Storage is the parsed form of a storage slot: aisle/rack/position/level.
type Storage struct {
	Aisle    int
	Rack     int
	Position int
	Level    byte
}

// Special is the parsed form of a named non-storage area. Numbered is true
// for the RECV-NN/STAGE-NN/DOCK-NN/AISLE-NN family; false for the bare
// RECEIVING/STAGING/SHIPPING/DOCK names.
type Special struct {
	Prefix   string
	Number   int
	Numbered bool
}

// CanonicalLocation is the normalized form produced by ToCanonical. Exactly
// one of Storage/Special is meaningful, selected by Kind — the tagged
// variant spec §3.1 requires, expressed as a discriminated struct rather
// than an interface so the zero value is never ambiguously "valid".
type CanonicalLocation struct {
	Kind    Kind
	Storage Storage
	Special Special
}

// UnparseableError is the Unparseable variant: toCanonical never panics or
// returns a bare error string, it always carries the original input back
// to the caller so the caller can decide how to treat it (spec §4.1
// "Failures").
type UnparseableError struct {
	Raw string
}

func (e *UnparseableError) Error() string {
	return fmt.Sprintf("location %q: unparseable", e.Raw)
}

var (
	prefixStrip = []*regexp.Regexp{
		regexp.MustCompile(`^USER_[A-Z0-9]+_`),
		regexp.MustCompile(`^WH\d+_`),
		regexp.MustCompile(`^DEFAULT_`),
		regexp.MustCompile(`^WAREHOUSE_`),
	}

	specialNumbered = regexp.MustCompile(`^(RECV|STAGE|DOCK|AISLE)-(\d{1,3})$`)
	standardForm    = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{1,3})([A-Z])$`)
	compactForm     = regexp.MustCompile(`^(\d{1,2})([A-Z])(\d{1,2})([A-Z])$`)

	// User-common fallbacks (spec §4.1.1), tried in the order listed. Every
	// input fallbackShortCompact accepts is already accepted by
	// fallbackPositionLevelRack, which maps it to the same location.
	fallbackPositionLevelRack = regexp.MustCompile(`^(\d{1,3})([A-Z])(\d{1,2})$`)
	fallbackLevelRackPosition = regexp.MustCompile(`^([A-Z])(\d{1,2})-(\d{1,3})$`)
	fallbackShortCompact      = regexp.MustCompile(`^(\d{1,2})([A-Z])(\d{1,2})$`)
	fallbackPositionLevel     = regexp.MustCompile(`^(\d{3})([A-Z])$`)
)

var bareSpecials = map[string]bool{
	"RECEIVING": true,
	"STAGING":   true,
	"SHIPPING":  true,
	"DOCK":      true,
}

// ToCanonical normalizes a raw location code. It never panics; an
// unparseable input comes back as a non-nil *UnparseableError carrying the
// original string.
func ToCanonical(raw string) (CanonicalLocation, *UnparseableError) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	for _, re := range prefixStrip {
		s = re.ReplaceAllString(s, "")
	}

	if bareSpecials[s] {
		return CanonicalLocation{Kind: KindSpecial, Special: Special{Prefix: s}}, nil
	}

	if m := specialNumbered.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[2])
		return CanonicalLocation{Kind: KindSpecial, Special: Special{Prefix: m[1], Number: n, Numbered: true}}, nil
	}

	if m := standardForm.FindStringSubmatch(s); m != nil {
		aisle, _ := strconv.Atoi(m[1])
		rack, _ := strconv.Atoi(m[2])
		pos, _ := strconv.Atoi(m[3])
		return CanonicalLocation{Kind: KindStorage, Storage: Storage{Aisle: aisle, Rack: rack, Position: pos, Level: m[4][0]}}, nil
	}

	if m := compactForm.FindStringSubmatch(s); m != nil {
		// aisle + levelIgnored + position + level; rack defaults to 1 (spec §4.1 step 5).
		aisle, _ := strconv.Atoi(m[1])
		pos, _ := strconv.Atoi(m[3])
		return CanonicalLocation{Kind: KindStorage, Storage: Storage{Aisle: aisle, Rack: 1, Position: pos, Level: m[4][0]}}, nil
	}

	if m := fallbackPositionLevelRack.FindStringSubmatch(s); m != nil {
		pos, _ := strconv.Atoi(m[1])
		rack, _ := strconv.Atoi(m[3])
		return CanonicalLocation{Kind: KindStorage, Storage: Storage{Aisle: 1, Rack: rack, Position: pos, Level: m[2][0]}}, nil
	}

	if m := fallbackLevelRackPosition.FindStringSubmatch(s); m != nil {
		rack, _ := strconv.Atoi(m[2])
		pos, _ := strconv.Atoi(m[3])
		return CanonicalLocation{Kind: KindStorage, Storage: Storage{Aisle: 1, Rack: rack, Position: pos, Level: m[1][0]}}, nil
	}

	if m := fallbackShortCompact.FindStringSubmatch(s); m != nil {
		aisle, _ := strconv.Atoi(m[1])
		rack, _ := strconv.Atoi(m[3])
		return CanonicalLocation{Kind: KindStorage, Storage: Storage{Aisle: 1, Rack: rack, Position: aisle, Level: m[2][0]}}, nil
	}

	if m := fallbackPositionLevel.FindStringSubmatch(s); m != nil {
		pos, _ := strconv.Atoi(m[1])
		return CanonicalLocation{Kind: KindStorage, Storage: Storage{Aisle: 1, Rack: 1, Position: pos, Level: m[2][0]}}, nil
	}

	return CanonicalLocation{}, &UnparseableError{Raw: raw}
}

// Render produces the single textual rendering of a canonical location.
func Render(c CanonicalLocation) string {
	if c.Kind == KindSpecial {
		if c.Special.Numbered {
			return fmt.Sprintf("%s-%02d", c.Special.Prefix, c.Special.Number)
		}
		return c.Special.Prefix
	}
	return fmt.Sprintf("%02d-%02d-%03d%c", c.Storage.Aisle, c.Storage.Rack, c.Storage.Position, c.Storage.Level)
}

// ClassifiedKind is the syntactic classification C1 can make on its own,
// without a warehouse template. It is coarser than the template-aware
// LocationType the virtual engine (C2) produces.
type ClassifiedKind string

const (
	ClassStorage  ClassifiedKind = "STORAGE"
	ClassReceive  ClassifiedKind = "RECEIVING"
	ClassStage    ClassifiedKind = "STAGING"
	ClassDock     ClassifiedKind = "DOCK"
	ClassAisle    ClassifiedKind = "AISLE"
	ClassShipping ClassifiedKind = "SHIPPING"
)

// Classify reports the syntactic shape of a canonical location.
func Classify(c CanonicalLocation) ClassifiedKind {
	if c.Kind == KindStorage {
		return ClassStorage
	}
	switch c.Special.Prefix {
	case "RECV", "RECEIVING":
		return ClassReceive
	case "STAGE", "STAGING":
		return ClassStage
	case "DOCK":
		return ClassDock
	case "AISLE":
		return ClassAisle
	case "SHIPPING":
		return ClassShipping
	default:
		return ClassifiedKind(c.Special.Prefix)
	}
}

// IsSpecial reports whether the raw input parses to a Special location.
func IsSpecial(raw string) bool {
	c, err := ToCanonical(raw)
	return err == nil && c.Kind == KindSpecial
}

// SearchVariants emits the canonical rendering plus up to four rewrites
// actually observed in exported inventory data (spec §4.1 "Variant
// generation"). It never returns more than five elements total.
func SearchVariants(c CanonicalLocation) []string {
	canon := Render(c)
	variants := []string{canon}

	if c.Kind != KindStorage {
		return variants
	}

	st := c.Storage

	// Two-digit position instead of three.
	variants = append(variants, fmt.Sprintf("%02d-%02d-%02d%c", st.Aisle, st.Rack, st.Position, st.Level))

	// Compact: aisle+level+position+level (no dashes), rack dropped.
	variants = append(variants, fmt.Sprintf("%d%c%d%c", st.Aisle, st.Level, st.Position, st.Level))

	// Position+level+rack, as used by the fallbackPositionLevelRack form.
	variants = append(variants, fmt.Sprintf("%d%c%d", st.Position, st.Level, st.Rack))

	// `_N` slot suffix, a common export quirk appending the level as a
	// numeric suffix rather than a letter.
	variants = append(variants, fmt.Sprintf("%02d-%02d-%03d_%d", st.Aisle, st.Rack, st.Position, int(st.Level-'A')+1))

	return variants
}
