// Package witness maps source-specific witness metadata into a closed
// taxonomy and structured support records.
package witness

import (
	"fmt"
	"strings"
)

// Type classifies a witness in the closed support taxonomy.
type Type string

const (
	// Edition is a printed critical edition (e.g. WH, NA28, SBLGNT).
	Edition Type = "edition"
	// Manuscript is a physical witness: papyrus, uncial, or minuscule.
	Manuscript Type = "manuscript"
	// Tradition is a named aggregate of witnesses (e.g. Byzantine).
	Tradition Type = "tradition"
	// Other covers any label the resolver does not recognize. Unknown
	// input never blocks ingestion of otherwise-valid data.
	Other Type = "other"
)

// typeLabels is the fixed free-form-label table. Lookups are
// case-insensitive; anything absent resolves to Other.
var typeLabels = map[string]Type{
	// Physical manuscript classes
	"papyrus":    Manuscript,
	"uncial":     Manuscript,
	"majuscule":  Manuscript,
	"minuscule":  Manuscript,
	"lectionary": Manuscript,
	"manuscript": Manuscript,

	// Critical editions
	"edition":           Edition,
	"critical edition":  Edition,
	"westcott-hort":     Edition,
	"nestle-aland":      Edition,
	"tischendorf":       Edition,
	"sblgnt":            Edition,
	"textus receptus":   Edition,
	"robinson-pierpont": Edition,

	// Aggregate traditions
	"tradition":   Tradition,
	"byzantine":   Tradition,
	"majority":    Tradition,
	"alexandrian": Tradition,
	"western":     Tradition,
	"caesarean":   Tradition,
}

// ResolveType maps a free-form witness type label to the closed
// taxonomy. Unrecognized labels map to Other rather than failing.
func ResolveType(raw string) Type {
	key := strings.ToLower(strings.TrimSpace(raw))
	if t, ok := typeLabels[key]; ok {
		return t
	}
	return Other
}

// ParseType converts a stored taxonomy value back to a Type. Values
// written by this package round-trip exactly; anything else is Other.
func ParseType(stored string) Type {
	switch Type(stored) {
	case Edition, Manuscript, Tradition:
		return Type(stored)
	default:
		return Other
	}
}

// CenturyRange is an ordered (earliest, latest) century pair.
type CenturyRange struct {
	Earliest int
	Latest   int
}

func (c CenturyRange) String() string {
	if c.Earliest == c.Latest {
		return fmt.Sprintf("cent. %d", c.Earliest)
	}
	return fmt.Sprintf("cent. %d-%d", c.Earliest, c.Latest)
}

// Support is one attestation of a reading by one witness from one
// source pack. (Siglum, PackID) pairs are the dedup identity within a
// reading; the same siglum arriving through two different packs stays
// distinct.
type Support struct {
	Siglum  string
	Type    Type
	PackID  string
	Century *CenturyRange
}

// Metadata is the free-form witness information a pack record carries.
type Metadata struct {
	Siglum    string
	TypeLabel string
	Century   *CenturyRange
}

// Resolve produces a structured support record from pack-supplied
// metadata. Stateless and total: any type label resolves.
func Resolve(meta Metadata, packID string) Support {
	return Support{
		Siglum:  meta.Siglum,
		Type:    ResolveType(meta.TypeLabel),
		PackID:  packID,
		Century: meta.Century,
	}
}
