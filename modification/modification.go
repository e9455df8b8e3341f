/*
Package modification models post-translational modifications (PTMs) and
the validated collection of modifications applied to a single search:
static/variable classification, per-terminus constraints, and the
conflict checks that make a collection safe to enumerate combinations
over.
*/
package modification

import (
	"errors"
	"fmt"

	"github.com/macpepdb/macpepdb-go/mass"
)

// Position is where on a peptide a modification may apply. Grounded on
// original_source/macpepdb/proteomics/modification.py's
// ModificationPosition IntEnum.
type Position int

const (
	Anywhere Position = iota + 1
	NTerminus
	CTerminus
)

func (p Position) String() string {
	switch p {
	case Anywhere:
		return "anywhere"
	case NTerminus:
		return "n_terminus"
	case CTerminus:
		return "c_terminus"
	default:
		return "unknown"
	}
}

// PositionFromString parses the textual form written by String.
func PositionFromString(s string) (Position, error) {
	switch s {
	case "anywhere":
		return Anywhere, nil
	case "n_terminus":
		return NTerminus, nil
	case "c_terminus":
		return CTerminus, nil
	default:
		return 0, fmt.Errorf("modification: unknown position %q", s)
	}
}

// Modification is a single PTM definition: a mass delta applied to a
// specific residue at a specific position, either always (static) or
// optionally up to a shared budget (variable).
type Modification struct {
	Accession    string
	Name         string
	AminoAcid    byte
	Delta        int64
	IsStatic     bool
	Position     Position
}

// MonoMass is the mass of the modified residue: the unmodified residue's
// mono-isotopic mass plus the modification's delta.
func (m Modification) MonoMass() int64 {
	return mass.ResidueByCode(m.AminoAcid).MonoMass + m.Delta
}

// IsVariable reports whether the modification is optional.
func (m Modification) IsVariable() bool {
	return !m.IsStatic
}

// IsTerminusModification reports whether the modification is anchored to
// a peptide terminus rather than applicable anywhere.
func (m Modification) IsTerminusModification() bool {
	return m.Position == NTerminus || m.Position == CTerminus
}

// MaxVariableModifications is the hard ceiling on how many distinct
// variable modifications (anywhere + both termini) a single Collection
// may register, per spec.md §4.6.
const MaxVariableModifications = 9

var (
	// ErrConflictingModification is returned when a static and a variable
	// modification both target the same amino acid, making the search
	// space ambiguous (original: InvalidModificationCombinationError).
	ErrConflictingModification = errors.New("modification: static and variable modification target the same amino acid")

	// ErrTooManyVariableModifications is returned when the collection
	// registers more than MaxVariableModifications variable modifications,
	// or more than one static modification for the same terminus
	// (original: ModificationLimitError).
	ErrTooManyVariableModifications = errors.New("modification: more than one static terminus modification or unsupported variable modification count")
)

// Collection is a validated, categorized set of modifications. It is the
// single input every downstream package (combination, predicate,
// validator) consumes.
//
// Grounded on
// original_source/macpepdb/proteomics/modification_collection.py.
type Collection struct {
	Static                []Modification // static, position == Anywhere
	Variable              []Modification // variable, position == Anywhere
	StaticNTerminus       *Modification
	StaticCTerminus       *Modification
	VariableNTerminus     []Modification
	VariableCTerminus     []Modification
	MaximumVariableCount  int
}

// NewCollection validates and categorizes a flat list of modifications.
// maximumVariableCount bounds how many variable modifications may be
// applied to a single peptide simultaneously (spec default: 9).
func NewCollection(modifications []Modification, maximumVariableCount int) (*Collection, error) {
	c := &Collection{MaximumVariableCount: maximumVariableCount}

	staticAnywhereByResidue := make(map[byte]bool)
	variableAnywhereByResidue := make(map[byte]bool)
	variableTerminusByResidue := make(map[byte]bool)

	for _, m := range modifications {
		switch {
		case m.IsStatic && m.Position == Anywhere:
			staticAnywhereByResidue[m.AminoAcid] = true
			c.Static = append(c.Static, m)
		case !m.IsStatic && m.Position == Anywhere:
			variableAnywhereByResidue[m.AminoAcid] = true
			c.Variable = append(c.Variable, m)
		case m.IsStatic && m.Position == NTerminus:
			if c.StaticNTerminus != nil {
				return nil, ErrTooManyVariableModifications
			}
			mCopy := m
			c.StaticNTerminus = &mCopy
		case m.IsStatic && m.Position == CTerminus:
			if c.StaticCTerminus != nil {
				return nil, ErrTooManyVariableModifications
			}
			mCopy := m
			c.StaticCTerminus = &mCopy
		case !m.IsStatic && m.Position == NTerminus:
			variableTerminusByResidue[m.AminoAcid] = true
			c.VariableNTerminus = append(c.VariableNTerminus, m)
		case !m.IsStatic && m.Position == CTerminus:
			variableTerminusByResidue[m.AminoAcid] = true
			c.VariableCTerminus = append(c.VariableCTerminus, m)
		}
	}

	for residue := range staticAnywhereByResidue {
		if variableAnywhereByResidue[residue] || variableTerminusByResidue[residue] {
			return nil, fmt.Errorf("%w: residue %c", ErrConflictingModification, residue)
		}
	}

	if n := len(c.AllVariable()); n > MaxVariableModifications {
		return nil, fmt.Errorf("%w: %d variable modifications configured, limit %d", ErrTooManyVariableModifications, n, MaxVariableModifications)
	}

	return c, nil
}

// AllVariable returns every variable modification (anywhere + both
// termini) in a stable order: anywhere, then N-terminus, then
// C-terminus.
func (c *Collection) AllVariable() []Modification {
	out := make([]Modification, 0, len(c.Variable)+len(c.VariableNTerminus)+len(c.VariableCTerminus))
	out = append(out, c.Variable...)
	out = append(out, c.VariableNTerminus...)
	out = append(out, c.VariableCTerminus...)
	return out
}

// StaticAnywhereFor returns the static modification applying to a given
// residue anywhere on the peptide, if any.
func (c *Collection) StaticAnywhereFor(residue byte) (Modification, bool) {
	for _, m := range c.Static {
		if m.AminoAcid == residue {
			return m, true
		}
	}
	return Modification{}, false
}

// VariableAnywhereFor returns every variable modification applying to a
// given residue anywhere on the peptide.
func (c *Collection) VariableAnywhereFor(residue byte) []Modification {
	var out []Modification
	for _, m := range c.Variable {
		if m.AminoAcid == residue {
			out = append(out, m)
		}
	}
	return out
}
