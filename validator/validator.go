/*
Package validator provides the exact, per-peptide ground truth for
whether a specific amino acid sequence is consistent with a target
precursor mass under a modification.Collection, used to confirm
candidates the predicate compiler's broader SQL filter returns.

Grounded on original_source/macpepdb/peptide_mass_validator.py for
placement semantics (static modifications apply at every matching
residue or a fixed terminus; variable modifications require an
available, as yet unmodified, matching residue or terminus), restructured
per the Δ-indexed precompute this module's spec calls for: every
achievable combination of variable modification deltas (bounded by the
shared variable-modification budget) is computed once in New,
then each candidate peptide is checked against the precomputed table
instead of re-deriving combinations per call.
*/
package validator

import (
	"strings"

	"github.com/macpepdb/macpepdb-go/mass"
	"github.com/macpepdb/macpepdb-go/modification"
)

// variableDelta is one precomputed achievable combination of variable
// modifications: how many times each variable modification is applied,
// and the total mass delta that represents.
type variableDelta struct {
	counts map[*modification.Modification]int
	total  int64
}

// Validator confirms whether a peptide sequence's exact, fully modified
// mass can land within a target precursor's ppm tolerance window.
type Validator struct {
	collection *modification.Collection
	precursor  int64
	lowerBound int64
	upperBound int64
	deltas     []variableDelta
}

// New builds a Validator for a fixed target precursor mass (fixed-point,
// scale 1e9) and asymmetric ppm tolerance, precomputing every achievable
// variable modification delta once up front.
func New(collection *modification.Collection, precursor int64, lowerPPM, upperPPM int64) *Validator {
	v := &Validator{
		collection: collection,
		precursor:  precursor,
		lowerBound: precursor - mass.PPMTolerance(precursor, lowerPPM),
		upperBound: precursor + mass.PPMTolerance(precursor, upperPPM),
	}
	v.deltas = precomputeVariableDeltas(collection)
	return v
}

// precomputeVariableDeltas enumerates every combination of variable
// modifications (anywhere + both termini) whose total application count
// does not exceed the collection's MaximumVariableCount. Unlike
// combination.Enumerate, this is not bounded by any particular precursor
// mass: it is computed once per Validator and reused for every
// candidate peptide.
func precomputeVariableDeltas(collection *modification.Collection) []variableDelta {
	all := collection.AllVariable()
	mods := make([]*modification.Modification, len(all))
	for i := range all {
		m := all[i]
		mods[i] = &m
	}

	var results []variableDelta
	counts := make([]int, len(mods))

	var recurse func(idx, used int)
	recurse = func(idx, used int) {
		if idx == len(mods) {
			entry := variableDelta{counts: map[*modification.Modification]int{}, total: 0}
			for i, c := range counts {
				if c > 0 {
					entry.counts[mods[i]] = c
					entry.total += int64(c) * mods[i].Delta
				}
			}
			results = append(results, entry)
			return
		}
		maxForThisMod := collection.MaximumVariableCount - used
		if mods[idx].IsTerminusModification() && maxForThisMod > 1 {
			maxForThisMod = 1
		}
		for c := 0; c <= maxForThisMod; c++ {
			counts[idx] = c
			recurse(idx+1, used+c)
		}
		counts[idx] = 0
	}
	recurse(0, 0)
	return results
}

// Validate reports whether sequence's fully modified mass can fall
// within the validator's precursor tolerance window, and if so, whether
// a feasible placement of modifications exists (enough matching,
// unmodified residues/termini to carry every applied modification).
func (v *Validator) Validate(sequence string) bool {
	staticDelta, ok := v.staticContribution(sequence)
	if !ok {
		return false
	}
	base := mass.PeptideMass(sequence) + staticDelta

	for _, d := range v.deltas {
		total := base + d.total
		if total < v.lowerBound || total > v.upperBound {
			continue
		}
		if v.placementFeasible(sequence, d) {
			return true
		}
	}
	return false
}

// staticContribution returns the mass delta contributed by every static
// modification (anywhere + termini) that applies to sequence. Static
// anywhere modifications apply to every matching residue; static
// terminus modifications require the matching residue at that terminus,
// mirroring peptide_mass_validator.py's unconditional application of
// static modifications.
func (v *Validator) staticContribution(sequence string) (int64, bool) {
	var delta int64
	counts := mass.CountResidues(sequence)
	index := make(map[byte]int, len(mass.ResidueAlphabet))
	for i, c := range mass.ResidueAlphabet {
		index[c] = i
	}
	for _, m := range v.collection.Static {
		if idx, ok := index[m.AminoAcid]; ok {
			delta += int64(counts[idx]) * m.Delta
		}
	}
	if v.collection.StaticNTerminus != nil {
		m := v.collection.StaticNTerminus
		if len(sequence) > 0 && sequence[0] == m.AminoAcid {
			delta += m.Delta
		}
	}
	if v.collection.StaticCTerminus != nil {
		m := v.collection.StaticCTerminus
		if len(sequence) > 0 && sequence[len(sequence)-1] == m.AminoAcid {
			delta += m.Delta
		}
	}
	return delta, true
}

// placementFeasible checks that sequence has enough available residue
// occurrences (not already consumed by a static modification on the
// same residue) to carry every variable modification in d.
func (v *Validator) placementFeasible(sequence string, d variableDelta) bool {
	counts := mass.CountResidues(sequence)
	index := make(map[byte]int, len(mass.ResidueAlphabet))
	for i, c := range mass.ResidueAlphabet {
		index[c] = i
	}

	needed := make(map[byte]int)
	for m, c := range d.counts {
		if m.IsTerminusModification() {
			continue
		}
		needed[m.AminoAcid] += c
	}
	for residue, required := range needed {
		idx, ok := index[residue]
		if !ok || int(counts[idx]) < required {
			return false
		}
		if _, isStaticResidue := v.collection.StaticAnywhereFor(residue); isStaticResidue {
			// A static modification already claims every occurrence of
			// this residue; a variable modification on the same residue
			// can never find an unmodified occurrence.
			return false
		}
	}

	for m, c := range d.counts {
		if c == 0 || !m.IsTerminusModification() {
			continue
		}
		if m.Position == modification.NTerminus {
			if len(sequence) == 0 || sequence[0] != m.AminoAcid {
				return false
			}
			if v.collection.StaticNTerminus != nil {
				return false
			}
		}
		if m.Position == modification.CTerminus {
			if len(sequence) == 0 || sequence[len(sequence)-1] != m.AminoAcid {
				return false
			}
			if v.collection.StaticCTerminus != nil {
				return false
			}
		}
	}
	return true
}

// String renders the validator's precursor window for diagnostic
// output.
func (v *Validator) String() string {
	var b strings.Builder
	b.WriteString("precursor=")
	b.WriteString(itoa(v.precursor))
	b.WriteString(" [")
	b.WriteString(itoa(v.lowerBound))
	b.WriteString(", ")
	b.WriteString(itoa(v.upperBound))
	b.WriteString("]")
	return b.String()
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}
