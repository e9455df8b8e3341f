/*
Package combination enumerates every combination of modification counts
that could plausibly explain a precursor mass within a ppm tolerance,
given a modification.Collection. Each combination is a concrete
assignment of "how many times does modification M apply" for every
modification in the collection, subject to the shared variable
modification budget and the one-slot-per-terminus constraint.

Grounded on
original_source/macpepdb/models/modification_combination_list.py's
recursive __build_combinations.
*/
package combination

import (
	"github.com/macpepdb/macpepdb-go/mass"
	"github.com/macpepdb/macpepdb-go/modification"
)

// ResidueComparison pins how many occurrences of a modification's target
// amino acid a peptide must have for this combination to be consistent:
// Equal when the modification is static (every occurrence is modified,
// so the actual residue count must match exactly what was used to
// compute the mass), AtLeast when it is variable (only a subset of
// occurrences need be modified).
type ResidueComparison int

const (
	Equal ResidueComparison = iota
	AtLeast
)

// ResidueCondition is one column constraint emitted by a combination:
// the peptide's count of AminoAcid must compare to Count per Comparison.
type ResidueCondition struct {
	AminoAcid  byte
	Comparison ResidueComparison
	Count      int
}

// Combination is one concrete assignment of modification occurrence
// counts consistent with a target precursor mass and tolerance.
type Combination struct {
	Conditions       []ResidueCondition
	NTerminusUsed    *modification.Modification
	CTerminusUsed    *modification.Modification
	DeltaSum         int64 // total mass contributed by every applied modification occurrence
	LowerMass        int64 // precursor - DeltaSum, lower tolerance bound
	UpperMass        int64 // precursor - DeltaSum, upper tolerance bound
}

type counterSlot struct {
	mod        modification.Modification
	isTerminus bool
	isNTerm    bool
}

// Enumerate returns every valid Combination for a given precursor mass
// (fixed-point, scale 1e9) and asymmetric ppm tolerance.
func Enumerate(collection *modification.Collection, precursor int64, lowerPPM, upperPPM int64) []Combination {
	slots := buildSlots(collection)

	var combinations []Combination
	counts := make([]int, len(slots))

	var recurse func(idx int, remaining int64, freeVariable int, nUsed, cUsed bool)
	recurse = func(idx int, remaining int64, freeVariable int, nUsed, cUsed bool) {
		if idx == len(slots) {
			emit(slots, counts, precursor, lowerPPM, upperPPM, &combinations)
			return
		}
		slot := slots[idx]
		// MonoMass (the full modified-residue mass, not just the
		// modification's delta) bounds how many occurrences could possibly
		// fit in the remaining precursor budget; deltaSum in emit uses
		// only the delta, since that's the actual mass contribution over
		// an unmodified residue (original_source's mod_max_count vs.
		// delta_sum distinction).
		maxByMass := 0
		if slot.mod.MonoMass() > 0 {
			maxByMass = int(remaining / slot.mod.MonoMass())
		}
		maxCount := maxByMass

		if slot.isTerminus {
			used := nUsed
			if !slot.isNTerm {
				used = cUsed
			}
			if used {
				maxCount = 0
			} else if maxCount > 1 {
				maxCount = 1
			}
			if !slot.mod.IsStatic && maxCount > freeVariable {
				maxCount = freeVariable
			}
		} else if !slot.mod.IsStatic {
			if maxCount > freeVariable {
				maxCount = freeVariable
			}
		}

		for count := 0; count <= maxCount; count++ {
			counts[idx] = count
			nextRemaining := remaining - int64(count)*slot.mod.MonoMass()
			nextFree := freeVariable
			nextN, nextC := nUsed, cUsed
			if !slot.mod.IsStatic {
				nextFree -= count
			}
			if count > 0 && slot.isTerminus {
				if slot.isNTerm {
					nextN = true
				} else {
					nextC = true
				}
			}
			recurse(idx+1, nextRemaining, nextFree, nextN, nextC)
			if nextRemaining <= 0 {
				break
			}
		}
		counts[idx] = 0
	}

	recurse(0, precursor, collection.MaximumVariableCount, false, false)
	return combinations
}

func buildSlots(collection *modification.Collection) []counterSlot {
	var slots []counterSlot
	for _, m := range collection.Static {
		slots = append(slots, counterSlot{mod: m})
	}
	for _, m := range collection.Variable {
		slots = append(slots, counterSlot{mod: m})
	}
	if collection.StaticNTerminus != nil {
		slots = append(slots, counterSlot{mod: *collection.StaticNTerminus, isTerminus: true, isNTerm: true})
	}
	if collection.StaticCTerminus != nil {
		slots = append(slots, counterSlot{mod: *collection.StaticCTerminus, isTerminus: true, isNTerm: false})
	}
	for _, m := range collection.VariableNTerminus {
		slots = append(slots, counterSlot{mod: m, isTerminus: true, isNTerm: true})
	}
	for _, m := range collection.VariableCTerminus {
		slots = append(slots, counterSlot{mod: m, isTerminus: true, isNTerm: false})
	}
	return slots
}

func emit(slots []counterSlot, counts []int, precursor int64, lowerPPM, upperPPM int64, out *[]Combination) {
	var (
		conditions []ResidueCondition
		deltaSum   int64
		nTermMod   *modification.Modification
		cTermMod   *modification.Modification
	)
	for i, slot := range slots {
		count := counts[i]
		if slot.isTerminus {
			if count == 0 {
				continue
			}
			m := slot.mod
			deltaSum += int64(count) * m.Delta
			// A static terminus modification's mass is already folded into
			// deltaSum above; only a variable one that was actually applied
			// additionally constrains the peptide's terminal residue, so
			// only variable slots populate *TerminusUsed (predicate.Compile
			// relies on this).
			if !m.IsStatic {
				if slot.isNTerm {
					nTermMod = &m
				} else {
					cTermMod = &m
				}
			}
			continue
		}
		deltaSum += int64(count) * slot.mod.Delta
		comparison := AtLeast
		if slot.mod.IsStatic {
			comparison = Equal
		}
		conditions = append(conditions, ResidueCondition{
			AminoAcid:  slot.mod.AminoAcid,
			Comparison: comparison,
			Count:      count,
		})
	}

	remaining := precursor - deltaSum
	lower := remaining - mass.PPMTolerance(remaining, lowerPPM)
	upper := remaining + mass.PPMTolerance(remaining, upperPPM)

	*out = append(*out, Combination{
		Conditions:    conditions,
		NTerminusUsed: nTermMod,
		CTerminusUsed: cTermMod,
		DeltaSum:      deltaSum,
		LowerMass:     lower,
		UpperMass:     upper,
	})
}
