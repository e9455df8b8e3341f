/*
Package predicate compiles combination.Combination values into SQL WHERE
clause fragments a store.Store implementation can execute directly,
ORing every combination together. Partition selection is not part of the
compiled WHERE clause: store.Store.SelectPeptides scans physical
per-partition tables (store/postgres has no `partition` column to filter
on), so predicate.Partitions only returns the partition indices for the
caller to pass to SelectPeptides directly.

Grounded on
original_source/macpepdb/models/modification_combination_list.py's
ModificatioCombinationList.to_sql and
original_source/macpepdb/database/query_helpers/* for column naming.
*/
package predicate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/macpepdb/macpepdb-go/combination"
	"github.com/macpepdb/macpepdb-go/mass"
	"github.com/macpepdb/macpepdb-go/modification"
)

// ErrPlaceholderCountMismatch indicates a compiler bug: the number of
// "$n" placeholders in a compiled predicate's SQL does not equal the
// length of its Values vector (spec.md §8 "Predicate arity").
var ErrPlaceholderCountMismatch = errors.New("predicate: placeholder count does not match values vector")

// Predicate is a compiled SQL WHERE-clause fragment plus its positional
// argument values, ready to pass to pgx as $1, $2, ... placeholders.
type Predicate struct {
	SQL    string
	Values []interface{}
}

// residueColumn returns the storage column name for a residue's count,
// e.g. "a_count" for Alanine. Column names are generated from
// mass.ResidueAlphabet so the schema, this package, and mass stay in
// lock-step (spec.md §9).
func residueColumn(residue byte) string {
	return strings.ToLower(string(residue)) + "_count"
}

// Compile builds the full predicate for a precursor mass search: every
// modification combination ORed together, each ANDing its weight range
// and residue/terminus conditions.
func Compile(collection *modification.Collection, precursor int64, lowerPPM, upperPPM int64) Predicate {
	combos := combination.Enumerate(collection, precursor, lowerPPM, upperPPM)
	if len(combos) == 0 {
		lower := precursor - mass.PPMTolerance(precursor, lowerPPM)
		upper := precursor + mass.PPMTolerance(precursor, upperPPM)
		return Predicate{
			SQL:    "weight BETWEEN $1 AND $2",
			Values: []interface{}{lower, upper},
		}
	}

	var clauses []string
	var values []interface{}
	placeholder := 1

	for _, combo := range combos {
		var parts []string
		parts = append(parts, fmt.Sprintf("weight BETWEEN $%d AND $%d", placeholder, placeholder+1))
		values = append(values, combo.LowerMass, combo.UpperMass)
		placeholder += 2

		for _, cond := range combo.Conditions {
			op := ">="
			if cond.Comparison == combination.Equal {
				op = "="
			}
			parts = append(parts, fmt.Sprintf("%s %s $%d", residueColumn(cond.AminoAcid), op, placeholder))
			values = append(values, cond.Count)
			placeholder++
		}
		// Only a variable terminus modification that is actually applied
		// constrains the peptide's terminal residue; a static terminus
		// modification's mass is already folded into the window above, and
		// combination.Enumerate only ever sets *TerminusUsed for variable
		// ones (spec.md §4.7).
		if combo.NTerminusUsed != nil {
			parts = append(parts, fmt.Sprintf("n_terminus = $%d", placeholder))
			values = append(values, string(combo.NTerminusUsed.AminoAcid))
			placeholder++
		}
		if combo.CTerminusUsed != nil {
			parts = append(parts, fmt.Sprintf("c_terminus = $%d", placeholder))
			values = append(values, string(combo.CTerminusUsed.AminoAcid))
			placeholder++
		}
		clauses = append(clauses, "("+strings.Join(parts, " AND ")+")")
	}

	return Predicate{
		SQL:    strings.Join(clauses, " OR "),
		Values: values,
	}
}

// Partitions returns the derived partition filter (spec.md §4.8): the
// union, over every enumerated combination's mass window, of partition
// indices whose [lower, upper) range intersects that window. boundaries
// is the persisted partition-boundary vector (store.Store.PartitionBoundaries).
// When collection has no modifications configured, Enumerate yields a
// single combination whose window is the plain precursor window; the
// explicit plain window below is used only if no combination is returned.
func Partitions(collection *modification.Collection, precursor int64, lowerPPM, upperPPM int64, boundaries []int64) []int {
	combos := combination.Enumerate(collection, precursor, lowerPPM, upperPPM)
	type window struct{ lower, upper int64 }
	var windows []window
	if len(combos) == 0 {
		windows = append(windows, window{
			lower: precursor - mass.PPMTolerance(precursor, lowerPPM),
			upper: precursor + mass.PPMTolerance(precursor, upperPPM),
		})
	} else {
		for _, c := range combos {
			windows = append(windows, window{lower: c.LowerMass, upper: c.UpperMass})
		}
	}

	seen := make(map[int]bool)
	var partitions []int
	partitionLower := int64(0)
	for i, upper := range boundaries {
		for _, w := range windows {
			if w.lower < upper && w.upper >= partitionLower {
				if !seen[i] {
					seen[i] = true
					partitions = append(partitions, i)
				}
				break
			}
		}
		partitionLower = upper
	}
	return partitions
}

// CheckArity verifies the placeholder-arity invariant (spec.md §8): the
// number of "$n" placeholders referenced in p.SQL must equal len(p.Values).
// Every Compile result satisfies this by construction; this is exposed so
// callers that render or persist a Predicate (e.g. cmd/macpepdb
// precursor-range) can assert it defensively.
func (p Predicate) CheckArity() error {
	if strings.Count(p.SQL, "$") != len(p.Values) {
		return fmt.Errorf("%w: %d placeholders, %d values", ErrPlaceholderCountMismatch, strings.Count(p.SQL, "$"), len(p.Values))
	}
	return nil
}
