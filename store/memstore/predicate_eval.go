package memstore

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/macpepdb/macpepdb-go/mass"
	"github.com/macpepdb/macpepdb-go/store"
)

// condition is one parsed "column op $n[ AND $m]" comparison out of a
// predicate.Predicate's SQL, evaluated directly against a store.Peptide
// instead of being sent to a database. Grounded on predicate.Compile's
// fixed output grammar: every clause is a parenthesized conjunction of
// "weight BETWEEN $n AND $m", "<residue>_count (>=|=) $n", or
// "(n|c)_terminus = $n" comparisons, ORed together across combinations.
type condition struct {
	column string
	op     string
	lo, hi int // 1-based indices into the predicate's Values slice
}

var conditionPattern = regexp.MustCompile(`([a-z_]+) (BETWEEN|>=|=) \$(\d+)(?: AND \$(\d+))?`)

// parseWhereClause splits a compiled predicate's SQL into its ORed
// clauses, each a conjunction of conditions.
func parseWhereClause(sql string) ([][]condition, error) {
	var clauses [][]condition
	for _, part := range strings.Split(sql, " OR ") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "(")
		part = strings.TrimSuffix(part, ")")
		matches := conditionPattern.FindAllStringSubmatch(part, -1)
		if len(matches) == 0 {
			return nil, fmt.Errorf("memstore: no recognizable condition in clause %q", part)
		}
		conditions := make([]condition, 0, len(matches))
		for _, m := range matches {
			c := condition{column: m[1], op: m[2]}
			fmt.Sscanf(m[3], "%d", &c.lo)
			if m[4] != "" {
				fmt.Sscanf(m[4], "%d", &c.hi)
			}
			conditions = append(conditions, c)
		}
		clauses = append(clauses, conditions)
	}
	return clauses, nil
}

// residueIndex returns the mass.ResidueAlphabet position of a
// "<code>_count" column's residue.
func residueIndex(column string) (int, bool) {
	code := strings.ToUpper(strings.TrimSuffix(column, "_count"))
	if len(code) != 1 {
		return 0, false
	}
	for i, r := range mass.ResidueAlphabet {
		if string(r) == code {
			return i, true
		}
	}
	return 0, false
}

// matchesPredicate reports whether a peptide satisfies at least one of
// the ORed clauses parsed from a predicate.Predicate's SQL, against its
// positional Values vector.
func matchesPredicate(p store.Peptide, clauses [][]condition, args []interface{}) bool {
	for _, clause := range clauses {
		if matchesClause(p, clause, args) {
			return true
		}
	}
	return false
}

func matchesClause(p store.Peptide, conditions []condition, args []interface{}) bool {
	for _, c := range conditions {
		if !matchesCondition(p, c, args) {
			return false
		}
	}
	return true
}

func matchesCondition(p store.Peptide, c condition, args []interface{}) bool {
	switch c.column {
	case "weight":
		lower, ok1 := args[c.lo-1].(int64)
		upper, ok2 := args[c.hi-1].(int64)
		return ok1 && ok2 && p.Mass >= lower && p.Mass <= upper
	case "n_terminus":
		want, ok := args[c.lo-1].(string)
		return ok && len(want) > 0 && p.NTerminus == want[0]
	case "c_terminus":
		want, ok := args[c.lo-1].(string)
		return ok && len(want) > 0 && p.CTerminus == want[0]
	default:
		idx, ok := residueIndex(c.column)
		if !ok || idx >= len(p.ResidueCounts) {
			return false
		}
		count, ok := args[c.lo-1].(int)
		if !ok {
			return false
		}
		actual := int(p.ResidueCounts[idx])
		switch c.op {
		case "=":
			return actual == count
		case ">=":
			return actual >= count
		}
		return false
	}
}
