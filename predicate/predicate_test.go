package predicate

import (
	"strings"
	"testing"

	"github.com/macpepdb/macpepdb-go/mass"
	"github.com/macpepdb/macpepdb-go/modification"
)

func TestCompileNoModifications(t *testing.T) {
	collection, err := modification.NewCollection(nil, 9)
	if err != nil {
		t.Fatal(err)
	}
	precursor := mass.PeptideMass("PEPTIDEK")
	p := Compile(collection, precursor, 10, 10)
	if !strings.HasPrefix(p.SQL, "(weight BETWEEN") {
		t.Fatalf("unexpected SQL: %s", p.SQL)
	}
	if len(p.Values) != 2 {
		t.Fatalf("expected 2 placeholder values, got %d", len(p.Values))
	}
}

func TestCompileWithStaticModification(t *testing.T) {
	mods := []modification.Modification{
		{AminoAcid: 'C', Delta: mass.ToInt(57.021464), IsStatic: true, Position: modification.Anywhere},
	}
	collection, err := modification.NewCollection(mods, 9)
	if err != nil {
		t.Fatal(err)
	}
	precursor := mass.PeptideMass("PEPTIDEK") + mass.ToInt(57.021464)
	p := Compile(collection, precursor, 10, 10)
	if !strings.Contains(p.SQL, "c_count") {
		t.Fatalf("expected predicate to reference c_count column, got %s", p.SQL)
	}
	if !strings.Contains(p.SQL, "OR") {
		t.Fatalf("expected multiple combinations ORed together, got %s", p.SQL)
	}
}

// TestPartitionsIntersectsBoundaries verifies Partitions returns the
// partition indices whose boundary range intersects the precursor's
// tolerance window, for the store.Store.SelectPeptides caller to pass
// directly as its partitions argument (store/postgres scans physical
// per-partition tables rather than filtering a `partition` column).
func TestPartitionsIntersectsBoundaries(t *testing.T) {
	collection, err := modification.NewCollection(nil, 9)
	if err != nil {
		t.Fatal(err)
	}
	precursor := mass.PeptideMass("PEPTIDEK")
	boundaries := []int64{precursor - 1, precursor + 1000000000, precursor + 2000000000}
	partitions := Partitions(collection, precursor, 10, 10, boundaries)
	if len(partitions) == 0 {
		t.Fatal("expected at least one intersecting partition")
	}
}

func TestCompileTerminusModificationUsesResidueColumn(t *testing.T) {
	mods := []modification.Modification{
		{AminoAcid: 'Q', Delta: mass.ToInt(-17.026549), IsStatic: false, Position: modification.NTerminus},
	}
	collection, err := modification.NewCollection(mods, 9)
	if err != nil {
		t.Fatal(err)
	}
	precursor := mass.PeptideMass("QEPTIDEK") + mass.ToInt(-17.026549)
	p := Compile(collection, precursor, 10, 10)
	if !strings.Contains(p.SQL, "n_terminus = $") {
		t.Fatalf("expected an n_terminus residue-equality clause, got %s", p.SQL)
	}
	if strings.Contains(p.SQL, "n_terminus_modification") {
		t.Fatalf("terminus clause must compare the residue column, not a modification accession: %s", p.SQL)
	}
}

func TestCheckArityCatchesMismatch(t *testing.T) {
	p := Predicate{SQL: "weight BETWEEN $1 AND $2", Values: []interface{}{1}}
	if err := p.CheckArity(); err == nil {
		t.Fatal("expected arity mismatch error")
	}

	collection, err := modification.NewCollection(nil, 9)
	if err != nil {
		t.Fatal(err)
	}
	ok := Compile(collection, mass.PeptideMass("PEPTIDEK"), 10, 10)
	if err := ok.CheckArity(); err != nil {
		t.Fatalf("expected well-formed predicate to pass CheckArity: %v", err)
	}
}
