package combination

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/macpepdb/macpepdb-go/mass"
	"github.com/macpepdb/macpepdb-go/modification"
)

func TestEnumerateNoModificationsYieldsOneCombination(t *testing.T) {
	collection, err := modification.NewCollection(nil, 9)
	if err != nil {
		t.Fatal(err)
	}
	precursor := mass.PeptideMass("PEPTIDEK")
	combos := Enumerate(collection, precursor, 10, 10)
	if len(combos) != 1 {
		t.Fatalf("expected exactly one trivial combination, got %d", len(combos))
	}
	if len(combos[0].Conditions) != 0 {
		t.Fatalf("expected no residue conditions, got %v", combos[0].Conditions)
	}
}

func TestEnumerateStaticModificationAppliesToEveryCombination(t *testing.T) {
	mods := []modification.Modification{
		{AminoAcid: 'C', Delta: mass.ToInt(57.021464), IsStatic: true, Position: modification.Anywhere},
	}
	collection, err := modification.NewCollection(mods, 9)
	if err != nil {
		t.Fatal(err)
	}
	precursor := mass.PeptideMass("PEPTIDEK") + 2*mass.ToInt(57.021464)
	combos := Enumerate(collection, precursor, 10, 10)
	if len(combos) == 0 {
		t.Fatal("expected at least one combination")
	}
	for _, c := range combos {
		for _, cond := range c.Conditions {
			if cond.AminoAcid == 'C' && cond.Comparison != Equal {
				t.Fatalf("static modification should use Equal comparison, got %v", cond.Comparison)
			}
		}
	}
}

func TestEnumerateVariableModificationUsesAtLeast(t *testing.T) {
	mods := []modification.Modification{
		{AminoAcid: 'M', Delta: mass.ToInt(15.994915), IsStatic: false, Position: modification.Anywhere},
	}
	collection, err := modification.NewCollection(mods, 9)
	if err != nil {
		t.Fatal(err)
	}
	precursor := mass.PeptideMass("PEPTIDEK") + mass.ToInt(15.994915)
	combos := Enumerate(collection, precursor, 10, 10)
	foundAtLeastOne := false
	for _, c := range combos {
		for _, cond := range c.Conditions {
			if cond.AminoAcid == 'M' && cond.Count > 0 {
				foundAtLeastOne = true
				if cond.Comparison != AtLeast {
					t.Fatalf("variable modification should use AtLeast comparison, got %v", cond.Comparison)
				}
			}
		}
	}
	if !foundAtLeastOne {
		t.Fatal("expected at least one combination applying the variable modification")
	}
}

func TestEnumerateConditionSetForStaticAndVariableTogether(t *testing.T) {
	mods := []modification.Modification{
		{AminoAcid: 'C', Delta: mass.ToInt(57.021464), IsStatic: true, Position: modification.Anywhere},
		{AminoAcid: 'M', Delta: mass.ToInt(15.994915), IsStatic: false, Position: modification.Anywhere},
	}
	collection, err := modification.NewCollection(mods, 9)
	if err != nil {
		t.Fatal(err)
	}
	precursor := mass.PeptideMass("MCK") + mass.ToInt(57.021464) + mass.ToInt(15.994915)
	combos := Enumerate(collection, precursor, 10, 10)

	want := []ResidueCondition{
		{AminoAcid: 'C', Comparison: Equal, Count: 1},
		{AminoAcid: 'M', Comparison: AtLeast, Count: 1},
	}
	sortByResidue := cmpopts.SortSlices(func(a, b ResidueCondition) bool { return a.AminoAcid < b.AminoAcid })

	found := false
	for _, c := range combos {
		if len(c.Conditions) == len(want) && cmp.Diff(want, c.Conditions, sortByResidue) == "" {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected a combination with both the static C and the applied variable M condition, got %+v", combos)
	}
}
