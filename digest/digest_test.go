package digest

import (
	"sort"
	"testing"
)

func sequences(peptides []Peptide) []string {
	out := make([]string, len(peptides))
	for i, p := range peptides {
		out[i] = p.Sequence
	}
	sort.Strings(out)
	return out
}

func TestTrypsinNoMissedCleavages(t *testing.T) {
	enzyme := Trypsin(0, 1, 60)
	peptides := enzyme.Digest("PEPTIDEKAEPTIDER")
	got := sequences(peptides)
	want := []string{"AEPTIDER", "PEPTIDEK"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestTrypsinNoCleavageBeforeProline(t *testing.T) {
	enzyme := Trypsin(0, 1, 60)
	peptides := enzyme.Digest("PEPTIDEKPPEPTIDER")
	for _, p := range peptides {
		if p.Sequence == "PEPTIDEK" {
			t.Fatalf("cleavage before proline should not occur, got peptide %q", p.Sequence)
		}
	}
}

func TestTrypsinMissedCleavages(t *testing.T) {
	enzyme := Trypsin(1, 1, 60)
	peptides := enzyme.Digest("AKBKC")
	found := map[string]bool{}
	for _, p := range peptides {
		found[p.Sequence] = true
	}
	for _, want := range []string{"AK", "BKC"} {
		if !found[want] {
			t.Fatalf("expected %q among peptides, got %v", want, sequences(peptides))
		}
	}
}

func TestExcludesUnknownResidue(t *testing.T) {
	enzyme := Trypsin(0, 1, 60)
	peptides := enzyme.Digest("PEPXIDEK")
	for _, p := range peptides {
		if p.Sequence == "PEPXIDEK" {
			t.Fatal("peptide containing X must be excluded")
		}
	}
}

func TestAmbiguousResidueExpansion(t *testing.T) {
	enzyme := Trypsin(0, 1, 60)
	peptides := enzyme.Digest("PEPBIDEK")
	found := map[string]bool{}
	for _, p := range peptides {
		found[p.Sequence] = true
	}
	if !found["PEPBIDEK"] {
		t.Fatal("expected ambiguous sequence itself to be kept")
	}
	if !found["PEPDIDEK"] || !found["PEPNIDEK"] {
		t.Fatalf("expected both disambiguated variants, got %v", sequences(peptides))
	}
}

func TestByName(t *testing.T) {
	enzyme, ok := ByName("trypsin", 2, 5, 60)
	if !ok {
		t.Fatal("expected trypsin to be a known enzyme")
	}
	if enzyme.Name != "Trypsin" {
		t.Fatalf("unexpected enzyme name: %s", enzyme.Name)
	}
	if _, ok := ByName("chymotrypsin", 2, 5, 60); ok {
		t.Fatal("chymotrypsin should not be known")
	}
}
