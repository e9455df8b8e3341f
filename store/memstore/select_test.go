package memstore

import (
	"context"
	"testing"

	"github.com/macpepdb/macpepdb-go/mass"
	"github.com/macpepdb/macpepdb-go/modification"
	"github.com/macpepdb/macpepdb-go/predicate"
	"github.com/macpepdb/macpepdb-go/store"
	"github.com/macpepdb/macpepdb-go/validator"
)

func seedPeptide(t *testing.T, s *Store, sequence string) {
	t.Helper()
	p := store.Peptide{
		Sequence:      sequence,
		Mass:          mass.PeptideMass(sequence),
		ResidueCounts: mass.CountResidues(sequence),
		NTerminus:     sequence[0],
		CTerminus:     sequence[len(sequence)-1],
	}
	if err := s.InsertPeptides(context.Background(), []store.Peptide{p}); err != nil {
		t.Fatalf("InsertPeptides(%s): %v", sequence, err)
	}
}

func TestSelectPeptidesMatchesPlainMassWindow(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, seq := range []string{"PEPTIDEK", "SAMPLER", "ACDEFGHIK"} {
		seedPeptide(t, s, seq)
	}

	collection, err := modification.NewCollection(nil, 9)
	if err != nil {
		t.Fatal(err)
	}
	precursor := mass.PeptideMass("PEPTIDEK")
	compiled := predicate.Compile(collection, precursor, 1, 1)

	got, err := s.SelectPeptides(ctx, compiled.SQL, compiled.Values, nil, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Sequence != "PEPTIDEK" {
		t.Fatalf("expected only PEPTIDEK to match, got %v", got)
	}
}

// TestSelectPeptidesAgreesWithValidator exercises the
// Enumerator/validator agreement invariant (spec.md §8): every sequence
// the in-memory predicate evaluator matches or rejects must agree with
// validator.Validator's independent, per-peptide ground truth.
func TestSelectPeptidesAgreesWithValidator(t *testing.T) {
	s := New()
	ctx := context.Background()
	sequences := []string{"CCEPTIDEK", "CEPTIDEK", "AEPTIDEK"}
	for _, seq := range sequences {
		seedPeptide(t, s, seq)
	}

	mods := []modification.Modification{
		{AminoAcid: 'C', Delta: mass.ToInt(57.021464), IsStatic: true, Position: modification.Anywhere},
	}
	collection, err := modification.NewCollection(mods, 9)
	if err != nil {
		t.Fatal(err)
	}
	precursor := mass.PeptideMass("CEPTIDEK") + mass.ToInt(57.021464)
	compiled := predicate.Compile(collection, precursor, 5, 5)

	got, err := s.SelectPeptides(ctx, compiled.SQL, compiled.Values, nil, 100)
	if err != nil {
		t.Fatal(err)
	}
	matched := make(map[string]bool, len(got))
	for _, p := range got {
		matched[p.Sequence] = true
	}

	v := validator.New(collection, precursor, 5, 5)
	for _, seq := range sequences {
		want := v.Validate(seq)
		if want != matched[seq] {
			t.Fatalf("sequence %q: validator=%v, predicate-matched=%v", seq, want, matched[seq])
		}
	}
}

func TestSelectPeptidesHonorsPartitionFilter(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.InsertPeptides(ctx, []store.Peptide{
		{Sequence: "AAA", Mass: mass.PeptideMass("AAA"), ResidueCounts: mass.CountResidues("AAA"), Partition: 0},
		{Sequence: "BBB", Mass: mass.PeptideMass("AAA"), ResidueCounts: mass.CountResidues("AAA"), Partition: 1},
	})

	collection, err := modification.NewCollection(nil, 9)
	if err != nil {
		t.Fatal(err)
	}
	precursor := mass.PeptideMass("AAA")
	compiled := predicate.Compile(collection, precursor, 10, 10)

	got, err := s.SelectPeptides(ctx, compiled.SQL, compiled.Values, []int{1}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Sequence != "BBB" {
		t.Fatalf("expected only BBB (partition 1), got %v", got)
	}
}
