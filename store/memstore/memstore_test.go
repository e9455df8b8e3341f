package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/macpepdb/macpepdb-go/store"
)

func TestCreateAndGetProtein(t *testing.T) {
	s := New()
	ctx := context.Background()
	protein := &store.Protein{Accession: "P12345", Sequence: "PEPTIDEK", IsReviewed: true, TaxonomyID: 9606, UpdatedAt: time.Now()}
	peptides := []store.Peptide{{Sequence: "PEPTIDEK", Mass: 1, Partition: 0}}
	assocs := []store.ProteinPeptideAssociation{{ProteinAccession: "P12345", PeptideSequence: "PEPTIDEK"}}

	if err := s.CreateProtein(ctx, protein, peptides, assocs); err != nil {
		t.Fatalf("CreateProtein: %v", err)
	}
	got, err := s.GetProtein(ctx, "P12345")
	if err != nil {
		t.Fatalf("GetProtein: %v", err)
	}
	if got.Sequence != "PEPTIDEK" {
		t.Fatalf("unexpected sequence: %s", got.Sequence)
	}
}

func TestUpdateProteinNoOpOnStaleTimestamp(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()
	protein := &store.Protein{Accession: "P1", Sequence: "AAA", UpdatedAt: now}
	if err := s.CreateProtein(ctx, protein, nil, nil); err != nil {
		t.Fatal(err)
	}
	stale := &store.Protein{Accession: "P1", Sequence: "BBB", UpdatedAt: now.Add(-time.Hour)}
	if err := s.UpdateProtein(ctx, stale, nil, nil); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetProtein(ctx, "P1")
	if got.Sequence != "AAA" {
		t.Fatalf("stale update should have been a no-op, got sequence %s", got.Sequence)
	}
}

func TestFlagAndCollectMetadata(t *testing.T) {
	s := New()
	ctx := context.Background()
	reviewed := &store.Protein{Accession: "P1", TaxonomyID: 1, ProteomeID: "UP1", IsReviewed: true}
	unreviewed := &store.Protein{Accession: "P2", TaxonomyID: 2, IsReviewed: false}
	peptides := []store.Peptide{{Sequence: "SEQ", IsMetadataUpToDate: false}}
	if err := s.CreateProtein(ctx, reviewed, peptides, []store.ProteinPeptideAssociation{{ProteinAccession: "P1", PeptideSequence: "SEQ"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateProtein(ctx, unreviewed, nil, []store.ProteinPeptideAssociation{{ProteinAccession: "P2", PeptideSequence: "SEQ"}}); err != nil {
		t.Fatal(err)
	}

	pending, err := s.PeptidesNeedingMetadataUpdate(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Sequence != "SEQ" {
		t.Fatalf("expected SEQ pending, got %v", pending)
	}

	if err := s.ComputeAndStorePeptideMetadata(ctx, "SEQ"); err != nil {
		t.Fatal(err)
	}
	meta, ok := s.Metadata("SEQ")
	if !ok {
		t.Fatal("expected metadata to be stored")
	}
	want := &store.PeptideMetadata{
		Sequence:          "SEQ",
		IsSwissprot:       true,
		IsTrembl:          true,
		TaxonomyIDs:       []int{1, 2},
		UniqueTaxonomyIDs: []int{1, 2},
		ProteomeIDs:       []string{"UP1"},
	}
	ignoreOrder := cmpopts.SortSlices(func(a, b int) bool { return a < b })
	if diff := cmp.Diff(want, meta, ignoreOrder); diff != "" {
		t.Fatalf("unexpected metadata (-want +got):\n%s", diff)
	}

	pending, _ = s.PeptidesNeedingMetadataUpdate(ctx, 100)
	if len(pending) != 0 {
		t.Fatalf("expected no more pending peptides, got %v", pending)
	}
}

func TestResolveTaxonomyMergeChain(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.ReplaceTaxonomyMerges(ctx, []store.TaxonomyMerge{{OldID: 1, NewID: 2}, {OldID: 2, NewID: 3}}); err != nil {
		t.Fatal(err)
	}
	resolved, err := s.ResolveTaxonomyMerge(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != 3 {
		t.Fatalf("expected chain to resolve to 3, got %d", resolved)
	}
}
