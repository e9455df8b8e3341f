package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/macpepdb/macpepdb-go/bio/uniprot"
	"github.com/macpepdb/macpepdb-go/digest"
	"github.com/macpepdb/macpepdb-go/store"
	"github.com/macpepdb/macpepdb-go/store/memstore"
	"github.com/macpepdb/macpepdb-go/supervisor"
)

func newTestPipeline(t *testing.T, s *memstore.Store) *Pipeline {
	t.Helper()
	sup, err := supervisor.New(context.Background(), filepath.Join(t.TempDir(), "run.log"))
	if err != nil {
		t.Fatalf("supervisor.New: %v", err)
	}
	t.Cleanup(sup.StopLogging)
	return New(Options{
		Store:           s,
		Enzyme:          digest.Trypsin(2, 5, 60),
		Supervisor:      sup,
		NumberOfWorkers: 2,
		Boundaries:      store.DefaultBoundaries(10),
	})
}

func TestProcessCreatesNewProtein(t *testing.T) {
	s := memstore.New()
	p := newTestPipeline(t, s)
	ctx := context.Background()

	protein := &uniprot.Protein{
		PrimaryAccession: "P1",
		Sequence:         "MKTAYIAKQRQISFVKSHFSRQLEERLGLIEVQAPILSR",
		IsReviewed:       true,
		TaxonomyID:       9606,
		LastUpdate:       time.Now(),
	}
	if err := p.process(ctx, protein); err != nil {
		t.Fatalf("process: %v", err)
	}
	got, err := s.GetProtein(ctx, "P1")
	if err != nil {
		t.Fatalf("GetProtein: %v", err)
	}
	if got.Sequence != protein.Sequence {
		t.Fatalf("unexpected stored sequence: %s", got.Sequence)
	}
	proteins, peptides, _ := p.opts.Supervisor.Stats.Snapshot()
	if proteins != 1 {
		t.Fatalf("expected 1 protein created, got %d", proteins)
	}
	if peptides == 0 {
		t.Fatal("expected peptides to be created")
	}
}

func TestProcessUpdateDropsObsoleteAssociations(t *testing.T) {
	s := memstore.New()
	p := newTestPipeline(t, s)
	ctx := context.Background()

	original := &uniprot.Protein{
		PrimaryAccession: "P1",
		Sequence:         "MKTAYIAKQRQISFVKSHFSR",
		LastUpdate:       time.Now(),
	}
	if err := p.process(ctx, original); err != nil {
		t.Fatalf("initial process: %v", err)
	}
	before, _ := s.CurrentPeptideAssociations(ctx, "P1")
	if len(before) == 0 {
		t.Fatal("expected initial associations")
	}

	updated := &uniprot.Protein{
		PrimaryAccession: "P1",
		Sequence:         "AAAAAAAAAAAAAAAAAAAAK",
		LastUpdate:       original.LastUpdate.Add(time.Hour),
	}
	if err := p.process(ctx, updated); err != nil {
		t.Fatalf("update process: %v", err)
	}
	after, _ := s.CurrentPeptideAssociations(ctx, "P1")
	for _, assoc := range after {
		if assoc.PeptideSequence == "MKTAYIAK" {
			t.Fatal("expected obsolete association to be dropped")
		}
	}
}

func TestProcessStaleUpdateIsNoOp(t *testing.T) {
	s := memstore.New()
	p := newTestPipeline(t, s)
	ctx := context.Background()

	now := time.Now()
	original := &uniprot.Protein{PrimaryAccession: "P1", Sequence: "MKTAYIAK", LastUpdate: now}
	if err := p.process(ctx, original); err != nil {
		t.Fatal(err)
	}
	stale := &uniprot.Protein{PrimaryAccession: "P1", Sequence: "AAAAAAAA", LastUpdate: now.Add(-time.Hour)}
	if err := p.process(ctx, stale); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetProtein(ctx, "P1")
	if got.Sequence != "MKTAYIAK" {
		t.Fatalf("stale update should be a no-op, got sequence %s", got.Sequence)
	}
}

// TestProcessMergesOnAccessionSwap exercises spec.md §8 scenario 4: a
// protein later re-accessioned to a new primary accession, with the old
// accession demoted to secondary, is treated as a merge into a single row
// under the new accession.
func TestProcessMergesOnAccessionSwap(t *testing.T) {
	s := memstore.New()
	p := newTestPipeline(t, s)
	ctx := context.Background()

	now := time.Now()
	original := &uniprot.Protein{
		PrimaryAccession: "A",
		Sequence:         "MKTAYIAKQRQISFVKSHFSR",
		LastUpdate:       now,
	}
	if err := p.process(ctx, original); err != nil {
		t.Fatalf("initial process: %v", err)
	}

	renamed := &uniprot.Protein{
		PrimaryAccession:    "B",
		SecondaryAccessions: []string{"A"},
		Sequence:            "MKTAYIAKQRQISFVKSHFSK",
		LastUpdate:          now.Add(time.Hour),
	}
	if err := p.process(ctx, renamed); err != nil {
		t.Fatalf("merge process: %v", err)
	}

	if _, err := s.GetProtein(ctx, "A"); err != store.ErrNotFound {
		t.Fatalf("expected accession A to be gone, got err=%v", err)
	}
	got, err := s.GetProtein(ctx, "B")
	if err != nil {
		t.Fatalf("GetProtein B: %v", err)
	}
	if got.Sequence != renamed.Sequence {
		t.Fatalf("unexpected merged sequence: %s", got.Sequence)
	}
	if len(got.SecondaryAccessions) != 1 || got.SecondaryAccessions[0] != "A" {
		t.Fatalf("expected secondary accessions to contain A, got %v", got.SecondaryAccessions)
	}
}
