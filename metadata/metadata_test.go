package metadata

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/macpepdb/macpepdb-go/store"
	"github.com/macpepdb/macpepdb-go/store/memstore"
	"github.com/macpepdb/macpepdb-go/supervisor"
)

func TestRunFlipsStaleFlagToUpToDate(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	protein := &store.Protein{Accession: "P1", IsReviewed: true, TaxonomyID: 9606, ProteomeID: "UP1", UpdatedAt: time.Now()}
	peptides := []store.Peptide{{Sequence: "PEPTIDEK", IsMetadataUpToDate: false}}
	assocs := []store.ProteinPeptideAssociation{{ProteinAccession: "P1", PeptideSequence: "PEPTIDEK"}}
	if err := s.CreateProtein(ctx, protein, peptides, assocs); err != nil {
		t.Fatal(err)
	}

	sup, err := supervisor.New(ctx, filepath.Join(t.TempDir(), "run.log"))
	if err != nil {
		t.Fatalf("supervisor.New: %v", err)
	}
	t.Cleanup(sup.StopLogging)

	collector := New(Options{Store: s, Supervisor: sup, NumberOfWorkers: 2})
	if err := collector.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	pending, err := s.PeptidesNeedingMetadataUpdate(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending peptides after Run, got %v", pending)
	}
	meta, ok := s.Metadata("PEPTIDEK")
	if !ok {
		t.Fatal("expected metadata to be computed")
	}
	if !meta.IsSwissprot {
		t.Fatal("expected swissprot flag to be set")
	}
}
