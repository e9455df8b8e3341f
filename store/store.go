/*
Package store defines the persistence contract for proteins, peptides,
their associations, taxonomy data, and maintenance bookkeeping, along with
the mass-based partitioning scheme peptides are stored under. Concrete
implementations live in store/postgres (production) and store/memstore (an
in-memory reference implementation used for tests).
*/
package store

import (
	"context"
	"errors"
	"time"

	"github.com/macpepdb/macpepdb-go/mass"
)

// ErrNotFound is returned by single-entity lookups when no matching row
// exists.
var ErrNotFound = errors.New("store: not found")

// Protein is a single UniProt entry as persisted by this system.
type Protein struct {
	Accession           string
	SecondaryAccessions []string
	EntryName           string
	Name                string
	Sequence            string
	TaxonomyID          int
	ProteomeID          string
	IsReviewed          bool
	UpdatedAt           time.Time
}

// Peptide is a distinct tryptic (or other enzyme) peptide sequence, keyed
// by its partition and exact mass, with residue counts denormalized for
// fast predicate evaluation.
type Peptide struct {
	Sequence               string
	Mass                   int64
	Partition              int
	NumberOfMissedCleavages int
	ResidueCounts          []int32
	NTerminus              byte
	CTerminus              byte
	IsMetadataUpToDate     bool
}

// PeptideMetadata aggregates the review status and taxonomy/proteome
// membership of every protein a peptide occurs in.
type PeptideMetadata struct {
	Sequence            string
	IsSwissprot         bool
	IsTrembl            bool
	TaxonomyIDs         []int
	UniqueTaxonomyIDs   []int
	ProteomeIDs         []string
}

// Taxonomy is one row of an NCBI taxonomy dump.
type Taxonomy struct {
	ID     int
	Name   string
	Rank   string
	Parent int
}

// TaxonomyMerge records that an old taxonomy id has been merged into a new
// one, per the NCBI merged.dmp file.
type TaxonomyMerge struct {
	OldID int
	NewID int
}

// ProteinPeptideAssociation links a protein to every peptide it produces.
type ProteinPeptideAssociation struct {
	ProteinAccession string
	PeptideSequence  string
	PeptideMass      int64
	PeptidePartition int
}

// PartitionBoundaryKey is the maintenance_information key under which the
// persisted partition boundary vector is stored.
const PartitionBoundaryKey = "partition_boundaries"

// Store is the full persistence contract. Every method takes a
// context.Context so callers can cancel long-running bulk operations
// (digestion, metadata collection) cleanly.
type Store interface {
	// Protein operations.
	GetProtein(ctx context.Context, accession string) (*Protein, error)
	// FindProteinsByAccessions returns every stored protein whose primary
	// accession appears in accessions, with any protein whose Accession
	// equals preferred sorted first (per spec.md §4.5 step 1's "first
	// hit" merge-detection rule); ties otherwise ordered by Accession.
	FindProteinsByAccessions(ctx context.Context, accessions []string, preferred string) ([]*Protein, error)
	CreateProtein(ctx context.Context, protein *Protein, peptides []Peptide, associations []ProteinPeptideAssociation) error
	UpdateProtein(ctx context.Context, protein *Protein, peptides []Peptide, associations []ProteinPeptideAssociation) error
	DeleteProtein(ctx context.Context, accession string) error

	// Peptide operations.
	GetPeptide(ctx context.Context, partition int, peptideMass int64, sequence string) (*Peptide, error)
	ExistingPeptides(ctx context.Context, candidates []Peptide) (map[string]bool, error)
	InsertPeptides(ctx context.Context, peptides []Peptide) error
	InsertAssociations(ctx context.Context, associations []ProteinPeptideAssociation) error
	DeleteAssociations(ctx context.Context, proteinAccession string, sequences []string) error
	CurrentPeptideAssociations(ctx context.Context, proteinAccession string) ([]ProteinPeptideAssociation, error)
	FlagPeptidesForMetadataUpdate(ctx context.Context, sequences []string) error

	// Metadata collection.
	PeptidesNeedingMetadataUpdate(ctx context.Context, limit int) ([]Peptide, error)
	ComputeAndStorePeptideMetadata(ctx context.Context, sequence string) error

	// Predicate evaluation (used by search operations). partitions, when
	// non-empty, restricts the scan to those partition indices (the
	// derived partition filter predicate.Partitions computes); an empty
	// slice scans every partition.
	SelectPeptides(ctx context.Context, sqlWhere string, args []interface{}, partitions []int, limit int) ([]Peptide, error)

	// Taxonomy.
	ReplaceTaxonomies(ctx context.Context, taxonomies []Taxonomy) error
	ReplaceTaxonomyMerges(ctx context.Context, merges []TaxonomyMerge) error
	ResolveTaxonomyMerge(ctx context.Context, taxonomyID int) (int, error)

	// Maintenance bookkeeping.
	PartitionBoundaries(ctx context.Context) ([]int64, error)
	SetPartitionBoundaries(ctx context.Context, boundaries []int64) error
	Statistic(ctx context.Context, key string) (string, error)
	SetStatistic(ctx context.Context, key, value string) error
}

// DefaultBoundaries computes an initial, equal-width partition boundary
// vector spanning from twice the lightest residue mass (glycine, without
// water) up to
// mass.MaxPossiblePeptideMass. Used only the first time a fresh schema is
// initialized; every subsequent operation reads the persisted vector via
// Store.PartitionBoundaries (see DESIGN.md open question #1).
func DefaultBoundaries(n int) []int64 {
	if n <= 0 {
		return nil
	}
	lower := 2 * mass.Lightest().MonoMass
	upper := mass.MaxPossiblePeptideMass()
	width := (upper - lower) / int64(n)
	boundaries := make([]int64, n)
	for i := 0; i < n; i++ {
		boundaries[i] = lower + width*int64(i+1)
	}
	boundaries[n-1] = upper
	return boundaries
}

// PartitionFor returns the index of the partition a given mass falls in,
// given an ascending boundary vector where boundaries[i] is the exclusive
// upper bound of partition i, so partition i holds [boundaries[i-1], boundaries[i]).
func PartitionFor(peptideMass int64, boundaries []int64) int {
	for i, boundary := range boundaries {
		if peptideMass < boundary {
			return i
		}
	}
	return len(boundaries) - 1
}
