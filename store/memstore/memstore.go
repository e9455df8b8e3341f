/*
Package memstore is an in-memory implementation of store.Store used for
tests that exercise the ingest and metadata pipelines without a running
PostgreSQL instance. It is a deliberate stdlib-only test seam: store.Store
is defined as an interface precisely so a fake can stand in for it (see
DESIGN.md).
*/
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/macpepdb/macpepdb-go/store"
)

// Store is a goroutine-safe, in-memory store.Store.
type Store struct {
	mu sync.Mutex

	proteins     map[string]*store.Protein
	peptides     map[string]*store.Peptide // keyed by sequence
	metadata     map[string]*store.PeptideMetadata
	associations map[string][]store.ProteinPeptideAssociation // keyed by protein accession
	taxonomies   map[int]store.Taxonomy
	merges       map[int]int
	boundaries   []int64
	statistics   map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		proteins:     make(map[string]*store.Protein),
		peptides:     make(map[string]*store.Peptide),
		metadata:     make(map[string]*store.PeptideMetadata),
		associations: make(map[string][]store.ProteinPeptideAssociation),
		taxonomies:   make(map[int]store.Taxonomy),
		merges:       make(map[int]int),
		statistics:   make(map[string]string),
	}
}

func (s *Store) GetProtein(ctx context.Context, accession string) (*store.Protein, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proteins[accession]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *Store) FindProteinsByAccessions(ctx context.Context, accessions []string, preferred string) ([]*store.Protein, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]bool, len(accessions))
	for _, a := range accessions {
		want[a] = true
	}
	var hits []*store.Protein
	for accession, p := range s.proteins {
		if want[accession] {
			clone := *p
			hits = append(hits, &clone)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		iPreferred := hits[i].Accession == preferred
		jPreferred := hits[j].Accession == preferred
		if iPreferred != jPreferred {
			return iPreferred
		}
		return hits[i].Accession < hits[j].Accession
	})
	return hits, nil
}

func (s *Store) CreateProtein(ctx context.Context, protein *store.Protein, peptides []store.Peptide, associations []store.ProteinPeptideAssociation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *protein
	s.proteins[protein.Accession] = &clone
	s.insertPeptidesLocked(peptides)
	s.associations[protein.Accession] = append([]store.ProteinPeptideAssociation{}, associations...)
	return nil
}

func (s *Store) UpdateProtein(ctx context.Context, protein *store.Protein, peptides []store.Peptide, associations []store.ProteinPeptideAssociation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.proteins[protein.Accession]
	if ok && !protein.UpdatedAt.After(existing.UpdatedAt) {
		return nil
	}
	clone := *protein
	s.proteins[protein.Accession] = &clone
	s.insertPeptidesLocked(peptides)
	s.associations[protein.Accession] = append(s.associations[protein.Accession], associations...)
	return nil
}

func (s *Store) DeleteProtein(ctx context.Context, accession string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.proteins, accession)
	delete(s.associations, accession)
	return nil
}

func (s *Store) insertPeptidesLocked(peptides []store.Peptide) {
	for _, p := range peptides {
		if _, exists := s.peptides[p.Sequence]; !exists {
			clone := p
			s.peptides[p.Sequence] = &clone
		}
	}
}

func (s *Store) GetPeptide(ctx context.Context, partition int, peptideMass int64, sequence string) (*store.Peptide, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.peptides[sequence]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *Store) ExistingPeptides(ctx context.Context, candidates []store.Peptide) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		existing, ok := s.peptides[c.Sequence]
		if !ok {
			continue
		}
		result[c.Sequence] = existing.IsMetadataUpToDate
	}
	return result, nil
}

func (s *Store) InsertPeptides(ctx context.Context, peptides []store.Peptide) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertPeptidesLocked(peptides)
	return nil
}

func (s *Store) InsertAssociations(ctx context.Context, associations []store.ProteinPeptideAssociation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range associations {
		s.associations[a.ProteinAccession] = append(s.associations[a.ProteinAccession], a)
	}
	return nil
}

func (s *Store) DeleteAssociations(ctx context.Context, proteinAccession string, sequences []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	toRemove := make(map[string]bool, len(sequences))
	for _, seq := range sequences {
		toRemove[seq] = true
	}
	kept := s.associations[proteinAccession][:0]
	for _, a := range s.associations[proteinAccession] {
		if !toRemove[a.PeptideSequence] {
			kept = append(kept, a)
		}
	}
	s.associations[proteinAccession] = kept
	return nil
}

func (s *Store) CurrentPeptideAssociations(ctx context.Context, proteinAccession string) ([]store.ProteinPeptideAssociation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]store.ProteinPeptideAssociation{}, s.associations[proteinAccession]...)
	return out, nil
}

func (s *Store) FlagPeptidesForMetadataUpdate(ctx context.Context, sequences []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seq := range sequences {
		if p, ok := s.peptides[seq]; ok {
			p.IsMetadataUpToDate = false
		}
	}
	return nil
}

func (s *Store) PeptidesNeedingMetadataUpdate(ctx context.Context, limit int) ([]store.Peptide, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Peptide
	var sequences []string
	for seq, p := range s.peptides {
		if !p.IsMetadataUpToDate {
			sequences = append(sequences, seq)
		}
	}
	sort.Strings(sequences)
	for _, seq := range sequences {
		if len(out) >= limit {
			break
		}
		out = append(out, *s.peptides[seq])
	}
	return out, nil
}

func (s *Store) ComputeAndStorePeptideMetadata(ctx context.Context, sequence string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		isSwissprot    bool
		isTrembl       bool
		taxonomyCounts = make(map[int]int)
		proteomeSet    = make(map[string]bool)
	)
	for accession, assocs := range s.associations {
		for _, a := range assocs {
			if a.PeptideSequence != sequence {
				continue
			}
			protein, ok := s.proteins[accession]
			if !ok {
				continue
			}
			if protein.IsReviewed {
				isSwissprot = true
			} else {
				isTrembl = true
			}
			taxonomyCounts[protein.TaxonomyID]++
			if protein.ProteomeID != "" {
				proteomeSet[protein.ProteomeID] = true
			}
		}
	}
	// taxonomy_ids: every referenced taxonomy, distinct and sorted.
	// unique_taxonomy_ids: the subset referenced by exactly one containing
	// protein (spec.md §3/§4.10).
	taxonomyIDs := make([]int, 0, len(taxonomyCounts))
	var uniqueTaxonomyIDs []int
	for id, count := range taxonomyCounts {
		taxonomyIDs = append(taxonomyIDs, id)
		if count == 1 {
			uniqueTaxonomyIDs = append(uniqueTaxonomyIDs, id)
		}
	}
	sort.Ints(taxonomyIDs)
	sort.Ints(uniqueTaxonomyIDs)
	proteomeIDs := make([]string, 0, len(proteomeSet))
	for id := range proteomeSet {
		proteomeIDs = append(proteomeIDs, id)
	}
	sort.Strings(proteomeIDs)
	s.metadata[sequence] = &store.PeptideMetadata{
		Sequence:          sequence,
		IsSwissprot:       isSwissprot,
		IsTrembl:          isTrembl,
		TaxonomyIDs:       taxonomyIDs,
		UniqueTaxonomyIDs: uniqueTaxonomyIDs,
		ProteomeIDs:       proteomeIDs,
	}
	if p, ok := s.peptides[sequence]; ok {
		p.IsMetadataUpToDate = true
	}
	return nil
}

// Metadata exposes the computed metadata for a sequence, for test
// assertions.
func (s *Store) Metadata(sequence string) (*store.PeptideMetadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.metadata[sequence]
	return m, ok
}

// SelectPeptides evaluates a predicate.Predicate's compiled WHERE clause
// natively against the in-memory peptide set (see predicate_eval.go)
// rather than executing SQL, so the matched-set scenarios spec.md §8
// describes and the Enumerator/validator agreement invariant are
// actually exercised by tests that use this Store.
func (s *Store) SelectPeptides(ctx context.Context, sqlWhere string, args []interface{}, partitions []int, limit int) ([]store.Peptide, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clauses, err := parseWhereClause(sqlWhere)
	if err != nil {
		return nil, err
	}

	var wantPartitions map[int]bool
	if len(partitions) > 0 {
		wantPartitions = make(map[int]bool, len(partitions))
		for _, p := range partitions {
			wantPartitions[p] = true
		}
	}

	sequences := make([]string, 0, len(s.peptides))
	for seq := range s.peptides {
		sequences = append(sequences, seq)
	}
	sort.Strings(sequences)

	var out []store.Peptide
	for _, seq := range sequences {
		if len(out) >= limit {
			break
		}
		p := s.peptides[seq]
		if wantPartitions != nil && !wantPartitions[p.Partition] {
			continue
		}
		if matchesPredicate(*p, clauses, args) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *Store) ReplaceTaxonomies(ctx context.Context, taxonomies []store.Taxonomy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taxonomies = make(map[int]store.Taxonomy, len(taxonomies))
	for _, t := range taxonomies {
		s.taxonomies[t.ID] = t
	}
	return nil
}

func (s *Store) ReplaceTaxonomyMerges(ctx context.Context, merges []store.TaxonomyMerge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merges = make(map[int]int, len(merges))
	for _, m := range merges {
		s.merges[m.OldID] = m.NewID
	}
	return nil
}

func (s *Store) ResolveTaxonomyMerge(ctx context.Context, taxonomyID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[int]bool{}
	current := taxonomyID
	for {
		next, ok := s.merges[current]
		if !ok {
			return current, nil
		}
		if seen[next] {
			return current, nil
		}
		seen[current] = true
		current = next
	}
}

func (s *Store) PartitionBoundaries(ctx context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64{}, s.boundaries...), nil
}

func (s *Store) SetPartitionBoundaries(ctx context.Context, boundaries []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boundaries = append([]int64{}, boundaries...)
	return nil
}

func (s *Store) Statistic(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.statistics[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (s *Store) SetStatistic(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statistics[key] = value
	return nil
}

var _ store.Store = (*Store)(nil)
