/*
Package postgres is the production store.Store implementation, backed
by PostgreSQL through pgx/v5 and pgxpool. It executes the schema
spec.md §6 describes: a proteins table, a mass-partitioned peptides
table (one physical table per partition, selected by the
Peptide.Partition value computed from store.PartitionFor), a proteins_peptides
association table, taxonomy/taxonomy_merges tables, and a
maintenance_information key/value table for the persisted partition
boundary vector and arbitrary statistics.
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/macpepdb/macpepdb-go/ingest"
	"github.com/macpepdb/macpepdb-go/mass"
	"github.com/macpepdb/macpepdb-go/store"
)

// Store implements store.Store against a pgxpool.Pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open creates a connection pool for url and verifies connectivity.
func Open(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Classify implements ingest.Classifier for PostgreSQL error codes:
// 23505 (unique_violation) and 40P01 (deadlock_detected) get the soft
// retry treatment the original's unsolvable-error-factor ladder applies;
// everything else is unsolvable on first occurrence.
func Classify(err error) ingest.ErrorClass {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ingest.ClassUniqueViolation
		case "40P01":
			return ingest.ClassDeadlock
		}
	}
	return ingest.ClassOther
}

func residueColumns() []string {
	cols := make([]string, len(mass.ResidueAlphabet))
	for i, r := range mass.ResidueAlphabet {
		cols[i] = strings.ToLower(string(r)) + "_count"
	}
	return cols
}

func partitionTable(partition int) string {
	return fmt.Sprintf("peptides_%d", partition)
}

func (s *Store) GetProtein(ctx context.Context, accession string) (*store.Protein, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT accession, secondary_accessions, entry_name, name, sequence,
		       taxonomy_id, proteome_id, is_reviewed, updated_at
		FROM proteins WHERE accession = $1`, accession)
	var p store.Protein
	err := row.Scan(&p.Accession, &p.SecondaryAccessions, &p.EntryName, &p.Name, &p.Sequence,
		&p.TaxonomyID, &p.ProteomeID, &p.IsReviewed, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get protein: %w", err)
	}
	return &p, nil
}

func (s *Store) FindProteinsByAccessions(ctx context.Context, accessions []string, preferred string) ([]*store.Protein, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT accession, secondary_accessions, entry_name, name, sequence,
		       taxonomy_id, proteome_id, is_reviewed, updated_at
		FROM proteins
		WHERE accession = ANY($1)
		ORDER BY (accession = $2) DESC, accession`, accessions, preferred)
	if err != nil {
		return nil, fmt.Errorf("postgres: find proteins by accessions: %w", err)
	}
	defer rows.Close()

	var hits []*store.Protein
	for rows.Next() {
		var p store.Protein
		if err := rows.Scan(&p.Accession, &p.SecondaryAccessions, &p.EntryName, &p.Name, &p.Sequence,
			&p.TaxonomyID, &p.ProteomeID, &p.IsReviewed, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan protein: %w", err)
		}
		hits = append(hits, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: find proteins by accessions: %w", err)
	}
	return hits, nil
}

func (s *Store) CreateProtein(ctx context.Context, protein *store.Protein, peptides []store.Peptide, associations []store.ProteinPeptideAssociation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO proteins (accession, secondary_accessions, entry_name, name, sequence, taxonomy_id, proteome_id, is_reviewed, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		protein.Accession, protein.SecondaryAccessions, protein.EntryName, protein.Name, protein.Sequence,
		protein.TaxonomyID, protein.ProteomeID, protein.IsReviewed, protein.UpdatedAt); err != nil {
		return fmt.Errorf("postgres: insert protein: %w", err)
	}
	if err := insertPeptidesTx(ctx, tx, peptides); err != nil {
		return err
	}
	if err := insertAssociationsTx(ctx, tx, associations); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) UpdateProtein(ctx context.Context, protein *store.Protein, peptides []store.Peptide, associations []store.ProteinPeptideAssociation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE proteins SET secondary_accessions=$2, entry_name=$3, name=$4, sequence=$5,
			taxonomy_id=$6, proteome_id=$7, is_reviewed=$8, updated_at=$9
		WHERE accession=$1 AND updated_at < $9`,
		protein.Accession, protein.SecondaryAccessions, protein.EntryName, protein.Name, protein.Sequence,
		protein.TaxonomyID, protein.ProteomeID, protein.IsReviewed, protein.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: update protein: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}
	if err := insertPeptidesTx(ctx, tx, peptides); err != nil {
		return err
	}
	if err := insertAssociationsTx(ctx, tx, associations); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) DeleteProtein(ctx context.Context, accession string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM proteins WHERE accession = $1`, accession)
	if err != nil {
		return fmt.Errorf("postgres: delete protein: %w", err)
	}
	return nil
}

func insertPeptidesTx(ctx context.Context, tx pgx.Tx, peptides []store.Peptide) error {
	byPartition := make(map[int][]store.Peptide)
	for _, p := range peptides {
		byPartition[p.Partition] = append(byPartition[p.Partition], p)
	}
	columns := append([]string{"sequence", "weight", "number_of_missed_cleavages", "n_terminus", "c_terminus", "is_metadata_up_to_date"}, residueColumns()...)
	for partition, rows := range byPartition {
		source := pgx.CopyFromSlice(len(rows), func(i int) ([]interface{}, error) {
			p := rows[i]
			values := []interface{}{p.Sequence, p.Mass, p.NumberOfMissedCleavages, string(p.NTerminus), string(p.CTerminus), p.IsMetadataUpToDate}
			for _, c := range p.ResidueCounts {
				values = append(values, c)
			}
			return values, nil
		})
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{partitionTable(partition)}, columns, source); err != nil {
			return fmt.Errorf("postgres: copy peptides into partition %d: %w", partition, err)
		}
	}
	return nil
}

func insertAssociationsTx(ctx context.Context, tx pgx.Tx, associations []store.ProteinPeptideAssociation) error {
	source := pgx.CopyFromSlice(len(associations), func(i int) ([]interface{}, error) {
		a := associations[i]
		return []interface{}{a.ProteinAccession, a.PeptideSequence, a.PeptideMass, a.PeptidePartition}, nil
	})
	_, err := tx.CopyFrom(ctx, pgx.Identifier{"proteins_peptides"},
		[]string{"protein_accession", "peptide_sequence", "peptide_mass", "peptide_partition"}, source)
	if err != nil {
		return fmt.Errorf("postgres: copy associations: %w", err)
	}
	return nil
}

func (s *Store) GetPeptide(ctx context.Context, partition int, peptideMass int64, sequence string) (*store.Peptide, error) {
	query := fmt.Sprintf(`SELECT sequence, weight, number_of_missed_cleavages, n_terminus, c_terminus, is_metadata_up_to_date FROM %s WHERE weight = $1 AND sequence = $2`, partitionTable(partition))
	row := s.pool.QueryRow(ctx, query, peptideMass, sequence)
	var p store.Peptide
	var nTerm, cTerm string
	p.Partition = partition
	err := row.Scan(&p.Sequence, &p.Mass, &p.NumberOfMissedCleavages, &nTerm, &cTerm, &p.IsMetadataUpToDate)
	if len(nTerm) > 0 {
		p.NTerminus = nTerm[0]
	}
	if len(cTerm) > 0 {
		p.CTerminus = cTerm[0]
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get peptide: %w", err)
	}
	return &p, nil
}

func (s *Store) ExistingPeptides(ctx context.Context, candidates []store.Peptide) (map[string]bool, error) {
	byPartition := make(map[int][]store.Peptide)
	for _, c := range candidates {
		byPartition[c.Partition] = append(byPartition[c.Partition], c)
	}
	result := make(map[string]bool, len(candidates))
	for partition, rows := range byPartition {
		sequences := make([]string, len(rows))
		for i, r := range rows {
			sequences[i] = r.Sequence
		}
		query := fmt.Sprintf(`SELECT sequence, is_metadata_up_to_date FROM %s WHERE sequence = ANY($1)`, partitionTable(partition))
		fetched, err := s.pool.Query(ctx, query, sequences)
		if err != nil {
			return nil, fmt.Errorf("postgres: existing peptides in partition %d: %w", partition, err)
		}
		for fetched.Next() {
			var sequence string
			var upToDate bool
			if err := fetched.Scan(&sequence, &upToDate); err != nil {
				fetched.Close()
				return nil, fmt.Errorf("postgres: scan existing peptide: %w", err)
			}
			result[sequence] = upToDate
		}
		fetched.Close()
	}
	return result, nil
}

func (s *Store) InsertPeptides(ctx context.Context, peptides []store.Peptide) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)
	if err := insertPeptidesTx(ctx, tx, peptides); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) InsertAssociations(ctx context.Context, associations []store.ProteinPeptideAssociation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)
	if err := insertAssociationsTx(ctx, tx, associations); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) DeleteAssociations(ctx context.Context, proteinAccession string, sequences []string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM proteins_peptides WHERE protein_accession = $1 AND peptide_sequence = ANY($2)`, proteinAccession, sequences)
	if err != nil {
		return fmt.Errorf("postgres: delete associations: %w", err)
	}
	return nil
}

func (s *Store) CurrentPeptideAssociations(ctx context.Context, proteinAccession string) ([]store.ProteinPeptideAssociation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT protein_accession, peptide_sequence, peptide_mass, peptide_partition
		FROM proteins_peptides WHERE protein_accession = $1`, proteinAccession)
	if err != nil {
		return nil, fmt.Errorf("postgres: current associations: %w", err)
	}
	defer rows.Close()
	var out []store.ProteinPeptideAssociation
	for rows.Next() {
		var a store.ProteinPeptideAssociation
		if err := rows.Scan(&a.ProteinAccession, &a.PeptideSequence, &a.PeptideMass, &a.PeptidePartition); err != nil {
			return nil, fmt.Errorf("postgres: scan association: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) FlagPeptidesForMetadataUpdate(ctx context.Context, sequences []string) error {
	// Peptides are partitioned by mass, not known here, so every
	// partition table is touched; cheap because the predicate only
	// matches rows with a sequence in the (typically small) batch.
	partitions, err := s.PartitionBoundaries(ctx)
	if err != nil {
		return err
	}
	for i := range partitions {
		query := fmt.Sprintf(`UPDATE %s SET is_metadata_up_to_date = false WHERE sequence = ANY($1)`, partitionTable(i))
		if _, err := s.pool.Exec(ctx, query, sequences); err != nil {
			return fmt.Errorf("postgres: flag peptides in partition %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) PeptidesNeedingMetadataUpdate(ctx context.Context, limit int) ([]store.Peptide, error) {
	partitions, err := s.PartitionBoundaries(ctx)
	if err != nil {
		return nil, err
	}
	var out []store.Peptide
	for i := range partitions {
		if len(out) >= limit {
			break
		}
		query := fmt.Sprintf(`SELECT sequence, weight, number_of_missed_cleavages FROM %s WHERE is_metadata_up_to_date = false LIMIT $1`, partitionTable(i))
		rows, err := s.pool.Query(ctx, query, limit-len(out))
		if err != nil {
			return nil, fmt.Errorf("postgres: peptides needing metadata update in partition %d: %w", i, err)
		}
		for rows.Next() {
			var p store.Peptide
			p.Partition = i
			if err := rows.Scan(&p.Sequence, &p.Mass, &p.NumberOfMissedCleavages); err != nil {
				rows.Close()
				return nil, fmt.Errorf("postgres: scan stale peptide: %w", err)
			}
			out = append(out, p)
		}
		rows.Close()
	}
	return out, nil
}

func (s *Store) ComputeAndStorePeptideMetadata(ctx context.Context, sequence string) error {
	rows, err := s.pool.Query(ctx, `
		SELECT p.is_reviewed, p.taxonomy_id, p.proteome_id
		FROM proteins p
		INNER JOIN proteins_peptides pp ON pp.protein_accession = p.accession
		WHERE pp.peptide_sequence = $1`, sequence)
	if err != nil {
		return fmt.Errorf("postgres: collect metadata sources: %w", err)
	}
	var (
		isSwissprot     bool
		isTrembl        bool
		taxonomyCounts  = make(map[int]int)
		proteomeIDs     []string
		proteomeIDsSeen = make(map[string]bool)
	)
	for rows.Next() {
		var reviewed bool
		var taxonomyID int
		var proteomeID string
		if err := rows.Scan(&reviewed, &taxonomyID, &proteomeID); err != nil {
			rows.Close()
			return fmt.Errorf("postgres: scan metadata source: %w", err)
		}
		if reviewed {
			isSwissprot = true
		} else {
			isTrembl = true
		}
		taxonomyCounts[taxonomyID]++
		if proteomeID != "" && !proteomeIDsSeen[proteomeID] {
			proteomeIDsSeen[proteomeID] = true
			proteomeIDs = append(proteomeIDs, proteomeID)
		}
	}
	rows.Close()

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
	sort.Strings(proteomeIDs)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin metadata update: %w", err)
	}
	defer tx.Rollback(ctx)

	partitions, err := s.PartitionBoundaries(ctx)
	if err != nil {
		return err
	}
	for i := range partitions {
		query := fmt.Sprintf(`
			UPDATE %s SET is_metadata_up_to_date = true,
				is_swissprot = $2, is_trembl = $3, taxonomy_ids = $4, unique_taxonomy_ids = $5, proteome_ids = $6
			WHERE sequence = $1`, partitionTable(i))
		if _, err := tx.Exec(ctx, query, sequence, isSwissprot, isTrembl, taxonomyIDs, uniqueTaxonomyIDs, proteomeIDs); err != nil {
			return fmt.Errorf("postgres: update peptide metadata in partition %d: %w", i, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) SelectPeptides(ctx context.Context, sqlWhere string, args []interface{}, partitions []int, limit int) ([]store.Peptide, error) {
	scan := partitions
	if len(scan) == 0 {
		boundaries, err := s.PartitionBoundaries(ctx)
		if err != nil {
			return nil, err
		}
		scan = make([]int, len(boundaries))
		for i := range boundaries {
			scan[i] = i
		}
	}
	var out []store.Peptide
	for _, i := range scan {
		if len(out) >= limit {
			break
		}
		query := fmt.Sprintf(`SELECT sequence, weight, number_of_missed_cleavages, n_terminus, c_terminus FROM %s WHERE %s LIMIT %d`,
			partitionTable(i), sqlWhere, limit-len(out))
		rows, err := s.pool.Query(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("postgres: select peptides in partition %d: %w", i, err)
		}
		for rows.Next() {
			var p store.Peptide
			var nTerm, cTerm string
			p.Partition = i
			if err := rows.Scan(&p.Sequence, &p.Mass, &p.NumberOfMissedCleavages, &nTerm, &cTerm); err != nil {
				rows.Close()
				return nil, fmt.Errorf("postgres: scan selected peptide: %w", err)
			}
			if len(nTerm) > 0 {
				p.NTerminus = nTerm[0]
			}
			if len(cTerm) > 0 {
				p.CTerminus = cTerm[0]
			}
			out = append(out, p)
		}
		rows.Close()
	}
	return out, nil
}

func (s *Store) ReplaceTaxonomies(ctx context.Context, taxonomies []store.Taxonomy) error {
	source := pgx.CopyFromSlice(len(taxonomies), func(i int) ([]interface{}, error) {
		t := taxonomies[i]
		return []interface{}{t.ID, t.Parent, t.Name, t.Rank}, nil
	})
	_, err := s.pool.CopyFrom(ctx, pgx.Identifier{"taxonomies"}, []string{"id", "parent_id", "name", "rank"}, source)
	if err != nil {
		return fmt.Errorf("postgres: replace taxonomies: %w", err)
	}
	return nil
}

func (s *Store) ReplaceTaxonomyMerges(ctx context.Context, merges []store.TaxonomyMerge) error {
	source := pgx.CopyFromSlice(len(merges), func(i int) ([]interface{}, error) {
		m := merges[i]
		return []interface{}{m.OldID, m.NewID}, nil
	})
	_, err := s.pool.CopyFrom(ctx, pgx.Identifier{"taxonomy_merges"}, []string{"source_id", "target_id"}, source)
	if err != nil {
		return fmt.Errorf("postgres: replace taxonomy merges: %w", err)
	}
	return nil
}

func (s *Store) ResolveTaxonomyMerge(ctx context.Context, taxonomyID int) (int, error) {
	current := taxonomyID
	for i := 0; i < 64; i++ {
		row := s.pool.QueryRow(ctx, `SELECT target_id FROM taxonomy_merges WHERE source_id = $1`, current)
		var next int
		err := row.Scan(&next)
		if errors.Is(err, pgx.ErrNoRows) {
			return current, nil
		}
		if err != nil {
			return 0, fmt.Errorf("postgres: resolve taxonomy merge: %w", err)
		}
		current = next
	}
	return current, nil
}

func (s *Store) PartitionBoundaries(ctx context.Context) ([]int64, error) {
	value, err := s.Statistic(ctx, store.PartitionBoundaryKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var boundaries []int64
	for _, part := range strings.Split(value, ",") {
		if part == "" {
			continue
		}
		var b int64
		if _, err := fmt.Sscan(part, &b); err != nil {
			return nil, fmt.Errorf("postgres: parse partition boundary %q: %w", part, err)
		}
		boundaries = append(boundaries, b)
	}
	return boundaries, nil
}

func (s *Store) SetPartitionBoundaries(ctx context.Context, boundaries []int64) error {
	parts := make([]string, len(boundaries))
	for i, b := range boundaries {
		parts[i] = fmt.Sprintf("%d", b)
	}
	return s.SetStatistic(ctx, store.PartitionBoundaryKey, strings.Join(parts, ","))
}

func (s *Store) Statistic(ctx context.Context, key string) (string, error) {
	row := s.pool.QueryRow(ctx, `SELECT value FROM maintenance_information WHERE key = $1`, key)
	var value string
	err := row.Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres: get statistic: %w", err)
	}
	return value, nil
}

func (s *Store) SetStatistic(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO maintenance_information (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("postgres: set statistic: %w", err)
	}
	return nil
}

var _ store.Store = (*Store)(nil)
