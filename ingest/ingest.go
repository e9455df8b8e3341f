/*
Package ingest implements the protein digestion pipeline: proteins
stream in from bio/uniprot, each is split into peptides by a digest.Enzyme,
and the protein plus its new peptides and associations are written to a
store.Store, with a soft-error retry ladder for transient failures and an
unprocessable-protein log for failures that exhaust it.

Grounded on
original_source/macpepdb/tasks/database_maintenance/multiprocessing/protein_digestion_process.py's
run loop and unsolvable-error-factor retry policy, restructured onto
goroutines, channels, and a supervisor.Supervisor per spec.md §9.
*/
package ingest

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/macpepdb/macpepdb-go/bio/uniprot"
	"github.com/macpepdb/macpepdb-go/digest"
	"github.com/macpepdb/macpepdb-go/mass"
	"github.com/macpepdb/macpepdb-go/store"
	"github.com/macpepdb/macpepdb-go/supervisor"
)

// ErrorClass classifies a store error for the retry ladder: some errors
// (a unique constraint race between concurrent workers) are expected and
// cheap to retry; others (deadlocks) need a backoff; everything else is
// treated as unsolvable on the first occurrence.
type ErrorClass int

const (
	ClassUniqueViolation ErrorClass = iota
	ClassDeadlock
	ClassOther
)

// Classifier maps a store error to its retry class. store/postgres
// supplies one that inspects pgconn.PgError codes; the default treats
// every error as unsolvable, appropriate for store.Store implementations
// (like memstore) that do not model transient failures.
type Classifier func(error) ErrorClass

// DefaultClassifier treats every error as unsolvable.
func DefaultClassifier(error) ErrorClass {
	return ClassOther
}

// unsolvableErrorFactorLimit is the accumulated factor at which a
// protein is given up on and logged as unprocessable. Mirrors the
// original's UNSOLVEABLE_ERROR_FACTOR_LIMIT = 2.
const unsolvableErrorFactorLimit = 2.0

// Options configures a Pipeline.
type Options struct {
	Store           store.Store
	Enzyme          *digest.Enzyme
	Supervisor      *supervisor.Supervisor
	NumberOfWorkers int
	Classifier      Classifier
	Boundaries      []int64
	// Unprocessable receives one formatted line per protein that
	// exhausts the retry ladder.
	Unprocessable func(line string)
}

// Pipeline digests and persists a stream of proteins.
type Pipeline struct {
	opts Options
}

// New builds a Pipeline from Options, filling in defaults.
func New(opts Options) *Pipeline {
	if opts.Classifier == nil {
		opts.Classifier = DefaultClassifier
	}
	if opts.NumberOfWorkers <= 0 {
		opts.NumberOfWorkers = 1
	}
	if opts.Unprocessable == nil {
		opts.Unprocessable = func(string) {}
	}
	return &Pipeline{opts: opts}
}

// Run fans proteins out to NumberOfWorkers goroutines until the channel
// is closed or ctx (typically p.Supervisor.Context()) is cancelled.
func (p *Pipeline) Run(ctx context.Context, proteins <-chan *uniprot.Protein) error {
	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < p.opts.NumberOfWorkers; i++ {
		group.Go(func() error {
			return p.worker(groupCtx, proteins)
		})
	}
	return group.Wait()
}

func (p *Pipeline) worker(ctx context.Context, proteins <-chan *uniprot.Protein) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case protein, ok := <-proteins:
			if !ok {
				return nil
			}
			p.processWithRetry(ctx, protein)
		}
	}
}

// processWithRetry persists one protein, retrying transient failures per
// the soft-error ladder, and logging + giving up once the accumulated
// error factor reaches unsolvableErrorFactorLimit.
func (p *Pipeline) processWithRetry(ctx context.Context, protein *uniprot.Protein) {
	factor := 0.0
	for {
		err := p.process(ctx, protein)
		if err == nil {
			return
		}
		switch p.opts.Classifier(err) {
		case ClassUniqueViolation:
			factor += 0.2
		case ClassDeadlock:
			factor += 1
			time.Sleep(time.Duration(5*factor)*time.Second + time.Duration(rand.Intn(6))*time.Second)
		default:
			factor += unsolvableErrorFactorLimit
		}
		if factor >= unsolvableErrorFactorLimit {
			p.opts.Supervisor.Stats.AddFatalErrors(1)
			p.opts.Unprocessable(fmt.Sprintf("%s\t%s\t%v", protein.PrimaryAccession, protein.Sequence, err))
			p.opts.Supervisor.Logf("protein %s exhausted retry ladder: %v", protein.PrimaryAccession, err)
			return
		}
	}
}

// process digests a single protein and either creates or (per spec.md
// §4.5 step 2) updates the existing protein row, including the
// merge-vs-update branch: it first looks up every stored protein reachable
// by P_new's primary accession or any of its secondary accessions. If the
// first such hit already carries P_new's own primary accession, the
// remaining hits are absorbed merges — they are deleted (dropping their
// associations without transferring them to P_new; deliberate, see
// DESIGN.md open question #2) and the matching row is updated in place.
// Otherwise every hit was reachable only via a secondary accession, i.e.
// all of them are being merged into a brand new P_new row: they are
// deleted and P_new is created fresh.
func (p *Pipeline) process(ctx context.Context, protein *uniprot.Protein) error {
	peptides := p.opts.Enzyme.Digest(protein.Sequence)
	storedPeptides, associations := p.toStoreEntities(protein, peptides)

	searchSet := append([]string{protein.PrimaryAccession}, protein.SecondaryAccessions...)
	hits, err := p.opts.Store.FindProteinsByAccessions(ctx, searchSet, protein.PrimaryAccession)
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		if err := p.createNew(ctx, protein, storedPeptides, associations); err != nil {
			return err
		}
		p.opts.Supervisor.Stats.AddProteinsCreated(1)
		return nil
	}

	first := hits[0]
	if first.Accession == protein.PrimaryAccession {
		for _, merged := range hits[1:] {
			if err := p.opts.Store.DeleteProtein(ctx, merged.Accession); err != nil {
				return err
			}
		}
		if !protein.LastUpdate.After(first.UpdatedAt) {
			return nil
		}
		return p.updateExisting(ctx, protein, storedPeptides, associations)
	}

	for _, merged := range hits {
		if err := p.opts.Store.DeleteProtein(ctx, merged.Accession); err != nil {
			return err
		}
	}
	if err := p.createNew(ctx, protein, storedPeptides, associations); err != nil {
		return err
	}
	p.opts.Supervisor.Stats.AddProteinsCreated(1)
	return nil
}

func (p *Pipeline) toStoreEntities(protein *uniprot.Protein, peptides []digest.Peptide) ([]store.Peptide, []store.ProteinPeptideAssociation) {
	storedPeptides := make([]store.Peptide, len(peptides))
	associations := make([]store.ProteinPeptideAssociation, len(peptides))
	for i, pep := range peptides {
		peptideMass := mass.PeptideMass(pep.Sequence)
		partition := store.PartitionFor(peptideMass, p.opts.Boundaries)
		storedPeptides[i] = store.Peptide{
			Sequence:                pep.Sequence,
			Mass:                    peptideMass,
			Partition:               partition,
			NumberOfMissedCleavages: pep.NumberOfMissedCleavages,
			ResidueCounts:           mass.CountResidues(pep.Sequence),
			NTerminus:               pep.Sequence[0],
			CTerminus:               pep.Sequence[len(pep.Sequence)-1],
			IsMetadataUpToDate:      false,
		}
		associations[i] = store.ProteinPeptideAssociation{
			ProteinAccession: protein.PrimaryAccession,
			PeptideSequence:  pep.Sequence,
			PeptideMass:      peptideMass,
			PeptidePartition: partition,
		}
	}
	return storedPeptides, associations
}

func (p *Pipeline) createNew(ctx context.Context, protein *uniprot.Protein, peptides []store.Peptide, associations []store.ProteinPeptideAssociation) error {
	existingBySequence, err := p.opts.Store.ExistingPeptides(ctx, peptides)
	if err != nil {
		return err
	}
	var genuinelyNew []store.Peptide
	var staleSequences []string
	for _, pep := range peptides {
		isUpToDate, exists := existingBySequence[pep.Sequence]
		if !exists {
			genuinelyNew = append(genuinelyNew, pep)
			continue
		}
		if isUpToDate {
			staleSequences = append(staleSequences, pep.Sequence)
		}
	}
	storeProtein := toStoreProtein(protein)
	if err := p.opts.Store.CreateProtein(ctx, storeProtein, genuinelyNew, associations); err != nil {
		return err
	}
	p.opts.Supervisor.Stats.AddPeptidesCreated(int64(len(genuinelyNew)))
	if len(staleSequences) > 0 {
		if err := p.opts.Store.FlagPeptidesForMetadataUpdate(ctx, staleSequences); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) updateExisting(ctx context.Context, protein *uniprot.Protein, peptides []store.Peptide, associations []store.ProteinPeptideAssociation) error {
	current, err := p.opts.Store.CurrentPeptideAssociations(ctx, protein.PrimaryAccession)
	if err != nil {
		return err
	}
	newSequences := make(map[string]bool, len(peptides))
	for _, pep := range peptides {
		newSequences[pep.Sequence] = true
	}

	var obsolete []string
	for _, assoc := range current {
		if !newSequences[assoc.PeptideSequence] {
			obsolete = append(obsolete, assoc.PeptideSequence)
		}
	}
	currentSequences := make(map[string]bool, len(current))
	for _, assoc := range current {
		currentSequences[assoc.PeptideSequence] = true
	}

	var stillNewPeptides []store.Peptide
	var stillNewAssociations []store.ProteinPeptideAssociation
	for i, pep := range peptides {
		if !currentSequences[pep.Sequence] {
			stillNewPeptides = append(stillNewPeptides, pep)
			stillNewAssociations = append(stillNewAssociations, associations[i])
		}
	}

	if len(obsolete) > 0 {
		if err := p.opts.Store.DeleteAssociations(ctx, protein.PrimaryAccession, obsolete); err != nil {
			return err
		}
		if err := p.opts.Store.FlagPeptidesForMetadataUpdate(ctx, obsolete); err != nil {
			return err
		}
	}

	existingBySequence, err := p.opts.Store.ExistingPeptides(ctx, stillNewPeptides)
	if err != nil {
		return err
	}
	var genuinelyNew []store.Peptide
	var staleSequences []string
	for _, pep := range stillNewPeptides {
		isUpToDate, exists := existingBySequence[pep.Sequence]
		if !exists {
			genuinelyNew = append(genuinelyNew, pep)
			continue
		}
		if isUpToDate {
			staleSequences = append(staleSequences, pep.Sequence)
		}
	}

	storeProtein := toStoreProtein(protein)
	if err := p.opts.Store.UpdateProtein(ctx, storeProtein, genuinelyNew, stillNewAssociations); err != nil {
		return err
	}
	p.opts.Supervisor.Stats.AddPeptidesCreated(int64(len(genuinelyNew)))
	if len(staleSequences) > 0 {
		if err := p.opts.Store.FlagPeptidesForMetadataUpdate(ctx, staleSequences); err != nil {
			return err
		}
	}
	return nil
}

func toStoreProtein(protein *uniprot.Protein) *store.Protein {
	return &store.Protein{
		Accession:           protein.PrimaryAccession,
		SecondaryAccessions: protein.SecondaryAccessions,
		EntryName:           protein.EntryName,
		Name:                protein.Name,
		Sequence:            protein.Sequence,
		TaxonomyID:          protein.TaxonomyID,
		ProteomeID:          protein.ProteomeID,
		IsReviewed:          protein.IsReviewed,
		UpdatedAt:           protein.LastUpdate,
	}
}
