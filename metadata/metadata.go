/*
Package metadata implements the peptide metadata collector: it pulls
peptides flagged stale (is_metadata_up_to_date = false) in batches,
recomputes their aggregated SwissProt/TrEMBL review status and
taxonomy/proteome membership across every protein that produces them,
and flips the flag back once stored.

Grounded on
original_source/macpepdb/tasks/database_maintenance/peptide_metadata_collector.py,
restructured onto a supervisor.Supervisor-driven worker pool.
*/
package metadata

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/macpepdb/macpepdb-go/store"
	"github.com/macpepdb/macpepdb-go/supervisor"
)

// BatchSize is the number of stale peptides fetched per round, per
// spec.md §4.10's "batches of 100".
const BatchSize = 100

// Options configures a Collector.
type Options struct {
	Store           store.Store
	Supervisor      *supervisor.Supervisor
	NumberOfWorkers int
}

// Collector drives the metadata recomputation loop until no stale
// peptides remain or its context is cancelled.
type Collector struct {
	opts Options
}

// New builds a Collector, defaulting NumberOfWorkers to 1.
func New(opts Options) *Collector {
	if opts.NumberOfWorkers <= 0 {
		opts.NumberOfWorkers = 1
	}
	return &Collector{opts: opts}
}

// Run repeatedly fetches a batch of stale peptides and recomputes their
// metadata across a worker pool, until a batch comes back empty or ctx
// is cancelled.
func (c *Collector) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := c.opts.Store.PeptidesNeedingMetadataUpdate(ctx, BatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		if err := c.processBatch(ctx, batch); err != nil {
			return err
		}
	}
}

func (c *Collector) processBatch(ctx context.Context, batch []store.Peptide) error {
	work := make(chan store.Peptide)
	group, groupCtx := errgroup.WithContext(ctx)

	for i := 0; i < c.opts.NumberOfWorkers; i++ {
		group.Go(func() error {
			for {
				select {
				case <-groupCtx.Done():
					return groupCtx.Err()
				case peptide, ok := <-work:
					if !ok {
						return nil
					}
					if err := c.opts.Store.ComputeAndStorePeptideMetadata(groupCtx, peptide.Sequence); err != nil {
						return err
					}
					c.opts.Supervisor.Logf("updated metadata for %s", peptide.Sequence)
				}
			}
		})
	}

	group.Go(func() error {
		defer close(work)
		for _, peptide := range batch {
			select {
			case work <- peptide:
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		}
		return nil
	})

	return group.Wait()
}
