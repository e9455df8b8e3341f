package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/macpepdb/macpepdb-go/config"
	"github.com/macpepdb/macpepdb-go/store/postgres"
	"github.com/macpepdb/macpepdb-go/taxonomy"
)

// taxonomyCommand replaces the stored taxonomy tree and merge table from
// an NCBI taxonomy dump (nodes.dmp, names.dmp, merged.dmp), per spec.md
// §6's "taxonomy" collaborator and the taxonomy package's loaders.
func taxonomyCommand() *cli.Command {
	return &cli.Command{
		Name:  "taxonomy",
		Usage: "Load an NCBI taxonomy dump (nodes.dmp, names.dmp, merged.dmp) into the database.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "nodes", Usage: "Path to nodes.dmp.", Required: true},
			&cli.StringFlag{Name: "names", Usage: "Path to names.dmp.", Required: true},
			&cli.StringFlag{Name: "merged", Usage: "Path to merged.dmp."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			return runTaxonomy(c.Context, cfg, c.String("nodes"), c.String("names"), c.String("merged"))
		},
	}
}

func runTaxonomy(ctx context.Context, cfg config.Config, nodesPath, namesPath, mergedPath string) error {
	st, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer st.Close()

	nodes, err := os.Open(nodesPath)
	if err != nil {
		return fmt.Errorf("taxonomy: open nodes.dmp: %w", err)
	}
	defer nodes.Close()
	taxonomies, err := taxonomy.LoadNodes(nodes)
	if err != nil {
		return err
	}

	names, err := os.Open(namesPath)
	if err != nil {
		return fmt.Errorf("taxonomy: open names.dmp: %w", err)
	}
	defer names.Close()
	if err := taxonomy.LoadNames(names, taxonomies); err != nil {
		return err
	}

	if err := st.ReplaceTaxonomies(ctx, taxonomy.ToSlice(taxonomies)); err != nil {
		return err
	}
	bannerf("loaded %d taxonomy nodes", len(taxonomies))

	if mergedPath == "" {
		return nil
	}
	merged, err := os.Open(mergedPath)
	if err != nil {
		return fmt.Errorf("taxonomy: open merged.dmp: %w", err)
	}
	defer merged.Close()
	merges, err := taxonomy.LoadMerges(merged)
	if err != nil {
		return err
	}
	if err := st.ReplaceTaxonomyMerges(ctx, merges); err != nil {
		return err
	}
	bannerf("loaded %d taxonomy merges", len(merges))
	return nil
}
