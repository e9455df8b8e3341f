package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/macpepdb/macpepdb-go/config"
	"github.com/macpepdb/macpepdb-go/store"
	"github.com/macpepdb/macpepdb-go/store/postgres"
)

// statisticsCommand prints a human summary of the running (or most
// recently finished) database/digestion job: the maintenance_information
// status and digestion parameters it was configured with. Supplemented
// from original_source/macpepdb/tasks/statistics.py; named as a CLI
// collaborator in spec.md §6.
func statisticsCommand() *cli.Command {
	return &cli.Command{
		Name:  "statistics",
		Usage: "Print a summary of the database's maintenance status and digestion progress.",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			return runStatistics(c.Context, cfg)
		},
	}
}

func runStatistics(ctx context.Context, cfg config.Config) error {
	st, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer st.Close()

	bannerf("database status")
	if err := printStatistic(ctx, st, "database_status", &databaseStatus{}); err != nil {
		return err
	}
	bannerf("digestion parameters")
	if err := printStatistic(ctx, st, "digestion_parameters", &digestionParameters{}); err != nil {
		return err
	}

	boundaries, err := st.PartitionBoundaries(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  partitions: %d\n", len(boundaries))
	return nil
}

// printStatistic reads the maintenance_information value under key,
// unmarshals it into out, and prints its fields. A missing key prints a
// "not recorded" line rather than failing the whole command, since a
// freshly initialized database has no digestion history yet.
func printStatistic(ctx context.Context, st store.Store, key string, out interface{}) error {
	raw, err := st.Statistic(ctx, key)
	if err == store.ErrNotFound {
		fmt.Printf("  %s: not recorded\n", key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("statistics: read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("statistics: parse %s: %w", key, err)
	}
	fmt.Printf("  %s: %+v\n", key, derefStruct(out))
	return nil
}

func derefStruct(v interface{}) interface{} {
	switch t := v.(type) {
	case *databaseStatus:
		return *t
	case *digestionParameters:
		return *t
	default:
		return v
	}
}
