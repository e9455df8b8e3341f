package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/macpepdb/macpepdb-go/bio/uniprot"
	"github.com/macpepdb/macpepdb-go/config"
	"github.com/macpepdb/macpepdb-go/digest"
	"github.com/macpepdb/macpepdb-go/ingest"
	"github.com/macpepdb/macpepdb-go/metadata"
	"github.com/macpepdb/macpepdb-go/store"
	"github.com/macpepdb/macpepdb-go/store/postgres"
	"github.com/macpepdb/macpepdb-go/supervisor"
)

// databaseStatus is the JSON value stored under maintenance_information's
// "database_status" key (spec.md §3).
type databaseStatus struct {
	MaintenanceMode bool   `json:"maintenance_mode"`
	LastUpdate      int64  `json:"last_update"`
	Status          string `json:"status"`
}

// digestionParameters is the JSON value stored under
// maintenance_information's "digestion_parameters" key (spec.md §3),
// recorded so a later run can detect a mismatched enzyme configuration.
type digestionParameters struct {
	EnzymeName         string `json:"enzyme_name"`
	MaxMissedCleavages int    `json:"max_missed_cleavages"`
	MinLen             int    `json:"min_len"`
	MaxLen             int    `json:"max_len"`
}

func databaseCommand() *cli.Command {
	return &cli.Command{
		Name:  "database",
		Usage: "Digest protein files and ingest them, then refresh peptide metadata.",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "UniProt flat-file(s) to ingest. Repeatable.",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			return runDatabase(c.Context, cfg, c.StringSlice("input"))
		},
	}
}

func runDatabase(ctx context.Context, cfg config.Config, inputs []string) error {
	st, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := ensurePartitionBoundaries(ctx, st, cfg.Database.NumberOfPartitions); err != nil {
		return err
	}
	boundaries, err := st.PartitionBoundaries(ctx)
	if err != nil {
		return err
	}

	enzyme, ok := digest.ByName(cfg.Digestion.Enzyme, cfg.Digestion.MaximumMissedCleavages,
		cfg.Digestion.MinimumPeptideLength, cfg.Digestion.MaximumPeptideLength)
	if !ok {
		return fmt.Errorf("database: unknown enzyme %q (known: %v)", cfg.Digestion.Enzyme, digest.KnownEnzymeNames())
	}
	if err := recordDigestionParameters(ctx, st, cfg); err != nil {
		return err
	}

	if err := setMaintenanceMode(ctx, st, true); err != nil {
		return err
	}
	bannerf("maintenance mode enabled, digesting %d input file(s)", len(inputs))

	logPath := cfg.Pipeline.LogFile
	if logPath == "" {
		logPath = filepath.Join(os.TempDir(), "macpepdb-digest.log")
	}
	sup, err := supervisor.New(ctx, logPath)
	if err != nil {
		return err
	}
	defer sup.StopLogging()

	// Restartable error recovery (spec.md §4.5): rerun the pipeline over
	// the previous attempt's unprocessable log with N/3 workers (minimum
	// 1), until an iteration produces zero fatal errors.
	workers := cfg.Pipeline.NumberOfWorkers
	attempt := 1
	currentInputs := inputs
	for {
		unprocessablePath := unprocessableLogPath(cfg.Pipeline.UnprocessableLog, attempt)
		fatal, err := runDigestionAttempt(sup.Context(), st, enzyme, sup, workers, boundaries, currentInputs, unprocessablePath)
		if err != nil {
			return err
		}
		if fatal == 0 {
			break
		}
		workers = maxInt(cfg.Pipeline.NumberOfWorkers/3, 1)
		bannerf("attempt %d produced %d unprocessable protein(s), retrying with %d worker(s)", attempt, fatal, workers)
		currentInputs = []string{unprocessablePath}
		attempt++
	}

	bannerf("digestion complete, collecting peptide metadata")
	collector := metadata.New(metadata.Options{
		Store:           st,
		Supervisor:      sup,
		NumberOfWorkers: cfg.Pipeline.NumberOfWorkers,
	})
	if err := collector.Run(sup.Context()); err != nil {
		return fmt.Errorf("database: metadata collection: %w", err)
	}

	if err := setMaintenanceMode(ctx, st, false); err != nil {
		return err
	}
	bannerf("maintenance mode cleared")
	return nil
}

// runDigestionAttempt streams every protein in inputs through one
// ingest.Pipeline run, logging unprocessable records to unprocessablePath,
// and returns the number of proteins that exhausted the retry ladder
// during this attempt.
func runDigestionAttempt(ctx context.Context, st *postgres.Store, enzyme *digest.Enzyme, sup *supervisor.Supervisor, workers int, boundaries []int64, inputs []string, unprocessablePath string) (int64, error) {
	unprocessableFile, err := os.Create(unprocessablePath)
	if err != nil {
		return 0, fmt.Errorf("database: create unprocessable log: %w", err)
	}
	defer unprocessableFile.Close()
	writer := bufio.NewWriter(unprocessableFile)
	defer writer.Flush()

	pipeline := ingest.New(ingest.Options{
		Store:           st,
		Enzyme:          enzyme,
		Supervisor:      sup,
		NumberOfWorkers: workers,
		Classifier:      postgres.Classify,
		Boundaries:      boundaries,
		Unprocessable: func(line string) {
			fmt.Fprintln(writer, line)
		},
	})

	readers := make([]io.Reader, 0, len(inputs))
	var files []*os.File
	for _, path := range inputs {
		f, err := os.Open(path)
		if err != nil {
			return 0, fmt.Errorf("database: open input %s: %w", path, err)
		}
		files = append(files, f)
		readers = append(readers, f)
	}
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	_, _, before := sup.Stats.Snapshot()

	proteins := make(chan *uniprot.Protein, 3*workers)
	errCh := make(chan error, 1)
	go func() {
		errCh <- uniprot.ManyToChannel(ctx, proteins, readers...)
	}()

	if err := pipeline.Run(ctx, proteins); err != nil {
		return 0, fmt.Errorf("database: pipeline run: %w", err)
	}
	if err := <-errCh; err != nil {
		return 0, fmt.Errorf("database: read inputs: %w", err)
	}

	_, _, after := sup.Stats.Snapshot()
	return after - before, nil
}

func unprocessableLogPath(base string, attempt int) string {
	if base == "" {
		base = filepath.Join(os.TempDir(), "macpepdb-unprocessable.log")
	}
	return fmt.Sprintf("%s.%d", base, attempt)
}

func ensurePartitionBoundaries(ctx context.Context, st store.Store, numberOfPartitions int) error {
	existing, err := st.PartitionBoundaries(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	return st.SetPartitionBoundaries(ctx, store.DefaultBoundaries(numberOfPartitions))
}

func recordDigestionParameters(ctx context.Context, st store.Store, cfg config.Config) error {
	params := digestionParameters{
		EnzymeName:         cfg.Digestion.Enzyme,
		MaxMissedCleavages: cfg.Digestion.MaximumMissedCleavages,
		MinLen:             cfg.Digestion.MinimumPeptideLength,
		MaxLen:             cfg.Digestion.MaximumPeptideLength,
	}
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return st.SetStatistic(ctx, "digestion_parameters", string(data))
}

func setMaintenanceMode(ctx context.Context, st store.Store, enabled bool) error {
	status := databaseStatus{
		MaintenanceMode: enabled,
		LastUpdate:      time.Now().Unix(),
	}
	if enabled {
		status.Status = "maintenance"
	} else {
		status.Status = "ready"
	}
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return st.SetStatistic(ctx, "database_status", string(data))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
