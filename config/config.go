/*
Package config loads the YAML configuration file MaCPepDB-Go's CLI
commands run against: database connection parameters, digestion
settings, and pipeline worker counts.
*/
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Database holds PostgreSQL connection parameters.
type Database struct {
	URL                string `yaml:"url"`
	MaxConnections     int    `yaml:"max_connections"`
	NumberOfPartitions int    `yaml:"number_of_partitions"`
}

// Digestion holds the enzyme and length constraints applied by ingest.
type Digestion struct {
	Enzyme               string `yaml:"enzyme"`
	MaximumMissedCleavages int  `yaml:"maximum_missed_cleavages"`
	MinimumPeptideLength int    `yaml:"minimum_peptide_length"`
	MaximumPeptideLength int    `yaml:"maximum_peptide_length"`
}

// Pipeline holds worker-pool sizing shared by ingest and metadata.
type Pipeline struct {
	NumberOfWorkers int    `yaml:"number_of_workers"`
	LogFile         string `yaml:"log_file"`
	UnprocessableLog string `yaml:"unprocessable_log"`
}

// Config is the top-level configuration document.
type Config struct {
	Database  Database  `yaml:"database"`
	Digestion Digestion `yaml:"digestion"`
	Pipeline  Pipeline  `yaml:"pipeline"`
}

// Default returns a Config populated with the same defaults the original
// macpepdb CLI shipped with (trypsin, up to 2 missed cleavages, 5 to 60
// residues, 4 pipeline workers).
func Default() Config {
	return Config{
		Database: Database{
			MaxConnections:     10,
			NumberOfPartitions: 100,
		},
		Digestion: Digestion{
			Enzyme:                 "trypsin",
			MaximumMissedCleavages: 2,
			MinimumPeptideLength:   5,
			MaximumPeptideLength:   60,
		},
		Pipeline: Pipeline{
			NumberOfWorkers: 4,
		},
	}
}

// Load reads and parses a YAML configuration file at path, starting
// from Default() so unset fields keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
