package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  url: "postgres://localhost/macpepdb"
  number_of_partitions: 50
digestion:
  maximum_missed_cleavages: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.URL != "postgres://localhost/macpepdb" {
		t.Fatalf("unexpected database url: %s", cfg.Database.URL)
	}
	if cfg.Database.NumberOfPartitions != 50 {
		t.Fatalf("unexpected partition count: %d", cfg.Database.NumberOfPartitions)
	}
	if cfg.Digestion.Enzyme != "trypsin" {
		t.Fatalf("expected default enzyme to survive override, got %s", cfg.Digestion.Enzyme)
	}
	if cfg.Digestion.MaximumMissedCleavages != 3 {
		t.Fatalf("unexpected missed cleavages: %d", cfg.Digestion.MaximumMissedCleavages)
	}
}
