package taxonomy

import (
	"strings"
	"testing"
)

const nodesSample = "9606\t|\t9605\t|\tspecies\t|\n9605\t|\t1\t|\tgenus\t|\n"
const namesSample = "9606\t|\tHomo sapiens\t|\t\t|\tscientific name\t|\n9606\t|\thuman\t|\t\t|\tgenbank common name\t|\n"
const mergedSample = "1234\t|\t9606\t|\n"

func TestLoadNodesAndNames(t *testing.T) {
	taxonomies, err := LoadNodes(strings.NewReader(nodesSample))
	if err != nil {
		t.Fatalf("LoadNodes: %v", err)
	}
	if len(taxonomies) != 2 {
		t.Fatalf("expected 2 taxonomies, got %d", len(taxonomies))
	}
	if err := LoadNames(strings.NewReader(namesSample), taxonomies); err != nil {
		t.Fatalf("LoadNames: %v", err)
	}
	if taxonomies[9606].Name != "Homo sapiens" {
		t.Fatalf("expected scientific name to be assigned, got %q", taxonomies[9606].Name)
	}
	if taxonomies[9605].Name != "" {
		t.Fatalf("taxonomy with no matching name line should stay unnamed, got %q", taxonomies[9605].Name)
	}
}

func TestLoadMerges(t *testing.T) {
	merges, err := LoadMerges(strings.NewReader(mergedSample))
	if err != nil {
		t.Fatalf("LoadMerges: %v", err)
	}
	if len(merges) != 1 || merges[0].OldID != 1234 || merges[0].NewID != 9606 {
		t.Fatalf("unexpected merges: %+v", merges)
	}
}
