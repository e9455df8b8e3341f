/*
Package taxonomy loads an NCBI taxonomy dump (nodes.dmp, names.dmp,
merged.dmp) into the store.Taxonomy and store.TaxonomyMerge rows a
store.Store persists.

Grounded on
original_source/src/macpepdb/tasks/database_maintenance/taxonomy_tree.py's
dmp-line parsing (pipe-delimited, trailing empty field stripped) and
original_source/src/macpepdb/models/taxonomy.py's TaxonomyRank.
*/
package taxonomy

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/macpepdb/macpepdb-go/store"
)

// splitDmpLine splits one line of an NCBI .dmp file on "|", trimming
// surrounding whitespace from each field and dropping the trailing
// empty field every .dmp line ends with.
func splitDmpLine(line string) []string {
	fields := strings.Split(line, "|")
	if len(fields) > 0 {
		fields = fields[:len(fields)-1]
	}
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

// LoadNodes reads nodes.dmp, returning a taxonomy id -> (parentID, rank)
// map. Names are populated afterward by LoadNames since they live in a
// separate file.
func LoadNodes(r io.Reader) (map[int]store.Taxonomy, error) {
	taxonomies := make(map[int]store.Taxonomy)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := splitDmpLine(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("taxonomy: malformed nodes.dmp line: %q", line)
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("taxonomy: invalid taxonomy id in nodes.dmp: %w", err)
		}
		parentID, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("taxonomy: invalid parent id in nodes.dmp: %w", err)
		}
		taxonomies[id] = store.Taxonomy{ID: id, Parent: parentID, Rank: fields[2]}
	}
	return taxonomies, scanner.Err()
}

// LoadNames reads names.dmp and assigns the scientific name onto every
// entry already present in taxonomies (built by LoadNodes). Entries with
// no matching node are skipped, mirroring the original's "no name was
// found" diagnostic log rather than failing the whole load.
func LoadNames(r io.Reader, taxonomies map[int]store.Taxonomy) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := splitDmpLine(line)
		if len(fields) < 4 {
			return fmt.Errorf("taxonomy: malformed names.dmp line: %q", line)
		}
		if fields[3] != "scientific name" {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("taxonomy: invalid taxonomy id in names.dmp: %w", err)
		}
		if t, ok := taxonomies[id]; ok {
			t.Name = fields[1]
			taxonomies[id] = t
		}
	}
	return scanner.Err()
}

// LoadMerges reads merged.dmp into a slice of store.TaxonomyMerge.
func LoadMerges(r io.Reader) ([]store.TaxonomyMerge, error) {
	var merges []store.TaxonomyMerge
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := splitDmpLine(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("taxonomy: malformed merged.dmp line: %q", line)
		}
		oldID, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("taxonomy: invalid old id in merged.dmp: %w", err)
		}
		newID, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("taxonomy: invalid new id in merged.dmp: %w", err)
		}
		merges = append(merges, store.TaxonomyMerge{OldID: oldID, NewID: newID})
	}
	return merges, scanner.Err()
}

// LoadDeletions reads delnodes.dmp into a slice of taxonomy ids to
// remove.
func LoadDeletions(r io.Reader) ([]int, error) {
	var ids []int
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := splitDmpLine(line)
		if len(fields) < 1 {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("taxonomy: invalid id in delnodes.dmp: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, scanner.Err()
}

// ToSlice flattens a taxonomy id map into a slice suitable for
// store.Store.ReplaceTaxonomies.
func ToSlice(taxonomies map[int]store.Taxonomy) []store.Taxonomy {
	out := make([]store.Taxonomy, 0, len(taxonomies))
	for _, t := range taxonomies {
		out = append(out, t)
	}
	return out
}
