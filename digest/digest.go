/*
Package digest implements the enzymatic cleavage of a protein sequence into
peptides, including the expansion of ambiguous amino acids (B, Z, J) into
every disambiguated variant.
*/
package digest

import (
	"regexp"

	"github.com/macpepdb/macpepdb-go/mass"
)

// Peptide is a digestion result: a canonical amino acid sequence together
// with the number of missed cleavages that produced it.
type Peptide struct {
	Sequence             string
	NumberOfMissedCleavages int
}

// Enzyme describes a proteolytic enzyme and the constraints a digest run
// applies to the resulting peptides.
type Enzyme struct {
	Name                 string
	Shortcut             string
	cleavageRegex        *regexp.Regexp
	excludedFollowers    map[byte]bool
	MaxMissedCleavages   int
	MinimumPeptideLength int
	MaximumPeptideLength int
}

// NewEnzyme builds an Enzyme from a regular expression matching a single
// cleavage-site residue and the set of residues (excludedFollowers) that
// suppress the cut when they immediately follow a match. Go's regexp
// package is RE2 and supports neither lookahead nor lookbehind, so "cut
// after X unless followed by Y" is expressed as a plain residue match plus
// an explicit next-residue check in splitOnCleavageSites, rather than as
// an assertion inside the pattern itself.
func NewEnzyme(name, shortcut, cleavagePattern, excludedFollowers string, maxMissedCleavages, minLength, maxLength int) *Enzyme {
	excluded := make(map[byte]bool, len(excludedFollowers))
	for i := 0; i < len(excludedFollowers); i++ {
		excluded[excludedFollowers[i]] = true
	}
	return &Enzyme{
		Name:                 name,
		Shortcut:             shortcut,
		cleavageRegex:        regexp.MustCompile(cleavagePattern),
		excludedFollowers:    excluded,
		MaxMissedCleavages:   maxMissedCleavages,
		MinimumPeptideLength: minLength,
		MaximumPeptideLength: maxLength,
	}
}

// ambiguousResidueReplacements mirrors mass.AmbiguousResidues but is kept
// local so digest can iterate it in a fixed order for deterministic test
// fixtures.
var ambiguousResidueReplacements = []struct {
	Code         byte
	Replacements []byte
}{
	{'B', []byte{'D', 'N'}},
	{'Z', []byte{'E', 'Q'}},
	{'J', []byte{'I', 'L'}},
}

// splitOnCleavageSites splits a protein sequence into the fragments
// bounded by the enzyme's cleavage sites, the way re.split(regex,
// sequence) does for a zero-width lookaround pattern in Python. The
// cleavage regex matches only the residue itself; a cut point right after
// a match is dropped whenever the following residue (if any) is in
// excludedFollowers, reproducing the lookahead the pattern can't express.
func (e *Enzyme) splitOnCleavageSites(sequence string) []string {
	matches := e.cleavageRegex.FindAllStringIndex(sequence, -1)
	if len(matches) == 0 {
		return []string{sequence}
	}
	parts := make([]string, 0, len(matches)+1)
	last := 0
	for _, loc := range matches {
		cut := loc[1]
		if cut < len(sequence) && e.excludedFollowers[sequence[cut]] {
			continue
		}
		parts = append(parts, sequence[last:cut])
		last = cut
	}
	if last < len(sequence) {
		parts = append(parts, sequence[last:])
	}
	return parts
}

// Digest cleaves a protein sequence into the set of distinct peptides
// produced by the enzyme, honoring MaxMissedCleavages and the peptide
// length range. Peptides containing the reserved unknown residue (X) are
// excluded. Peptides containing an ambiguous residue (B, Z, J) are
// expanded into every disambiguated variant, and both the ambiguous and
// disambiguated forms are emitted (the original macpepdb behavior: B/Z
// carry the ambiguous average mass in source data, so both the literal
// and the differentiated sequences are kept for precise querying).
func (e *Enzyme) Digest(sequence string) []Peptide {
	parts := e.splitOnCleavageSites(sequence)
	seen := make(map[string]Peptide)

	addIfValid := func(candidate string, missedCleavages int) {
		length := len(candidate)
		if length < e.MinimumPeptideLength || length > e.MaximumPeptideLength {
			return
		}
		if mass.ContainsUnknown(candidate) {
			return
		}
		if _, ok := seen[candidate]; ok {
			return
		}
		seen[candidate] = Peptide{Sequence: candidate, NumberOfMissedCleavages: missedCleavages}
		if mass.ContainsAmbiguous(candidate) {
			for _, variant := range differentiateAmbiguousSequence(candidate) {
				if _, ok := seen[variant]; !ok {
					seen[variant] = Peptide{Sequence: variant, NumberOfMissedCleavages: missedCleavages}
				}
			}
		}
	}

	for partIndex := range parts {
		lastPartToAdd := partIndex + e.MaxMissedCleavages + 1
		if lastPartToAdd > len(parts) {
			lastPartToAdd = len(parts)
		}
		candidate := ""
		for missedCleavage := partIndex; missedCleavage < lastPartToAdd; missedCleavage++ {
			candidate += parts[missedCleavage]
			addIfValid(candidate, missedCleavage-partIndex)
		}
	}

	peptides := make([]Peptide, 0, len(seen))
	for _, p := range seen {
		peptides = append(peptides, p)
	}
	return peptides
}

// containsReplaceableAmbiguous reports whether sequence has a B, Z, or J.
func containsReplaceableAmbiguous(sequence string) bool {
	for i := 0; i < len(sequence); i++ {
		for _, r := range ambiguousResidueReplacements {
			if sequence[i] == r.Code {
				return true
			}
		}
	}
	return false
}

// differentiateAmbiguousSequence returns every sequence obtained by
// replacing each ambiguous residue (B, Z, J) with each of its candidate
// standard residues, recursively branching position by position.
func differentiateAmbiguousSequence(sequence string) []string {
	if !containsReplaceableAmbiguous(sequence) {
		return nil
	}
	results := make(map[string]struct{})
	var walk func(seq string, position int)
	walk = func(seq string, position int) {
		if position == len(seq) {
			results[seq] = struct{}{}
			return
		}
		replacements := replacementsFor(seq[position])
		if replacements == nil {
			walk(seq, position+1)
			return
		}
		for _, replacement := range replacements {
			newSeq := seq[:position] + string(replacement) + seq[position+1:]
			walk(newSeq, position+1)
		}
	}
	walk(sequence, 0)
	delete(results, sequence)
	variants := make([]string, 0, len(results))
	for v := range results {
		variants = append(variants, v)
	}
	return variants
}

func replacementsFor(code byte) []byte {
	for _, r := range ambiguousResidueReplacements {
		if r.Code == code {
			return r.Replacements
		}
	}
	return nil
}

// Trypsin returns the standard trypsin enzyme: cleaves after K or R
// unless followed by P. Grounded on
// original_source/macpepdb/proteomics/enzymes/trypsin.py's
// CLEAVAGE_REGEX = r"(?<=[KR])(?!P)". Go's regexp is RE2 and supports
// neither the lookbehind nor the lookahead that pattern relies on, so the
// cleavage residue is matched plainly and the "unless followed by P" rule
// is applied by splitOnCleavageSites via excludedFollowers.
func Trypsin(maxMissedCleavages, minLength, maxLength int) *Enzyme {
	return NewEnzyme(
		"Trypsin",
		"try",
		`[KR]`,
		"P",
		maxMissedCleavages,
		minLength,
		maxLength,
	)
}

// knownEnzymeNames mirrors DigestEnzyme.get_known_enzymes/get_enzyme_by_name.
var knownEnzymeNames = []string{"trypsin"}

// KnownEnzymeNames returns the lower-cased names of every enzyme this
// package knows how to construct.
func KnownEnzymeNames() []string {
	out := make([]string, len(knownEnzymeNames))
	copy(out, knownEnzymeNames)
	return out
}

// ByName constructs a known enzyme by its lower-case name (e.g.
// "trypsin"). It returns false if the name is not recognized.
func ByName(name string, maxMissedCleavages, minLength, maxLength int) (*Enzyme, bool) {
	switch name {
	case "trypsin":
		return Trypsin(maxMissedCleavages, minLength, maxLength), true
	default:
		return nil, false
	}
}
