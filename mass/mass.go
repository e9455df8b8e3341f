/*
Package mass provides the integer-fixed-point mass representation shared by
every other package in this module, plus the mono-isotopic/average mass
tables for the 22 counted amino acid residues and the water neutral loss.

All masses are stored as signed 64-bit integers equal to the mass in
Daltons scaled by 1e9. This is the precision MaCPepDB was built on, and
every downstream computation (digestion, combinatorics, predicate
compilation) assumes it.
*/
package mass

import "math"

// ScaleFactor converts a floating point Dalton mass into this package's
// fixed-point integer representation and back.
const ScaleFactor = 1_000_000_000.0

// HydrogenMonoMass is the mono-isotopic mass of a single hydrogen atom, in
// Daltons. Used to convert between m/z and neutral mass.
const HydrogenMonoMass = 1.007825035

// ToInt converts a floating point Dalton mass to the package's fixed-point
// integer representation.
func ToInt(m float64) int64 {
	return int64(m * ScaleFactor)
}

// ToFloat converts a fixed-point integer mass back to a floating point
// Dalton value.
func ToFloat(m int64) float64 {
	return float64(m) / ScaleFactor
}

// MZToNeutralMass converts an observed m/z value and charge state into a
// neutral monoisotopic mass: m_over_z*z - z*mass(H).
func MZToNeutralMass(mOverZ float64, charge int) int64 {
	z := float64(charge)
	return ToInt(mOverZ*z - z*HydrogenMonoMass)
}

// PPMTolerance returns the absolute mass width corresponding to a ppm
// tolerance at a given mass, i.e. mass * ppm / 1e6, in the package's
// fixed-point representation.
func PPMTolerance(m int64, ppm int64) int64 {
	return int64(float64(m) / 1_000_000.0 * float64(ppm))
}

// Residue describes one of the 22 amino acids counted by MaCPepDB, plus the
// reserved "unknown" marker X.
type Residue struct {
	Name          string
	OneLetterCode byte
	MonoMass      int64
	AverageMass   int64
}

// ResidueAlphabet is the canonical, ordered list of the 22 residues that
// are individually counted per peptide. This ordering is the single source
// of truth for the storage schema's per-amino-acid count columns and the
// predicate compiler's column ordering (spec note: columns must be
// generated from the residue alphabet, not hand enumerated).
//
// Adapted from the teacher's alphabet.Alphabet (generalized from a
// DNA/RNA/Protein symbol list to this mass-spec counting alphabet).
var ResidueAlphabet = []byte{
	'A', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'K', 'L',
	'M', 'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'Y',
}

// AmbiguousResidues are residues that get expanded to one or more of the
// standard 22 residues during digestion.
var AmbiguousResidues = map[byte][]byte{
	'B': {'D', 'N'},
	'Z': {'E', 'Q'},
	'J': {'I', 'L'},
}

// UnknownResidue is the reserved marker for a residue MaCPepDB cannot
// identify. Peptides containing it are excluded from insertion.
const UnknownResidue = 'X'

// residueTable holds the mono-isotopic and average masses for each
// standard residue, keyed by one-letter code. Values taken from
// https://proteomicsresource.washington.edu/protocols06/masses.php (the
// same source cited by the original Python amino_acid.py module).
var residueTable = map[byte]Residue{
	'A': {"Alanine", 'A', ToInt(71.037113805), ToInt(71.0788)},
	'C': {"Cysteine", 'C', ToInt(103.009184505), ToInt(103.1388)},
	'D': {"Aspartic acid", 'D', ToInt(115.026943065), ToInt(115.0886)},
	'E': {"Glutamic acid", 'E', ToInt(129.042593135), ToInt(129.1155)},
	'F': {"Phenylalanine", 'F', ToInt(147.068413945), ToInt(147.1766)},
	'G': {"Glycine", 'G', ToInt(57.021463735), ToInt(57.0519)},
	'H': {"Histidine", 'H', ToInt(137.058911875), ToInt(137.1411)},
	'I': {"Isoleucine", 'I', ToInt(113.084064015), ToInt(113.1594)},
	'K': {"Lysine", 'K', ToInt(128.094963050), ToInt(128.1741)},
	'L': {"Leucine", 'L', ToInt(113.084064015), ToInt(113.1594)},
	'M': {"Methionine", 'M', ToInt(131.040484645), ToInt(131.1926)},
	'N': {"Asparagine", 'N', ToInt(114.042927470), ToInt(114.1038)},
	'O': {"Pyrrolysine", 'O', ToInt(237.147726925), ToInt(237.29816)},
	'P': {"Proline", 'P', ToInt(97.052763875), ToInt(97.1167)},
	'Q': {"Glutamine", 'Q', ToInt(128.05857754), ToInt(128.1307)},
	'R': {"Arginine", 'R', ToInt(156.101111050), ToInt(156.1875)},
	'S': {"Serine", 'S', ToInt(87.032028435), ToInt(87.0782)},
	'T': {"Threonine", 'T', ToInt(101.047678505), ToInt(101.1051)},
	'U': {"Selenocysteine", 'U', ToInt(150.953633405), ToInt(150.0379)},
	'V': {"Valine", 'V', ToInt(99.068413945), ToInt(99.1326)},
	'W': {"Tryptophan", 'W', ToInt(186.079312980), ToInt(186.2132)},
	'Y': {"Tyrosine", 'Y', ToInt(163.063328575), ToInt(163.1760)},
	'X': {"Unknown Amino Acid", 'X', 0, 0},
}

// ResidueByCode returns the Residue for a one-letter amino acid code. It
// returns the reserved "unknown" residue (X) for any code not in the
// standard 22, mirroring AminoAcid.get_by_one_letter_code's fallback.
func ResidueByCode(code byte) Residue {
	if r, ok := residueTable[code]; ok {
		return r
	}
	return residueTable['X']
}

// Heaviest returns the heaviest standard residue, Tryptophan (W). Used to
// derive the upper partition boundary.
func Heaviest() Residue {
	return residueTable['W']
}

// Lightest returns the lightest standard residue, Glycine (G).
func Lightest() Residue {
	return residueTable['G']
}

// waterMonoMass is the neutral loss mass of H2O, used as the base mass every
// peptide carries in addition to the sum of its residue masses.
const waterMonoMass = 18.010564700

// WaterMonoMass returns the integer mono-isotopic mass of water.
func WaterMonoMass() int64 {
	return ToInt(waterMonoMass)
}

// PeptideMass computes mass(H2O) + sum(residue mono masses) for a
// canonical (uppercase, unambiguous) amino acid sequence. It is the
// authoritative mass-consistency invariant every stored peptide must
// satisfy.
func PeptideMass(sequence string) int64 {
	total := WaterMonoMass()
	for i := 0; i < len(sequence); i++ {
		total += ResidueByCode(sequence[i]).MonoMass
	}
	return total
}

// CountResidues returns, for a canonical sequence, the count of each
// residue in ResidueAlphabet order. The returned slice has exactly
// len(ResidueAlphabet) elements.
func CountResidues(sequence string) []int32 {
	counts := make([]int32, len(ResidueAlphabet))
	index := make(map[byte]int, len(ResidueAlphabet))
	for i, code := range ResidueAlphabet {
		index[code] = i
	}
	for i := 0; i < len(sequence); i++ {
		if idx, ok := index[sequence[i]]; ok {
			counts[idx]++
		}
	}
	return counts
}

// ContainsUnknown reports whether the sequence contains the reserved
// unknown-residue marker X.
func ContainsUnknown(sequence string) bool {
	for i := 0; i < len(sequence); i++ {
		if sequence[i] == UnknownResidue {
			return true
		}
	}
	return false
}

// ContainsAmbiguous reports whether the sequence contains any of the
// ambiguous residues B, Z, or J.
func ContainsAmbiguous(sequence string) bool {
	for i := 0; i < len(sequence); i++ {
		if _, ok := AmbiguousResidues[sequence[i]]; ok {
			return true
		}
	}
	return false
}

// MaxPossiblePeptideMass is the mass a 60-residue, all-Tryptophan peptide
// would have, plus water, plus one. It anchors the upper partition
// boundary (spec: "60 x mass(W) + mass(H2O) + 1").
func MaxPossiblePeptideMass() int64 {
	return 60*Heaviest().MonoMass + WaterMonoMass() + 1
}

// Round rounds a Dalton value to the nearest integer Dalton.
func Round(daltons float64) int64 {
	return int64(math.Round(daltons))
}
