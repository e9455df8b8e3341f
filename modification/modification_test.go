package modification

import "testing"

func TestNewCollectionCategorizes(t *testing.T) {
	mods := []Modification{
		{Accession: "UNIMOD:4", AminoAcid: 'C', Delta: 1000, IsStatic: true, Position: Anywhere},
		{Accession: "UNIMOD:35", AminoAcid: 'M', Delta: 2000, IsStatic: false, Position: Anywhere},
		{Accession: "UNIMOD:1", AminoAcid: 'A', Delta: 3000, IsStatic: true, Position: NTerminus},
	}
	c, err := NewCollection(mods, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Static) != 1 || len(c.Variable) != 1 {
		t.Fatalf("unexpected categorization: static=%d variable=%d", len(c.Static), len(c.Variable))
	}
	if c.StaticNTerminus == nil {
		t.Fatal("expected a static N-terminus modification")
	}
}

func TestNewCollectionRejectsConflict(t *testing.T) {
	mods := []Modification{
		{AminoAcid: 'C', IsStatic: true, Position: Anywhere},
		{AminoAcid: 'C', IsStatic: false, Position: Anywhere},
	}
	if _, err := NewCollection(mods, 9); err == nil {
		t.Fatal("expected conflicting static/variable modification error")
	}
}

func TestNewCollectionRejectsDuplicateStaticTerminus(t *testing.T) {
	mods := []Modification{
		{AminoAcid: 'A', IsStatic: true, Position: NTerminus},
		{AminoAcid: 'G', IsStatic: true, Position: NTerminus},
	}
	if _, err := NewCollection(mods, 9); err == nil {
		t.Fatal("expected duplicate static terminus modification error")
	}
}

func TestNewCollectionRejectsTooManyVariableModifications(t *testing.T) {
	mods := make([]Modification, 0, 10)
	for i := 0; i < 10; i++ {
		mods = append(mods, Modification{AminoAcid: byte('A' + i), IsStatic: false, Position: Anywhere})
	}
	if _, err := NewCollection(mods, 9); err == nil {
		t.Fatal("expected too-many-variable-modifications error")
	}
}

func TestPositionRoundTrip(t *testing.T) {
	for _, p := range []Position{Anywhere, NTerminus, CTerminus} {
		parsed, err := PositionFromString(p.String())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if parsed != p {
			t.Fatalf("round trip mismatch: %v != %v", parsed, p)
		}
	}
}
