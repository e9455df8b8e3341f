package uniprot

import (
	"context"
	"io"
	"strings"
	"testing"
)

const sampleEntry = `ID   CYC_HUMAN               Reviewed;         105 AA.
AC   P99999; Q6FI13;
DT   13-AUG-1987, integrated into UniProtKB/Swiss-Prot.
DE   RecName: Full=Cytochrome c {ECO:0000256};
OX   NCBI_TaxID=9606;
DR   Proteomes; UP000005640;
SQ   SEQUENCE  105 AA;  11617 MW;  057A12D3B4DAF4CA CRC64;
     GDVEKGKKIF VQKCAQCHTV EKGGKHKTGP NLHGLFGRKT GQAPGYSYTA ANKNKGIIWG
     EDTLMEYLEN PKKYIPGTKM IFVGIKKKEE RADLIAYLKK ATNE
//
`

func TestParseSingleEntry(t *testing.T) {
	parser := NewParser(strings.NewReader(sampleEntry))
	protein, err := parser.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if protein.PrimaryAccession != "P99999" {
		t.Fatalf("unexpected primary accession: %s", protein.PrimaryAccession)
	}
	if len(protein.SecondaryAccessions) != 1 || protein.SecondaryAccessions[0] != "Q6FI13" {
		t.Fatalf("unexpected secondary accessions: %v", protein.SecondaryAccessions)
	}
	if protein.EntryName != "CYC_HUMAN" {
		t.Fatalf("unexpected entry name: %s", protein.EntryName)
	}
	if !protein.IsReviewed {
		t.Fatal("expected entry to be reviewed")
	}
	if protein.Name != "Cytochrome c" {
		t.Fatalf("unexpected name: %q", protein.Name)
	}
	if protein.TaxonomyID != 9606 {
		t.Fatalf("unexpected taxonomy id: %d", protein.TaxonomyID)
	}
	if protein.ProteomeID != "UP000005640" {
		t.Fatalf("unexpected proteome id: %s", protein.ProteomeID)
	}
	wantSeq := "GDVEKGKKIFVQKCAQCHTVEKGGKHKTGPNLHGLFGRKTGQAPGYSYTAANKNKGIIWGEDTLMEYLENPKKYIPGTKMIFVGIKKKEERADLIAYLKKATNE"
	if protein.Sequence != wantSeq {
		t.Fatalf("unexpected sequence: %s", protein.Sequence)
	}
	if protein.LastUpdate.Year() != 1987 {
		t.Fatalf("unexpected last update: %v", protein.LastUpdate)
	}

	if _, err := parser.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestParseToChannel(t *testing.T) {
	doubled := sampleEntry + strings.Replace(sampleEntry, "P99999", "P00000", 1)
	parser := NewParser(strings.NewReader(doubled))
	ch := make(chan *Protein)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- parser.ParseToChannel(ctx, ch, false)
	}()

	var got []string
	for p := range ch {
		got = append(got, p.PrimaryAccession)
	}
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 proteins, got %d", len(got))
	}
}

func TestManyToChannel(t *testing.T) {
	ch := make(chan *Protein)
	ctx := context.Background()
	errCh := make(chan error, 1)
	go func() {
		errCh <- ManyToChannel(ctx, ch, strings.NewReader(sampleEntry), strings.NewReader(sampleEntry))
	}()
	count := 0
	for range ch {
		count++
	}
	if err := <-errCh; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 proteins total, got %d", count)
	}
}
