/*
Package uniprot reads UniProtKB flat-file records (the "ID ... AC ... //"
text format used by both SwissProt and TrEMBL dumps), streaming parsed
Protein records to a channel the way the teacher's generic bio.Parser
streams FASTA/GenBank records.
*/
package uniprot

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Protein is a single parsed UniProt entry.
type Protein struct {
	PrimaryAccession    string
	SecondaryAccessions []string
	EntryName           string
	Name                string
	Sequence            string
	TaxonomyID          int
	ProteomeID          string
	IsReviewed          bool
	LastUpdate          time.Time
}

var (
	taxonomyIDPattern = regexp.MustCompile(`.*=(\d+)`)
	fullNamePattern   = regexp.MustCompile(`Full=(.*?)(\{|;)`)
	serialSpaces      = regexp.MustCompile(`\s{2,}`)
	whitespace        = regexp.MustCompile(`\s`)
)

var monthLookup = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// Parser reads UniProtKB flat-file entries from a single io.Reader,
// one at a time. It mirrors the teacher's line-tag state machine in
// io/genbank/parser.go, specialized to UniProt's two-letter tag columns
// and "//" entry terminator.
type Parser struct {
	reader *bufio.Reader
	line   uint
}

// NewParser wraps r as a UniProt flat-file Parser.
func NewParser(r io.Reader) *Parser {
	return &Parser{reader: bufio.NewReaderSize(r, 64*1024)}
}

func (p *Parser) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	p.line++
	return strings.TrimRight(line, "\r\n"), nil
}

// Next parses and returns the next entry in the stream. It returns
// io.EOF when no further entries remain.
func (p *Parser) Next() (*Protein, error) {
	var (
		accessions  []string
		entryName   string
		isReviewed  bool
		name        string
		nameSet     bool
		sequence    strings.Builder
		taxonomyID  int
		proteomeID  string
		lastUpdate  string
		sawAnyLine  bool
	)

	for {
		line, err := p.readLine()
		if err != nil {
			if err == io.EOF {
				if !sawAnyLine {
					return nil, io.EOF
				}
				return nil, fmt.Errorf("uniprot: unexpected EOF at line %d: unterminated entry", p.line)
			}
			return nil, err
		}
		if line == "" && err == nil {
			// Blank line inside/between records: ignore unless we never saw
			// any content, in which case it's leading whitespace.
			continue
		}
		sawAnyLine = true

		switch {
		case strings.HasPrefix(line, "ID   "):
			fields := serialSpaces.Split(strings.TrimSpace(line[5:]), -1)
			if len(fields) >= 1 {
				entryName = fields[0]
			}
			if len(fields) >= 2 {
				isReviewed = strings.HasPrefix(fields[1], "Reviewed")
			}
		case strings.HasPrefix(line, "AC   "):
			for _, token := range strings.Fields(line[5:]) {
				accessions = append(accessions, strings.TrimSuffix(token, ";"))
			}
		case strings.HasPrefix(line, "DT   "):
			if len(line) >= 16 {
				lastUpdate = line[5:16]
			}
		case strings.HasPrefix(line, "DE   "):
			if !nameSet && (strings.Contains(line, "RecName") || strings.Contains(line, "AltName") || strings.Contains(line, "Sub")) {
				if m := fullNamePattern.FindStringSubmatch(line); m != nil {
					name = strings.TrimSpace(m[1])
					nameSet = true
				}
			}
		case strings.HasPrefix(line, "OX   "):
			if m := taxonomyIDPattern.FindStringSubmatch(line); m != nil {
				taxonomyID, _ = strconv.Atoi(m[1])
			}
		case strings.HasPrefix(line, "DR   "):
			if strings.HasPrefix(line[5:], "Proteomes;") {
				tokens := strings.Split(line[5:], " ")
				if len(tokens) >= 2 {
					proteomeID = strings.TrimSuffix(tokens[1], ";")
				}
			}
		case strings.HasPrefix(line, "  "):
			sequence.WriteString(whitespace.ReplaceAllString(line, ""))
		case line == "//":
			if len(accessions) == 0 {
				return nil, fmt.Errorf("uniprot: entry ending at line %d has no accession", p.line)
			}
			protein := &Protein{
				PrimaryAccession:    accessions[0],
				SecondaryAccessions: accessions[1:],
				EntryName:           entryName,
				Name:                name,
				Sequence:            sequence.String(),
				TaxonomyID:          taxonomyID,
				ProteomeID:          proteomeID,
				IsReviewed:          isReviewed,
			}
			if lastUpdate != "" {
				if t, ok := parseEntryDate(lastUpdate); ok {
					protein.LastUpdate = t
				}
			}
			return protein, nil
		default:
			// unrecognized tag (CC, KW, FT, SQ header, etc.): ignored.
		}
	}
}

// parseEntryDate converts a UniProt "DD-MON-YYYY" date into UTC time.
func parseEntryDate(s string) (time.Time, bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, ok := monthLookup[strings.ToUpper(parts[1])]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

// ParseToChannel reads every entry from the parser and sends it to ch,
// closing ch (unless keepChannelOpen is set) when the stream is exhausted
// or ctx is cancelled. Errors other than io.EOF are returned.
//
// Grounded on the teacher's bio.Parser.ParseToChannel: a select between
// ctx.Done() and a blocking read-then-send, generalized from the
// multi-format Data/Header generic to a single concrete Protein type.
func (p *Parser) ParseToChannel(ctx context.Context, ch chan<- *Protein, keepChannelOpen bool) error {
	if !keepChannelOpen {
		defer close(ch)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		protein, err := p.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		select {
		case ch <- protein:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ManyToChannel parses multiple readers concurrently into a single
// channel, closing it once every parser has finished or the first error
// occurs. Grounded on the teacher's bio.ManyToChannel using
// errgroup.WithContext the same way.
func ManyToChannel(ctx context.Context, ch chan<- *Protein, readers ...io.Reader) error {
	group, groupCtx := errgroup.WithContext(ctx)
	for _, r := range readers {
		r := r
		group.Go(func() error {
			return NewParser(r).ParseToChannel(groupCtx, ch, true)
		})
	}
	err := group.Wait()
	close(ch)
	return err
}
