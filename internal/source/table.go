package source

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/csimplestring/go-csv/detector"
	"github.com/gocarina/gocsv"
)

// Header columns of a source table file.
const (
	SampleColumn = "sampleID"
	SourceColumn = "source"
)

// Row pairs one sample with its source.
type Row struct {
	SampleID string `csv:"sampleID"`
	Source   string `csv:"source"`
}

// Table is an ordered list of (sample, source) rows.
type Table struct {
	Rows []Row
}

// Add appends a row.
func (t *Table) Add(sample, source string) {
	t.Rows = append(t.Rows, Row{SampleID: sample, Source: source})
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Samples returns the sample column in row order.
func (t *Table) Samples() []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.SampleID
	}
	return out
}

// Groups returns the samples of each source, sources in first-seen order.
func (t *Table) Groups() [][]string {
	var out [][]string
	index := map[string]int{}
	for _, r := range t.Rows {
		i, ok := index[r.Source]
		if !ok {
			i = len(out)
			index[r.Source] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], r.SampleID)
	}
	return out
}

// WriteTSV renders the table with a `sampleID\tsource` header.
func (t *Table) WriteTSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	rows := t.Rows
	if rows == nil {
		rows = []Row{}
	}
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WritePairs renders the table in the pepsirf enrich "samples" format: one
// line per source, holding that source's samples separated by tabs.
func (t *Table) WritePairs(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	for _, g := range t.Groups() {
		if err := cw.Write(g); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// LoadTable reads a user-supplied source table. Tab and comma delimited
// files are both accepted; the header must name the sampleID and source
// columns.
func LoadTable(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	comma := detectDelimiter(data)
	header, err := newReader(data, comma).Read()
	if err != nil {
		return nil, fmt.Errorf("reading source table header: %w", err)
	}
	if !contains(header, SampleColumn) || !contains(header, SourceColumn) {
		return nil, fmt.Errorf("source table header %q must contain %q and %q", header, SampleColumn, SourceColumn)
	}

	var rows []Row
	if err := gocsv.UnmarshalCSV(newReader(data, comma), &rows); err != nil {
		return nil, fmt.Errorf("parsing source table: %w", err)
	}
	return &Table{Rows: rows}, nil
}

func newReader(data []byte, comma rune) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.LazyQuotes = true
	return r
}

func detectDelimiter(data []byte) rune {
	d := detector.New()
	for _, c := range d.DetectDelimiter(bytes.NewReader(data), '"') {
		if c == "\t" || c == "," {
			return rune(c[0])
		}
	}
	return '\t'
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
