package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"koala-diff/core/row"
)

// CSVSource streams a headered CSV file. Column kinds are inferred from a
// sampled prefix; the sample is replayed before the remainder of the file
// so no row is lost.
type CSVSource struct {
	f      *os.File
	r      *csv.Reader
	schema *row.Schema
	kinds  []row.Kind
	sample []row.Row
	pos    int
}

// OpenCSV opens a CSV file with a header row.
func OpenCSV(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(f)
	r.ReuseRecord = false

	header, err := r.Read()
	if err == io.EOF {
		f.Close()
		return nil, fmt.Errorf("csv %s: empty file, header required", path)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csv %s: reading header: %w", path, err)
	}

	// Sample a prefix for kind inference.
	var raw [][]string
	kinds := make([]row.Kind, len(header))
	for len(raw) < inferSampleSize {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("csv %s: %w", path, err)
		}
		for i, cell := range rec {
			if i < len(kinds) {
				kinds[i] = combineKind(kinds[i], sniffCell(cell))
			}
		}
		raw = append(raw, rec)
	}
	for i := range kinds {
		if kinds[i] == row.KindNull {
			kinds[i] = row.KindString
		}
	}

	cols := make([]row.Column, len(header))
	for i, name := range header {
		cols[i] = row.Column{Name: name, Kind: kinds[i]}
	}
	schema, err := row.NewSchema(cols...)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csv %s: %w", path, err)
	}

	s := &CSVSource{f: f, r: r, schema: schema, kinds: kinds}
	s.sample = make([]row.Row, len(raw))
	for i, rec := range raw {
		s.sample[i] = s.convert(rec)
	}
	return s, nil
}

// Schema returns the inferred schema.
func (s *CSVSource) Schema() *row.Schema { return s.schema }

// Next returns the next row, or io.EOF when the file is exhausted.
func (s *CSVSource) Next() (row.Row, error) {
	if s.pos < len(s.sample) {
		r := s.sample[s.pos]
		s.sample[s.pos] = nil
		s.pos++
		return r, nil
	}
	rec, err := s.r.Read()
	if err != nil {
		return nil, err
	}
	return s.convert(rec), nil
}

// Close closes the underlying file.
func (s *CSVSource) Close() error { return s.f.Close() }

// convert parses one record against the inferred kinds. A cell that fails
// to parse as its column's kind falls back to a string value; the value
// comparison layer handles mixed kinds.
func (s *CSVSource) convert(rec []string) row.Row {
	r := make(row.Row, s.schema.Len())
	for i := range r {
		if i >= len(rec) || rec[i] == "" {
			r[i] = row.Null()
			continue
		}
		r[i] = parseCell(rec[i], s.kinds[i])
	}
	return r
}

func parseCell(cell string, kind row.Kind) row.Value {
	switch kind {
	case row.KindInt:
		if v, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return row.Int(v)
		}
	case row.KindFloat:
		if v, err := strconv.ParseFloat(cell, 64); err == nil {
			return row.Float(v)
		}
	case row.KindBool:
		if v, err := strconv.ParseBool(cell); err == nil {
			return row.Bool(v)
		}
	case row.KindTimestamp:
		if t, err := time.Parse(time.RFC3339, cell); err == nil {
			return row.Timestamp(t)
		}
	}
	return row.Str(cell)
}

// sniffCell guesses the kind of a single cell. Empty cells are null and
// contribute nothing to inference.
func sniffCell(cell string) row.Kind {
	if cell == "" {
		return row.KindNull
	}
	if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return row.KindInt
	}
	if _, err := strconv.ParseFloat(cell, 64); err == nil {
		return row.KindFloat
	}
	if cell == "true" || cell == "false" {
		return row.KindBool
	}
	if _, err := time.Parse(time.RFC3339, cell); err == nil {
		return row.KindTimestamp
	}
	return row.KindString
}
