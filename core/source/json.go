package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"koala-diff/core/row"
)

// JSONSource streams a JSON array of objects or an NDJSON file. Column
// names are the union of keys observed in a sampled prefix, ordered
// alphabetically for determinism; keys absent from an object are null.
type JSONSource struct {
	f      *os.File
	next   func() (map[string]any, error)
	schema *row.Schema
	sample []map[string]any
	pos    int
}

// OpenJSON opens a file containing a single JSON array of flat objects.
func OpenJSON(path string) (*JSONSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bufio.NewReader(f))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("json %s: %w", path, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		f.Close()
		return nil, fmt.Errorf("json %s: expected a top-level array of objects", path)
	}

	next := func() (map[string]any, error) {
		if !dec.More() {
			return nil, io.EOF
		}
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, err
		}
		return obj, nil
	}
	return newJSONSource(f, path, next)
}

// OpenNDJSON opens a newline-delimited JSON file, one object per line.
func OpenNDJSON(path string) (*JSONSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64<<10), 16<<20)

	next := func() (map[string]any, error) {
		for sc.Scan() {
			line := sc.Bytes()
			if len(line) == 0 {
				continue
			}
			var obj map[string]any
			if err := unmarshalNumber(line, &obj); err != nil {
				return nil, err
			}
			return obj, nil
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return newJSONSource(f, path, next)
}

func unmarshalNumber(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func newJSONSource(f *os.File, path string, next func() (map[string]any, error)) (*JSONSource, error) {
	s := &JSONSource{f: f, next: next}

	kinds := make(map[string]row.Kind)
	for len(s.sample) < inferSampleSize {
		obj, err := next()
		if err == io.EOF {
			break
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("json %s: %w", path, err)
		}
		for k, v := range obj {
			kinds[k] = combineKind(kinds[k], sniffJSON(v))
		}
		s.sample = append(s.sample, obj)
	}

	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	cols := make([]row.Column, len(names))
	for i, name := range names {
		k := kinds[name]
		if k == row.KindNull {
			k = row.KindString
		}
		cols[i] = row.Column{Name: name, Kind: k}
	}
	schema, err := row.NewSchema(cols...)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("json %s: %w", path, err)
	}
	s.schema = schema
	return s, nil
}

// Schema returns the inferred schema.
func (s *JSONSource) Schema() *row.Schema { return s.schema }

// Next returns the next row, or io.EOF when exhausted.
func (s *JSONSource) Next() (row.Row, error) {
	var obj map[string]any
	if s.pos < len(s.sample) {
		obj = s.sample[s.pos]
		s.sample[s.pos] = nil
		s.pos++
	} else {
		var err error
		obj, err = s.next()
		if err != nil {
			return nil, err
		}
	}
	r := make(row.Row, s.schema.Len())
	for i, c := range s.schema.Columns() {
		v, ok := obj[c.Name]
		if !ok {
			r[i] = row.Null()
			continue
		}
		r[i] = jsonValue(v)
	}
	return r, nil
}

// Close closes the underlying file.
func (s *JSONSource) Close() error { return s.f.Close() }

func jsonValue(v any) row.Value {
	switch t := v.(type) {
	case nil:
		return row.Null()
	case bool:
		return row.Bool(t)
	case json.Number:
		if i, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return row.Int(i)
		}
		if f, err := t.Float64(); err == nil {
			return row.Float(f)
		}
		return row.Str(string(t))
	case string:
		return row.Str(t)
	default:
		// Nested arrays/objects are not scalar; carry the JSON text.
		b, err := json.Marshal(t)
		if err != nil {
			return row.Str(fmt.Sprint(t))
		}
		return row.Str(string(b))
	}
}

func sniffJSON(v any) row.Kind {
	switch t := v.(type) {
	case nil:
		return row.KindNull
	case bool:
		return row.KindBool
	case json.Number:
		if _, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return row.KindInt
		}
		return row.KindFloat
	case string:
		// JSON has no timestamp type; strings stay strings rather than
		// guessing a date format.
		return row.KindString
	default:
		return row.KindString
	}
}
