package row

import "fmt"

// Column describes a single schema column.
type Column struct {
	// Name is the column name.
	Name string `json:"name"`
	// Kind is the declared value kind.
	Kind Kind `json:"kind"`
}

// Schema is an ordered sequence of columns. Column order is significant:
// rows are positional and hashing depends on it.
type Schema struct {
	cols  []Column
	index map[string]int
}

// NewSchema builds a schema from the given columns.
// Duplicate column names return an error.
func NewSchema(cols ...Column) (*Schema, error) {
	s := &Schema{
		cols:  cols,
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if _, dup := s.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		s.index[c.Name] = i
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error. Intended for tests and
// static schemas.
func MustSchema(cols ...Column) *Schema {
	s, err := NewSchema(cols...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of columns.
func (s *Schema) Len() int { return len(s.cols) }

// Columns returns the ordered column list. Callers must not mutate it.
func (s *Schema) Columns() []Column { return s.cols }

// Column returns the i-th column.
func (s *Schema) Column(i int) Column { return s.cols[i] }

// Index returns the position of the named column.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Names returns the ordered column names.
func (s *Schema) Names() []string {
	names := make([]string, len(s.cols))
	for i, c := range s.cols {
		names[i] = c.Name
	}
	return names
}

// KeyIndices resolves the given key column names to positions.
// A missing column is reported by name so callers can surface which side
// of a comparison lacks it.
func (s *Schema) KeyIndices(keyColumns []string) ([]int, error) {
	idx := make([]int, 0, len(keyColumns))
	for _, name := range keyColumns {
		i, ok := s.index[name]
		if !ok {
			return nil, fmt.Errorf("key column %q not in schema", name)
		}
		idx = append(idx, i)
	}
	return idx, nil
}

// Row is a positional slice of values in schema order.
type Row []Value

// MemSize returns an estimate of the row's resident size in bytes.
func (r Row) MemSize() int64 {
	size := int64(24)
	for _, v := range r {
		size += v.MemSize()
	}
	return size
}

// Key extracts the key tuple at the given positions.
func (r Row) Key(indices []int) []Value {
	key := make([]Value, len(indices))
	for i, idx := range indices {
		key[i] = r[idx]
	}
	return key
}

// KeyEqual reports exact equality of two key tuples (null equals null).
func KeyEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].EqualKey(b[i]) {
			return false
		}
	}
	return true
}

// KeyString renders a key tuple for display, joining components with "|".
func KeyString(key []Value) string {
	if len(key) == 1 {
		return key[0].String()
	}
	out := ""
	for i, v := range key {
		if i > 0 {
			out += "|"
		}
		out += v.String()
	}
	return out
}

// DriftKind classifies a schema-drift note.
type DriftKind string

const (
	// DriftSourceOnly marks a column present only in the source schema.
	DriftSourceOnly DriftKind = "source_only"
	// DriftTargetOnly marks a column present only in the target schema.
	DriftTargetOnly DriftKind = "target_only"
	// DriftKindChanged marks a column whose declared kind differs.
	DriftKindChanged DriftKind = "kind_changed"
)

// DriftNote records one schema difference between source and target.
// Columns present on only one side are excluded from value comparison and
// reported here instead; kind changes are reported but the column is still
// compared by value.
type DriftNote struct {
	Column     string    `json:"column"`
	Kind       DriftKind `json:"kind"`
	SourceKind Kind      `json:"source_kind,omitempty"`
	TargetKind Kind      `json:"target_kind,omitempty"`
}

// Drift compares two schemas and returns notes for columns present on only
// one side or declared with different kinds. Order follows the source
// schema, then target-only columns in target order.
func Drift(source, target *Schema) []DriftNote {
	var notes []DriftNote
	for _, c := range source.cols {
		j, ok := target.Index(c.Name)
		if !ok {
			notes = append(notes, DriftNote{Column: c.Name, Kind: DriftSourceOnly, SourceKind: c.Kind})
			continue
		}
		if tc := target.Column(j); tc.Kind != c.Kind {
			notes = append(notes, DriftNote{Column: c.Name, Kind: DriftKindChanged, SourceKind: c.Kind, TargetKind: tc.Kind})
		}
	}
	for _, c := range target.cols {
		if _, ok := source.Index(c.Name); !ok {
			notes = append(notes, DriftNote{Column: c.Name, Kind: DriftTargetOnly, TargetKind: c.Kind})
		}
	}
	return notes
}
