package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"koala-diff/core/row"
)

// Source is a finite, forward-only row stream. Next returns io.EOF after
// the last row. A Source is not restartable and must be closed by the
// caller.
type Source interface {
	// Schema returns the stream's schema. Stable for the stream's lifetime.
	Schema() *row.Schema
	// Next returns the next row, or io.EOF when exhausted.
	Next() (row.Row, error)
	// Close releases underlying resources.
	Close() error
}

// inferSampleSize is the number of leading records sampled for schema
// inference in text formats.
const inferSampleSize = 128

// Open opens a local file as a row stream, dispatching on the extension.
func Open(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return OpenCSV(path)
	case ".json":
		return OpenJSON(path)
	case ".jsonl", ".ndjson":
		return OpenNDJSON(path)
	case ".parquet", ".pq":
		return OpenParquet(path)
	default:
		return nil, fmt.Errorf("unsupported input format %q", filepath.Ext(path))
	}
}

// combineKind folds a newly observed cell kind into the running kind for a
// column. Null observations carry no information; mixed int/float widens
// to float; any other mix degrades to string.
func combineKind(current, observed row.Kind) row.Kind {
	if observed == row.KindNull {
		return current
	}
	if current == row.KindNull || current == observed {
		return observed
	}
	if (current == row.KindInt && observed == row.KindFloat) ||
		(current == row.KindFloat && observed == row.KindInt) {
		return row.KindFloat
	}
	return row.KindString
}
