package diff

import (
	"time"

	"koala-diff/core/row"
)

// Result is the immutable outcome of one Compare invocation. It is owned
// exclusively by the caller after Compare returns.
type Result struct {
	records []Record
	agg     *Aggregates
	drift   []row.DriftNote
	keyCols []string
	fanout  int
	elapsed time.Duration
}

// Counts returns the number of distinct key tuples per classification.
// Classifications with no keys are present with a zero count.
func (r *Result) Counts() map[Classification]int64 {
	counts := map[Classification]int64{
		Added: 0, Removed: 0, Matched: 0, Modified: 0, DuplicateKey: 0,
	}
	for c, n := range r.agg.KeyCounts {
		counts[c] = n
	}
	return counts
}

// Rows returns the classified row records, optionally filtered by
// classification. Records appear in partition order, then probe-discovery
// order within a partition. Matched records are retained only when
// Options.RetainMatched is set.
func (r *Result) Rows(filter ...Classification) []Record {
	if len(filter) == 0 {
		out := make([]Record, len(r.records))
		copy(out, r.records)
		return out
	}
	want := make(map[Classification]bool, len(filter))
	for _, c := range filter {
		want[c] = true
	}
	var out []Record
	for _, rec := range r.records {
		if want[rec.Class] {
			out = append(out, rec)
		}
	}
	return out
}

// ColumnMetrics returns the per-column drift statistics keyed by column
// name. The returned map is a copy; the metrics values are shared and must
// be treated as read-only.
func (r *Result) ColumnMetrics() map[string]*ColumnMetrics {
	out := make(map[string]*ColumnMetrics, len(r.agg.Columns))
	for name, m := range r.agg.Columns {
		out[name] = m
	}
	return out
}

// MatchIntegrity is the fraction of keys present on both sides whose rows
// are unchanged.
func (r *Result) MatchIntegrity() float64 { return r.agg.MatchIntegrity() }

// SchemaDrift returns the schema differences between source and target.
func (r *Result) SchemaDrift() []row.DriftNote { return r.drift }

// SourceRows returns the total number of rows read from the source.
func (r *Result) SourceRows() int64 { return r.agg.SourceRows }

// TargetRows returns the total number of rows read from the target.
func (r *Result) TargetRows() int64 { return r.agg.TargetRows }

// ComparedPairs returns the number of row pairs compared.
func (r *Result) ComparedPairs() int64 { return r.agg.ComparedPairs }

// KeyColumns returns the key column names the comparison was keyed on.
func (r *Result) KeyColumns() []string { return r.keyCols }

// Fanout returns the top-level partition fan-out used.
func (r *Result) Fanout() int { return r.fanout }

// Elapsed returns the wall time of the comparison.
func (r *Result) Elapsed() time.Duration { return r.elapsed }
