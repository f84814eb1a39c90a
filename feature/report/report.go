package report

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"koala-diff/core/diff"
	"koala-diff/core/row"
)

// maxRecords bounds how many classified records a report carries. The full
// record set stays available on the diff.Result for callers that need it.
const maxRecords = 1000

// ColumnReport is the reportable view of one column's drift metrics.
type ColumnReport struct {
	Name          string        `json:"name"`
	Changed       int64         `json:"changed"`
	Unchanged     int64         `json:"unchanged"`
	MatchRate     float64       `json:"match_rate"`
	NulledToValue int64         `json:"nulled_to_value"`
	ValueToNulled int64         `json:"value_to_nulled"`
	SourceNulls   int64         `json:"source_nulls"`
	TargetNulls   int64         `json:"target_nulls"`
	MeanDelta     float64       `json:"mean_delta"`
	DeltaVariance float64       `json:"delta_variance"`
	Samples       []diff.Sample `json:"samples,omitempty"`
}

// Report is a serializable snapshot of one comparison.
type Report struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Source      string    `json:"source"`
	Target      string    `json:"target"`
	KeyColumns  []string  `json:"key_columns"`

	SourceRows     int64                         `json:"source_rows"`
	TargetRows     int64                         `json:"target_rows"`
	ComparedPairs  int64                         `json:"compared_pairs"`
	Counts         map[diff.Classification]int64 `json:"counts"`
	MatchIntegrity float64                       `json:"match_integrity"`

	Columns     []ColumnReport  `json:"columns"`
	SchemaDrift []row.DriftNote `json:"schema_drift,omitempty"`
	Records     []diff.Record   `json:"records"`
	Truncated   bool            `json:"truncated"`

	Fanout    int   `json:"fanout"`
	ElapsedMS int64 `json:"elapsed_ms"`
}

// Build assembles a report from a comparison result. Columns are sorted by
// name so report output is deterministic.
func Build(result *diff.Result, source, target string) *Report {
	r := &Report{
		ID:             uuid.NewString(),
		GeneratedAt:    time.Now().UTC(),
		Source:         source,
		Target:         target,
		KeyColumns:     result.KeyColumns(),
		SourceRows:     result.SourceRows(),
		TargetRows:     result.TargetRows(),
		ComparedPairs:  result.ComparedPairs(),
		Counts:         result.Counts(),
		MatchIntegrity: result.MatchIntegrity(),
		SchemaDrift:    result.SchemaDrift(),
		Fanout:         result.Fanout(),
		ElapsedMS:      result.Elapsed().Milliseconds(),
	}

	metrics := result.ColumnMetrics()
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	r.Columns = make([]ColumnReport, 0, len(names))
	for _, name := range names {
		m := metrics[name]
		r.Columns = append(r.Columns, ColumnReport{
			Name:          name,
			Changed:       m.Changed,
			Unchanged:     m.Unchanged,
			MatchRate:     matchRate(m),
			NulledToValue: m.NulledToValue,
			ValueToNulled: m.ValueToNulled,
			SourceNulls:   m.SourceNulls,
			TargetNulls:   m.TargetNulls,
			MeanDelta:     m.Mean,
			DeltaVariance: m.Variance(),
			Samples:       m.Samples,
		})
	}

	records := result.Rows()
	if len(records) > maxRecords {
		records = records[:maxRecords]
		r.Truncated = true
	}
	r.Records = records
	return r
}

// matchRate is the fraction of compared pairs where the column was
// unchanged, 1.0 when the column was never compared.
func matchRate(m *diff.ColumnMetrics) float64 {
	total := m.Changed + m.Unchanged
	if total == 0 {
		return 1.0
	}
	return float64(m.Unchanged) / float64(total)
}
