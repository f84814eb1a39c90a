package diff

import (
	"koala-diff/core/row"
)

// Sample is one retained example of a changed value, for reporting.
type Sample struct {
	Key string `json:"key"`
	Old string `json:"old"`
	New string `json:"new"`
}

// ColumnMetrics accumulates per-column drift statistics. Change counters
// are restricted to modified pairs; null counters cover every row seen on
// the respective side. Numeric variance of the change delta (new minus old)
// is computed online with Welford's algorithm so no second pass or
// unbounded buffering is ever needed.
type ColumnMetrics struct {
	Changed       int64 `json:"changed"`
	Unchanged     int64 `json:"unchanged"`
	NulledToValue int64 `json:"nulled_to_value"`
	ValueToNulled int64 `json:"value_to_nulled"`
	SourceNulls   int64 `json:"source_nulls"`
	TargetNulls   int64 `json:"target_nulls"`

	// Welford state over numeric deltas of changed values.
	N    int64   `json:"n"`
	Mean float64 `json:"mean"`
	M2   float64 `json:"m2"`

	Samples []Sample `json:"samples,omitempty"`
}

// Variance returns the population variance of the numeric change deltas,
// zero when fewer than two deltas were observed.
func (m *ColumnMetrics) Variance() float64 {
	if m.N < 2 {
		return 0
	}
	return m.M2 / float64(m.N)
}

func (m *ColumnMetrics) noteChange(key string, old, new_ row.Value) {
	m.Changed++
	oldNull, newNull := old.IsNull(), new_.IsNull()
	switch {
	case oldNull && !newNull:
		m.NulledToValue++
	case !oldNull && newNull:
		m.ValueToNulled++
	}
	if a, ok := old.Numeric(); ok {
		if b, ok := new_.Numeric(); ok {
			m.welford(b - a)
		}
	}
	if len(m.Samples) < defaultSampleCap {
		m.Samples = append(m.Samples, Sample{Key: key, Old: old.String(), New: new_.String()})
	}
}

func (m *ColumnMetrics) noteUnchanged() { m.Unchanged++ }

func (m *ColumnMetrics) welford(delta float64) {
	m.N++
	d := delta - m.Mean
	m.Mean += d / float64(m.N)
	m.M2 += d * (delta - m.Mean)
}

// merge combines two Welford states with Chan et al.'s parallel update.
func (m *ColumnMetrics) merge(o *ColumnMetrics) *ColumnMetrics {
	out := &ColumnMetrics{
		Changed:       m.Changed + o.Changed,
		Unchanged:     m.Unchanged + o.Unchanged,
		NulledToValue: m.NulledToValue + o.NulledToValue,
		ValueToNulled: m.ValueToNulled + o.ValueToNulled,
		SourceNulls:   m.SourceNulls + o.SourceNulls,
		TargetNulls:   m.TargetNulls + o.TargetNulls,
	}
	out.N = m.N + o.N
	if out.N > 0 {
		d := o.Mean - m.Mean
		out.Mean = m.Mean + d*float64(o.N)/float64(out.N)
		out.M2 = m.M2 + o.M2 + d*d*float64(m.N)*float64(o.N)/float64(out.N)
	}
	out.Samples = append(out.Samples, m.Samples...)
	for _, s := range o.Samples {
		if len(out.Samples) >= defaultSampleCap {
			break
		}
		out.Samples = append(out.Samples, s)
	}
	return out
}

// Aggregates is the mergeable metrics state produced per partition. Merge
// is pure and associative, so partitions processed independently combine
// into the same aggregate as a single-pass computation regardless of
// grouping; that is the seam for parallel partition processing.
type Aggregates struct {
	KeyCounts     map[Classification]int64  `json:"key_counts"`
	ComparedPairs int64                     `json:"compared_pairs"`
	SourceRows    int64                     `json:"source_rows"`
	TargetRows    int64                     `json:"target_rows"`
	Columns       map[string]*ColumnMetrics `json:"columns"`
}

// NewAggregates returns an empty aggregate.
func NewAggregates() *Aggregates {
	return &Aggregates{
		KeyCounts: make(map[Classification]int64),
		Columns:   make(map[string]*ColumnMetrics),
	}
}

func (a *Aggregates) addKey(c Classification) { a.KeyCounts[c]++ }

func (a *Aggregates) addComparedPair() { a.ComparedPairs++ }

// column returns the metrics bucket for a column, creating it on first use.
func (a *Aggregates) column(name string) *ColumnMetrics {
	m, ok := a.Columns[name]
	if !ok {
		m = &ColumnMetrics{}
		a.Columns[name] = m
	}
	return m
}

// countNulls folds one row's null positions into the side's null counters.
func (a *Aggregates) countNulls(side Side, schema *row.Schema, r row.Row) {
	for i, v := range r {
		if !v.IsNull() {
			continue
		}
		m := a.column(schema.Column(i).Name)
		if side == SideSource {
			m.SourceNulls++
		} else {
			m.TargetNulls++
		}
	}
}

// Merge returns a new aggregate combining a and o. Neither input is
// mutated. Counter merging is commutative; sample retention keeps the
// receiver's samples first and is bounded, so only sample ordering depends
// on merge order.
func (a *Aggregates) Merge(o *Aggregates) *Aggregates {
	out := NewAggregates()
	for c, n := range a.KeyCounts {
		out.KeyCounts[c] += n
	}
	for c, n := range o.KeyCounts {
		out.KeyCounts[c] += n
	}
	out.ComparedPairs = a.ComparedPairs + o.ComparedPairs
	out.SourceRows = a.SourceRows + o.SourceRows
	out.TargetRows = a.TargetRows + o.TargetRows
	empty := &ColumnMetrics{}
	for name, m := range a.Columns {
		other, ok := o.Columns[name]
		if !ok {
			other = empty
		}
		out.Columns[name] = m.merge(other)
	}
	for name, m := range o.Columns {
		if _, ok := a.Columns[name]; !ok {
			out.Columns[name] = empty.merge(m)
		}
	}
	return out
}

// MatchIntegrity is the fraction of keys present in both datasets whose
// rows are unchanged: Matched / (Matched + Modified + DuplicateKey).
// It is 1.0 when no key is present on both sides.
func (a *Aggregates) MatchIntegrity() float64 {
	both := a.KeyCounts[Matched] + a.KeyCounts[Modified] + a.KeyCounts[DuplicateKey]
	if both == 0 {
		return 1.0
	}
	return float64(a.KeyCounts[Matched]) / float64(both)
}
