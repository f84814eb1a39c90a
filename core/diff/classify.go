package diff

import (
	"koala-diff/core/row"
)

// Classification labels a distinct key tuple.
type Classification string

const (
	// Added keys exist only in the target.
	Added Classification = "added"
	// Removed keys exist only in the source.
	Removed Classification = "removed"
	// Matched keys have identical non-key values on both sides.
	Matched Classification = "matched"
	// Modified keys exist on both sides with differing non-key values.
	Modified Classification = "modified"
	// DuplicateKey keys exist on both sides with more than one row on at
	// least one side.
	DuplicateKey Classification = "duplicate_key"
)

// ColumnDelta records one changed column of a modified pair.
type ColumnDelta struct {
	Column string    `json:"column"`
	Old    row.Value `json:"old"`
	New    row.Value `json:"new"`
}

// PairOutcome is the result of pairing one source row with one target row
// inside a duplicate-key group, or a leftover row on either side.
type PairOutcome struct {
	Class Classification `json:"class"`
	Delta []ColumnDelta  `json:"delta,omitempty"`
}

// DuplicateGroup describes a duplicate-key group and, under the ordinal
// policy, its pairing outcomes.
type DuplicateGroup struct {
	SourceRows int           `json:"source_rows"`
	TargetRows int           `json:"target_rows"`
	Pairs      []PairOutcome `json:"pairs,omitempty"`
}

// Record is one classified row record in the result.
type Record struct {
	Key   []row.Value     `json:"key"`
	Class Classification  `json:"class"`
	Delta []ColumnDelta   `json:"delta,omitempty"`
	Group *DuplicateGroup `json:"group,omitempty"`
}

// commonColumn is a non-key column present in both schemas, resolved to a
// position on each side.
type commonColumn struct {
	name      string
	sourceIdx int
	targetIdx int
	epsilon   float64
}

// classify turns one join outcome into records and metric updates.
func (w *worker) classify(g *keyGroup) {
	ns, nt := len(g.sources), len(g.targets)
	switch {
	case nt == 0:
		// One record per physical source row; the key counts once.
		w.agg.addKey(Removed)
		for range g.sources {
			w.emit(Record{Key: g.key, Class: Removed})
		}
	case ns == 0:
		w.agg.addKey(Added)
		for range g.targets {
			w.emit(Record{Key: g.key, Class: Added})
		}
	case ns == 1 && nt == 1:
		class, delta := w.comparePair(g.key, g.sources[0], g.targets[0])
		w.agg.addKey(class)
		if class == Matched && !w.opts.RetainMatched {
			return
		}
		w.emit(Record{Key: g.key, Class: class, Delta: delta})
	default:
		w.agg.addKey(DuplicateKey)
		group := &DuplicateGroup{SourceRows: ns, TargetRows: nt}
		if w.opts.DuplicateKeyPolicy == OrdinalPair {
			group.Pairs = w.pairOrdinal(g)
		}
		w.emit(Record{Key: g.key, Class: DuplicateKey, Group: group})
	}
}

// pairOrdinal pairs the i-th source row with the i-th target row in
// first-seen stream order; leftover rows on the longer side become Added or
// Removed pair outcomes. Nothing is dropped.
func (w *worker) pairOrdinal(g *keyGroup) []PairOutcome {
	n := len(g.sources)
	if len(g.targets) < n {
		n = len(g.targets)
	}
	pairs := make([]PairOutcome, 0, len(g.sources)+len(g.targets)-n)
	for i := 0; i < n; i++ {
		class, delta := w.comparePair(g.key, g.sources[i], g.targets[i])
		pairs = append(pairs, PairOutcome{Class: class, Delta: delta})
	}
	for i := n; i < len(g.sources); i++ {
		pairs = append(pairs, PairOutcome{Class: Removed})
	}
	for i := n; i < len(g.targets); i++ {
		pairs = append(pairs, PairOutcome{Class: Added})
	}
	return pairs
}

// comparePair decides Matched vs Modified for one source/target row pair.
// Equal row hashes are accepted as "no difference" unless paranoid
// verification is on; differing hashes always fall back to an exact
// column-by-column comparison, so a hash collision can only ever cause
// extra work, never a wrong ColumnDelta.
func (w *worker) comparePair(key []row.Value, src, tgt row.Row) (Classification, []ColumnDelta) {
	srcVals := w.commonValues(src, SideSource)
	tgtVals := w.commonValues(tgt, SideTarget)
	if !w.opts.ParanoidHashVerification &&
		w.hasher.HashRow(srcVals) == w.hasher.HashRow(tgtVals) {
		w.agg.addComparedPair()
		return Matched, nil
	}

	var delta []ColumnDelta
	for i, c := range w.common {
		if !srcVals[i].Equal(tgtVals[i], c.epsilon) {
			delta = append(delta, ColumnDelta{Column: c.name, Old: srcVals[i], New: tgtVals[i]})
		}
	}
	w.agg.addComparedPair()
	if len(delta) == 0 {
		return Matched, nil
	}

	keyStr := row.KeyString(key)
	changed := make(map[string]bool, len(delta))
	for _, d := range delta {
		changed[d.Column] = true
		w.agg.column(d.Column).noteChange(keyStr, d.Old, d.New)
	}
	for _, c := range w.common {
		if !changed[c.name] {
			w.agg.column(c.name).noteUnchanged()
		}
	}
	return Modified, delta
}

// commonValues projects a row onto the common non-key columns in canonical
// (source schema) order.
func (w *worker) commonValues(r row.Row, side Side) []row.Value {
	vals := make([]row.Value, len(w.common))
	for i, c := range w.common {
		if side == SideSource {
			vals[i] = r[c.sourceIdx]
		} else {
			vals[i] = r[c.targetIdx]
		}
	}
	return vals
}
