package diff

import (
	"koala-diff/core/row"
)

// keyGroup collects every row sharing one exact key tuple within a
// partition. Duplicate keys are grouped, never silently deduplicated.
type keyGroup struct {
	keyHash uint64
	key     []row.Value
	sources []row.Row
	targets []row.Row
	touched bool
}

// joinPartition runs the two-phase hash join for one partition: build an
// index of the source side keyed by keyHash, then probe it with the target
// side. Hash matches are confirmed by exact key-tuple equality, so distinct
// keys colliding on a 64-bit hash share a bucket but never a group.
//
// The index must be fully built before probing begins; probing mutates
// group state and is not safe to interleave with insertion.
func (w *worker) joinPartition(ps *partitionSet, idx int) error {
	var (
		order      []*keyGroup // source insertion order
		discovered []*keyGroup // first-touch order during probe
		index      = make(map[uint64][]*keyGroup)
		targetOnly = make(map[uint64][]*keyGroup)
	)

	err := ps.forEach(idx, SideSource, func(r row.Row) error {
		key := r.Key(w.sourceKeyIdx)
		h := w.hasher.HashKey(key)
		for _, g := range index[h] {
			if row.KeyEqual(g.key, key) {
				g.sources = append(g.sources, r)
				return nil
			}
		}
		g := &keyGroup{keyHash: h, key: key, sources: []row.Row{r}}
		index[h] = append(index[h], g)
		order = append(order, g)
		return nil
	})
	if err != nil {
		return err
	}

	err = ps.forEach(idx, SideTarget, func(r row.Row) error {
		key := r.Key(w.targetKeyIdx)
		h := w.hasher.HashKey(key)
		for _, g := range index[h] {
			if row.KeyEqual(g.key, key) {
				if !g.touched {
					g.touched = true
					discovered = append(discovered, g)
				}
				g.targets = append(g.targets, r)
				return nil
			}
		}
		for _, g := range targetOnly[h] {
			if row.KeyEqual(g.key, key) {
				g.targets = append(g.targets, r)
				return nil
			}
		}
		g := &keyGroup{keyHash: h, key: key, targets: []row.Row{r}}
		targetOnly[h] = append(targetOnly[h], g)
		discovered = append(discovered, g)
		return nil
	})
	if err != nil {
		return err
	}

	// Emit outcomes: groups in probe discovery order first, residual
	// source-only groups last. This ordering is stable across runs for a
	// fixed fan-out.
	for _, g := range discovered {
		w.classify(g)
	}
	for _, g := range order {
		if !g.touched {
			w.classify(g)
		}
	}
	return nil
}
