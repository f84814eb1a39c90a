package diff

import (
	"sync/atomic"

	"koala-diff/core/row"
)

// sideBuffer holds one partition side: a resident row suffix plus an
// optional spill file holding the earlier prefix. Spill blocks are written
// in stream order and resident rows are always the newest suffix, so
// replaying the file and then the resident rows preserves first-seen order.
type sideBuffer struct {
	rows       []row.Row
	memBytes   int64
	totalBytes int64
	totalRows  int64
	spill      *spillFile
}

// partitionBuffer is one partition's buffered data for both sides.
type partitionBuffer struct {
	idx   int
	sides [2]sideBuffer
}

func (p *partitionBuffer) memBytes() int64 {
	return p.sides[SideSource].memBytes + p.sides[SideTarget].memBytes
}

// partitionSet routes rows into fanout partitions under a shared memory
// budget, spilling the largest resident partition when the budget is
// exceeded. Eviction is greedy by size, not LRU: every partition is needed
// exactly once later and nothing is re-read before the join phase.
type partitionSet struct {
	dir      string
	fanout   int
	budget   int64
	resident int64
	parts    []*partitionBuffer
}

func newPartitionSet(dir string, fanout int, budget int64) *partitionSet {
	ps := &partitionSet{dir: dir, fanout: fanout, budget: budget}
	ps.parts = make([]*partitionBuffer, fanout)
	for i := range ps.parts {
		ps.parts[i] = &partitionBuffer{idx: i}
	}
	return ps
}

// partitionOf is the pure routing function: keyHash mod fanout. Fanout is a
// power of two so this is a mask. All rows sharing a key tuple share a
// keyHash and therefore a partition.
func (ps *partitionSet) partitionOf(keyHash uint64) int {
	return int(keyHash & uint64(ps.fanout-1))
}

// add routes one row to its partition, spilling as needed to stay under
// budget. The row must not be mutated by the caller afterwards.
func (ps *partitionSet) add(side Side, keyHash uint64, r row.Row) error {
	return ps.addTo(ps.partitionOf(keyHash), side, r)
}

func (ps *partitionSet) addTo(idx int, side Side, r row.Row) error {
	size := r.MemSize()
	sb := &ps.parts[idx].sides[side]
	sb.rows = append(sb.rows, r)
	sb.memBytes += size
	sb.totalBytes += size
	sb.totalRows++
	ps.resident += size

	for ps.resident > ps.budget {
		if err := ps.spillLargest(); err != nil {
			return err
		}
	}
	return nil
}

// spillLargest writes the largest resident partition to disk and frees it.
func (ps *partitionSet) spillLargest() error {
	var victim *partitionBuffer
	for _, p := range ps.parts {
		if p.memBytes() == 0 {
			continue
		}
		if victim == nil || p.memBytes() > victim.memBytes() {
			victim = p
		}
	}
	if victim == nil {
		// Nothing resident to evict; a single row exceeds the budget.
		// The join phase reports the overflow with partition context.
		return nil
	}
	for side := SideSource; side <= SideTarget; side++ {
		sb := &victim.sides[side]
		if len(sb.rows) == 0 {
			continue
		}
		if sb.spill == nil {
			f, err := newSpillFile(ps.dir, victim.idx, side)
			if err != nil {
				return err
			}
			sb.spill = f
		}
		if err := sb.spill.writeBlock(sb.rows); err != nil {
			return err
		}
		ps.resident -= sb.memBytes
		sb.rows = nil
		sb.memBytes = 0
	}
	return nil
}

// forEach replays one partition side in first-seen stream order: the
// spilled prefix, then the resident suffix.
func (ps *partitionSet) forEach(idx int, side Side, fn func(row.Row) error) error {
	sb := &ps.parts[idx].sides[side]
	if sb.spill != nil {
		if err := sb.spill.iterate(fn); err != nil {
			return err
		}
	}
	for _, r := range sb.rows {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// sourceBytes returns the lifetime source-side byte total for a partition,
// spilled data included.
func (ps *partitionSet) sourceBytes(idx int) int64 {
	return ps.parts[idx].sides[SideSource].totalBytes
}

// empty reports whether a partition received no rows on either side.
func (ps *partitionSet) empty(idx int) bool {
	p := ps.parts[idx]
	return p.sides[SideSource].totalRows == 0 && p.sides[SideTarget].totalRows == 0
}

// release drops one partition's resident data and deletes its spill files.
// Called as soon as a partition has been joined so disk and memory are
// reclaimed incrementally. Workers release distinct partitions
// concurrently, so the shared resident counter is updated atomically.
func (ps *partitionSet) release(idx int) {
	p := ps.parts[idx]
	for side := SideSource; side <= SideTarget; side++ {
		sb := &p.sides[side]
		if sb.spill != nil {
			_ = sb.spill.close()
			sb.spill = nil
		}
		atomic.AddInt64(&ps.resident, -sb.memBytes)
		sb.rows = nil
		sb.memBytes = 0
	}
}

// cleanup releases every partition. Safe after partial failures.
func (ps *partitionSet) cleanup() {
	for i := range ps.parts {
		ps.release(i)
	}
}
