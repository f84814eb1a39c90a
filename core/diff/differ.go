package diff

import (
	"context"
	"fmt"
	"io"
	"math/bits"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"koala-diff/core/row"
)

// RowStream is the abstract row source consumed by the differ: a finite,
// forward-only sequence of rows under a shared schema. Next returns io.EOF
// after the last row. The differ never assumes random access or a known
// row count, and never restarts a stream.
type RowStream interface {
	Schema() *row.Schema
	Next() (row.Row, error)
}

// Differ runs memory-bounded comparisons between two row streams.
type Differ struct {
	opts Options
}

// New validates the options and returns a Differ.
func New(opts Options) (*Differ, error) {
	normalized, err := opts.Validate()
	if err != nil {
		return nil, err
	}
	return &Differ{opts: normalized}, nil
}

// Compare is a convenience wrapper around New and Differ.Compare.
func Compare(ctx context.Context, source, target RowStream, opts Options) (*Result, error) {
	d, err := New(opts)
	if err != nil {
		return nil, err
	}
	return d.Compare(ctx, source, target)
}

// plan resolves key positions and the comparable column set up front, so
// schema problems surface before any row is read.
type plan struct {
	sourceKeyIdx []int
	targetKeyIdx []int
	common       []commonColumn
	drift        []row.DriftNote
}

func (d *Differ) plan(src, tgt *row.Schema) (*plan, error) {
	p := &plan{}
	isKey := make(map[string]bool, len(d.opts.KeyColumns))
	for _, name := range d.opts.KeyColumns {
		isKey[name] = true
		i, ok := src.Index(name)
		if !ok {
			return nil, &SchemaMismatchError{Side: SideSource, Column: name}
		}
		j, ok := tgt.Index(name)
		if !ok {
			return nil, &SchemaMismatchError{Side: SideTarget, Column: name}
		}
		p.sourceKeyIdx = append(p.sourceKeyIdx, i)
		p.targetKeyIdx = append(p.targetKeyIdx, j)
	}
	for i, c := range src.Columns() {
		if isKey[c.Name] {
			continue
		}
		j, ok := tgt.Index(c.Name)
		if !ok {
			continue
		}
		p.common = append(p.common, commonColumn{
			name:      c.Name,
			sourceIdx: i,
			targetIdx: j,
			epsilon:   d.opts.tolerance(c.Name),
		})
	}
	p.drift = row.Drift(src, tgt)
	return p, nil
}

// worker holds the per-goroutine join state: its own hasher, aggregate and
// record buffer. Workers share nothing mutable; partial aggregates are
// merged after all partitions complete.
type worker struct {
	opts         *Options
	sourceKeyIdx []int
	targetKeyIdx []int
	common       []commonColumn
	hasher       *Hasher
	dir          string
	budget       int64
	maxFanout    int

	agg     *Aggregates
	records []Record
}

func (w *worker) emit(rec Record) { w.records = append(w.records, rec) }

// Compare classifies every key present in either stream. It aborts with no
// partial result on any error or on cancellation; cancellation is checked
// at partition boundaries during the join phase, not mid-partition.
func (d *Differ) Compare(ctx context.Context, source, target RowStream) (*Result, error) {
	start := time.Now()

	pl, err := d.plan(source.Schema(), target.Schema())
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(d.opts.TempDir, "koala-diff-")
	if err != nil {
		return nil, fmt.Errorf("creating spill directory: %w", err)
	}
	defer os.RemoveAll(dir)

	fanout := d.opts.PartitionFanout
	ps := newPartitionSet(dir, fanout, d.opts.MemoryBudgetBytes)
	defer ps.cleanup()

	// Phase 1: route every row to its partition. Null counts and row
	// totals are folded here since the full stream passes through once.
	base := NewAggregates()
	hasher := NewHasher()
	if err := ingest(ctx, ps, source, SideSource, pl.sourceKeyIdx, hasher, base); err != nil {
		return nil, err
	}
	if err := ingest(ctx, ps, target, SideTarget, pl.targetKeyIdx, hasher, base); err != nil {
		return nil, err
	}

	// Phase 2: join partitions independently, one aggregate per partition.
	workers := d.opts.Workers
	if workers > fanout {
		workers = fanout
	}
	aggs := make([]*Aggregates, fanout)
	recs := make([][]Record, fanout)
	shift := uint(bits.TrailingZeros(uint(fanout)))

	newWorker := func() *worker {
		return &worker{
			opts:         &d.opts,
			sourceKeyIdx: pl.sourceKeyIdx,
			targetKeyIdx: pl.targetKeyIdx,
			common:       pl.common,
			hasher:       NewHasher(),
			dir:          dir,
			budget:       d.opts.MemoryBudgetBytes / int64(workers),
			maxFanout:    d.opts.MaxFanout,
		}
	}

	runPartition := func(w *worker, idx int) error {
		w.agg = NewAggregates()
		w.records = nil
		if err := w.process(ps, idx, shift, fanout, idx); err != nil {
			return err
		}
		aggs[idx] = w.agg
		recs[idx] = w.records
		return nil
	}

	if workers <= 1 {
		w := newWorker()
		for idx := 0; idx < fanout; idx++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := runPartition(w, idx); err != nil {
				return nil, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		indices := make(chan int)
		g.Go(func() error {
			defer close(indices)
			for idx := 0; idx < fanout; idx++ {
				select {
				case indices <- idx:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
		for i := 0; i < workers; i++ {
			g.Go(func() error {
				w := newWorker()
				for idx := range indices {
					if err := gctx.Err(); err != nil {
						return err
					}
					if err := runPartition(w, idx); err != nil {
						return err
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	// Merge partial aggregates and concatenate records in partition order.
	total := base
	var records []Record
	for idx := 0; idx < fanout; idx++ {
		if aggs[idx] != nil {
			total = total.Merge(aggs[idx])
		}
		records = append(records, recs[idx]...)
	}

	return &Result{
		records: records,
		agg:     total,
		drift:   pl.drift,
		keyCols: d.opts.KeyColumns,
		fanout:  fanout,
		elapsed: time.Since(start),
	}, nil
}

// ingest streams one side into the partition set.
func ingest(ctx context.Context, ps *partitionSet, stream RowStream, side Side, keyIdx []int, hasher *Hasher, agg *Aggregates) error {
	schema := stream.Schema()
	var offset int64
	for {
		if offset&0x0fff == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		r, err := stream.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &SourceReadError{Side: side, Offset: offset, Err: err}
		}
		agg.countNulls(side, schema, r)
		if side == SideSource {
			agg.SourceRows++
		} else {
			agg.TargetRows++
		}
		if err := ps.add(side, hasher.HashKey(r.Key(keyIdx)), r); err != nil {
			return err
		}
		offset++
	}
}

// process joins one partition, splitting it by further key-hash bits when
// its source side exceeds the worker's budget share. label is the
// top-level partition index, carried through splits for diagnostics.
func (w *worker) process(ps *partitionSet, idx int, shift uint, effFanout, label int) error {
	if ps.empty(idx) {
		ps.release(idx)
		return nil
	}
	if srcBytes := ps.sourceBytes(idx); srcBytes > w.budget {
		if effFanout*2 > w.maxFanout {
			return &PartitionOverflowError{
				Partition: label,
				Fanout:    effFanout,
				Bytes:     srcBytes,
				Budget:    w.budget,
			}
		}
		child := newPartitionSet(w.dir, 2, w.budget)
		defer child.cleanup()
		for side := SideSource; side <= SideTarget; side++ {
			keyIdx := w.sourceKeyIdx
			if side == SideTarget {
				keyIdx = w.targetKeyIdx
			}
			err := ps.forEach(idx, side, func(r row.Row) error {
				h := w.hasher.HashKey(r.Key(keyIdx))
				return child.addTo(int((h>>shift)&1), side, r)
			})
			if err != nil {
				return err
			}
		}
		ps.release(idx)
		for ci := 0; ci < 2; ci++ {
			if err := w.process(child, ci, shift+1, effFanout*2, label); err != nil {
				return err
			}
		}
		return nil
	}
	err := w.joinPartition(ps, idx)
	ps.release(idx)
	return err
}
