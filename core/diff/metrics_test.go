package diff

import (
	"fmt"
	"math/rand"
	"testing"

	"koala-diff/core/row"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWelfordMatchesNaiveVariance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := &ColumnMetrics{}
	var deltas []float64
	for i := 0; i < 500; i++ {
		d := rng.NormFloat64()*12 + 3
		deltas = append(deltas, d)
		m.welford(d)
	}

	var mean float64
	for _, d := range deltas {
		mean += d
	}
	mean /= float64(len(deltas))
	var m2 float64
	for _, d := range deltas {
		m2 += (d - mean) * (d - mean)
	}

	assert.InDelta(t, mean, m.Mean, 1e-9)
	assert.InDelta(t, m2/float64(len(deltas)), m.Variance(), 1e-9)
}

func TestVarianceUnderTwoSamples(t *testing.T) {
	m := &ColumnMetrics{}
	assert.Zero(t, m.Variance())
	m.welford(5)
	assert.Zero(t, m.Variance())
	m.welford(9)
	assert.InDelta(t, 4.0, m.Variance(), 1e-9)
}

func TestColumnMetricsMergeEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	single := &ColumnMetrics{}
	left := &ColumnMetrics{}
	right := &ColumnMetrics{}
	for i := 0; i < 400; i++ {
		d := rng.NormFloat64() * 4
		single.welford(d)
		if i%2 == 0 {
			left.welford(d)
		} else {
			right.welford(d)
		}
	}

	merged := left.merge(right)
	assert.Equal(t, single.N, merged.N)
	assert.InDelta(t, single.Mean, merged.Mean, 1e-9)
	assert.InDelta(t, single.Variance(), merged.Variance(), 1e-9)
}

func TestAggregatesMergeAssociative(t *testing.T) {
	build := func(seed int64, n int) *Aggregates {
		rng := rand.New(rand.NewSource(seed))
		a := NewAggregates()
		for i := 0; i < n; i++ {
			key := fmt.Sprintf("k%d", i)
			a.addKey(Modified)
			a.addComparedPair()
			a.column("amount").noteChange(key, row.Float(rng.Float64()), row.Float(rng.Float64()*2))
			a.column("name").noteUnchanged()
		}
		return a
	}
	a, b, c := build(1, 50), build(2, 70), build(3, 30)

	mergedLeft := a.Merge(b).Merge(c)
	mergedRight := a.Merge(b.Merge(c))

	assert.Equal(t, mergedLeft.KeyCounts, mergedRight.KeyCounts)
	assert.Equal(t, mergedLeft.ComparedPairs, mergedRight.ComparedPairs)
	require.Contains(t, mergedLeft.Columns, "amount")
	assert.Equal(t, mergedLeft.Columns["amount"].Changed, mergedRight.Columns["amount"].Changed)
	assert.InDelta(t, mergedLeft.Columns["amount"].Mean, mergedRight.Columns["amount"].Mean, 1e-9)
	assert.InDelta(t, mergedLeft.Columns["amount"].Variance(), mergedRight.Columns["amount"].Variance(), 1e-9)
	assert.Equal(t, mergedLeft.Columns["name"].Unchanged, mergedRight.Columns["name"].Unchanged)
}

func TestMergeIsPure(t *testing.T) {
	a := NewAggregates()
	a.addKey(Matched)
	a.column("x").noteUnchanged()
	b := NewAggregates()
	b.addKey(Matched)
	b.column("x").noteUnchanged()

	_ = a.Merge(b)
	assert.Equal(t, int64(1), a.KeyCounts[Matched])
	assert.Equal(t, int64(1), a.Columns["x"].Unchanged)
	assert.Equal(t, int64(1), b.KeyCounts[Matched])
}

func TestMatchIntegrity(t *testing.T) {
	tests := []struct {
		name    string
		matched int64
		modded  int64
		dups    int64
		want    float64
	}{
		{"AllMatched", 10, 0, 0, 1.0},
		{"Half", 5, 4, 1, 0.5},
		{"NoOverlap", 0, 0, 0, 1.0},
		{"NoneMatched", 0, 3, 0, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAggregates()
			a.KeyCounts[Matched] = tt.matched
			a.KeyCounts[Modified] = tt.modded
			a.KeyCounts[DuplicateKey] = tt.dups
			assert.InDelta(t, tt.want, a.MatchIntegrity(), 1e-9)
		})
	}
}

func TestSampleCapBounded(t *testing.T) {
	m := &ColumnMetrics{}
	for i := 0; i < 20; i++ {
		m.noteChange(fmt.Sprintf("k%d", i), row.Int(int64(i)), row.Int(int64(i+1)))
	}
	assert.Len(t, m.Samples, defaultSampleCap)
	assert.Equal(t, int64(20), m.Changed)
}
