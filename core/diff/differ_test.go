package diff

import (
	"context"
	"fmt"
	"io"
	"testing"

	"koala-diff/core/row"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStream struct {
	schema *row.Schema
	rows   []row.Row
	pos    int
}

func (s *memStream) Schema() *row.Schema { return s.schema }

func (s *memStream) Next() (row.Row, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	r := s.rows[s.pos]
	s.pos++
	return r, nil
}

type failingStream struct {
	*memStream
	failAt int
}

func (s *failingStream) Next() (row.Row, error) {
	if s.pos == s.failAt {
		return nil, fmt.Errorf("disk read failed")
	}
	return s.memStream.Next()
}

var testSchema = row.MustSchema(
	row.Column{Name: "id", Kind: row.KindInt},
	row.Column{Name: "name", Kind: row.KindString},
	row.Column{Name: "qty", Kind: row.KindFloat},
)

func stream(rows ...row.Row) *memStream {
	return &memStream{schema: testSchema, rows: rows}
}

func testRow(id int64, name string, qty float64) row.Row {
	return row.Row{row.Int(id), row.Str(name), row.Float(qty)}
}

func mustCompare(t *testing.T, source, target RowStream, opts Options) *Result {
	t.Helper()
	if opts.TempDir == "" {
		opts.TempDir = t.TempDir()
	}
	result, err := Compare(context.Background(), source, target, opts)
	require.NoError(t, err)
	return result
}

func TestCompareClassification(t *testing.T) {
	source := stream(
		testRow(1, "chair", 10),
		testRow(2, "table", 20),
		testRow(3, "lamp", 30),
	)
	target := stream(
		testRow(1, "chair", 10),
		testRow(2, "table", 25),
		testRow(4, "sofa", 40),
	)

	result := mustCompare(t, source, target, Options{KeyColumns: []string{"id"}})

	counts := result.Counts()
	assert.Equal(t, int64(1), counts[Matched])
	assert.Equal(t, int64(1), counts[Modified])
	assert.Equal(t, int64(1), counts[Added])
	assert.Equal(t, int64(1), counts[Removed])
	assert.Equal(t, int64(0), counts[DuplicateKey])

	modified := result.Rows(Modified)
	require.Len(t, modified, 1)
	require.Len(t, modified[0].Delta, 1)
	assert.Equal(t, "qty", modified[0].Delta[0].Column)
	assert.Equal(t, "20", modified[0].Delta[0].Old.String())
	assert.Equal(t, "25", modified[0].Delta[0].New.String())

	assert.Equal(t, int64(3), result.SourceRows())
	assert.Equal(t, int64(3), result.TargetRows())
	assert.Equal(t, int64(2), result.ComparedPairs())
	assert.InDelta(t, 0.5, result.MatchIntegrity(), 1e-9)
}

func TestCompareMatchedNotRetained(t *testing.T) {
	source := stream(testRow(1, "a", 1))
	target := stream(testRow(1, "a", 1))
	result := mustCompare(t, source, target, Options{KeyColumns: []string{"id"}})
	assert.Empty(t, result.Rows())
	assert.Equal(t, int64(1), result.Counts()[Matched])

	source = stream(testRow(1, "a", 1))
	target = stream(testRow(1, "a", 1))
	result = mustCompare(t, source, target, Options{KeyColumns: []string{"id"}, RetainMatched: true})
	require.Len(t, result.Rows(Matched), 1)
}

func TestCompareCrossNumericMatch(t *testing.T) {
	// An int column on one side and a float column on the other should
	// still match when values are numerically equal.
	intSchema := row.MustSchema(
		row.Column{Name: "id", Kind: row.KindInt},
		row.Column{Name: "qty", Kind: row.KindInt},
	)
	floatSchema := row.MustSchema(
		row.Column{Name: "id", Kind: row.KindInt},
		row.Column{Name: "qty", Kind: row.KindFloat},
	)
	source := &memStream{schema: intSchema, rows: []row.Row{{row.Int(1), row.Int(5)}}}
	target := &memStream{schema: floatSchema, rows: []row.Row{{row.Int(1), row.Float(5.0)}}}

	for _, paranoid := range []bool{false, true} {
		t.Run(fmt.Sprintf("paranoid=%v", paranoid), func(t *testing.T) {
			source.pos, target.pos = 0, 0
			result := mustCompare(t, source, target, Options{
				KeyColumns:               []string{"id"},
				ParanoidHashVerification: paranoid,
			})
			assert.Equal(t, int64(1), result.Counts()[Matched])
		})
	}
}

func TestCompareTolerance(t *testing.T) {
	source := stream(testRow(1, "a", 10.00))
	target := stream(testRow(1, "a", 10.004))

	result := mustCompare(t, source, target, Options{
		KeyColumns:       []string{"id"},
		ColumnTolerances: map[string]float64{"qty": 0.01},
	})
	assert.Equal(t, int64(1), result.Counts()[Matched])

	source = stream(testRow(1, "a", 10.00))
	target = stream(testRow(1, "a", 10.02))
	result = mustCompare(t, source, target, Options{
		KeyColumns:       []string{"id"},
		ColumnTolerances: map[string]float64{"qty": 0.01},
	})
	assert.Equal(t, int64(1), result.Counts()[Modified])
}

func TestCompareDuplicateKeys(t *testing.T) {
	newStreams := func() (*memStream, *memStream) {
		return stream(
				testRow(1, "first", 1),
				testRow(1, "second", 2),
				testRow(1, "third", 3),
				testRow(2, "only", 9),
			), stream(
				testRow(1, "first", 1),
				testRow(1, "changed", 2),
				testRow(2, "only", 9),
			)
	}

	t.Run("OrdinalPolicy", func(t *testing.T) {
		source, target := newStreams()
		result := mustCompare(t, source, target, Options{KeyColumns: []string{"id"}})

		counts := result.Counts()
		assert.Equal(t, int64(1), counts[DuplicateKey])
		assert.Equal(t, int64(1), counts[Matched])

		dups := result.Rows(DuplicateKey)
		require.Len(t, dups, 1)
		group := dups[0].Group
		require.NotNil(t, group)
		assert.Equal(t, 3, group.SourceRows)
		assert.Equal(t, 2, group.TargetRows)
		// pair 1 matched, pair 2 modified, leftover source row removed
		require.Len(t, group.Pairs, 3)
		assert.Equal(t, Matched, group.Pairs[0].Class)
		assert.Equal(t, Modified, group.Pairs[1].Class)
		assert.Equal(t, Removed, group.Pairs[2].Class)
	})

	t.Run("UnresolvedPolicy", func(t *testing.T) {
		source, target := newStreams()
		result := mustCompare(t, source, target, Options{
			KeyColumns:         []string{"id"},
			DuplicateKeyPolicy: Unresolved,
		})
		dups := result.Rows(DuplicateKey)
		require.Len(t, dups, 1)
		require.NotNil(t, dups[0].Group)
		assert.Empty(t, dups[0].Group.Pairs)
		assert.Equal(t, 3, dups[0].Group.SourceRows)
	})

	t.Run("DuplicateOnlyOnOneSideStillGroups", func(t *testing.T) {
		source := stream(testRow(5, "a", 1), testRow(5, "a", 1))
		target := stream(testRow(5, "a", 1))
		result := mustCompare(t, source, target, Options{KeyColumns: []string{"id"}})
		assert.Equal(t, int64(1), result.Counts()[DuplicateKey])
	})

	t.Run("DuplicateOnlyInSourceWithoutTargetIsRemoved", func(t *testing.T) {
		source := stream(testRow(5, "a", 1), testRow(5, "a", 1))
		target := stream(testRow(6, "b", 2))
		result := mustCompare(t, source, target, Options{KeyColumns: []string{"id"}})
		counts := result.Counts()
		assert.Equal(t, int64(1), counts[Removed])
		assert.Equal(t, int64(0), counts[DuplicateKey])
		// one record per physical row
		assert.Len(t, result.Rows(Removed), 2)
	})
}

func TestCompareSymmetry(t *testing.T) {
	rowsA := []row.Row{testRow(1, "a", 1), testRow(2, "b", 2), testRow(3, "c", 3)}
	rowsB := []row.Row{testRow(2, "b", 2), testRow(3, "x", 3), testRow(4, "d", 4)}

	forward := mustCompare(t,
		&memStream{schema: testSchema, rows: rowsA},
		&memStream{schema: testSchema, rows: rowsB},
		Options{KeyColumns: []string{"id"}})
	backward := mustCompare(t,
		&memStream{schema: testSchema, rows: rowsB},
		&memStream{schema: testSchema, rows: rowsA},
		Options{KeyColumns: []string{"id"}})

	fc, bc := forward.Counts(), backward.Counts()
	assert.Equal(t, fc[Added], bc[Removed])
	assert.Equal(t, fc[Removed], bc[Added])
	assert.Equal(t, fc[Matched], bc[Matched])
	assert.Equal(t, fc[Modified], bc[Modified])
}

func TestComparePartitionInvariance(t *testing.T) {
	makeRows := func(n int) []row.Row {
		rows := make([]row.Row, 0, n)
		for i := 0; i < n; i++ {
			rows = append(rows, testRow(int64(i), fmt.Sprintf("item-%d", i), float64(i)))
		}
		return rows
	}
	sourceRows := makeRows(300)
	targetRows := makeRows(300)
	// perturb a slice of the target
	for i := 50; i < 80; i++ {
		targetRows[i] = testRow(int64(i), fmt.Sprintf("item-%d", i), float64(i)+0.5)
	}
	targetRows = append(targetRows, testRow(9999, "extra", 1))

	baseline := mustCompare(t,
		&memStream{schema: testSchema, rows: sourceRows},
		&memStream{schema: testSchema, rows: targetRows},
		Options{KeyColumns: []string{"id"}, PartitionFanout: 1})

	for _, tc := range []struct {
		name string
		opts Options
	}{
		{"Fanout8", Options{KeyColumns: []string{"id"}, PartitionFanout: 8}},
		{"Fanout8Workers4", Options{KeyColumns: []string{"id"}, PartitionFanout: 8, Workers: 4}},
		{"TinyBudgetSpills", Options{KeyColumns: []string{"id"}, PartitionFanout: 4, MemoryBudgetBytes: 4096, MaxFanout: 4096}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			result := mustCompare(t,
				&memStream{schema: testSchema, rows: sourceRows},
				&memStream{schema: testSchema, rows: targetRows},
				tc.opts)

			assert.Equal(t, baseline.Counts(), result.Counts())
			assert.InDelta(t, baseline.MatchIntegrity(), result.MatchIntegrity(), 1e-9)

			bm, rm := baseline.ColumnMetrics(), result.ColumnMetrics()
			require.Contains(t, rm, "qty")
			assert.Equal(t, bm["qty"].Changed, rm["qty"].Changed)
			assert.Equal(t, bm["qty"].Unchanged, rm["qty"].Unchanged)
			assert.InDelta(t, bm["qty"].Mean, rm["qty"].Mean, 1e-9)
			assert.InDelta(t, bm["qty"].Variance(), rm["qty"].Variance(), 1e-9)
		})
	}
}

func TestComparePartitionOverflow(t *testing.T) {
	// Every row shares one key, so no amount of splitting can shrink the
	// partition below the budget.
	rows := make([]row.Row, 0, 64)
	for i := 0; i < 64; i++ {
		rows = append(rows, testRow(1, "same-key", float64(i)))
	}

	_, err := Compare(context.Background(),
		&memStream{schema: testSchema, rows: rows},
		&memStream{schema: testSchema, rows: nil},
		Options{
			KeyColumns:        []string{"id"},
			PartitionFanout:   1,
			MaxFanout:         1,
			MemoryBudgetBytes: 1024,
			TempDir:           t.TempDir(),
		})
	var overflow *PartitionOverflowError
	require.ErrorAs(t, err, &overflow)
	assert.Equal(t, 0, overflow.Partition)
}

func TestCompareSchemaMismatch(t *testing.T) {
	other := row.MustSchema(row.Column{Name: "uid", Kind: row.KindInt})

	_, err := Compare(context.Background(),
		stream(), &memStream{schema: other},
		Options{KeyColumns: []string{"id"}, TempDir: t.TempDir()})
	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, SideTarget, mismatch.Side)
	assert.Equal(t, "id", mismatch.Column)
}

func TestCompareSourceReadError(t *testing.T) {
	source := &failingStream{
		memStream: stream(testRow(1, "a", 1), testRow(2, "b", 2)),
		failAt:    1,
	}
	_, err := Compare(context.Background(), source, stream(),
		Options{KeyColumns: []string{"id"}, TempDir: t.TempDir()})
	var readErr *SourceReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, SideSource, readErr.Side)
	assert.Equal(t, int64(1), readErr.Offset)
}

func TestCompareCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compare(ctx, stream(testRow(1, "a", 1)), stream(),
		Options{KeyColumns: []string{"id"}, TempDir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompareSchemaDrift(t *testing.T) {
	source := &memStream{schema: row.MustSchema(
		row.Column{Name: "id", Kind: row.KindInt},
		row.Column{Name: "legacy", Kind: row.KindString},
		row.Column{Name: "qty", Kind: row.KindInt},
	), rows: []row.Row{{row.Int(1), row.Str("x"), row.Int(2)}}}
	target := &memStream{schema: row.MustSchema(
		row.Column{Name: "id", Kind: row.KindInt},
		row.Column{Name: "qty", Kind: row.KindFloat},
		row.Column{Name: "fresh", Kind: row.KindBool},
	), rows: []row.Row{{row.Int(1), row.Float(2), row.Bool(true)}}}

	result := mustCompare(t, source, target, Options{KeyColumns: []string{"id"}})

	drift := result.SchemaDrift()
	require.Len(t, drift, 3)
	assert.Equal(t, row.DriftNote{Column: "legacy", Kind: row.DriftSourceOnly, SourceKind: row.KindString}, drift[0])
	assert.Equal(t, row.DriftNote{Column: "qty", Kind: row.DriftKindChanged, SourceKind: row.KindInt, TargetKind: row.KindFloat}, drift[1])
	assert.Equal(t, row.DriftNote{Column: "fresh", Kind: row.DriftTargetOnly, TargetKind: row.KindBool}, drift[2])

	// one-side columns are excluded from comparison, qty still compares
	assert.Equal(t, int64(1), result.Counts()[Matched])
}

func TestCompareEmptyStreams(t *testing.T) {
	result := mustCompare(t, stream(), stream(), Options{KeyColumns: []string{"id"}})
	counts := result.Counts()
	for _, c := range []Classification{Added, Removed, Matched, Modified, DuplicateKey} {
		assert.Equal(t, int64(0), counts[c])
	}
	assert.InDelta(t, 1.0, result.MatchIntegrity(), 1e-9)
}

func TestOptionsValidate(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		opts, err := Options{KeyColumns: []string{"id"}}.Validate()
		require.NoError(t, err)
		assert.Equal(t, int64(DefaultMemoryBudget), opts.MemoryBudgetBytes)
		assert.Equal(t, DefaultFanout, opts.PartitionFanout)
		assert.Equal(t, DefaultMaxFanout, opts.MaxFanout)
		assert.Equal(t, OrdinalPair, opts.DuplicateKeyPolicy)
		assert.Equal(t, 1, opts.Workers)
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := Options{}.Validate()
		assert.Error(t, err)
		_, err = Options{KeyColumns: []string{"id"}, PartitionFanout: 3}.Validate()
		assert.Error(t, err)
		_, err = Options{KeyColumns: []string{"id"}, DuplicateKeyPolicy: "bogus"}.Validate()
		assert.Error(t, err)
	})
}
