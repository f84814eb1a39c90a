package row

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchema(t *testing.T) {
	s, err := NewSchema(
		Column{Name: "id", Kind: KindInt},
		Column{Name: "name", Kind: KindString},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	i, ok := s.Index("name")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = s.Index("missing")
	assert.False(t, ok)
}

func TestNewSchemaDuplicateColumn(t *testing.T) {
	_, err := NewSchema(
		Column{Name: "id", Kind: KindInt},
		Column{Name: "id", Kind: KindString},
	)
	assert.ErrorContains(t, err, "duplicate column")
}

func TestKeyIndices(t *testing.T) {
	s := MustSchema(
		Column{Name: "region", Kind: KindString},
		Column{Name: "id", Kind: KindInt},
		Column{Name: "qty", Kind: KindFloat},
	)

	idx, err := s.KeyIndices([]string{"id", "region"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, idx)

	_, err = s.KeyIndices([]string{"absent"})
	assert.ErrorContains(t, err, `"absent"`)
}

func TestRowKey(t *testing.T) {
	r := Row{Str("eu"), Int(9), Float(1.5)}
	key := r.Key([]int{1, 0})
	require.Len(t, key, 2)
	assert.True(t, key[0].EqualKey(Int(9)))
	assert.True(t, key[1].EqualKey(Str("eu")))
}

func TestDrift(t *testing.T) {
	source := MustSchema(
		Column{Name: "id", Kind: KindInt},
		Column{Name: "price", Kind: KindInt},
		Column{Name: "legacy", Kind: KindString},
	)
	target := MustSchema(
		Column{Name: "id", Kind: KindInt},
		Column{Name: "price", Kind: KindFloat},
		Column{Name: "fresh", Kind: KindBool},
	)

	notes := Drift(source, target)
	require.Len(t, notes, 3)
	assert.Equal(t, DriftNote{Column: "price", Kind: DriftKindChanged, SourceKind: KindInt, TargetKind: KindFloat}, notes[0])
	assert.Equal(t, DriftNote{Column: "legacy", Kind: DriftSourceOnly, SourceKind: KindString}, notes[1])
	assert.Equal(t, DriftNote{Column: "fresh", Kind: DriftTargetOnly, TargetKind: KindBool}, notes[2])
}

func TestDriftIdenticalSchemas(t *testing.T) {
	s := MustSchema(Column{Name: "id", Kind: KindInt})
	assert.Empty(t, Drift(s, s))
}
