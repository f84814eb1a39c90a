package row

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueEqualKey(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"NullEqualsNull", Null(), Null(), true},
		{"NullVsValue", Null(), Int(0), false},
		{"IntEqual", Int(5), Int(5), true},
		{"IntNotEqual", Int(5), Int(6), false},
		{"IntVsFloatNeverEqual", Int(1), Float(1), false},
		{"StringEqual", Str("a"), Str("a"), true},
		{"BoolEqual", Bool(true), Bool(true), true},
		{"FloatExact", Float(2.5), Float(2.5), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.EqualKey(tt.b))
			assert.Equal(t, tt.want, tt.b.EqualKey(tt.a))
		})
	}
}

func TestValueEqual(t *testing.T) {
	t.Run("CrossNumeric", func(t *testing.T) {
		assert.True(t, Int(1).Equal(Float(1.0), 0))
		assert.True(t, Float(2.0).Equal(Int(2), 0))
		assert.False(t, Int(1).Equal(Float(1.5), 0))
	})

	t.Run("Tolerance", func(t *testing.T) {
		assert.True(t, Float(10.0).Equal(Float(10.004), 0.01))
		assert.False(t, Float(10.0).Equal(Float(10.02), 0.01))
		// tolerance only applies to numerics
		assert.False(t, Str("a").Equal(Str("b"), 5))
	})

	t.Run("NullNotWithinAnyTolerance", func(t *testing.T) {
		assert.False(t, Null().Equal(Float(0), 100))
		assert.True(t, Null().Equal(Null(), 0))
	})

	t.Run("TimestampByInstant", func(t *testing.T) {
		utc := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		zone := time.FixedZone("plus3", 3*3600)
		assert.True(t, Timestamp(utc).Equal(Timestamp(utc.In(zone)), 0))
	})
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "NULL", Null().String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "-7", Int(-7).String())
	assert.Equal(t, "2.5", Float(2.5).String())
	assert.Equal(t, "hi", Str("hi").String())
}

func TestValueMarshalJSON(t *testing.T) {
	ts := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	payload, err := json.Marshal([]Value{
		Null(), Bool(true), Int(3), Float(2.5), Str("x"), Timestamp(ts),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[null, true, 3, 2.5, "x", "2026-04-01T10:00:00Z"]`, string(payload))
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "5", KeyString([]Value{Int(5)}))
	assert.Equal(t, "5|west", KeyString([]Value{Int(5), Str("west")}))
}
