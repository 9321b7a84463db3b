package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	// Compile-time check via assignment
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRFloat(1.5)
	var _ IRValue = IRBool(true)
	var _ IRValue = NewIRTime(time.Now())
	var _ IRValue = IREntity("p-1")
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "string", KindString.String())
	assert.Equal(t, "entity", IREntity("x").Kind().String())
	assert.Equal(t, "unknown", Kind(42).String())
}

func TestIRObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := IRObject{
		"a":  IRInt(1),
		"A":  IRInt(2),
		"aa": IRInt(3),
		"aA": IRInt(4),
		"Aa": IRInt(5),
		"AA": IRInt(6),
	}

	// 'A' = 65, 'a' = 97
	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
	assert.Empty(t, IRObject{}.SortedKeys())
}

func TestCompareKeysRFC8785(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"a", "a", 0},
		{"a", "ab", -1},
		{"\U00010000", "\uE000", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, compareKeysRFC8785(tt.a, tt.b))
		})
	}
}

func TestNewIRTimeNormalizesToUTC(t *testing.T) {
	kl := time.FixedZone("MYT", 8*3600)
	v := NewIRTime(time.Date(1990, 6, 15, 10, 30, 0, 0, kl))

	assert.Equal(t, time.UTC, v.Time().Location())
	assert.Equal(t, "1990-06-15T02:30:00.000000000Z", v.String())
}

func TestFormatTimeSortsLexically(t *testing.T) {
	early := FormatTime(time.Date(1970, 1, 1, 0, 0, 0, 5, time.UTC))
	late := FormatTime(time.Date(1970, 1, 1, 0, 0, 0, 40, time.UTC))
	assert.Less(t, early, late)
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"1975-03-01", time.Date(1975, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"1975-03-01T10:00:00Z", time.Date(1975, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"1975-03-01T10:00:00+08:00", time.Date(1975, 3, 1, 2, 0, 0, 0, time.UTC)},
		{"1975-03-01T10:00:00.000000000Z", time.Date(1975, 3, 1, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTime(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got))
		})
	}

	_, err := ParseTime("yesterday")
	assert.Error(t, err)
}

func TestHelperConstructors(t *testing.T) {
	obj := NewIRObjectFromPairs(
		O("name", NewIRString("Penang")),
		O("founded", NewIRInt(1786)),
		O("island", NewIRBool(true)),
		O("tags", NewIRArray(NewIRString("north"))),
	)

	assert.Equal(t, IRObject{
		"name":    IRString("Penang"),
		"founded": IRInt(1786),
		"island":  IRBool(true),
		"tags":    IRArray{IRString("north")},
	}, obj)
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(IRNull{}))
	assert.False(t, IsNull(IRString("")))
	assert.False(t, IsNull(IRInt(0)))
}
