package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	t1 := NewIRTime(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC))
	t2 := NewIRTime(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name   string
		a, b   IRValue
		want   int
		wantOK bool
	}{
		{"int less", IRInt(1970), IRInt(1975), -1, true},
		{"int equal", IRInt(1973), IRInt(1973), 0, true},
		{"int vs float", IRInt(2), IRFloat(1.5), 1, true},
		{"float vs int equal", IRFloat(3), IRInt(3), 0, true},
		{"string lexical", IRString("Ann Doe"), IRString("Jack Doe"), -1, true},
		{"bool", IRBool(false), IRBool(true), -1, true},
		{"time", t2, t1, 1, true},
		{"entity", IREntity("a"), IREntity("b"), -1, true},
		{"null lowest", IRNull{}, IRInt(0), -1, true},
		{"null greatest other side", IRString(""), nil, 1, true},
		{"both null", nil, IRNull{}, 0, true},
		{"string vs int", IRString("1"), IRInt(1), 0, false},
		{"array", IRArray{}, IRArray{}, 0, false},
		{"entity vs string", IREntity("a"), IRString("a"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Compare(tt.a, tt.b)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompareLargeIntsStayExact(t *testing.T) {
	// float64 cannot tell these apart
	a := IRInt(9007199254740993)
	b := IRInt(9007199254740992)
	got, ok := Compare(a, b)
	assert.True(t, ok)
	assert.Equal(t, 1, got)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(IRInt(1), IRFloat(1)))
	assert.True(t, Equal(IRArray{IRString("a"), IRInt(1)}, IRArray{IRString("a"), IRInt(1)}))
	assert.False(t, Equal(IRArray{IRString("a")}, IRArray{IRString("a"), IRInt(1)}))
	assert.True(t, Equal(
		IRObject{"name": IRString("Penang")},
		IRObject{"name": IRString("Penang")}))
	assert.False(t, Equal(
		IRObject{"name": IRString("Penang")},
		IRObject{"title": IRString("Penang")}))
	assert.False(t, Equal(IRString("x"), IRArray{IRString("x")}))
	assert.True(t, Equal(nil, IRNull{}))
}
