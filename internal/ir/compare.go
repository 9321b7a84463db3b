package ir

import (
	"cmp"
	"strings"
)

// Compare orders two values by their natural ordering.
//
// Null sorts before every other value. Ints and floats compare numerically.
// Strings compare lexically, times chronologically, bools false before true,
// and entity references by identity. The second result is false when the
// values have no common ordering (for example a string and an int, or any
// array or object).
func Compare(a, b IRValue) (int, bool) {
	aNull, bNull := IsNull(a), IsNull(b)
	switch {
	case aNull && bNull:
		return 0, true
	case aNull:
		return -1, true
	case bNull:
		return 1, true
	}

	if af, ok := numeric(a); ok {
		if bf, ok := numeric(b); ok {
			if ai, ok := a.(IRInt); ok {
				if bi, ok := b.(IRInt); ok {
					return cmp.Compare(ai, bi), true
				}
			}
			return cmp.Compare(af, bf), true
		}
		return 0, false
	}

	switch av := a.(type) {
	case IRString:
		if bv, ok := b.(IRString); ok {
			return strings.Compare(string(av), string(bv)), true
		}
	case IRBool:
		if bv, ok := b.(IRBool); ok {
			switch {
			case av == bv:
				return 0, true
			case !bool(av):
				return -1, true
			default:
				return 1, true
			}
		}
	case IRTime:
		if bv, ok := b.(IRTime); ok {
			return av.t.Compare(bv.t), true
		}
	case IREntity:
		if bv, ok := b.(IREntity); ok {
			return strings.Compare(string(av), string(bv)), true
		}
	}
	return 0, false
}

func numeric(v IRValue) (float64, bool) {
	switch n := v.(type) {
	case IRInt:
		return float64(n), true
	case IRFloat:
		return float64(n), true
	}
	return 0, false
}

// Equal reports deep value equality. Numbers compare across int and float;
// arrays compare element-wise and objects key-wise.
func Equal(a, b IRValue) bool {
	switch av := a.(type) {
	case IRArray:
		bv, ok := b.(IRArray)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case IRObject:
		bv, ok := b.(IRObject)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, x := range av {
			y, ok := bv[k]
			if !ok || !Equal(x, y) {
				return false
			}
		}
		return true
	}
	c, ok := Compare(a, b)
	return ok && c == 0
}
