package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// FromGo converts a Go literal to an IRValue.
//
// Accepted inputs: nil, any IRValue, strings, signed and unsigned integers,
// floats, bools, time.Time, json.Number, slices of those, and
// map[string]any. Unsigned values above math.MaxInt64 are rejected.
func FromGo(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case int:
		return IRInt(val), nil
	case int8:
		return IRInt(val), nil
	case int16:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint:
		return fromUint(uint64(val))
	case uint8:
		return IRInt(val), nil
	case uint16:
		return IRInt(val), nil
	case uint32:
		return IRInt(val), nil
	case uint64:
		return fromUint(val)
	case float32:
		return IRFloat(val), nil
	case float64:
		return IRFloat(val), nil
	case json.Number:
		return fromNumber(val)
	case time.Time:
		return NewIRTime(val), nil
	case []string:
		arr := make(IRArray, len(val))
		for i, s := range val {
			arr[i] = IRString(s)
		}
		return arr, nil
	case []int:
		arr := make(IRArray, len(val))
		for i, n := range val {
			arr[i] = IRInt(n)
		}
		return arr, nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func fromUint(n uint64) (IRValue, error) {
	if n > math.MaxInt64 {
		return nil, fmt.Errorf("integer %d overflows int64", n)
	}
	return IRInt(n), nil
}

func fromNumber(n json.Number) (IRValue, error) {
	if i, err := n.Int64(); err == nil {
		return IRInt(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", n, err)
	}
	return IRFloat(f), nil
}

// ToGo converts an IRValue to the plain Go value used as a driver parameter
// or a JSON document. Times become TimeLayout strings and entity references
// become their identity.
func ToGo(v IRValue) any {
	switch val := v.(type) {
	case nil, IRNull:
		return nil
	case IRString:
		return string(val)
	case IRInt:
		return int64(val)
	case IRFloat:
		return float64(val)
	case IRBool:
		return bool(val)
	case IRTime:
		return val.String()
	case IREntity:
		return string(val)
	case IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case IRObject:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToGo(elem)
		}
		return out
	default:
		return nil
	}
}

// Coerce converts v to the requested kind where the conversion is lossless
// or conventional: ints widen to float, integral floats narrow to int,
// strings parse as times and name entities. Null coerces to every kind.
func Coerce(v IRValue, want Kind) (IRValue, error) {
	if IsNull(v) {
		return IRNull{}, nil
	}
	if v.Kind() == want {
		return v, nil
	}

	switch want {
	case KindFloat:
		if n, ok := v.(IRInt); ok {
			return IRFloat(n), nil
		}
		if s, ok := v.(IRString); ok {
			if f, err := strconv.ParseFloat(string(s), 64); err == nil {
				return IRFloat(f), nil
			}
		}
	case KindInt:
		if f, ok := v.(IRFloat); ok && float64(f) == math.Trunc(float64(f)) {
			return IRInt(int64(f)), nil
		}
		if s, ok := v.(IRString); ok {
			if n, err := strconv.ParseInt(string(s), 10, 64); err == nil {
				return IRInt(n), nil
			}
		}
	case KindTime:
		if s, ok := v.(IRString); ok {
			t, err := ParseTime(string(s))
			if err != nil {
				return nil, fmt.Errorf("cannot coerce %q to time: %w", string(s), err)
			}
			return NewIRTime(t), nil
		}
	case KindEntity:
		if s, ok := v.(IRString); ok {
			return IREntity(s), nil
		}
	case KindBool:
		if s, ok := v.(IRString); ok {
			if b, err := strconv.ParseBool(string(s)); err == nil {
				return IRBool(b), nil
			}
		}
	case KindString:
		if e, ok := v.(IREntity); ok {
			return IRString(e), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %s to %s", v.Kind(), want)
}
