package ir

import (
	"slices"
	"time"
	"unicode/utf16"
)

// Kind identifies the shape of an IRValue.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindTime
	KindEntity
	KindArray
	KindObject
)

var kindNames = [...]string{
	KindNull:   "null",
	KindString: "string",
	KindInt:    "int",
	KindFloat:  "float",
	KindBool:   "bool",
	KindTime:   "time",
	KindEntity: "entity",
	KindArray:  "array",
	KindObject: "object",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// IRValue is a sealed interface representing constrained value types.
// Only the types declared in this file implement it.
type IRValue interface {
	irValue() // Sealed - only these types implement it
	Kind() Kind
}

// IRNull represents the absence of a value.
// Using an explicit type ensures all IRValues satisfy the sealed interface.
type IRNull struct{}

func (IRNull) irValue()   {}
func (IRNull) Kind() Kind { return KindNull }

// IRString represents a string value.
type IRString string

func (IRString) irValue()   {}
func (IRString) Kind() Kind { return KindString }

// IRInt represents an integer value.
type IRInt int64

func (IRInt) irValue()   {}
func (IRInt) Kind() Kind { return KindInt }

// IRFloat represents a floating point value.
type IRFloat float64

func (IRFloat) irValue()   {}
func (IRFloat) Kind() Kind { return KindFloat }

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue()   {}
func (IRBool) Kind() Kind { return KindBool }

// IRTime represents an instant. Construct with NewIRTime so the zone is UTC.
type IRTime struct {
	t time.Time
}

func (IRTime) irValue()   {}
func (IRTime) Kind() Kind { return KindTime }

// Time returns the instant in UTC.
func (v IRTime) Time() time.Time { return v.t }

// String renders the instant with TimeLayout.
func (v IRTime) String() string { return FormatTime(v.t) }

// IREntity is a reference to an entity by identity.
type IREntity string

func (IREntity) irValue()   {}
func (IREntity) Kind() Kind { return KindEntity }

// Identity returns the referenced entity identity.
func (v IREntity) Identity() string { return string(v) }

// IRArray represents an ordered collection of values.
type IRArray []IRValue

func (IRArray) irValue()   {}
func (IRArray) Kind() Kind { return KindArray }

// IRObject represents a value object: a map of accessor names to values.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue()   {}
func (IRObject) Kind() Kind { return KindObject }

// TimeLayout is a fixed-width RFC 3339 layout. Text in this layout sorts in
// the same order as the instants it encodes, which SQL backends rely on.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// NewIRTime creates an IRTime normalized to UTC.
func NewIRTime(t time.Time) IRTime {
	return IRTime{t: t.UTC()}
}

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts TimeLayout, RFC 3339 (with or without fractional
// seconds) and plain dates.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range []string{TimeLayout, time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	_, err := time.Parse(time.RFC3339Nano, s)
	return time.Time{}, err
}

// NewIRString creates an IRString value.
func NewIRString(s string) IRString {
	return IRString(s)
}

// NewIRInt creates an IRInt value.
func NewIRInt(n int64) IRInt {
	return IRInt(n)
}

// NewIRBool creates an IRBool value.
func NewIRBool(b bool) IRBool {
	return IRBool(b)
}

// NewIRArray creates an IRArray from values.
func NewIRArray(vals ...IRValue) IRArray {
	return IRArray(vals)
}

// IRPair represents a key-value pair for typed IRObject construction.
type IRPair struct {
	Key   string
	Value IRValue
}

// O is a shorthand for IRPair for ergonomic construction.
// Example: NewIRObjectFromPairs(O("name", NewIRString("Penang")))
func O(key string, value IRValue) IRPair {
	return IRPair{Key: key, Value: value}
}

// NewIRObjectFromPairs creates an IRObject from typed key-value pairs.
func NewIRObjectFromPairs(pairs ...IRPair) IRObject {
	obj := make(IRObject, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// IsNull reports whether v is nil or IRNull.
func IsNull(v IRValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(IRNull)
	return ok
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
