package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// UnmarshalValue decodes a JSON document into an IRValue.
//
// Numbers without a fraction or exponent become IRInt, all others IRFloat.
// Times and entity references arrive as strings; callers that know the
// declared kind use Coerce to recover them.
func UnmarshalValue(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode value: trailing data")
	}
	return FromGo(raw)
}

// UnmarshalObject decodes a JSON object into an IRObject.
func UnmarshalObject(data []byte) (IRObject, error) {
	v, err := UnmarshalValue(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(IRObject)
	if !ok {
		return nil, fmt.Errorf("decode object: got %s", v.Kind())
	}
	return obj, nil
}

// MarshalValue encodes v as plain JSON using the ToGo mapping.
// Use MarshalCanonical when the bytes feed a hash.
func MarshalValue(v IRValue) ([]byte, error) {
	return json.Marshal(ToGo(v))
}
