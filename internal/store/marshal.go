package store

import (
	"fmt"

	"github.com/roach88/shapeq/internal/entity"
	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/shape"
)

// marshalState converts entity state to JSON TEXT for the state table.
// Times are written in ir.TimeLayout and entity references as identities;
// unmarshalState restores them with entity.Normalize.
func marshalState(state ir.IRObject) (string, error) {
	if state == nil {
		state = ir.IRObject{}
	}
	data, err := ir.MarshalValue(state)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	return string(data), nil
}

// unmarshalState parses stored JSON TEXT back into a normalized record.
// Large integers survive because ir.UnmarshalObject decodes numbers as
// json.Number.
func unmarshalState(reg *shape.Registry, identity, shapeName, data string) (entity.Record, error) {
	state := ir.IRObject{}
	if data != "" && data != "{}" {
		obj, err := ir.UnmarshalObject([]byte(data))
		if err != nil {
			return entity.Record{}, fmt.Errorf("unmarshal state: %w", err)
		}
		state = obj
	}
	return entity.Normalize(reg, entity.Record{ID: identity, Type: shapeName, State: state})
}

// columnValue converts a single-valued accessor to a driver parameter.
// Collections and value objects become JSON TEXT; null becomes NULL.
func columnValue(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return nil, nil
	case ir.IRArray, ir.IRObject:
		data, err := ir.MarshalValue(val)
		if err != nil {
			return nil, fmt.Errorf("marshal column: %w", err)
		}
		return string(data), nil
	default:
		return ir.ToGo(val), nil
	}
}
