package mapper

import (
	"errors"
	"fmt"

	"brink_bridge/internal/types"
)

// ErrMissingField is returned when a descriptor lacks a mandatory vendor field.
var ErrMissingField = errors.New("missing mandatory field")

// BuildParameter converts a vendor parameter descriptor into a Parameter.
// Optional fields may be absent; valueId must be a non-null scalar and value
// must be present.
func BuildParameter(d types.ParameterDescriptor) (*types.Parameter, error) {
	if !d.ValueID.Present || !d.ValueID.Valid {
		return nil, fmt.Errorf("parameter %q: valueId: %w", d.Name, ErrMissingField)
	}
	if !d.Value.Present {
		return nil, fmt.Errorf("parameter %q: value: %w", d.Name, ErrMissingField)
	}

	return &types.Parameter{
		Name:    Translate(d.Name),
		ValueID: d.ValueID.Text,
		Value:   d.Value.Ptr(),
		Values:  selectableValues(d.ListItems),
	}, nil
}

// selectableValues keeps only options the vendor marks as selectable.
func selectableValues(items []types.ListItem) []types.ParameterValue {
	values := make([]types.ParameterValue, 0, len(items))
	for _, it := range items {
		if !it.IsSelectable {
			continue
		}
		values = append(values, types.ParameterValue{
			Value: it.Value.Text,
			Text:  Translate(it.DisplayText),
		})
	}
	return values
}
