package mapper

import (
	"fmt"
	"strconv"
	"strings"

	"brink_bridge/internal/types"
)

type selectionKind int

const (
	selectIndex selectionKind = iota
	selectValue
	selectText
	selectAny
)

// Selection identifies one option of a selectable parameter.
type Selection struct {
	kind  selectionKind
	index int
	raw   string
}

// SelectIndex selects the option at position i of the selectable options.
func SelectIndex(i int) Selection { return Selection{kind: selectIndex, index: i} }

// SelectValue selects the option whose raw vendor value equals v.
func SelectValue(v string) Selection { return Selection{kind: selectValue, raw: v} }

// SelectText selects the option whose display text equals t, ignoring case.
func SelectText(t string) Selection { return Selection{kind: selectText, raw: t} }

// SelectAny tries display text, then raw value, then a decimal index.
func SelectAny(s string) Selection { return Selection{kind: selectAny, raw: s} }

// String implements fmt.Stringer.
func (s Selection) String() string {
	switch s.kind {
	case selectIndex:
		return fmt.Sprintf("index %d", s.index)
	case selectValue:
		return fmt.Sprintf("value %q", s.raw)
	case selectText:
		return fmt.Sprintf("text %q", s.raw)
	default:
		return fmt.Sprintf("%q", s.raw)
	}
}

// Resolve returns the raw vendor value the selection refers to.
func (s Selection) Resolve(values []types.ParameterValue) (string, bool) {
	switch s.kind {
	case selectIndex:
		return byIndex(values, s.index)
	case selectValue:
		return byValue(values, s.raw)
	case selectText:
		return byText(values, s.raw)
	case selectAny:
		if v, ok := byText(values, s.raw); ok {
			return v, true
		}
		if v, ok := byValue(values, s.raw); ok {
			return v, true
		}
		if i, err := strconv.Atoi(strings.TrimSpace(s.raw)); err == nil {
			return byIndex(values, i)
		}
	}
	return "", false
}

func byIndex(values []types.ParameterValue, i int) (string, bool) {
	if i < 0 || i >= len(values) {
		return "", false
	}
	return values[i].Value, true
}

func byValue(values []types.ParameterValue, v string) (string, bool) {
	for _, pv := range values {
		if pv.Value == v {
			return pv.Value, true
		}
	}
	return "", false
}

func byText(values []types.ParameterValue, t string) (string, bool) {
	t = strings.TrimSpace(t)
	if t == "" {
		return "", false
	}
	for _, pv := range values {
		if strings.EqualFold(pv.Text, t) {
			return pv.Value, true
		}
	}
	return "", false
}
