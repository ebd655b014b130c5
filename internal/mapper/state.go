package mapper

import (
	"strconv"
	"strings"

	"brink_bridge/internal/types"
)

// Metric label names.
const (
	LabelSystemID   = "system_id"
	LabelGatewayID  = "gateway_id"
	LabelSystemName = "system_name"
	LabelMode       = "mode"
	LabelSensor     = "sensor"
	LabelKind       = "kind"
)

// FiltersNeedChange reports the filter status. ok is false when the
// parameter is missing or has no value.
func FiltersNeedChange(p *types.Parameter) (needChange, ok bool) {
	if p == nil || p.Value == nil {
		return false, false
	}
	return strings.TrimSpace(*p.Value) == FilterNeedsChangeValue, true
}

// VentilationLevel returns the current ventilation level as an integer.
func VentilationLevel(p *types.Parameter) (int, bool) {
	if p == nil || p.Value == nil {
		return 0, false
	}
	level, err := strconv.Atoi(strings.TrimSpace(*p.Value))
	if err != nil {
		return 0, false
	}
	return level, true
}

// NumericValue parses a sensor reading. A decimal comma is accepted.
func NumericValue(p *types.Parameter) (float64, bool) {
	if p == nil || p.Value == nil {
		return 0, false
	}
	s := strings.Replace(strings.TrimSpace(*p.Value), ",", ".", 1)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// OptionTexts returns the display texts of a parameter's options in order.
func OptionTexts(p *types.Parameter) []string {
	if p == nil {
		return nil
	}
	texts := make([]string, 0, len(p.Values))
	for _, v := range p.Values {
		texts = append(texts, v.Text)
	}
	return texts
}
