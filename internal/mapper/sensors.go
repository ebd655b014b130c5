package mapper

import (
	"strings"

	"brink_bridge/internal/types"
)

// Matcher reports whether a vendor parameter name belongs to a sensor kind.
type Matcher func(name string) bool

// ContainsFold matches names containing substr, ignoring case.
func ContainsFold(substr string) Matcher {
	needle := strings.ToLower(substr)
	return func(name string) bool {
		return strings.Contains(strings.ToLower(name), needle)
	}
}

// SensorRule ties a sensor kind to the matchers that identify it.
type SensorRule struct {
	Kind     string
	Matchers []Matcher
}

// Match reports whether any matcher of the rule accepts name.
func (r SensorRule) Match(name string) bool {
	for _, m := range r.Matchers {
		if m(name) {
			return true
		}
	}
	return false
}

// SensorRules is evaluated in order; the first matching rule wins.
var SensorRules = []SensorRule{
	{
		Kind: types.KindCO2,
		Matchers: []Matcher{
			ContainsFold("PPM eBus CO2-sensor"),
			ContainsFold("PPM CO2-sensor"),
		},
	},
	{
		Kind:     types.KindTemperature,
		Matchers: []Matcher{ContainsFold("temperatur")},
	},
	{
		Kind:     types.KindHumidity,
		Matchers: []Matcher{ContainsFold("feuchte"), ContainsFold("humidity")},
	},
}

// ClassifySensor returns the sensor kind for a vendor parameter name.
func ClassifySensor(rules []SensorRule, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, r := range rules {
		if r.Match(name) {
			return r.Kind, true
		}
	}
	return "", false
}

// Units per sensor kind, as consumers display them.
var sensorUnits = map[string]string{
	types.KindCO2:         "ppm",
	types.KindTemperature: "°C",
	types.KindHumidity:    "%",
}

// SensorUnit returns the unit of measurement for a sensor kind.
func SensorUnit(kind string) string {
	return sensorUnits[kind]
}
