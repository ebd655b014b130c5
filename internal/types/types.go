// Package types contains shared type definitions used across the brink_bridge packages.
package types

import (
	"bytes"
	"encoding/json"
)

// Parameter roles used as keys in System.Parameters.
const (
	RoleVentilation       = "ventilation"
	RoleMode              = "mode"
	RoleFiltersNeedChange = "filters_need_change"
)

// Sensor kinds attached to dynamically discovered parameters.
const (
	KindCO2         = "co2"
	KindTemperature = "temperature"
	KindHumidity    = "humidity"
)

// System is one ventilation unit behind a gateway, with its latest parameters.
// A nil entry in Parameters means the role was expected but not found.
type System struct {
	SystemID   string                `json:"system_id"`
	GatewayID  string                `json:"gateway_id"`
	Name       string                `json:"name"`
	Parameters map[string]*Parameter `json:"parameters,omitempty"`
}

// Parameter returns the parameter stored under role, or nil.
func (s *System) Parameter(role string) *Parameter {
	if s.Parameters == nil {
		return nil
	}
	return s.Parameters[role]
}

// SameUnit reports whether the system is identified by the given pair.
func (s *System) SameUnit(systemID, gatewayID string) bool {
	return s.SystemID == systemID && s.GatewayID == gatewayID
}

// Parameter is the canonical form of a vendor parameter descriptor.
type Parameter struct {
	Name    string           `json:"name"`
	ValueID string           `json:"value_id"`
	Value   *string          `json:"value"`
	Values  []ParameterValue `json:"values"`
	Kind    string           `json:"kind,omitempty"`
}

// CurrentValue returns the raw value or "" when the vendor reported null.
func (p *Parameter) CurrentValue() string {
	if p == nil || p.Value == nil {
		return ""
	}
	return *p.Value
}

// CurrentText returns the display text of the option matching the current value.
func (p *Parameter) CurrentText() (string, bool) {
	if p == nil || p.Value == nil {
		return "", false
	}
	for _, v := range p.Values {
		if v.Value == *p.Value {
			return v.Text, true
		}
	}
	return "", false
}

// Clone returns a deep copy so snapshot readers never share mutable state.
func (p *Parameter) Clone() *Parameter {
	if p == nil {
		return nil
	}
	out := *p
	if p.Value != nil {
		v := *p.Value
		out.Value = &v
	}
	if p.Values != nil {
		out.Values = append([]ParameterValue(nil), p.Values...)
	}
	return &out
}

// ParameterValue is one selectable option of a parameter.
type ParameterValue struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// WriteResult holds the values the vendor echoed back after a write.
// A nil field means the parameter was not echoed and must not be overwritten.
type WriteResult struct {
	ModeValue        *string `json:"mode_value"`
	VentilationValue *string `json:"ventilation_value"`
}

// ===== Raw vendor shapes =====

// RawSystem is an entry of the GetSystemList response.
type RawSystem struct {
	ID        RawValue `json:"id"`
	GatewayID RawValue `json:"gatewayId"`
	Name      string   `json:"name"`
}

// GuiDescription is the GetAppGuiDescriptionForGateway response.
type GuiDescription struct {
	MenuItems []MenuItem `json:"menuItems"`
}

// MenuItem groups pages of the vendor GUI description.
type MenuItem struct {
	Pages []Page `json:"pages"`
}

// Page groups parameter descriptors.
type Page struct {
	ParameterDescriptors []ParameterDescriptor `json:"parameterDescriptors"`
}

// ParameterDescriptor describes a single vendor parameter.
type ParameterDescriptor struct {
	Name      string     `json:"name"`
	UIID      string     `json:"uiId"`
	ValueID   RawValue   `json:"valueId"`
	Value     RawValue   `json:"value"`
	ListItems []ListItem `json:"listItems"`
}

// ListItem is one option of a parameter descriptor.
type ListItem struct {
	Value        RawValue `json:"value"`
	DisplayText  string   `json:"displayText"`
	IsSelectable bool     `json:"isSelectable"`
}

// WriteRequest is the WriteParameterValuesAsync request body.
type WriteRequest struct {
	GatewayID                     string                `json:"GatewayId"`
	SystemID                      string                `json:"SystemId"`
	WriteParameterValues          []WriteParameterValue `json:"WriteParameterValues"`
	SendInOneBundle               bool                  `json:"SendInOneBundle"`
	DependendReadValuesAfterWrite []string              `json:"DependendReadValuesAfterWrite"`
}

// WriteParameterValue is a single ValueId/Value pair of a bundle write.
type WriteParameterValue struct {
	ValueID string `json:"ValueId"`
	Value   string `json:"Value"`
}

// ReadValue is an entry of the WriteParameterValuesAsync response.
type ReadValue struct {
	ValueID RawValue `json:"valueId"`
	Value   RawValue `json:"value"`
}

// RawValue is a vendor scalar that may arrive as a string, number, bool or null.
// Present records whether the key appeared in the payload at all.
type RawValue struct {
	Text    string
	Valid   bool
	Present bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *RawValue) UnmarshalJSON(b []byte) error {
	v.Present = true
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		v.Text, v.Valid = "", false
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &v.Text); err != nil {
			return err
		}
		v.Valid = true
		return nil
	}
	switch string(b) {
	case "true", "false":
		v.Text = string(b)
		v.Valid = true
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	v.Text = n.String()
	v.Valid = true
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v RawValue) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Text)
}

// Ptr returns a pointer to the value, or nil when the vendor reported null.
func (v RawValue) Ptr() *string {
	if !v.Valid {
		return nil
	}
	s := v.Text
	return &s
}
