// Package mapper provides data extraction and transformation functions for Brink Home API responses.
package mapper

import "brink_bridge/internal/types"

// Vendor display keys used to locate the base parameters.
const (
	KeyVentilation       = "Lüftungsstufe"
	KeyMode              = "Betriebsart"
	KeyFiltersNeedChange = "Status Filtermeldung"
)

// ModeManualValue is the vendor code for manual mode. Changing the
// ventilation level always switches the unit into this mode.
const ModeManualValue = "1"

// FilterNeedsChangeValue is the filter status value meaning "replace filter".
const FilterNeedsChangeValue = "1"

// Fan speed range exposed to percentage based consumers (off excluded).
const (
	SpeedMin   = 1
	SpeedMax   = 3
	SpeedCount = SpeedMax - SpeedMin + 1
)

// baseRoles maps each base role to the vendor display key that identifies it.
var baseRoles = []struct {
	Role string
	Key  string
}{
	{types.RoleVentilation, KeyVentilation},
	{types.RoleMode, KeyMode},
	{types.RoleFiltersNeedChange, KeyFiltersNeedChange},
}

// BaseRoles lists the roles every parsed system carries, found or not.
var BaseRoles = []string{
	types.RoleVentilation,
	types.RoleMode,
	types.RoleFiltersNeedChange,
}

// IsBaseRole reports whether role is one of BaseRoles.
func IsBaseRole(role string) bool {
	for _, r := range BaseRoles {
		if r == role {
			return true
		}
	}
	return false
}
