package mapper

import (
	"math"

	"brink_bridge/internal/types"
)

// VentilationWrite builds the bundle that sets the ventilation level and
// forces the mode to manual, as the unit does on every level change.
func VentilationWrite(systemID, gatewayID string, mode, ventilation *types.Parameter, value string) types.WriteRequest {
	return types.WriteRequest{
		GatewayID: gatewayID,
		SystemID:  systemID,
		WriteParameterValues: []types.WriteParameterValue{
			{ValueID: mode.ValueID, Value: ModeManualValue},
			{ValueID: ventilation.ValueID, Value: value},
		},
		SendInOneBundle:               true,
		DependendReadValuesAfterWrite: []string{ventilation.ValueID, mode.ValueID},
	}
}

// ModeWrite builds the bundle that sets the operating mode. The ventilation
// id, when known, is requested back since a mode change can move the level.
func ModeWrite(systemID, gatewayID string, mode, ventilation *types.Parameter, value string) types.WriteRequest {
	reads := []string{mode.ValueID}
	if ventilation != nil {
		reads = append(reads, ventilation.ValueID)
	}
	return types.WriteRequest{
		GatewayID: gatewayID,
		SystemID:  systemID,
		WriteParameterValues: []types.WriteParameterValue{
			{ValueID: mode.ValueID, Value: value},
		},
		SendInOneBundle:               true,
		DependendReadValuesAfterWrite: reads,
	}
}

// MapWriteResult picks the mode and ventilation values out of a write response.
func MapWriteResult(values []types.ReadValue, mode, ventilation *types.Parameter) types.WriteResult {
	var result types.WriteResult
	for _, v := range values {
		if ventilation != nil && v.ValueID.Text == ventilation.ValueID {
			result.VentilationValue = v.Value.Ptr()
		}
		if mode != nil && v.ValueID.Text == mode.ValueID {
			result.ModeValue = v.Value.Ptr()
		}
	}
	return result
}

// ApplyWriteResult patches echoed values into the system's parameters.
func ApplyWriteResult(sys *types.System, result types.WriteResult) {
	if p := sys.Parameter(types.RoleMode); p != nil && result.ModeValue != nil {
		v := *result.ModeValue
		p.Value = &v
	}
	if p := sys.Parameter(types.RoleVentilation); p != nil && result.VentilationValue != nil {
		v := *result.VentilationValue
		p.Value = &v
	}
}

// LevelToPercentage converts a ventilation level to a fan percentage.
func LevelToPercentage(level int) int {
	if level <= 0 {
		return 0
	}
	if level > SpeedMax {
		level = SpeedMax
	}
	return (level - SpeedMin + 1) * 100 / SpeedCount
}

// PercentageToLevel converts a fan percentage to a ventilation level.
func PercentageToLevel(pct int) int {
	if pct <= 0 {
		return 0
	}
	if pct > 100 {
		pct = 100
	}
	return SpeedMin - 1 + int(math.Ceil(float64(pct)*SpeedCount/100))
}
