package mapper

import (
	"strings"

	"brink_bridge/internal/types"
)

// MapSystems converts the GetSystemList response into Systems without parameters.
// Entries lacking a system or gateway id are dropped.
func MapSystems(raw []types.RawSystem) []types.System {
	systems := make([]types.System, 0, len(raw))
	for _, r := range raw {
		systemID := strings.TrimSpace(r.ID.Text)
		gatewayID := strings.TrimSpace(r.GatewayID.Text)
		if systemID == "" || gatewayID == "" {
			continue
		}
		systems = append(systems, types.System{
			SystemID:  systemID,
			GatewayID: gatewayID,
			Name:      Safe(r.Name, "Brink "+systemID),
		})
	}
	return systems
}

// Safe returns the value if non-empty after trimming, otherwise returns the fallback.
func Safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}
