package api

import (
	"context"
	"encoding/json"
	"net/http"

	"brink_bridge/internal/mapper"
	"brink_bridge/internal/types"
)

// GetSystems retrieves all ventilation systems of the account, without parameters.
func (c *APIClient) GetSystems(ctx context.Context) ([]types.System, error) {
	const op = "get systems"

	data, err := c.doRequest(ctx, op, http.MethodGet, "GetSystemList", nil)
	if err != nil {
		return nil, err
	}

	var raw []types.RawSystem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Op: op, Err: err}
	}

	systems := mapper.MapSystems(raw)
	c.logger.Debug("get_systems result", "count", len(systems))

	return systems, nil
}
