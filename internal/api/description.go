package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"brink_bridge/internal/mapper"
	"brink_bridge/internal/types"
)

// GetDescription retrieves the GUI description of a system and returns its
// parameters keyed by role. Gateways exposing no menu or pages yield an empty map.
func (c *APIClient) GetDescription(ctx context.Context, systemID, gatewayID string) (map[string]*types.Parameter, error) {
	const op = "get description"

	q := url.Values{}
	q.Set("GatewayId", gatewayID)
	q.Set("SystemId", systemID)

	data, err := c.doRequest(ctx, op, http.MethodGet, "GetAppGuiDescriptionForGateway?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var desc types.GuiDescription
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, &ParseError{Op: op, Err: err}
	}

	params, err := mapper.ParseDescription(desc)
	if err != nil {
		return nil, &ParseError{Op: op, Err: err}
	}

	if len(params) == 0 {
		c.logger.Debug("No parameters in description", "system_id", systemID, "gateway_id", gatewayID)
	} else {
		c.logger.Debug("get_description result", "system_id", systemID, "parameters", len(params))
	}

	return params, nil
}
