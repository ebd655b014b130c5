package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"brink_bridge/internal/mapper"
	"brink_bridge/internal/types"
)

const writePath = "WriteParameterValuesAsync"

// SetVentilationValue sets the ventilation level chosen by sel. The same
// bundle forces the mode to manual. If sel matches no option nothing is
// sent and ErrUnresolvedSelection is returned.
func (c *APIClient) SetVentilationValue(ctx context.Context, systemID, gatewayID string, mode, ventilation *types.Parameter, sel mapper.Selection) (*types.WriteResult, error) {
	const op = "set ventilation"

	if mode == nil || ventilation == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingParameter)
	}

	value, ok := sel.Resolve(ventilation.Values)
	if !ok {
		c.logger.Debug("Unresolved ventilation selection", "system_id", systemID, "selection", sel.String())
		return nil, ErrUnresolvedSelection
	}

	req := mapper.VentilationWrite(systemID, gatewayID, mode, ventilation, value)
	result, err := c.write(ctx, op, req, mode, ventilation)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("set_ventilation_value result", "system_id", systemID, "value", value)
	return result, nil
}

// SetModeValue sets the operating mode chosen by sel. ventilation may be nil;
// when given, its post-write value is requested back as well.
func (c *APIClient) SetModeValue(ctx context.Context, systemID, gatewayID string, mode, ventilation *types.Parameter, sel mapper.Selection) (*types.WriteResult, error) {
	const op = "set mode"

	if mode == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingParameter)
	}

	value, ok := sel.Resolve(mode.Values)
	if !ok {
		c.logger.Debug("Unresolved mode selection", "system_id", systemID, "selection", sel.String())
		return nil, ErrUnresolvedSelection
	}

	req := mapper.ModeWrite(systemID, gatewayID, mode, ventilation, value)
	result, err := c.write(ctx, op, req, mode, ventilation)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("set_mode_value result", "system_id", systemID, "value", value)
	return result, nil
}

// write posts a bundle and maps the echoed values.
func (c *APIClient) write(ctx context.Context, op string, req types.WriteRequest, mode, ventilation *types.Parameter) (*types.WriteResult, error) {
	data, err := c.doRequest(ctx, op, http.MethodPost, writePath, req)
	if err != nil {
		return nil, err
	}

	var values []types.ReadValue
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, &ParseError{Op: op, Err: err}
		}
	}

	result := mapper.MapWriteResult(values, mode, ventilation)
	return &result, nil
}
