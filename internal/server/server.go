// Package server exposes the snapshot, write intents, health and metrics over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"brink_bridge/internal/api"
	"brink_bridge/internal/coordinator"
	"brink_bridge/internal/types"
)

// Service is what the HTTP surface needs from the coordinator.
type Service interface {
	Systems() []types.System
	Write(ctx context.Context, systemID, gatewayID, role, target string) (*types.WriteResult, error)
	LastSuccess() time.Time
}

type writeRequest struct {
	Value types.RawValue `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status      string    `json:"status"`
	LastRefresh *time.Time `json:"last_refresh,omitempty"`
}

// New builds the router.
func New(svc Service, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	router := httprouter.New()

	router.GET("/systems", Systems(svc))
	router.PUT("/systems/:gateway_id/:system_id/:role", Write(svc, logger))
	router.GET("/health", Health(svc))
	router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return router
}

// Systems returns the current snapshot.
func Systems(svc Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		systems := svc.Systems()
		if systems == nil {
			systems = []types.System{}
		}
		writeJSON(w, http.StatusOK, systems)
	}
}

// Write applies a write intent and returns the echoed values.
func Write(svc Service, logger *slog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var req writeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body: " + err.Error()})
			return
		}
		if !req.Value.Valid {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "value is required"})
			return
		}

		gatewayID, systemID, role := ps.ByName("gateway_id"), ps.ByName("system_id"), ps.ByName("role")

		result, err := svc.Write(r.Context(), systemID, gatewayID, role, req.Value.Text)
		if err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				logger.Error("Write failed", "system_id", systemID, "role", role, "error", err)
			} else {
				logger.Warn("Write rejected", "system_id", systemID, "role", role, "error", err)
			}
			writeJSON(w, status, errorResponse{Error: err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// Health reports 200 once a refresh has succeeded, 503 before.
func Health(svc Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		last := svc.LastSuccess()
		if last.IsZero() {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "waiting for first refresh"})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", LastRefresh: &last})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, coordinator.ErrUnknownSystem):
		return http.StatusNotFound
	case errors.Is(err, coordinator.ErrUnsupportedRole):
		return http.StatusBadRequest
	case errors.Is(err, api.ErrUnresolvedSelection), errors.Is(err, api.ErrMissingParameter):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
