// Package handler provides HTTP handlers for the OptiRoute API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optiroute/optiroute/internal/api/models"
	"github.com/optiroute/optiroute/internal/api/response"
	"github.com/optiroute/optiroute/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	db        *pgxpool.Pool
	providers *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler. The database pool and provider
// registry may be nil; the corresponding checks are then skipped.
func NewOpsHandler(version, buildTime string, db *pgxpool.Pool, providers *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		db:        db,
		providers: providers,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// Fails when the database is unreachable.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatusOK
	details := map[string]interface{}{}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			status = models.HealthStatusFail
			details["database"] = err.Error()
		} else {
			details["database"] = "ok"
		}
	}

	health := models.Health{
		Status:  status,
		Time:    models.Timestamp(time.Now()),
		Details: details,
	}

	code := http.StatusOK
	if status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := models.Timestamp(time.Now())

	overall := models.HealthStatusOK

	var subsystems []models.SubsystemStatus
	if h.db != nil {
		dbStatus := models.HealthStatusOK
		var detail *string
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		if err := h.db.Ping(ctx); err != nil {
			dbStatus = models.HealthStatusFail
			overall = models.HealthStatusFail
			msg := err.Error()
			detail = &msg
		}
		cancel()
		subsystems = append(subsystems, models.SubsystemStatus{
			Name:   "postgres",
			Status: dbStatus,
			Detail: detail,
		})
	}

	var providers []models.ProviderStatus
	if h.providers != nil {
		for _, ph := range h.providers.GetAllHealth() {
			providers = append(providers, providerStatus(ph))
			if ph.IsUnhealthy() && overall == models.HealthStatusOK {
				overall = models.HealthStatusDegraded
			}
		}
	}

	status := models.SystemStatus{
		Status:     overall,
		Time:       now,
		Subsystems: subsystems,
		Providers:  providers,
	}
	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(ph *resilience.ProviderHealth) models.ProviderStatus {
	status := models.HealthStatusOK
	switch {
	case ph.IsUnhealthy():
		status = models.HealthStatusFail
	case ph.IsDegraded():
		status = models.HealthStatusDegraded
	}

	out := models.ProviderStatus{
		Provider: ph.Name,
		Status:   status,
	}
	if ph.LastSuccessAt != nil {
		ts := models.Timestamp(*ph.LastSuccessAt)
		out.LastSuccessAt = &ts
	}
	if ph.LastFailureAt != nil {
		ts := models.Timestamp(*ph.LastFailureAt)
		out.LastFailureAt = &ts
	}
	if ph.LastError != "" {
		msg := ph.LastError
		out.Message = &msg
	}
	return out
}
