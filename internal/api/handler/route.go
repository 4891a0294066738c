package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/api/middleware"
	"github.com/optiroute/optiroute/internal/api/models"
	"github.com/optiroute/optiroute/internal/api/response"
	"github.com/optiroute/optiroute/internal/evaluate"
	"github.com/optiroute/optiroute/internal/geocode"
	"github.com/optiroute/optiroute/internal/optimizer"
	"github.com/optiroute/optiroute/internal/route"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// OptimizeQueue enqueues background optimization jobs for the worker.
type OptimizeQueue interface {
	Enqueue(ctx context.Context, tenantID, routeID string) error
}

// RouteHandler handles route endpoints.
type RouteHandler struct {
	routes *route.Service
	queue  OptimizeQueue
	logger zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler. The queue may be nil, in
// which case async creation falls back to synchronous optimization.
func NewRouteHandler(routes *route.Service, queue OptimizeQueue, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{
		routes: routes,
		queue:  queue,
		logger: logger,
	}
}

// CreateRoute handles POST /v1/routes - create and optimize a route.
func (h *RouteHandler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	var input models.RouteCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if fieldErrors := input.Validate(); len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	req := toOptimizeRequest(&input)

	if input.Async && h.queue != nil {
		rt, err := h.routes.Create(r.Context(), tenantID, input.Name, req)
		if err != nil {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		if err := h.queue.Enqueue(r.Context(), tenantID, rt.ID); err != nil {
			h.logger.Error().Err(err).Str("route_id", rt.ID).Msg("failed to enqueue optimization")
			// The route stays in progress; surface the queue failure.
			response.ServiceUnavailable(w, r, "optimization queue unavailable")
			return
		}
		location := fmt.Sprintf("/v1/routes/%s", rt.ID)
		response.Accepted(w, r, location, toAPIRoute(rt))
		return
	}

	rt, err := h.routes.Optimize(r.Context(), tenantID, input.Name, req)
	if err != nil {
		var batchErr *geocode.BatchError
		if errors.As(err, &batchErr) {
			response.BadRequest(w, r, fmt.Sprintf("could not geocode %q", batchErr.Address), nil)
			return
		}
		h.logger.Error().Err(err).Msg("route optimization failed")
		response.InternalError(w, r, "route optimization failed")
		return
	}

	location := fmt.Sprintf("/v1/routes/%s", rt.ID)
	response.Created(w, r, location, toAPIRoute(rt))
}

// ListRoutes handles GET /v1/routes - list routes for the tenant.
func (h *RouteHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxListLimit {
			response.BadRequest(w, r, "limit must be between 1 and "+strconv.Itoa(maxListLimit), nil)
			return
		}
		limit = parsed
	}

	result, err := h.routes.List(r.Context(), tenantID, route.ListOptions{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list routes")
		response.InternalError(w, r, "failed to list routes")
		return
	}

	items := make([]models.Route, 0, len(result.Items))
	for _, rt := range result.Items {
		items = append(items, toAPIRoute(rt))
	}

	paged := models.PagedRoutes{
		Items: items,
		Meta:  models.PagedResponseMeta{Limit: limit},
	}
	if result.NextCursor != "" {
		paged.Meta.NextCursor = &result.NextCursor
	}
	response.JSON(w, r, http.StatusOK, paged)
}

// GetRoute handles GET /v1/routes/{routeId} - fetch one route.
func (h *RouteHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	routeID := chi.URLParam(r, "routeId")

	rt, err := h.routes.Get(r.Context(), tenantID, routeID)
	if err != nil {
		if errors.Is(err, route.ErrRouteNotFound) {
			response.NotFound(w, r, "route not found")
			return
		}
		h.logger.Error().Err(err).Str("route_id", routeID).Msg("failed to get route")
		response.InternalError(w, r, "failed to get route")
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIRoute(rt))
}

// UpdateRouteStatus handles PATCH /v1/routes/{routeId} - move a route
// between the delivery states.
func (h *RouteHandler) UpdateRouteStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	routeID := chi.URLParam(r, "routeId")

	var input models.RouteStatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if fieldErrors := input.Validate(); len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	rt, err := h.routes.UpdateStatus(r.Context(), tenantID, routeID, route.Status(input.Status))
	if err != nil {
		switch {
		case errors.Is(err, route.ErrRouteNotFound):
			response.NotFound(w, r, "route not found")
		case errors.Is(err, route.ErrAlreadyFinished):
			response.Conflict(w, r, "route has failed and cannot change status")
		case errors.Is(err, route.ErrNotOptimized):
			response.Conflict(w, r, "route has no optimization result yet")
		default:
			h.logger.Error().Err(err).Str("route_id", routeID).Msg("failed to update route status")
			response.InternalError(w, r, "failed to update route status")
		}
		return
	}
	response.JSON(w, r, http.StatusOK, toAPIRoute(rt))
}

// DeleteRoute handles DELETE /v1/routes/{routeId} - delete one route.
func (h *RouteHandler) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	routeID := chi.URLParam(r, "routeId")

	if err := h.routes.Delete(r.Context(), tenantID, routeID); err != nil {
		if errors.Is(err, route.ErrRouteNotFound) {
			response.NotFound(w, r, "route not found")
			return
		}
		h.logger.Error().Err(err).Str("route_id", routeID).Msg("failed to delete route")
		response.InternalError(w, r, "failed to delete route")
		return
	}
	response.NoContent(w, r)
}

func toOptimizeRequest(input *models.RouteCreateRequest) optimizer.Request {
	req := optimizer.Request{
		Origin:     input.Origin,
		Deliveries: make([]optimizer.Delivery, 0, len(input.Deliveries)),
	}
	for _, d := range input.Deliveries {
		delivery := optimizer.Delivery{Address: d.Address}
		for _, p := range d.Products {
			delivery.Products = append(delivery.Products, optimizer.ProductQuantity{
				Name:     p.Name,
				Quantity: p.Quantity,
			})
		}
		req.Deliveries = append(req.Deliveries, delivery)
	}
	if input.Vehicle != nil {
		req.Vehicle = optimizer.Vehicle{
			Fuel:                 evaluate.FuelType(input.Vehicle.Fuel),
			EfficiencyKmPerLiter: input.Vehicle.EfficiencyKmPerLiter,
			FuelPricePerUnit:     input.Vehicle.FuelPricePerUnit,
		}
	}
	return req
}

func toAPIRoute(rt *route.Route) models.Route {
	out := models.Route{
		ID:     rt.ID,
		Name:   rt.Name,
		Status: string(rt.Status),
		Origin: rt.Request.Origin,
		Vehicle: models.VehicleInput{
			Fuel:                 string(rt.Request.Vehicle.Fuel),
			EfficiencyKmPerLiter: rt.Request.Vehicle.EfficiencyKmPerLiter,
			FuelPricePerUnit:     rt.Request.Vehicle.FuelPricePerUnit,
		},
		FailureReason: rt.FailureReason,
		CreatedAt:     models.Timestamp(rt.CreatedAt),
		UpdatedAt:     models.Timestamp(rt.UpdatedAt),
	}
	for _, d := range rt.Request.Deliveries {
		out.Deliveries = append(out.Deliveries, models.DeliveryInput{
			Address:  d.Address,
			Products: toAPIProducts(d.Products),
		})
	}
	if rt.Result != nil {
		out.Result = toAPIResult(rt.Result)
	}
	return out
}

func toAPIResult(res *optimizer.Result) *models.RouteResult {
	out := &models.RouteResult{
		Stops:            make([]models.RouteStop, 0, len(res.Stops)),
		DistanceKm:       res.Summary.DistanceKm,
		DurationMinutes:  res.Summary.DurationMinutes,
		FuelConsumed:     res.Summary.FuelConsumed,
		FuelUnit:         res.Summary.FuelUnit,
		FuelCost:         res.Summary.FuelCost,
		FuelPricePerUnit: res.Summary.FuelPricePerUnit,
		MapLink:          res.Summary.MapLink,
		MatrixSource:     string(res.MatrixSource),
	}
	for _, s := range res.Stops {
		out.Stops = append(out.Stops, models.RouteStop{
			Sequence: s.Sequence,
			Address:  s.Address,
			Point:    models.Point{Lat: s.Point.Lat, Lon: s.Point.Lon},
			Products: toAPIProducts(s.Products),
		})
	}
	return out
}

func toAPIProducts(products []optimizer.ProductQuantity) []models.ProductInput {
	if len(products) == 0 {
		return nil
	}
	out := make([]models.ProductInput, 0, len(products))
	for _, p := range products {
		out = append(out, models.ProductInput{Name: p.Name, Quantity: p.Quantity})
	}
	return out
}
