package route

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/optimizer"
)

// Service errors.
var (
	// ErrAlreadyFinished indicates a lifecycle transition on a route
	// that already holds an outcome.
	ErrAlreadyFinished = errors.New("route already finished")

	// ErrNotOptimized indicates a delivery-status change on a route that
	// has no optimization result yet.
	ErrNotOptimized = errors.New("route not optimized yet")

	// ErrInvalidStatus indicates a status value outside the delivery
	// lifecycle.
	ErrInvalidStatus = errors.New("invalid route status")
)

// MaxNameLength bounds route names.
const MaxNameLength = 120

// ServiceConfig holds configuration for the route service.
type ServiceConfig struct {
	// Repository persists routes.
	Repository Repository

	// Optimizer runs route optimizations.
	Optimizer *optimizer.Service

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service provides tenant-scoped route operations: creation, synchronous
// optimization, lifecycle transitions and retrieval.
type Service struct {
	repo      Repository
	optimizer *optimizer.Service
	logger    zerolog.Logger
}

// NewService creates a new route service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:      cfg.Repository,
		optimizer: cfg.Optimizer,
		logger:    cfg.Logger,
	}
}

// Create stores a new route in progress for later optimization.
func (s *Service) Create(ctx context.Context, tenantID, name string, req optimizer.Request) (*Route, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}

	now := time.Now().UTC()
	route := &Route{
		ID:        "rt_" + uuid.New().String()[:22],
		TenantID:  tenantID,
		Name:      name,
		Status:    StatusInProgress,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, route); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("route_id", route.ID).
		Str("tenant_id", tenantID).
		Int("deliveries", len(req.Deliveries)).
		Msg("route created")

	return route, nil
}

// Optimize creates a route and runs the optimization synchronously. The
// stored route ends completed or failed; optimization errors are recorded
// on the route and also returned.
func (s *Service) Optimize(ctx context.Context, tenantID, name string, req optimizer.Request) (*Route, error) {
	route, err := s.Create(ctx, tenantID, name, req)
	if err != nil {
		return nil, err
	}

	result, optErr := s.optimizer.Optimize(ctx, req)
	if optErr != nil {
		if _, failErr := s.Fail(ctx, tenantID, route.ID, optErr.Error()); failErr != nil {
			s.logger.Error().Err(failErr).
				Str("route_id", route.ID).
				Msg("failed to record optimization failure")
		}
		return nil, optErr
	}

	return s.Complete(ctx, tenantID, route.ID, result)
}

// Run optimizes an already stored route in progress. The background
// worker uses it to finish routes accepted asynchronously.
func (s *Service) Run(ctx context.Context, tenantID, routeID string) (*Route, error) {
	route, err := s.repo.GetByTenantAndID(ctx, tenantID, routeID)
	if err != nil {
		return nil, err
	}
	if route.Status != StatusInProgress || route.Result != nil {
		return nil, ErrAlreadyFinished
	}

	result, optErr := s.optimizer.Optimize(ctx, route.Request)
	if optErr != nil {
		if _, failErr := s.Fail(ctx, tenantID, routeID, optErr.Error()); failErr != nil {
			s.logger.Error().Err(failErr).
				Str("route_id", routeID).
				Msg("failed to record optimization failure")
		}
		return nil, optErr
	}

	return s.Complete(ctx, tenantID, routeID, result)
}

// Complete transitions a route in progress to completed with its result.
func (s *Service) Complete(ctx context.Context, tenantID, routeID string, result *optimizer.Result) (*Route, error) {
	route, err := s.repo.GetByTenantAndID(ctx, tenantID, routeID)
	if err != nil {
		return nil, err
	}
	if route.Status != StatusInProgress {
		return nil, ErrAlreadyFinished
	}

	route.Status = StatusCompleted
	route.Result = result
	route.FailureReason = nil
	route.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, route); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("route_id", route.ID).
		Str("tenant_id", tenantID).
		Float64("distance_km", result.Summary.DistanceKm).
		Msg("route completed")

	return route, nil
}

// Fail transitions a route in progress to failed with a reason.
func (s *Service) Fail(ctx context.Context, tenantID, routeID, reason string) (*Route, error) {
	route, err := s.repo.GetByTenantAndID(ctx, tenantID, routeID)
	if err != nil {
		return nil, err
	}
	if route.Status != StatusInProgress {
		return nil, ErrAlreadyFinished
	}

	route.Status = StatusFailed
	route.FailureReason = &reason
	route.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, route); err != nil {
		return nil, err
	}

	s.logger.Warn().
		Str("route_id", route.ID).
		Str("tenant_id", tenantID).
		Str("reason", reason).
		Msg("route failed")

	return route, nil
}

// UpdateStatus moves a route between the delivery states in_progress and
// completed. The route must already hold an optimization result; failed
// routes are terminal.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, routeID string, status Status) (*Route, error) {
	if status != StatusInProgress && status != StatusCompleted {
		return nil, ErrInvalidStatus
	}

	route, err := s.repo.GetByTenantAndID(ctx, tenantID, routeID)
	if err != nil {
		return nil, err
	}
	if route.Status == StatusFailed {
		return nil, ErrAlreadyFinished
	}
	if route.Result == nil {
		return nil, ErrNotOptimized
	}

	route.Status = status
	route.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, route); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("route_id", route.ID).
		Str("tenant_id", tenantID).
		Str("status", string(status)).
		Msg("route status updated")

	return route, nil
}

// Get retrieves a route by tenant and route ID.
func (s *Service) Get(ctx context.Context, tenantID, routeID string) (*Route, error) {
	return s.repo.GetByTenantAndID(ctx, tenantID, routeID)
}

// List retrieves routes for a tenant with pagination.
func (s *Service) List(ctx context.Context, tenantID string, opts ListOptions) (*ListResult, error) {
	return s.repo.List(ctx, tenantID, opts)
}

// Delete deletes a route by tenant and route ID.
func (s *Service) Delete(ctx context.Context, tenantID, routeID string) error {
	if err := s.repo.Delete(ctx, tenantID, routeID); err != nil {
		return err
	}
	s.logger.Info().
		Str("route_id", routeID).
		Str("tenant_id", tenantID).
		Msg("route deleted")
	return nil
}
