package route

import "context"

// ListOptions contains options for listing routes.
type ListOptions struct {
	Limit  int
	Cursor string
}

// ListResult contains the results of listing routes.
type ListResult struct {
	Items      []*Route
	NextCursor string
}

// Repository defines the interface for route persistence.
type Repository interface {
	// GetByTenantAndID retrieves a route by tenant and route ID.
	// Returns ErrRouteNotFound if the route doesn't exist or doesn't
	// belong to the tenant.
	GetByTenantAndID(ctx context.Context, tenantID, routeID string) (*Route, error)

	// List retrieves all routes for a tenant with pagination.
	List(ctx context.Context, tenantID string, opts ListOptions) (*ListResult, error)

	// Create creates a new route.
	Create(ctx context.Context, route *Route) error

	// Update updates an existing route.
	Update(ctx context.Context, route *Route) error

	// Delete deletes a route by tenant and route ID.
	Delete(ctx context.Context, tenantID, routeID string) error
}
