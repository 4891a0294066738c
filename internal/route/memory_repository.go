package route

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	routes map[string]*Route
}

// NewInMemoryRepository creates a new in-memory route repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		routes: make(map[string]*Route),
	}
}

// GetByTenantAndID retrieves a route by tenant and route ID.
func (r *InMemoryRepository) GetByTenantAndID(_ context.Context, tenantID, routeID string) (*Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.routes[routeID]
	if !ok || rt.TenantID != tenantID {
		return nil, ErrRouteNotFound
	}

	cpy := *rt
	return &cpy, nil
}

// List retrieves all routes for a tenant with pagination.
func (r *InMemoryRepository) List(_ context.Context, tenantID string, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var routes []*Route
	for _, rt := range r.routes {
		if rt.TenantID == tenantID {
			cpy := *rt
			routes = append(routes, &cpy)
		}
	}

	// Newest first, matching the SQL ordering.
	sort.Slice(routes, func(i, j int) bool {
		if !routes[i].CreatedAt.Equal(routes[j].CreatedAt) {
			return routes[i].CreatedAt.After(routes[j].CreatedAt)
		}
		return routes[i].ID > routes[j].ID
	})

	if opts.Cursor != "" {
		for i, rt := range routes {
			if rt.ID == opts.Cursor {
				routes = routes[i+1:]
				break
			}
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	result := &ListResult{Items: routes}
	if len(routes) > limit {
		result.Items = routes[:limit]
		result.NextCursor = routes[limit-1].ID
	}
	return result, nil
}

// Create creates a new route.
func (r *InMemoryRepository) Create(_ context.Context, route *Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *route
	r.routes[route.ID] = &cpy
	return nil
}

// Update updates an existing route.
func (r *InMemoryRepository) Update(_ context.Context, route *Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.routes[route.ID]
	if !ok || existing.TenantID != route.TenantID {
		return ErrRouteNotFound
	}

	cpy := *route
	r.routes[route.ID] = &cpy
	return nil
}

// Delete deletes a route by tenant and route ID.
func (r *InMemoryRepository) Delete(_ context.Context, tenantID, routeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.routes[routeID]
	if !ok || existing.TenantID != tenantID {
		return ErrRouteNotFound
	}

	delete(r.routes, routeID)
	return nil
}
