package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optiroute/optiroute/internal/optimizer"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// Request and result documents are stored as JSONB.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL route repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const routeColumns = `
	id, tenant_id, name, status,
	request, result, failure_reason,
	created_at, updated_at
`

// GetByTenantAndID retrieves a route by tenant and route ID.
func (r *PostgresRepository) GetByTenantAndID(ctx context.Context, tenantID, routeID string) (*Route, error) {
	query := `
		SELECT ` + routeColumns + `
		FROM routes
		WHERE id = $1 AND tenant_id = $2
	`

	route, err := scanRoute(r.pool.QueryRow(ctx, query, routeID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}
	return route, nil
}

// List retrieves all routes for a tenant with pagination.
func (r *PostgresRepository) List(ctx context.Context, tenantID string, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	// Fetch one extra to determine if there are more results
	fetchLimit := limit + 1

	query := `
		SELECT ` + routeColumns + `
		FROM routes
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	args := []interface{}{tenantID, fetchLimit}

	if opts.Cursor != "" {
		query = `
			SELECT ` + routeColumns + `
			FROM routes
			WHERE tenant_id = $1
			  AND (created_at, id) < (SELECT created_at, id FROM routes WHERE id = $3)
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`
		args = append(args, opts.Cursor)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []*Route
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &ListResult{Items: routes}
	if len(routes) > limit {
		result.Items = routes[:limit]
		result.NextCursor = routes[limit-1].ID
	}
	return result, nil
}

// Create creates a new route.
func (r *PostgresRepository) Create(ctx context.Context, route *Route) error {
	requestJSON, resultJSON, err := marshalDocuments(route)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO routes (
			id, tenant_id, name, status,
			request, result, failure_reason,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.pool.Exec(ctx, query,
		route.ID,
		route.TenantID,
		route.Name,
		string(route.Status),
		requestJSON,
		resultJSON,
		route.FailureReason,
		route.CreatedAt,
		route.UpdatedAt,
	)
	return err
}

// Update updates an existing route.
func (r *PostgresRepository) Update(ctx context.Context, route *Route) error {
	requestJSON, resultJSON, err := marshalDocuments(route)
	if err != nil {
		return err
	}

	query := `
		UPDATE routes
		SET name = $3, status = $4, request = $5, result = $6,
		    failure_reason = $7, updated_at = $8
		WHERE id = $1 AND tenant_id = $2
	`

	tag, err := r.pool.Exec(ctx, query,
		route.ID,
		route.TenantID,
		route.Name,
		string(route.Status),
		requestJSON,
		resultJSON,
		route.FailureReason,
		route.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRouteNotFound
	}
	return nil
}

// Delete deletes a route by tenant and route ID.
func (r *PostgresRepository) Delete(ctx context.Context, tenantID, routeID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM routes WHERE id = $1 AND tenant_id = $2`, routeID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRouteNotFound
	}
	return nil
}

// marshalDocuments serializes the request and optional result documents.
func marshalDocuments(route *Route) ([]byte, []byte, error) {
	requestJSON, err := json.Marshal(route.Request)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling request: %w", err)
	}

	var resultJSON []byte
	if route.Result != nil {
		resultJSON, err = json.Marshal(route.Result)
		if err != nil {
			return nil, nil, fmt.Errorf("marshaling result: %w", err)
		}
	}
	return requestJSON, resultJSON, nil
}

// scanRoute scans one route row, decoding the JSONB documents.
func scanRoute(row pgx.Row) (*Route, error) {
	var (
		route       Route
		status      string
		requestJSON []byte
		resultJSON  []byte
	)

	err := row.Scan(
		&route.ID,
		&route.TenantID,
		&route.Name,
		&status,
		&requestJSON,
		&resultJSON,
		&route.FailureReason,
		&route.CreatedAt,
		&route.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	route.Status = Status(status)
	if err := json.Unmarshal(requestJSON, &route.Request); err != nil {
		return nil, fmt.Errorf("unmarshaling request: %w", err)
	}
	if len(resultJSON) > 0 {
		route.Result = &optimizer.Result{}
		if err := json.Unmarshal(resultJSON, route.Result); err != nil {
			return nil, fmt.Errorf("unmarshaling result: %w", err)
		}
	}
	return &route, nil
}
