// Package route provides persistence and lifecycle management for
// optimized routes.
package route

import (
	"errors"
	"time"

	"github.com/optiroute/optiroute/internal/optimizer"
)

// Repository errors.
var (
	ErrRouteNotFound = errors.New("route not found")
)

// Status is the lifecycle state of a stored route.
type Status string

// Route statuses.
const (
	// StatusInProgress means optimization has been accepted but not
	// finished.
	StatusInProgress Status = "in_progress"

	// StatusCompleted means the route holds a finished result.
	StatusCompleted Status = "completed"

	// StatusFailed means optimization failed; FailureReason explains.
	StatusFailed Status = "failed"
)

// Route is a stored optimization with its request and outcome.
type Route struct {
	ID            string
	TenantID      string
	Name          string
	Status        Status
	Request       optimizer.Request
	Result        *optimizer.Result
	FailureReason *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
