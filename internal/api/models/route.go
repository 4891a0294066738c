package models

import "strconv"

// ProductInput is one line item for a delivery stop.
type ProductInput struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// DeliveryInput is one requested delivery stop.
type DeliveryInput struct {
	Address  string         `json:"address"`
	Products []ProductInput `json:"products,omitempty"`
}

// VehicleInput describes the vehicle for fuel estimation. A positive
// FuelPricePerUnit bypasses the current price table.
type VehicleInput struct {
	Fuel                 string  `json:"fuel,omitempty"`
	EfficiencyKmPerLiter float64 `json:"efficiencyKmPerLiter,omitempty"`
	FuelPricePerUnit     float64 `json:"fuelPricePerUnit,omitempty"`
}

// RouteCreateRequest is the body for creating and optimizing a route.
type RouteCreateRequest struct {
	Name       string          `json:"name"`
	Origin     string          `json:"origin"`
	Deliveries []DeliveryInput `json:"deliveries"`
	Vehicle    *VehicleInput   `json:"vehicle,omitempty"`

	// Async requests background optimization; the response is the
	// accepted route in progress.
	Async bool `json:"async,omitempty"`
}

// Validate checks the request shape and returns field errors.
func (r *RouteCreateRequest) Validate() []FieldError {
	var errors []FieldError

	if r.Origin == "" {
		errors = append(errors, FieldError{
			Field:   "origin",
			Message: "origin address is required",
			Code:    "REQUIRED",
		})
	}
	if len(r.Deliveries) == 0 {
		errors = append(errors, FieldError{
			Field:   "deliveries",
			Message: "at least one delivery is required",
			Code:    "REQUIRED",
		})
	}
	for i, d := range r.Deliveries {
		if d.Address == "" {
			errors = append(errors, FieldError{
				Field:   "deliveries[" + strconv.Itoa(i) + "].address",
				Message: "address is required",
				Code:    "REQUIRED",
			})
		}
	}
	if r.Vehicle != nil && r.Vehicle.FuelPricePerUnit < 0 {
		errors = append(errors, FieldError{
			Field:   "vehicle.fuelPricePerUnit",
			Message: "fuel price must not be negative",
			Code:    "INVALID",
		})
	}

	return errors
}

// RouteStatusUpdateRequest is the body for updating a route's delivery
// status.
type RouteStatusUpdateRequest struct {
	Status string `json:"status"`
}

// Validate checks the requested status value.
func (r *RouteStatusUpdateRequest) Validate() []FieldError {
	switch r.Status {
	case "in_progress", "completed":
		return nil
	default:
		return []FieldError{{
			Field:   "status",
			Message: "status must be in_progress or completed",
			Code:    "INVALID",
		}}
	}
}

// RouteStop is one visit in the optimized order.
type RouteStop struct {
	Sequence int            `json:"sequence"`
	Address  string         `json:"address"`
	Point    Point          `json:"point"`
	Products []ProductInput `json:"products,omitempty"`
}

// RouteResult holds the outcome of a completed optimization.
type RouteResult struct {
	Stops            []RouteStop `json:"stops"`
	DistanceKm       float64     `json:"distanceKm"`
	DurationMinutes  float64     `json:"durationMinutes"`
	FuelConsumed     float64     `json:"fuelConsumed"`
	FuelUnit         string      `json:"fuelUnit"`
	FuelCost         float64     `json:"fuelCost"`
	FuelPricePerUnit float64     `json:"fuelPricePerUnit"`
	MapLink          string      `json:"mapLink"`
	MatrixSource     string      `json:"matrixSource"`
}

// Route is a stored route with its lifecycle state.
type Route struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Status        string          `json:"status"`
	Origin        string          `json:"origin"`
	Deliveries    []DeliveryInput `json:"deliveries"`
	Vehicle       VehicleInput    `json:"vehicle"`
	Result        *RouteResult    `json:"result,omitempty"`
	FailureReason *string         `json:"failureReason,omitempty"`
	CreatedAt     Timestamp       `json:"createdAt"`
	UpdatedAt     Timestamp       `json:"updatedAt"`
}

// PagedRoutes is a paginated list of routes.
type PagedRoutes struct {
	Items []Route           `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}
