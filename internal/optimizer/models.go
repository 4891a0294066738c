// Package optimizer orchestrates geocoding, cost matrix construction,
// tour solving and evaluation into a single route optimization operation.
package optimizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/optiroute/optiroute/internal/evaluate"
	"github.com/optiroute/optiroute/internal/geocode"
	"github.com/optiroute/optiroute/internal/matrix"
)

// Common optimizer errors.
var (
	// ErrNoOrigin indicates a request without a starting address.
	ErrNoOrigin = errors.New("origin address is required")

	// ErrNoDeliveries indicates a request without any delivery stops.
	ErrNoDeliveries = errors.New("at least one delivery is required")
)

// ProductQuantity is one line item carried to a delivery stop.
type ProductQuantity struct {
	// Name identifies the product.
	Name string `json:"name"`

	// Quantity is the number of units to deliver.
	Quantity int `json:"quantity"`
}

// Delivery is one requested stop.
type Delivery struct {
	// Address is the free-form delivery address.
	Address string `json:"address"`

	// Products are the items for this stop.
	Products []ProductQuantity `json:"products,omitempty"`
}

// Vehicle describes the vehicle for fuel estimation.
type Vehicle struct {
	// Fuel is the vehicle's fuel type (default: gasoline).
	Fuel evaluate.FuelType `json:"fuel"`

	// EfficiencyKmPerLiter is fuel efficiency; zero uses the default.
	EfficiencyKmPerLiter float64 `json:"efficiency_km_per_liter"`

	// FuelPricePerUnit overrides the current fuel price when positive.
	FuelPricePerUnit float64 `json:"fuel_price_per_unit,omitempty"`
}

// Request is a route optimization request.
type Request struct {
	// Origin is the depot address where the route starts and ends.
	Origin string `json:"origin"`

	// Deliveries are the stops to visit, in any order.
	Deliveries []Delivery `json:"deliveries"`

	// Vehicle drives the route.
	Vehicle Vehicle `json:"vehicle"`
}

// Validate checks the request shape.
func (r Request) Validate() error {
	if r.Origin == "" {
		return ErrNoOrigin
	}
	if len(r.Deliveries) == 0 {
		return ErrNoDeliveries
	}
	for i, d := range r.Deliveries {
		if d.Address == "" {
			return fmt.Errorf("delivery %d has no address", i)
		}
	}
	if r.Vehicle.Fuel != "" && !r.Vehicle.Fuel.Valid() {
		return fmt.Errorf("%q: %w", r.Vehicle.Fuel, evaluate.ErrUnknownFuelType)
	}
	if r.Vehicle.FuelPricePerUnit < 0 {
		return fmt.Errorf("fuel price override must not be negative, got %f", r.Vehicle.FuelPricePerUnit)
	}
	return nil
}

// Stop is one visit in the optimized order.
type Stop struct {
	// Sequence is the 1-based visit order; the depot is sequence 0.
	Sequence int `json:"sequence"`

	// Address is the stop's original address.
	Address string `json:"address"`

	// Point is the resolved coordinate.
	Point geocode.Point `json:"point"`

	// Products are the items for this stop.
	Products []ProductQuantity `json:"products,omitempty"`
}

// Result is a completed route optimization.
type Result struct {
	// Origin is the depot stop.
	Origin Stop `json:"origin"`

	// Stops are the deliveries in optimized visit order.
	Stops []Stop `json:"stops"`

	// Summary holds distance, duration and fuel figures.
	Summary evaluate.Summary `json:"summary"`

	// MatrixSource records which distance metric priced the tour.
	MatrixSource matrix.Source `json:"matrix_source"`

	// SolvedAt is when the optimization completed.
	SolvedAt time.Time `json:"solved_at"`
}
