// Package streetgraph provides drivable street networks fetched per grid
// cell, with shortest-path queries used to price travel between points.
package streetgraph

import (
	"context"
	"errors"
	"fmt"
)

// Common street network errors.
var (
	// ErrGraphUnavailable indicates no street network could be fetched for
	// the requested area.
	ErrGraphUnavailable = errors.New("street network unavailable")

	// ErrNoPath indicates the two snapped nodes are not connected.
	ErrNoPath = errors.New("no path between nodes")

	// ErrEmptyGraph indicates the provider returned a network with no
	// drivable ways.
	ErrEmptyGraph = errors.New("street network is empty")
)

// Provider fetches the drivable street network around a center point.
type Provider interface {
	// FetchNetwork returns the street network covering the area around
	// the given center.
	FetchNetwork(ctx context.Context, lat, lon float64) (*Graph, error)

	// Name returns the provider's identifier for logging and errors.
	Name() string
}

// Error represents a street network provider error with context.
type Error struct {
	// Provider is the name of the provider that generated the error.
	Provider string

	// Code is a provider-specific error code.
	Code string

	// Message is a human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Provider, e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}
