// Package geocode resolves free-text delivery addresses to coordinates.
package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Sentinel errors for geocoding operations.
var (
	// ErrAddressNotFound indicates no provider could resolve the address.
	ErrAddressNotFound = errors.New("address could not be geocoded")
	// ErrProviderUnavailable indicates the provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")
)

// Point is an immutable geographic coordinate produced by a provider.
type Point struct {
	Lat float64
	Lon float64
}

// Provider resolves a single address to a coordinate.
type Provider interface {
	// Geocode resolves address to a Point. Implementations return
	// ErrAddressNotFound for unresolvable addresses and
	// ErrProviderUnavailable (possibly wrapped) for transport failures.
	Geocode(ctx context.Context, address string) (Point, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Error provides detailed error information from a geocoding provider.
type Error struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NormalizeAddress lowercases and trims an address for content-addressed
// cache keying. Two spellings that normalize equally share a cache slot.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// CacheKey returns the cache key for an address: the hex SHA-256 of its
// normalized form.
func CacheKey(address string) string {
	sum := sha256.Sum256([]byte(NormalizeAddress(address)))
	return hex.EncodeToString(sum[:])
}
