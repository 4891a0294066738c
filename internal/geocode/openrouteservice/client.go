// Package openrouteservice provides a client for the OpenRouteService
// geocoding API (Pelias). It is the precise, street-network-aware provider
// in the geocoding fallback chain.
package openrouteservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/geocode"
	"github.com/optiroute/optiroute/internal/provider/resilience"
	"github.com/optiroute/optiroute/internal/telemetry"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "openrouteservice"

	// DefaultBaseURL is the OpenRouteService API base URL.
	DefaultBaseURL = "https://api.openrouteservice.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenRouteService geocoding client.
type ClientConfig struct {
	// APIKey is the ORS API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to ORS API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Metrics records request durations (optional). Only used when
	// HTTPClient is nil.
	Metrics *telemetry.ProviderMetrics

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenRouteService geocoding client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OpenRouteService geocoding client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		if cfg.Registry != nil {
			clientCfg.Registry = cfg.Registry
		}
		clientCfg.Metrics = cfg.Metrics
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Geocode resolves an address via the ORS geocoding search endpoint.
func (c *Client) Geocode(ctx context.Context, address string) (geocode.Point, error) {
	query := url.Values{}
	query.Set("api_key", c.apiKey)
	query.Set("text", address)
	query.Set("size", "1")

	reqURL := fmt.Sprintf("%s/geocode/search?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return geocode.Point{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/geo+json")

	c.logger.Debug().Str("address", address).Msg("requesting geocode from ORS")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return geocode.Point{}, &geocode.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach geocoding provider",
			Err:      geocode.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return geocode.Point{}, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return geocode.Point{}, c.handleErrorResponse(resp.StatusCode)
	}

	var search searchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		return geocode.Point{}, fmt.Errorf("decoding response: %w", err)
	}

	if len(search.Features) == 0 {
		return geocode.Point{}, &geocode.Error{
			Provider: ProviderName,
			Code:     "NO_MATCH",
			Message:  "no match for address",
			Err:      geocode.ErrAddressNotFound,
		}
	}

	// GeoJSON coordinate order is [lon, lat].
	coords := search.Features[0].Geometry.Coordinates
	if len(coords) < 2 {
		return geocode.Point{}, &geocode.Error{
			Provider: ProviderName,
			Code:     "MALFORMED_GEOMETRY",
			Message:  "feature geometry missing coordinates",
			Err:      geocode.ErrAddressNotFound,
		}
	}

	return geocode.Point{Lat: coords[1], Lon: coords[0]}, nil
}

// handleErrorResponse maps ORS error statuses to domain errors.
func (c *Client) handleErrorResponse(statusCode int) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &geocode.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded",
			Err:      geocode.ErrProviderUnavailable,
		}
	case statusCode == http.StatusForbidden || statusCode == http.StatusUnauthorized:
		return &geocode.Error{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "API access denied - check API key configuration",
			Err:      geocode.ErrProviderUnavailable,
		}
	case statusCode >= 500:
		return &geocode.Error{
			Provider: ProviderName,
			Code:     "SERVER_" + strconv.Itoa(statusCode),
			Message:  "geocoding provider is temporarily unavailable",
			Err:      geocode.ErrProviderUnavailable,
		}
	default:
		return &geocode.Error{
			Provider: ProviderName,
			Code:     "HTTP_" + strconv.Itoa(statusCode),
			Message:  fmt.Sprintf("geocoding provider returned status %d", statusCode),
			Err:      geocode.ErrProviderUnavailable,
		}
	}
}

// searchResponse is the subset of the Pelias GeoJSON response we consume.
type searchResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}
