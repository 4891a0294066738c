// Package nominatim provides a client for the public OpenStreetMap Nominatim
// geocoding service. It is the fallback provider in the geocoding chain and
// enforces the Nominatim usage policy of at most one request per second.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/geocode"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "nominatim"

	// DefaultBaseURL is the public Nominatim endpoint.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// MinRequestInterval is the mandatory delay between requests to the
	// public service. This is a usage-policy requirement, not a tunable.
	MinRequestInterval = time.Second

	// userAgent identifies this application per the Nominatim usage policy.
	userAgent = "optiroute/1.0"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Nominatim client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to the public service).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional). The public service
	// is deliberately NOT wrapped in the retrying resilient client: retries
	// against a rate-limited community service would violate its policy.
	HTTPClient HTTPDoer

	// CountryCodes restricts results to the given comma-separated ISO
	// country codes (optional).
	CountryCodes string

	// MinInterval overrides MinRequestInterval. Only tests may shorten it.
	MinInterval time.Duration

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Nominatim geocoding client with request-interval throttling.
type Client struct {
	baseURL      string
	httpClient   HTTPDoer
	countryCodes string
	minInterval  time.Duration
	logger       zerolog.Logger

	mu       sync.Mutex
	lastCall time.Time
}

// NewClient creates a new Nominatim client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	minInterval := cfg.MinInterval
	if minInterval == 0 {
		minInterval = MinRequestInterval
	}

	return &Client{
		baseURL:      baseURL,
		httpClient:   httpClient,
		countryCodes: cfg.CountryCodes,
		minInterval:  minInterval,
		logger:       cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Geocode resolves an address via the Nominatim search endpoint. Calls are
// serialized so that consecutive requests are at least MinRequestInterval
// apart; a batch of cache misses therefore pays one second per address.
func (c *Client) Geocode(ctx context.Context, address string) (geocode.Point, error) {
	if err := c.throttle(ctx); err != nil {
		return geocode.Point{}, err
	}

	query := url.Values{}
	query.Set("q", address)
	query.Set("format", "json")
	query.Set("limit", "1")
	if c.countryCodes != "" {
		query.Set("countrycodes", c.countryCodes)
	}

	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return geocode.Point{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("address", address).Msg("requesting geocode from nominatim")

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
		return geocode.Point{}, &geocode.Error{
			Provider: ProviderName,
			Code:     "HTTP_" + strconv.Itoa(resp.StatusCode),
			Message:  fmt.Sprintf("geocoding provider returned status %d", resp.StatusCode),
			Err:      geocode.ErrProviderUnavailable,
		}
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return geocode.Point{}, fmt.Errorf("decoding response: %w", err)
	}

	if len(results) == 0 {
		return geocode.Point{}, &geocode.Error{
			Provider: ProviderName,
			Code:     "NO_MATCH",
			Message:  "no match for address",
			Err:      geocode.ErrAddressNotFound,
		}
	}

	// Nominatim returns coordinates as strings.
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return geocode.Point{}, fmt.Errorf("parsing latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return geocode.Point{}, fmt.Errorf("parsing longitude %q: %w", results[0].Lon, err)
	}

	return geocode.Point{Lat: lat, Lon: lon}, nil
}

// throttle blocks until at least minInterval has passed since the previous
// request, or until ctx is done. The wait is recomputed after every sleep:
// another caller may have claimed the slot in the meantime, in which case
// this caller waits a further full interval.
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	for {
		wait := c.minInterval - time.Since(c.lastCall)
		if wait <= 0 {
			break
		}
		c.mu.Unlock()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		c.mu.Lock()
	}
	c.lastCall = time.Now()
	c.mu.Unlock()
	return nil
}

// searchResult is the subset of a Nominatim search hit we consume.
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
