// Package overpass implements a street network provider backed by the
// Overpass API, building drivable graphs from OpenStreetMap ways.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/optiroute/optiroute/internal/provider/resilience"
	"github.com/optiroute/optiroute/internal/streetgraph"
	"github.com/optiroute/optiroute/internal/telemetry"
	"github.com/optiroute/optiroute/pkg/geodist"
)

const (
	// ProviderName is the identifier for this provider.
	ProviderName = "overpass"

	// DefaultBaseURL is the public Overpass API endpoint.
	DefaultBaseURL = "https://overpass-api.de"

	// DefaultRadiusMeters bounds the fetched network around the center.
	DefaultRadiusMeters = 5000

	// DefaultTimeout is the HTTP request timeout. Overpass queries are
	// slow compared to point lookups.
	DefaultTimeout = 60 * time.Second
)

// drivableHighways matches OSM highway values that carry motor traffic.
const drivableHighways = "motorway|trunk|primary|secondary|tertiary|unclassified|residential|living_street|service"

// HTTPDoer is the interface for making HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Overpass client.
type ClientConfig struct {
	// BaseURL is the API base URL (default: DefaultBaseURL).
	BaseURL string

	// RadiusMeters bounds the fetched network (default: DefaultRadiusMeters).
	RadiusMeters int

	// HTTPClient is the HTTP client to use. If nil, a resilient client
	// with circuit breaker and retries is created.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (default: DefaultTimeout).
	Timeout time.Duration

	// Registry tracks provider health. Only used when HTTPClient is nil.
	Registry *resilience.Registry

	// Metrics records request durations. Only used when HTTPClient is nil.
	Metrics *telemetry.ProviderMetrics
}

// Client is a street network provider backed by the Overpass API.
type Client struct {
	baseURL      string
	radiusMeters int
	httpClient   HTTPDoer
}

// NewClient creates a new Overpass client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	radius := cfg.RadiusMeters
	if radius <= 0 {
		radius = DefaultRadiusMeters
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:     ProviderName,
			Timeout:  timeout,
			Registry: cfg.Registry,
			Metrics:  cfg.Metrics,
		})
	}

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		radiusMeters: radius,
		httpClient:   httpClient,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchNetwork fetches the drivable street network around the center and
// assembles it into a graph. Way segments are weighted by great-circle
// length between consecutive nodes.
func (c *Client) FetchNetwork(ctx context.Context, lat, lon float64) (*streetgraph.Graph, error) {
	query := fmt.Sprintf(
		`[out:json][timeout:25];way[highway~"^(%s)$"](around:%d,%f,%f);(._;>;);out body;`,
		drivableHighways, c.radiusMeters, lat, lon,
	)

	form := url.Values{}
	form.Set("data", query)

	endpoint := c.baseURL + "/api/interpreter"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &streetgraph.Error{
			Provider: ProviderName,
			Code:     "REQUEST_CREATION_FAILED",
			Message:  "failed to create HTTP request",
			Err:      err,
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &streetgraph.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "HTTP request failed",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var payload overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &streetgraph.Error{
			Provider: ProviderName,
			Code:     "DECODE_FAILED",
			Message:  "failed to decode response",
			Err:      err,
		}
	}

	graph := buildGraph(payload.Elements)
	if graph.NodeCount() == 0 {
		return nil, &streetgraph.Error{
			Provider: ProviderName,
			Code:     "EMPTY_NETWORK",
			Message:  fmt.Sprintf("no drivable ways within %dm of (%f, %f)", c.radiusMeters, lat, lon),
			Err:      streetgraph.ErrEmptyGraph,
		}
	}

	return graph, nil
}

// handleErrorResponse maps HTTP error responses to provider errors.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return &streetgraph.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMITED",
			Message:  "rate limit exceeded",
			Err:      streetgraph.ErrGraphUnavailable,
		}
	case http.StatusGatewayTimeout:
		return &streetgraph.Error{
			Provider: ProviderName,
			Code:     "QUERY_TIMEOUT",
			Message:  "query exceeded server time limit",
			Err:      streetgraph.ErrGraphUnavailable,
		}
	default:
		return &streetgraph.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:  fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			Err:      streetgraph.ErrGraphUnavailable,
		}
	}
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type  string  `json:"type"`
	ID    int64   `json:"id"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Nodes []int64 `json:"nodes"`
}

// buildGraph assembles a graph from Overpass elements. Nodes must be
// registered before way edges referencing them; Overpass interleaves the
// two, so nodes are collected in a first pass.
func buildGraph(elements []overpassElement) *streetgraph.Graph {
	graph := streetgraph.NewGraph()

	coords := make(map[int64][2]float64)
	for _, el := range elements {
		if el.Type == "node" {
			graph.AddNode(el.ID, el.Lat, el.Lon)
			coords[el.ID] = [2]float64{el.Lat, el.Lon}
		}
	}

	for _, el := range elements {
		if el.Type != "way" {
			continue
		}
		for i := 1; i < len(el.Nodes); i++ {
			from, okFrom := coords[el.Nodes[i-1]]
			to, okTo := coords[el.Nodes[i]]
			if !okFrom || !okTo {
				continue
			}
			meters := geodist.Haversine(from[0], from[1], to[0], to[1])
			graph.AddEdge(el.Nodes[i-1], el.Nodes[i], meters)
		}
	}

	return graph
}
