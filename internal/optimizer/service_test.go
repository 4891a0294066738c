package optimizer

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/cache"
	"github.com/optiroute/optiroute/internal/evaluate"
	"github.com/optiroute/optiroute/internal/geocode"
	"github.com/optiroute/optiroute/internal/matrix"
	"github.com/optiroute/optiroute/internal/solver"
	"github.com/optiroute/optiroute/internal/streetgraph"
)

// tableProvider resolves addresses from a fixed table.
type tableProvider struct {
	points map[string]geocode.Point
	calls  int
}

func (p *tableProvider) Geocode(ctx context.Context, address string) (geocode.Point, error) {
	p.calls++
	if pt, ok := p.points[geocode.NormalizeAddress(address)]; ok {
		return pt, nil
	}
	return geocode.Point{}, geocode.ErrAddressNotFound
}

func (p *tableProvider) Name() string { return "table" }

type failingNetworkProvider struct{}

func (failingNetworkProvider) FetchNetwork(ctx context.Context, lat, lon float64) (*streetgraph.Graph, error) {
	return nil, streetgraph.ErrGraphUnavailable
}

func (failingNetworkProvider) Name() string { return "failing" }

var knownAddresses = map[string]geocode.Point{
	"depot":   {Lat: -23.5505, Lon: -46.6333},
	"stop a":  {Lat: -23.5515, Lon: -46.6343},
	"stop b":  {Lat: -23.5525, Lon: -46.6353},
	"stop c":  {Lat: -23.5535, Lon: -46.6363},
}

func newTestService(networks *streetgraph.Service) (*Service, *tableProvider) {
	logger := zerolog.Nop()

	provider := &tableProvider{points: knownAddresses}
	geocoder := geocode.NewService(geocode.ServiceConfig{
		Providers: []geocode.Provider{provider},
		Logger:    logger,
	})

	svc := NewService(ServiceConfig{
		Geocoder: geocoder,
		Matrices: matrix.NewBuilder(matrix.BuilderConfig{Networks: networks, Logger: logger}),
		Solver:   solver.New(solver.Config{Logger: logger}),
		Evaluator: evaluate.NewEvaluator(evaluate.EvaluatorConfig{
			Prices: evaluate.NewPriceService(evaluate.PriceServiceConfig{Logger: logger}),
			Logger: logger,
		}),
		Janitor: cache.NewJanitor(logger, geocoder.Cache()),
		Logger:  logger,
	})
	return svc, provider
}

func testRequest() Request {
	return Request{
		Origin: "Depot",
		Deliveries: []Delivery{
			{Address: "Stop A", Products: []ProductQuantity{{Name: "water", Quantity: 2}}},
			{Address: "Stop B"},
			{Address: "Stop C"},
		},
		Vehicle: Vehicle{Fuel: evaluate.FuelGasoline},
	}
}

func TestOptimizeEndToEnd(t *testing.T) {
	svc, _ := newTestService(nil)

	result, err := svc.Optimize(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Origin.Address != "Depot" || result.Origin.Sequence != 0 {
		t.Errorf("unexpected origin stop: %+v", result.Origin)
	}
	if len(result.Stops) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(result.Stops))
	}

	seen := map[string]bool{}
	for i, stop := range result.Stops {
		if stop.Sequence != i+1 {
			t.Errorf("stop %d has sequence %d", i, stop.Sequence)
		}
		seen[stop.Address] = true
	}
	for _, addr := range []string{"Stop A", "Stop B", "Stop C"} {
		if !seen[addr] {
			t.Errorf("delivery %q missing from result", addr)
		}
	}

	if result.Summary.DistanceKm <= 0 {
		t.Error("expected positive distance")
	}
	if result.Summary.Stops != 3 {
		t.Errorf("expected 3 stops in summary, got %d", result.Summary.Stops)
	}
	if result.Summary.MapLink == "" {
		t.Error("expected a map link")
	}
	if result.MatrixSource != matrix.SourceHaversine {
		t.Errorf("expected haversine source without networks, got %s", result.MatrixSource)
	}
	if result.SolvedAt.IsZero() {
		t.Error("expected solved timestamp")
	}
}

func TestOptimizeCarriesProducts(t *testing.T) {
	svc, _ := newTestService(nil)

	result, err := svc.Optimize(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, stop := range result.Stops {
		if stop.Address == "Stop A" {
			if len(stop.Products) != 1 || stop.Products[0].Name != "water" {
				t.Errorf("products lost in reordering: %+v", stop.Products)
			}
			return
		}
	}
	t.Fatal("Stop A missing")
}

func TestOptimizeGeocodeFailureAbortsWholeRequest(t *testing.T) {
	svc, _ := newTestService(nil)

	req := testRequest()
	req.Deliveries = append(req.Deliveries, Delivery{Address: "nowhere street 42"})

	_, err := svc.Optimize(context.Background(), req)
	if !errors.Is(err, geocode.ErrAddressNotFound) {
		t.Fatalf("expected ErrAddressNotFound, got %v", err)
	}

	var batchErr *geocode.BatchError
	if !errors.As(err, &batchErr) {
		t.Fatal("expected BatchError identifying the failed address")
	}
	if batchErr.Address != "nowhere street 42" {
		t.Errorf("wrong failed address: %q", batchErr.Address)
	}
}

func TestOptimizeStreetNetworkFailureDegrades(t *testing.T) {
	networks := streetgraph.NewService(streetgraph.ServiceConfig{
		Provider: failingNetworkProvider{},
		Logger:   zerolog.Nop(),
	})
	svc, _ := newTestService(networks)

	result, err := svc.Optimize(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("network failure must degrade, not fail: %v", err)
	}
	if result.MatrixSource != matrix.SourceHaversine {
		t.Errorf("expected haversine degradation, got %s", result.MatrixSource)
	}
}

func TestOptimizeValidation(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	if _, err := svc.Optimize(ctx, Request{Deliveries: []Delivery{{Address: "x"}}}); !errors.Is(err, ErrNoOrigin) {
		t.Errorf("expected ErrNoOrigin, got %v", err)
	}
	if _, err := svc.Optimize(ctx, Request{Origin: "Depot"}); !errors.Is(err, ErrNoDeliveries) {
		t.Errorf("expected ErrNoDeliveries, got %v", err)
	}
	req := testRequest()
	req.Vehicle.Fuel = "plutonium"
	if _, err := svc.Optimize(ctx, req); !errors.Is(err, evaluate.ErrUnknownFuelType) {
		t.Errorf("expected ErrUnknownFuelType, got %v", err)
	}
}

func TestOptimizeReusesGeocodeCache(t *testing.T) {
	svc, provider := newTestService(nil)

	// SweepInterval calls exercise at least one janitor sweep along the
	// way; fresh entries must survive it and keep serving from cache.
	for i := 0; i < cache.SweepInterval; i++ {
		if _, err := svc.Optimize(context.Background(), testRequest()); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}

	// 4 addresses resolved once each, every later call is a cache hit.
	if provider.calls != 4 {
		t.Errorf("expected 4 provider calls, got %d", provider.calls)
	}
}
