package matrix

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/geocode"
	"github.com/optiroute/optiroute/internal/streetgraph"
	"github.com/optiroute/optiroute/pkg/geodist"
)

type stubNetworkProvider struct {
	graph *streetgraph.Graph
	err   error
}

func (p *stubNetworkProvider) FetchNetwork(ctx context.Context, lat, lon float64) (*streetgraph.Graph, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.graph, nil
}

func (p *stubNetworkProvider) Name() string { return "stub" }

// testPoints are spread within one grid cell around central Sao Paulo.
var testPoints = []geocode.Point{
	{Lat: -23.5505, Lon: -46.6333},
	{Lat: -23.5515, Lon: -46.6343},
	{Lat: -23.5525, Lon: -46.6353},
}

// connectedGraph has one vertex near each test point, chained in order.
func connectedGraph() *streetgraph.Graph {
	g := streetgraph.NewGraph()
	g.AddNode(1, -23.5505, -46.6333)
	g.AddNode(2, -23.5515, -46.6343)
	g.AddNode(3, -23.5525, -46.6353)
	g.AddEdge(1, 2, 1000)
	g.AddEdge(2, 3, 1000)
	return g
}

func networkService(p streetgraph.Provider) *streetgraph.Service {
	return streetgraph.NewService(streetgraph.ServiceConfig{
		Provider: p,
		Logger:   zerolog.Nop(),
	})
}

func TestBuildEmptyPoints(t *testing.T) {
	b := NewBuilder(BuilderConfig{Logger: zerolog.Nop()})
	if _, _, err := b.Build(context.Background(), nil); !errors.Is(err, ErrNoPoints) {
		t.Errorf("expected ErrNoPoints, got %v", err)
	}
}

func TestBuildSinglePoint(t *testing.T) {
	b := NewBuilder(BuilderConfig{Logger: zerolog.Nop()})
	m, _, err := b.Build(context.Background(), testPoints[:1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Size() != 1 || m[0][0] != 0 {
		t.Errorf("expected 1x1 zero matrix, got %v", m)
	}
}

func TestBuildStreetDistances(t *testing.T) {
	b := NewBuilder(BuilderConfig{
		Networks: networkService(&stubNetworkProvider{graph: connectedGraph()}),
		Logger:   zerolog.Nop(),
	})

	m, source, err := b.Build(context.Background(), testPoints)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != SourceStreet {
		t.Errorf("expected street source, got %s", source)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("invalid matrix: %v", err)
	}

	if m[0][1] != 1000 {
		t.Errorf("expected 1000m for adjacent points, got %d", m[0][1])
	}
	if m[0][2] != 2000 {
		t.Errorf("expected 2000m across the chain, got %d", m[0][2])
	}
}

func TestBuildNetworkUnavailableDegradesToHaversine(t *testing.T) {
	b := NewBuilder(BuilderConfig{
		Networks: networkService(&stubNetworkProvider{err: streetgraph.ErrGraphUnavailable}),
		Logger:   zerolog.Nop(),
	})

	m, source, err := b.Build(context.Background(), testPoints)
	if err != nil {
		t.Fatalf("degradation must not fail the build: %v", err)
	}
	if source != SourceHaversine {
		t.Errorf("expected haversine source, got %s", source)
	}

	want := geodist.HaversineMetersInt(
		testPoints[0].Lat, testPoints[0].Lon,
		testPoints[1].Lat, testPoints[1].Lon)
	if m[0][1] != want {
		t.Errorf("expected great-circle %dm, got %d", want, m[0][1])
	}
}

func TestBuildNoNetworksConfigured(t *testing.T) {
	b := NewBuilder(BuilderConfig{Logger: zerolog.Nop()})

	m, source, err := b.Build(context.Background(), testPoints)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != SourceHaversine {
		t.Errorf("expected haversine source, got %s", source)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("invalid matrix: %v", err)
	}
}

func TestBuildPartialFallbackIsMixed(t *testing.T) {
	// Node 3's position is isolated, so pairs touching point 2 cannot be
	// routed and fall back to great-circle distance.
	g := streetgraph.NewGraph()
	g.AddNode(1, -23.5505, -46.6333)
	g.AddNode(2, -23.5515, -46.6343)
	g.AddNode(3, -23.5525, -46.6353)
	g.AddEdge(1, 2, 1000)

	b := NewBuilder(BuilderConfig{
		Networks: networkService(&stubNetworkProvider{graph: g}),
		Logger:   zerolog.Nop(),
	})

	m, source, err := b.Build(context.Background(), testPoints)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != SourceMixed {
		t.Errorf("expected mixed source, got %s", source)
	}
	if m[0][1] != 1000 {
		t.Errorf("routable pair must keep street distance, got %d", m[0][1])
	}

	want := geodist.HaversineMetersInt(
		testPoints[0].Lat, testPoints[0].Lon,
		testPoints[2].Lat, testPoints[2].Lon)
	if m[0][2] != want {
		t.Errorf("unroutable pair must use great-circle %dm, got %d", want, m[0][2])
	}
}

func TestBuildSymmetryForLargePointSets(t *testing.T) {
	points := []geocode.Point{
		{Lat: -23.5505, Lon: -46.6333},
		{Lat: -23.5515, Lon: -46.6343},
		{Lat: -23.5525, Lon: -46.6353},
		{Lat: -23.5535, Lon: -46.6363},
		{Lat: -23.5545, Lon: -46.6373},
		{Lat: -23.5555, Lon: -46.6383},
	}

	b := NewBuilder(BuilderConfig{Logger: zerolog.Nop()})
	m, _, err := b.Build(context.Background(), points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("invalid matrix: %v", err)
	}

	for i := range points {
		for j := range points {
			if m[i][j] != m[j][i] {
				t.Errorf("matrix not symmetric at [%d][%d]: %d vs %d", i, j, m[i][j], m[j][i])
			}
		}
	}
}

func TestValidateRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
		want error
	}{
		{"ragged", Matrix{{0, 1}, {1}}, ErrNotSquare},
		{"negative", Matrix{{0, -1}, {1, 0}}, ErrNegativeCost},
		{"diagonal", Matrix{{5, 1}, {1, 0}}, ErrDiagonalNotZero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.m.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
