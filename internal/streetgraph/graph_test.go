package streetgraph

import (
	"errors"
	"math"
	"testing"
)

// lineGraph builds a three node chain: 1 -- 2 -- 3 with explicit weights.
func lineGraph() *Graph {
	g := NewGraph()
	g.AddNode(1, -23.55, -46.63)
	g.AddNode(2, -23.56, -46.64)
	g.AddNode(3, -23.57, -46.65)
	g.AddEdge(1, 2, 100)
	g.AddEdge(2, 3, 200)
	return g
}

func TestShortestPathAlongChain(t *testing.T) {
	g := lineGraph()

	from, _ := g.NearestNode(-23.55, -46.63)
	to, _ := g.NearestNode(-23.57, -46.65)

	dist, err := g.ShortestPathMeters(from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dist != 300 {
		t.Errorf("expected 300m, got %f", dist)
	}
}

func TestShortestPathPrefersShorterRoute(t *testing.T) {
	g := lineGraph()
	// Direct shortcut between the chain endpoints.
	g.AddEdge(1, 3, 250)

	dist, err := g.ShortestPathMeters(0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dist != 250 {
		t.Errorf("expected shortcut 250m, got %f", dist)
	}
}

func TestShortestPathSameNode(t *testing.T) {
	g := lineGraph()
	dist, err := g.ShortestPathMeters(1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dist != 0 {
		t.Errorf("expected 0 for same node, got %f", dist)
	}
}

func TestShortestPathDisconnected(t *testing.T) {
	g := lineGraph()
	g.AddNode(4, -23.60, -46.70) // isolated vertex

	island, _ := g.NearestNode(-23.60, -46.70)
	if _, err := g.ShortestPathMeters(0, island); !errors.Is(err, ErrNoPath) {
		t.Errorf("expected ErrNoPath, got %v", err)
	}
}

func TestShortestPathOutOfRange(t *testing.T) {
	g := lineGraph()
	if _, err := g.ShortestPathMeters(0, 99); !errors.Is(err, ErrNoPath) {
		t.Errorf("expected ErrNoPath for out of range index, got %v", err)
	}
}

func TestNearestNodeEmptyGraph(t *testing.T) {
	g := NewGraph()
	if _, ok := g.NearestNode(-23.55, -46.63); ok {
		t.Error("expected no nearest node on empty graph")
	}
}

func TestNearestNodeSnapsToClosest(t *testing.T) {
	g := lineGraph()
	// Just off node 2's position.
	idx, ok := g.NearestNode(-23.5601, -46.6401)
	if !ok {
		t.Fatal("expected a nearest node")
	}
	if g.nodes[idx].ID != 2 {
		t.Errorf("expected snap to node 2, got %d", g.nodes[idx].ID)
	}
}

func TestAddEdgeUnknownEndpointIgnored(t *testing.T) {
	g := lineGraph()
	before := g.EdgeCount()
	g.AddEdge(1, 999, 50)
	if g.EdgeCount() != before {
		t.Error("edge to unknown node must be ignored")
	}
}

func TestAddNodeUpdatesPosition(t *testing.T) {
	g := NewGraph()
	g.AddNode(1, -23.55, -46.63)
	g.AddNode(1, -23.60, -46.70)
	if g.NodeCount() != 1 {
		t.Fatalf("expected one node, got %d", g.NodeCount())
	}
	if math.Abs(g.nodes[0].Lat-(-23.60)) > 1e-9 {
		t.Errorf("expected updated latitude, got %f", g.nodes[0].Lat)
	}
}
