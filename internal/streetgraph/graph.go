package streetgraph

import (
	"container/heap"
	"math"

	"github.com/optiroute/optiroute/pkg/geodist"
)

// Node is a street network vertex with its geographic position.
type Node struct {
	ID  int64
	Lat float64
	Lon float64
}

type arc struct {
	to     int
	meters float64
}

// Graph is an undirected weighted street network. Nodes are addressed by
// dense internal indexes; external OSM identifiers map to indexes via
// AddNode.
type Graph struct {
	nodes []Node
	index map[int64]int
	adj   [][]arc
}

// NewGraph creates an empty street network.
func NewGraph() *Graph {
	return &Graph{index: make(map[int64]int)}
}

// AddNode registers a vertex. Adding an existing ID updates its position.
func (g *Graph) AddNode(id int64, lat, lon float64) {
	if i, ok := g.index[id]; ok {
		g.nodes[i].Lat = lat
		g.nodes[i].Lon = lon
		return
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, Node{ID: id, Lat: lat, Lon: lon})
	g.adj = append(g.adj, nil)
}

// AddEdge connects two registered nodes in both directions with the given
// length in meters. Unknown endpoints are ignored.
func (g *Graph) AddEdge(fromID, toID int64, meters float64) {
	from, ok := g.index[fromID]
	if !ok {
		return
	}
	to, ok := g.index[toID]
	if !ok {
		return
	}
	g.adj[from] = append(g.adj[from], arc{to: to, meters: meters})
	g.adj[to] = append(g.adj[to], arc{to: from, meters: meters})
}

// NodeCount returns the number of vertices.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, arcs := range g.adj {
		total += len(arcs)
	}
	return total / 2
}

// NearestNode returns the internal index of the vertex closest to the
// given position. The second return is false for an empty graph.
func (g *Graph) NearestNode(lat, lon float64) (int, bool) {
	if len(g.nodes) == 0 {
		return 0, false
	}
	best := 0
	bestDist := math.MaxFloat64
	for i, n := range g.nodes {
		d := geodist.Haversine(lat, lon, n.Lat, n.Lon)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best, true
}

// ShortestPathMeters returns the length of the shortest path between two
// node indexes using Dijkstra's algorithm. Returns ErrNoPath when the
// nodes are not connected.
func (g *Graph) ShortestPathMeters(from, to int) (float64, error) {
	if from < 0 || from >= len(g.nodes) || to < 0 || to >= len(g.nodes) {
		return 0, ErrNoPath
	}
	if from == to {
		return 0, nil
	}

	dist := make([]float64, len(g.nodes))
	for i := range dist {
		dist[i] = math.MaxFloat64
	}
	dist[from] = 0

	pq := &nodeQueue{{node: from, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(queueItem)
		if item.dist > dist[item.node] {
			continue // stale queue entry
		}
		if item.node == to {
			return item.dist, nil
		}
		for _, a := range g.adj[item.node] {
			next := item.dist + a.meters
			if next < dist[a.to] {
				dist[a.to] = next
				heap.Push(pq, queueItem{node: a.to, dist: next})
			}
		}
	}

	return 0, ErrNoPath
}

type queueItem struct {
	node int
	dist float64
}

type nodeQueue []queueItem

func (q nodeQueue) Len() int            { return len(q) }
func (q nodeQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x interface{}) { *q = append(*q, x.(queueItem)) }
func (q *nodeQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
