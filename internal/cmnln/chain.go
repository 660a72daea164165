package cmnln

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shugein/ceg/internal/config"
	"github.com/shugein/ceg/internal/models"
)

// Direction selects which edges chain discovery follows from the root.
type Direction string

const (
	DirectionForward       Direction = "forward"  // follow outgoing CAUSES edges
	DirectionBackward      Direction = "backward" // follow incoming CAUSES edges
	DirectionBidirectional Direction = "bidirectional"
)

// ChainGraph is the read surface chain discovery needs from the graph
// store: edges in both directions plus enough about each endpoint to
// score them. The Graph Writer package supplies the concrete
// implementation; this package only traverses.
type ChainGraph interface {
	Outgoing(ctx context.Context, eventID string) ([]models.CausalLink, error)
	Incoming(ctx context.Context, eventID string) ([]models.CausalLink, error)
	EventTimestamp(ctx context.Context, eventID string) (time.Time, bool)
	EventImportance(ctx context.Context, eventID string) float64
}

// chainOptions bounds chain discovery per spec.md §4.G's BFS description,
// derived from config.CMNLNConfig rather than held as separate literals.
type chainOptions struct {
	DepthCap      int
	EdgeThreshold float64
	TimeWindowCap time.Duration
	TopK          int
}

func chainOptionsFromConfig(cfg config.CMNLNConfig) chainOptions {
	return chainOptions{
		DepthCap:      cfg.ChainDepthCap,
		EdgeThreshold: cfg.MinConfTotal,
		TimeWindowCap: time.Duration(cfg.ChainTimeWindowHours) * time.Hour,
		TopK:          cfg.ChainTopK,
	}
}

// Chain is one discovered path of CAUSES edges from the root.
type Chain struct {
	EventIDs      []string
	Edges         []models.CausalLink
	AvgConfidence float64
}

// pathElement is one step in a BFS traversal: the edge taken and the node
// it leads to.
type pathElement struct {
	edge models.CausalLink
	node string
}

// traversalEntry is one frontier item in the BFS queue: the current node,
// the path taken to reach it, and the set of nodes already visited on that
// specific path (a node may recur across different paths, just not twice
// within one).
type traversalEntry struct {
	node    string
	path    []pathElement
	visited map[string]bool
	depth   int
}

// DiscoverChains explores CAUSES edges from root up to the configured
// depth cap, pruning edges below the configured minimum effective
// confidence or outside the configured time-window cap of the root's
// timestamp, and returns up to the configured top-K chains ranked by
// average edge confidence (spec.md §4.G, chain discovery).
func (e *Engine) DiscoverChains(ctx context.Context, graph ChainGraph, root string, dir Direction) ([]Chain, error) {
	opts := chainOptionsFromConfig(e.cfg)
	rootTime, ok := graph.EventTimestamp(ctx, root)
	if !ok {
		return nil, nil
	}

	queue := []traversalEntry{{node: root, visited: map[string]bool{root: true}}}
	var chains []Chain

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]

		if entry.depth >= opts.DepthCap {
			continue
		}

		edges, err := neighborEdges(ctx, graph, entry.node, dir)
		if err != nil {
			return nil, err
		}

		for _, edge := range edges {
			next := edge.EffectEventID
			if edgeIsReverse(edge, entry.node) {
				next = edge.CauseEventID
			}
			if entry.visited[next] {
				continue
			}
			nextTime, ok := graph.EventTimestamp(ctx, next)
			if !ok {
				continue
			}
			if absDuration(nextTime.Sub(rootTime)) > opts.TimeWindowCap {
				continue
			}

			eff := effectiveEdgeConfidence(ctx, graph, edge, opts.TimeWindowCap)
			if eff < opts.EdgeThreshold {
				continue
			}

			nextVisited := make(map[string]bool, len(entry.visited)+1)
			for k := range entry.visited {
				nextVisited[k] = true
			}
			nextVisited[next] = true

			nextPath := make([]pathElement, len(entry.path), len(entry.path)+1)
			copy(nextPath, entry.path)
			nextPath = append(nextPath, pathElement{edge: edge, node: next})

			chains = append(chains, buildChain(root, nextPath))
			queue = append(queue, traversalEntry{
				node:    next,
				path:    nextPath,
				visited: nextVisited,
				depth:   entry.depth + 1,
			})
		}
	}

	sort.Slice(chains, func(i, j int) bool { return chains[i].AvgConfidence > chains[j].AvgConfidence })
	if len(chains) > opts.TopK {
		chains = chains[:opts.TopK]
	}
	return chains, nil
}

func neighborEdges(ctx context.Context, graph ChainGraph, node string, dir Direction) ([]models.CausalLink, error) {
	var edges []models.CausalLink
	if dir == DirectionForward || dir == DirectionBidirectional {
		out, err := graph.Outgoing(ctx, node)
		if err != nil {
			return nil, err
		}
		edges = append(edges, out...)
	}
	if dir == DirectionBackward || dir == DirectionBidirectional {
		in, err := graph.Incoming(ctx, node)
		if err != nil {
			return nil, err
		}
		edges = append(edges, in...)
	}
	return edges, nil
}

// edgeIsReverse reports whether node is the edge's effect rather than its
// cause, meaning traversal is moving backward along CAUSES.
func edgeIsReverse(edge models.CausalLink, node string) bool {
	return edge.EffectEventID == node
}

func buildChain(root string, path []pathElement) Chain {
	ids := make([]string, 0, len(path)+1)
	edges := make([]models.CausalLink, 0, len(path))
	ids = append(ids, root)
	var sum float64
	for _, p := range path {
		ids = append(ids, p.node)
		edges = append(edges, p.edge)
		sum += p.edge.ConfTotal
	}
	avg := 0.0
	if len(edges) > 0 {
		avg = sum / float64(len(edges))
	}
	return Chain{EventIDs: ids, Edges: edges, AvgConfidence: avg}
}

// Named weights for the per-edge effective-confidence blend: the stored
// conf_total dominates, with smaller adjustments for how close the delay
// is to the "optimal" 2h window and how important both endpoints are.
const (
	edgeWeightConfTotal   = 0.6
	edgeWeightTimeOptimal = 0.25
	edgeWeightImportance  = 0.15
	optimalDelay          = 2 * time.Hour
)

// effectiveEdgeConfidence blends the stored conf_total with a
// time-proximity factor centred on an optimal 2h delay (falloff sigma half
// the configured time-window cap) and an importance factor (geometric mean
// of both endpoints' importances), per spec.md §4.G's chain-discovery
// description.
func effectiveEdgeConfidence(ctx context.Context, graph ChainGraph, edge models.CausalLink, timeWindowCap time.Duration) float64 {
	causeTime, okC := graph.EventTimestamp(ctx, edge.CauseEventID)
	effectTime, okE := graph.EventTimestamp(ctx, edge.EffectEventID)
	var timeFactor float64
	if okC && okE {
		delta := effectTime.Sub(causeTime)
		sigma := float64(timeWindowCap) / 2.0
		timeFactor = gaussian(math.Abs(float64(delta-optimalDelay)), sigma)
	}

	importanceFactor := math.Sqrt(clamp01(graph.EventImportance(ctx, edge.CauseEventID)) *
		clamp01(graph.EventImportance(ctx, edge.EffectEventID)))

	return clamp01(edge.ConfTotal)*edgeWeightConfTotal +
		clamp01(timeFactor)*edgeWeightTimeOptimal +
		clamp01(importanceFactor)*edgeWeightImportance
}
